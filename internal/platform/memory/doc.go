// Package memory provides an in-process implementation of store.Repository.
//
// It backs the CLI when no database is configured and serves as the
// repository double in tests. Decks and cards can be preloaded from a YAML
// seed file with LoadSeed.
package memory
