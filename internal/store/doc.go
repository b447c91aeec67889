// Package store defines the flashcard repository contract used by the
// assistant. The interfaces abstract the underlying storage so the
// orchestration engine stays independent of any specific database, and the
// package's error values are what the engine inspects to tell domain failures
// (a deck that does not exist, a duplicate name) from resource failures.
package store
