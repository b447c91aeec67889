// Package search implements the card search strategies the assistant uses to
// select cards for bulk operations: exact substring matching, fuzzy substring
// matching and semantic lookup through an embedding index. Strategies are
// combined with UnionSearchAll.
package search
