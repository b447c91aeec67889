// Package command turns language model output into repository operations.
//
// The model answers with a JSON object or a JSON list of objects. Every
// object names its operation in the "task" key; the remaining keys must match
// the operation's schema exactly. A Registry holds the operations a calling
// state allows. It validates the complete payload before any operation runs,
// so a malformed answer never touches the repository.
//
// Failures are reported with three error types:
//
//   - ValidationError: the answer violates the protocol; nothing was executed.
//   - DomainError: the repository rejected an operation, e.g. an unknown deck.
//     It carries near-miss suggestions and the operations that already ran.
//   - ResourceError: the repository itself failed.
//
// CorrectiveMessage renders the first two kinds into the text that is sent
// back to the model on the next attempt.
package command
