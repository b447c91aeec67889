// Package events carries progress notifications out of the assistant engine.
//
// The engine emits a ProgressEvent after every state transition, after every
// committed repository action and when a run finishes. Emitters fan events
// out to registered handlers without the engine knowing who listens, which
// lets the HTTP layer stream progress to clients and the CLI print it.
//
// The primary components are:
// - ProgressEvent: a single progress notification
// - EventHandler: interface for components that consume events
// - EventEmitter: interface for components that publish events
package events
