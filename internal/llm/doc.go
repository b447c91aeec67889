// Package llm holds the conversation primitives the assistant uses to talk to
// a language model: the Model interface implemented by concrete providers,
// the Communicator that keeps an ordered transcript with visibility blocks,
// the Recorder that logs every call grouped into exchanges, and helpers that
// turn free-form replies into classification signals.
package llm
