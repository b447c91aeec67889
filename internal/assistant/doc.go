// Package assistant implements the dialogue-driven task engine.
//
// An Engine turns one free-form user utterance into repository changes, an
// answer or a study step by walking a graph of states. Every state owns one
// prompt template and talks to the language model through its own
// llm.Communicator; classification states read a signal word from the reply,
// parameter states demand an exact JSON shape, and execution states hand
// model output to a command.Registry. Replies that cannot be used are
// answered with a corrective message until the state's attempt cap is
// reached, at which point the run fails with an *ExhaustedError naming the
// state. Model and repository outages are charged to a separate error
// budget per run.
//
// The state graph is a single transition table registered when the Engine
// is built. States never construct one another; they return the ID of the
// next state and the engine checks the transition against the table.
//
// A Conversation wraps an Engine for a whole session: it joins queries that
// are still waiting for missing information and records every turn in the
// session's history.Log.
package assistant
