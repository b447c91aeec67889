// Package mocks provides centralized test doubles for the assistant's
// external collaborators.
//
// Instead of defining inline fakes in individual test files, tests reuse
// these implementations:
//
//   - ScriptedModel replays canned language model replies and records every
//     request it received.
//   - MockIndex returns fixed semantic search hits.
//   - MockEmbedder produces deterministic keyword vectors.
//   - EventRecorder collects progress events.
//
// Usage:
//
//	model := mocks.NewScriptedModel("task", `{"task": "create_deck", "name": "Physics"}`)
//	engine := assistant.NewEngine(model, repo, ...)
//	// ...
//	assert.Equal(t, 2, model.CallCount())
//
// When adding a new double to this package, name the file after the
// interface being replaced and track calls behind a mutex so the double can
// be shared by concurrent sessions.
package mocks
