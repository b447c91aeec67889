// Package gemini connects the assistant to Google's Gemini API.
//
// It is an infrastructure adapter: the engine only sees the llm.Model and
// search.Embedder interfaces, and this package translates between those and
// the google.golang.org/genai client.
//
// Key components:
//
// 1. Model:
//   - Implements llm.Model on top of Models.GenerateContent
//   - Sends the system message as the request's system instruction
//   - Retries transient failures with exponential backoff and jitter
//
// 2. Embedder:
//   - Implements search.Embedder on top of Models.EmbedContent
//   - Uses retrieval task types for documents and queries
//
// 3. Error Handling:
//   - Rate limits and server errors are retried, everything else is returned
//   - Blocked or empty responses wrap ErrContentBlocked or llm.ErrEmptyResponse
package gemini
