// Package gemini implements chat, streaming and embeddings for Google's
// Gemini generative language API.
//
// Gemini takes the system instruction as a separate request field rather
// than as a conversation turn. The package models this as a two-phase
// handle: [GeminiProvider] holds the connection settings, and
// [GeminiProvider.Bind] returns a [Session] that owns one system
// instruction. [GeminiProvider.Chat] and [GeminiProvider.StreamChat] bind a
// fresh session per call from the request's leading system message, so no
// state is shared between requests.
//
// Gemini only accepts inline image bytes. Remote images are downloaded
// through the configured [ai.ImageFetcher] before the request is sent.
//
// The entry point is [New], which reads GEMINI_API_KEY and
// GEMINI_API_BASE_URL from the environment.
package gemini
