// Package openai implements the OpenAI family of providers: OpenAI itself
// (chat, streaming, embeddings, whisper transcription and DALL·E image
// generation) and xAI, whose chat API is OpenAI-compatible.
//
// Requests use the Chat Completions wire format. The system message stays
// inline as the first turn, images are sent as image_url parts (remote URLs
// as-is, inline bytes as data URLs), prior tool calls carry their arguments
// as JSON strings, and a response schema is passed natively through
// response_format with type json_schema.
//
// Use [New] for OpenAI (OPENAI_API_KEY, OPENAI_API_BASE_URL) and [NewXAI] for
// xAI (XAI_API_KEY, XAI_API_BASE_URL).
package openai
