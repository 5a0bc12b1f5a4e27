// Package mistral implements chat, streaming and embeddings for Mistral's
// La Plateforme API.
//
// The wire format is close to OpenAI's Chat Completions with a few
// differences: image_url is a bare string, tool results carry the tool name
// next to tool_call_id, and there is no JSON Schema response mode. A response
// schema is rendered into the system instruction and the request switches to
// json_object mode.
//
// The entry point is [New], which reads MISTRAL_API_KEY and
// MISTRAL_API_BASE_URL from the environment.
package mistral
