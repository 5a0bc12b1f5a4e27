// Package anthropic implements [ai.ChatProvider] and [ai.StreamProvider] for
// Anthropic's Messages API.
//
// The leading system message moves to the top-level system field, prior tool
// calls become tool_use blocks and tool results become user turns carrying a
// tool_result block. Anthropic has no native structured output, so a response
// schema is rendered into an extra system instruction. max_tokens is required
// and at most one choice is produced per request.
//
// The primary entry point is [New], which reads ANTHROPIC_API_KEY and
// ANTHROPIC_API_BASE_URL from the environment.
package anthropic
