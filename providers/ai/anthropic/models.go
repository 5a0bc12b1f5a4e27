package anthropic

import json "github.com/goccy/go-json"

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// anthropicRequest represents the request body for Anthropic's Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"` // Required by Anthropic on every request
	Temperature *float64           `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// anthropicMessage represents a single message in the conversation.
type anthropicMessage struct {
	Role    string                  `json:"role"`    // "user" or "assistant"
	Content []anthropicContentBlock `json:"content"` // Array of content blocks
}

// anthropicContentBlock is a discriminated union via the Type field:
//   - "text": Text
//   - "image": Source (base64 or url)
//   - "tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content
type anthropicContentBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	Source    *anthropicSource `json:"source,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     any              `json:"input,omitempty"` // map[string]any for tool_use, never nil there
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   string           `json:"content,omitempty"`
}

// anthropicSource represents a media source (base64 inline or URL reference).
type anthropicSource struct {
	Type      string `json:"type"`                 // "base64" or "url"
	MediaType string `json:"media_type,omitempty"` // MIME type (for base64)
	Data      string `json:"data,omitempty"`       // Base64-encoded data
	URL       string `json:"url,omitempty"`        // URL reference
}

// anthropicTool describes a tool/function available to the model.
type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// anthropicResponse represents the response from Anthropic's Messages API.
type anthropicResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"` // "message"
	Role       string                 `json:"role"` // "assistant"
	Content    []responseContentBlock `json:"content"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason"`
	Usage      *anthropicUsage        `json:"usage"`
}

// responseContentBlock represents a content block in the response. Unknown
// block types (thinking, server tools) are ignored during conversion.
type responseContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// anthropicUsage reports token consumption. Counters are pointers because
// stream events report them separately.
type anthropicUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Event lifecycle:
	  message_start → content_block_start → content_block_delta → content_block_stop →
	  message_delta → message_stop
*/

// anthropicStreamEvent is the envelope for all Anthropic SSE events. The Type
// field discriminates which optional fields are populated.
type anthropicStreamEvent struct {
	Type         string                `json:"type"`
	Message      *anthropicResponse    `json:"message,omitempty"`       // For "message_start"
	Index        int                   `json:"index,omitempty"`         // For content_block_start/delta/stop
	ContentBlock *responseContentBlock `json:"content_block,omitempty"` // For "content_block_start"
	Delta        *streamDelta          `json:"delta,omitempty"`         // For "content_block_delta" and "message_delta"
	Usage        *anthropicUsage       `json:"usage,omitempty"`         // For "message_delta"
	Error        *anthropicError       `json:"error,omitempty"`         // For "error"
}

// streamDelta carries incremental content:
//   - "text_delta": Text
//   - "input_json_delta": PartialJSON (tool call arguments)
//   - no type (message_delta): StopReason
type streamDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// anthropicError represents an error event in the Anthropic SSE stream.
type anthropicError struct {
	Type    string `json:"type"`    // e.g. "overloaded_error"
	Message string `json:"message"` // Human-readable error description
}
