package ai

import (
	"strings"

	"github.com/leofalp/switchai/internal/jsonschema"
)

// Schema is a JSON Schema tree used for tool parameters and structured output.
// It is created by the caller per request and only read by adapters.
type Schema = jsonschema.Schema

// SchemaFor derives a Schema from the Go type T (see jsonschema.FromType).
func SchemaFor[T any]() (Schema, error) {
	return jsonschema.FromType[T]()
}

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Model          string     `json:"model,omitempty"`
	Messages       []Message  `json:"messages"`                  // A leading RoleSystem message is the system instruction
	Tools          []ToolSpec `json:"tools,omitempty"`           // Tools the model may call
	ResponseSchema Schema     `json:"response_schema,omitempty"` // Optional structured-output schema
	Temperature    *float64   `json:"temperature,omitempty"`     // Sampling temperature; nil keeps the provider default
	MaxTokens      *int       `json:"max_tokens,omitempty"`      // Upper bound on generated tokens; required by some providers
	N              int        `json:"n,omitempty"`               // Number of choices; 0 means 1
}

// Choices returns the requested number of choices, treating 0 as 1.
func (request ChatRequest) Choices() int {
	if request.N <= 0 {
		return 1
	}
	return request.N
}

// HasImages reports whether any message carries an image part.
func (request ChatRequest) HasImages() bool {
	for _, message := range request.Messages {
		for _, part := range message.Parts {
			if part.Type == ContentTypeImage {
				return true
			}
		}
	}
	return false
}

// ToolSpec describes a function the model may call.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  Schema `json:"parameters,omitempty"`
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model output
	RoleTool      MessageRole = "tool"      // Tool/function output
)

// Message is one turn in a conversation. When Parts is non-empty it replaces
// Content as the message body.
type Message struct {
	Role    MessageRole   `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`

	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For role=assistant: calls previously made by the model
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role=tool: the call being answered
	Name       string     `json:"name,omitempty"`         // For role=tool: name of the tool that produced the result
}

// Text returns the message text: Content, or the concatenated text parts of a
// multi-part message.
func (message Message) Text() string {
	if len(message.Parts) == 0 {
		return message.Content
	}
	var text strings.Builder
	for _, part := range message.Parts {
		if part.Type == ContentTypeText {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

// ContentType discriminates the parts of a multi-part message.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ContentPart is one element of a multi-part message.
type ContentPart struct {
	Type  ContentType `json:"type"`
	Text  string      `json:"text,omitempty"`
	Image *Image      `json:"image,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// ImageURLPart builds an image content part referencing a remote image.
func ImageURLPart(url string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &Image{URL: url}}
}

// ImageDataPart builds an image content part carrying raw image bytes.
func ImageDataPart(data []byte, mimeType string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &Image{Data: data, MimeType: mimeType}}
}

// Image is either a remote URL or inline bytes. Exactly one must be set.
type Image struct {
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"` // Defaults to image/jpeg when empty
}

// DefaultImageMimeType is assumed for inline images without a mime type.
const DefaultImageMimeType = "image/jpeg"

// Mime returns the image mime type, falling back to DefaultImageMimeType.
func (image Image) Mime() string {
	if image.MimeType == "" {
		return DefaultImageMimeType
	}
	return image.MimeType
}

// Function is the logical payload of a tool invocation.
type Function struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCall is a tool invocation requested by the model. ID is empty for
// providers that do not assign call identifiers.
//
// In streaming responses Index identifies the call within its choice, and
// ArgumentsDelta carries a raw fragment of the JSON arguments when the
// provider streams them as text; Function.Arguments is then nil until the
// fragments are joined (see ChatStream.Collect).
type ToolCall struct {
	Index          int      `json:"index"`
	ID             string   `json:"id,omitempty"`
	Function       Function `json:"function"`
	ArgumentsDelta string   `json:"arguments_delta,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

// FinishReason is the unified reason a choice stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonOther         FinishReason = "other"
)

// ChatMessage is the message carried by a choice. In streaming responses
// Content holds only the incremental delta.
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// ChatChoice is one candidate completion.
type ChatChoice struct {
	Index        int          `json:"index"`
	Message      ChatMessage  `json:"message"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// AsMessage turns a choice back into a history message so it can be sent in
// a follow-up request to any provider.
func (choice ChatChoice) AsMessage() Message {
	role := choice.Message.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{
		Role:      role,
		Content:   choice.Message.Content,
		ToolCalls: choice.ToolCalls,
	}
}

// ChatUsage reports token counters. Each counter is nil when the provider did
// not report it; nil never means zero.
type ChatUsage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty"`
}

// ChatResponse is a full chat completion or, when streaming, one partial
// unit of it. Usage is nil when the provider reported none.
type ChatResponse struct {
	ID       string       `json:"id,omitempty"`
	Object   string       `json:"object,omitempty"`
	Model    string       `json:"model,omitempty"`
	Usage    *ChatUsage   `json:"usage,omitempty"`
	Choices  []ChatChoice `json:"choices"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// FirstChoice returns the choice with index 0, or false if there is none.
func (response *ChatResponse) FirstChoice() (ChatChoice, bool) {
	for _, choice := range response.Choices {
		if choice.Index == 0 {
			return choice, true
		}
	}
	return ChatChoice{}, false
}

/*
	##### OTHER OPERATIONS #####
*/

// EmbeddingInput is one item to embed: text or an image.
type EmbeddingInput struct {
	Text  string `json:"text,omitempty"`
	Image *Image `json:"image,omitempty"`
}

// EmbeddingRequest asks for one embedding per input, in input order.
type EmbeddingRequest struct {
	Model  string           `json:"model,omitempty"`
	Inputs []EmbeddingInput `json:"inputs"`
}

// TextInputs builds embedding inputs from plain strings.
func TextInputs(texts ...string) []EmbeddingInput {
	inputs := make([]EmbeddingInput, len(texts))
	for i, text := range texts {
		inputs[i] = EmbeddingInput{Text: text}
	}
	return inputs
}

// HasImages reports whether any input is an image.
func (request EmbeddingRequest) HasImages() bool {
	for _, input := range request.Inputs {
		if input.Image != nil {
			return true
		}
	}
	return false
}

// EmbeddingUsage reports token counters for an embedding call; nil when absent.
type EmbeddingUsage struct {
	InputTokens *int `json:"input_tokens,omitempty"`
	TotalTokens *int `json:"total_tokens,omitempty"`
}

// Embedding is one vector; Index matches the position of its input.
type Embedding struct {
	Index int       `json:"index"`
	Data  []float64 `json:"data"`
}

// EmbeddingResponse holds the vectors for an EmbeddingRequest.
type EmbeddingResponse struct {
	ID         string          `json:"id,omitempty"`
	Object     string          `json:"object,omitempty"`
	Model      string          `json:"model,omitempty"`
	Usage      *EmbeddingUsage `json:"usage,omitempty"`
	Embeddings []Embedding     `json:"embeddings"`
}

// TranscriptionRequest asks for the text of an audio clip.
type TranscriptionRequest struct {
	Model    string `json:"model,omitempty"`
	Audio    []byte `json:"-"`
	Filename string `json:"filename,omitempty"` // Used for multipart uploads; defaults to audio.mp3
	Language string `json:"language,omitempty"` // Optional ISO-639-1 hint
}

// TranscriptionResponse is the recognized text.
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// ImageGenerationRequest asks for N images matching Prompt.
type ImageGenerationRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"` // 0 means 1
}

// Count returns the requested number of images, treating 0 as 1.
func (request ImageGenerationRequest) Count() int {
	if request.N <= 0 {
		return 1
	}
	return request.N
}

// ImageGenerationResponse holds the encoded bytes of each generated image.
type ImageGenerationResponse struct {
	Images   [][]byte  `json:"images"`
	Warnings []Warning `json:"warnings,omitempty"`
}
