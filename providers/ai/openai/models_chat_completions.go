package openai

import (
	"encoding/base64"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

// chatCompletionRequest represents the /v1/chat/completions request format
type chatCompletionRequest struct {
	Model               string              `json:"model"`
	Messages            []chatMessage       `json:"messages"`
	Temperature         *float64            `json:"temperature,omitempty"`
	MaxCompletionTokens *int                `json:"max_completion_tokens,omitempty"`
	N                   int                 `json:"n,omitempty"`
	Tools               []chatTool          `json:"tools,omitempty"`
	ResponseFormat      *chatResponseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`              // system, user, assistant, tool
	Content    any            `json:"content,omitempty"` // string or []contentPart for multimodal
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

// contentPart represents a chat completions multimodal content part.
type contentPart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL *contentPartImage `json:"image_url,omitempty"`
}

// contentPartImage describes image content for chat completions.
type contentPartImage struct {
	URL string `json:"url"`
}

type chatTool struct {
	Type     string       `json:"type"` // "function"
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "function"
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // JSON-encoded object
	} `json:"function"`
}

type chatResponseFormat struct {
	Type       string          `json:"type"` // "json_object", "json_schema"
	JSONSchema *chatJSONSchema `json:"json_schema,omitempty"`
}

type chatJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"` // "chat.completion"
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	Refusal   string         `json:"refusal,omitempty"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

// chatUsage counters are pointers so that an omitted counter stays absent.
type chatUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

/*
	CONVERSION FUNCTIONS
*/

// buildDataURL formats inline bytes as a base64 data URL.
func buildDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// requestToChatCompletion converts an ai.ChatRequest to the chat completions
// format. provider names the calling provider in validation errors.
func requestToChatCompletion(provider string, request ai.ChatRequest) (chatCompletionRequest, error) {
	if err := ai.ValidateMessages(provider, request.Messages); err != nil {
		return chatCompletionRequest{}, err
	}

	req := chatCompletionRequest{
		Model:               request.Model,
		Temperature:         request.Temperature,
		MaxCompletionTokens: request.MaxTokens,
	}
	if request.N > 1 {
		req.N = request.N
	}

	for i, message := range request.Messages {
		chatMsg, err := messageToChat(provider, i, message)
		if err != nil {
			return chatCompletionRequest{}, err
		}
		req.Messages = append(req.Messages, chatMsg)
	}

	for _, tool := range request.Tools {
		req.Tools = append(req.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if request.ResponseSchema != nil {
		// The name comes from the title, which normalization removes.
		name := ai.SchemaName(request.ResponseSchema)
		schema, err := ai.NormalizeSchema(request.ResponseSchema)
		if err != nil {
			return chatCompletionRequest{}, fmt.Errorf("failed to normalize response schema: %w", err)
		}
		req.ResponseFormat = &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &chatJSONSchema{
				Name:   name,
				Schema: schema,
				Strict: isStrictSchema(schema),
			},
		}
	}

	return req, nil
}

// isStrictSchema reports whether the schema opts into strict mode, which
// OpenAI only accepts for closed objects.
func isStrictSchema(schema ai.Schema) bool {
	additional, ok := schema["additionalProperties"].(bool)
	return ok && !additional
}

func messageToChat(provider string, index int, message ai.Message) (chatMessage, error) {
	chatMsg := chatMessage{Role: string(message.Role)}

	switch message.Role {
	case ai.RoleUser:
		chatMsg.Content = userContent(message)

	case ai.RoleAssistant:
		if text := message.Text(); text != "" {
			chatMsg.Content = text
		}
		for j, toolCall := range message.ToolCalls {
			if toolCall.ID == "" {
				return chatMessage{}, ai.NewValidationError(provider, fmt.Sprintf("messages[%d].tool_calls[%d].id", index, j), "tool calls need an id")
			}
			arguments, err := utils.EncodeArguments(toolCall.Function.Arguments)
			if err != nil {
				return chatMessage{}, ai.NewValidationError(provider, fmt.Sprintf("messages[%d].tool_calls[%d].arguments", index, j), "%v", err)
			}
			call := chatToolCall{ID: toolCall.ID, Type: "function"}
			call.Function.Name = toolCall.Function.Name
			call.Function.Arguments = arguments
			chatMsg.ToolCalls = append(chatMsg.ToolCalls, call)
		}

	case ai.RoleTool:
		if message.ToolCallID == "" {
			return chatMessage{}, ai.NewValidationError(provider, fmt.Sprintf("messages[%d].tool_call_id", index), "tool results need the id of the call they answer")
		}
		chatMsg.ToolCallID = message.ToolCallID
		chatMsg.Content = message.Text()

	default:
		chatMsg.Content = message.Text()
	}

	return chatMsg, nil
}

// userContent keeps plain text as a bare string and renders multi-part
// messages as a part list.
func userContent(message ai.Message) any {
	if len(message.Parts) == 0 {
		return message.Content
	}

	parts := make([]contentPart, 0, len(message.Parts))
	for _, part := range message.Parts {
		switch part.Type {
		case ai.ContentTypeText:
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		case ai.ContentTypeImage:
			url := part.Image.URL
			if url == "" {
				url = buildDataURL(part.Image.Mime(), part.Image.Data)
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &contentPartImage{URL: url}})
		}
	}
	return parts
}

// chatCompletionToGeneric converts a raw chat completions response body.
func chatCompletionToGeneric(provider string, body []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(body, "choices").IsArray() {
		return nil, ai.MissingField(provider, "choices")
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: provider, Field: "body", Err: err}
	}

	result := &ai.ChatResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Model:   resp.Model,
		Usage:   usageToGeneric(resp.Usage),
		Choices: make([]ai.ChatChoice, 0, len(resp.Choices)),
	}

	for _, choice := range resp.Choices {
		role := ai.MessageRole(choice.Message.Role)
		if role == "" {
			role = ai.RoleAssistant
		}
		content := choice.Message.Content
		if content == "" {
			content = choice.Message.Refusal
		}

		toolCalls, err := toolCallsToGeneric(provider, choice.Message.ToolCalls)
		if err != nil {
			return nil, err
		}

		result.Choices = append(result.Choices, ai.ChatChoice{
			Index:        choice.Index,
			Message:      ai.ChatMessage{Role: role, Content: content},
			ToolCalls:    toolCalls,
			FinishReason: mapFinishReason(choice.FinishReason),
		})
	}

	return result, nil
}

func toolCallsToGeneric(provider string, calls []chatToolCall) ([]ai.ToolCall, error) {
	var result []ai.ToolCall
	for i, call := range calls {
		arguments, err := utils.DecodeArguments(call.Function.Arguments)
		if err != nil {
			return nil, &ai.TranslationError{Provider: provider, Field: "tool_calls.function.arguments", Err: err}
		}
		result = append(result, ai.ToolCall{
			Index:    i,
			ID:       call.ID,
			Function: ai.Function{Name: call.Function.Name, Arguments: arguments},
		})
	}
	return result, nil
}

func usageToGeneric(usage *chatUsage) *ai.ChatUsage {
	if usage == nil {
		return nil
	}
	return &ai.ChatUsage{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		TotalTokens:  usage.TotalTokens,
	}
}

// mapFinishReason converts an OpenAI finish_reason to the unified enum.
// An empty value stays empty; unknown values map to "other".
func mapFinishReason(reason string) ai.FinishReason {
	switch reason {
	case "":
		return ""
	case "stop":
		return ai.FinishReasonStop
	case "length":
		return ai.FinishReasonLength
	case "tool_calls", "function_call":
		return ai.FinishReasonToolCalls
	case "content_filter":
		return ai.FinishReasonContentFilter
	default:
		return ai.FinishReasonOther
	}
}
