package mistral

import (
	"encoding/base64"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// requestToMistral converts an ai.ChatRequest to Mistral's chat format. A
// response schema is appended to the system instruction, which is created
// as the first turn when the caller sent none.
func requestToMistral(request ai.ChatRequest) (chatRequest, error) {
	if err := ai.ValidateMessages(providerName, request.Messages); err != nil {
		return chatRequest{}, err
	}

	system, history := ai.SplitSystem(request.Messages)
	offset := len(request.Messages) - len(history)

	req := chatRequest{
		Model:       request.Model,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
	}
	if request.N > 1 {
		req.N = request.N
	}

	if request.ResponseSchema != nil {
		instruction, err := ai.StructuredOutputInstruction(request.ResponseSchema)
		if err != nil {
			return chatRequest{}, fmt.Errorf("failed to render response schema: %w", err)
		}
		system = ai.JoinInstructions(system, instruction)
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(ai.RoleSystem), Content: system})
	}

	for i, message := range history {
		converted, err := messageToMistral(i+offset, message)
		if err != nil {
			return chatRequest{}, err
		}
		req.Messages = append(req.Messages, converted)
	}

	for _, spec := range request.Tools {
		req.Tools = append(req.Tools, chatTool{
			Type:     "function",
			Function: chatFunction{Name: spec.Name, Description: spec.Description, Parameters: spec.Parameters},
		})
	}

	return req, nil
}

func messageToMistral(index int, message ai.Message) (chatMessage, error) {
	converted := chatMessage{Role: string(message.Role)}

	switch message.Role {
	case ai.RoleUser:
		converted.Content = userContent(message)

	case ai.RoleAssistant:
		if text := message.Text(); text != "" {
			converted.Content = text
		}
		for j, toolCall := range message.ToolCalls {
			if toolCall.ID == "" {
				return chatMessage{}, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].tool_calls[%d].id", index, j), "tool calls need an id")
			}
			arguments, err := utils.EncodeArguments(toolCall.Function.Arguments)
			if err != nil {
				return chatMessage{}, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].tool_calls[%d].arguments", index, j), "%v", err)
			}
			converted.ToolCalls = append(converted.ToolCalls, chatToolCall{
				ID:       toolCall.ID,
				Type:     "function",
				Function: toolCallFunction{Name: toolCall.Function.Name, Arguments: arguments},
			})
		}

	case ai.RoleTool:
		if message.Name == "" {
			return chatMessage{}, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].name", index), "tool results need the name of the tool that produced them")
		}
		converted.Name = message.Name
		converted.ToolCallID = message.ToolCallID
		converted.Content = message.Text()
	}

	return converted, nil
}

// userContent always renders a part list; images become image_url strings,
// inline bytes as data URLs.
func userContent(message ai.Message) []contentPart {
	if len(message.Parts) == 0 {
		return []contentPart{{Type: "text", Text: message.Content}}
	}

	parts := make([]contentPart, 0, len(message.Parts))
	for _, part := range message.Parts {
		switch part.Type {
		case ai.ContentTypeText:
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		case ai.ContentTypeImage:
			url := part.Image.URL
			if url == "" {
				url = "data:" + part.Image.Mime() + ";base64," + base64.StdEncoding.EncodeToString(part.Image.Data)
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: url})
		}
	}
	return parts
}

// chatToGeneric converts a raw chat response or stream chunk. Chunks carry
// their choice in delta rather than message.
func chatToGeneric(body []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(body, "choices").Exists() {
		return nil, ai.MissingField(providerName, "choices")
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "body", Err: err}
	}

	result := &ai.ChatResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Model:   resp.Model,
		Usage:   usageToGeneric(resp.Usage),
		Choices: make([]ai.ChatChoice, 0, len(resp.Choices)),
	}

	for _, choice := range resp.Choices {
		message := choice.Message
		if message == nil {
			message = choice.Delta
		}

		converted := ai.ChatChoice{Index: choice.Index}
		if choice.FinishReason != nil {
			converted.FinishReason = mapFinishReason(*choice.FinishReason)
		}
		if choice.Message != nil {
			converted.Message.Role = ai.RoleAssistant
		}
		if message != nil {
			if message.Role != "" {
				converted.Message.Role = ai.MessageRole(message.Role)
			}
			if message.Content != nil {
				converted.Message.Content = *message.Content
			}
			for i, call := range message.ToolCalls {
				arguments, err := utils.DecodeArguments(call.Function.Arguments)
				if err != nil {
					return nil, &ai.TranslationError{Provider: providerName, Field: "tool_calls.function.arguments", Err: err}
				}
				index := call.Index
				if index == 0 {
					index = i
				}
				converted.ToolCalls = append(converted.ToolCalls, ai.ToolCall{
					Index:    index,
					ID:       call.ID,
					Function: ai.Function{Name: call.Function.Name, Arguments: arguments},
				})
			}
		}
		result.Choices = append(result.Choices, converted)
	}

	return result, nil
}

func usageToGeneric(u *usage) *ai.ChatUsage {
	if u == nil {
		return nil
	}
	return &ai.ChatUsage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

// mapFinishReason converts a Mistral finish_reason to the unified enum.
// An empty value stays empty; unknown values map to "other".
func mapFinishReason(reason string) ai.FinishReason {
	switch reason {
	case "":
		return ""
	case "stop":
		return ai.FinishReasonStop
	case "length", "model_length":
		return ai.FinishReasonLength
	case "tool_calls":
		return ai.FinishReasonToolCalls
	default:
		return ai.FinishReasonOther
	}
}
