package anthropic

import (
	"encoding/base64"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// requestToAnthropic converts an ai.ChatRequest into an anthropicRequest
// ready to POST to Anthropic's Messages API. Every malformed input is
// reported as an *ai.ValidationError before any network call.
func requestToAnthropic(request ai.ChatRequest) (anthropicRequest, error) {
	if err := ai.ValidateMessages(providerName, request.Messages); err != nil {
		return anthropicRequest{}, err
	}
	if request.MaxTokens == nil {
		return anthropicRequest{}, ai.NewValidationError(providerName, "max_tokens", "Anthropic requires max_tokens to be set")
	}

	system, history := ai.SplitSystem(request.Messages)

	// Anthropic has no native structured output: describe the schema in the
	// system field instead.
	if request.ResponseSchema != nil {
		instruction, err := ai.StructuredOutputInstruction(request.ResponseSchema)
		if err != nil {
			return anthropicRequest{}, fmt.Errorf("failed to build structured output instruction: %w", err)
		}
		system = ai.JoinInstructions(system, instruction)
	}

	messages, err := buildMessages(history, len(request.Messages)-len(history))
	if err != nil {
		return anthropicRequest{}, err
	}

	return anthropicRequest{
		Model:       request.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   *request.MaxTokens,
		Temperature: request.Temperature,
		Tools:       buildAnthropicTools(request.Tools),
	}, nil
}

// buildMessages converts the history (system message already removed) into
// Anthropic message objects.
//
// Anthropic requires strictly alternating user/assistant turns. Consecutive
// tool-result messages are therefore merged into a single user message with
// multiple tool_result content blocks. offset is the position of the first
// history message in the caller's list, used in error fields.
func buildMessages(messages []ai.Message, offset int) ([]anthropicMessage, error) {
	var result []anthropicMessage

	for position, message := range messages {
		i := position + offset
		switch message.Role {
		case ai.RoleUser:
			result = append(result, anthropicMessage{Role: "user", Content: contentBlocks(message)})

		case ai.RoleAssistant:
			assistantMessage := anthropicMessage{Role: "assistant"}
			if text := message.Text(); text != "" {
				assistantMessage.Content = append(assistantMessage.Content, anthropicContentBlock{Type: "text", Text: text})
			}

			for j, toolCall := range message.ToolCalls {
				if toolCall.ID == "" {
					return nil, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].tool_calls[%d].id", i, j), "Anthropic requires an id on every tool call")
				}
				input := toolCall.Function.Arguments
				if input == nil {
					input = map[string]any{}
				}
				assistantMessage.Content = append(assistantMessage.Content, anthropicContentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: input,
				})
			}

			if len(assistantMessage.Content) > 0 {
				result = append(result, assistantMessage)
			}

		case ai.RoleTool:
			if message.ToolCallID == "" {
				return nil, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].tool_call_id", i), "tool results need the id of the call they answer")
			}
			block := anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: message.ToolCallID,
				Content:   message.Text(),
			}

			if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
				result[len(result)-1].Content = append(result[len(result)-1].Content, block)
			} else {
				result = append(result, anthropicMessage{Role: "user", Content: []anthropicContentBlock{block}})
			}
		}
	}

	return result, nil
}

// isAllToolResults reports whether msg is a user turn made only of
// tool_result blocks, so that a following tool result can be merged into it.
func isAllToolResults(msg anthropicMessage) bool {
	if msg.Role != "user" || len(msg.Content) == 0 {
		return false
	}
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

// contentBlocks renders a user message: one text block for plain content, or
// one block per part. Remote images are passed by URL.
func contentBlocks(message ai.Message) []anthropicContentBlock {
	if len(message.Parts) == 0 {
		return []anthropicContentBlock{{Type: "text", Text: message.Content}}
	}

	blocks := make([]anthropicContentBlock, 0, len(message.Parts))
	for _, part := range message.Parts {
		switch part.Type {
		case ai.ContentTypeText:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: part.Text})
		case ai.ContentTypeImage:
			block := anthropicContentBlock{Type: "image"}
			if part.Image.URL != "" {
				block.Source = &anthropicSource{Type: "url", URL: part.Image.URL}
			} else {
				block.Source = &anthropicSource{
					Type:      "base64",
					MediaType: part.Image.Mime(),
					Data:      base64.StdEncoding.EncodeToString(part.Image.Data),
				}
			}
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// buildAnthropicTools converts tool specs to Anthropic tool definitions.
// Anthropic requires input_schema, so a tool without parameters gets an empty
// object schema.
func buildAnthropicTools(tools []ai.ToolSpec) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropicTool, 0, len(tools))
	for _, tool := range tools {
		inputSchema := map[string]any(tool.Parameters)
		if inputSchema == nil {
			inputSchema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result = append(result, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: inputSchema,
		})
	}
	return result
}

// anthropicToGeneric converts a raw Messages API response body into an
// ai.ChatResponse with a single choice. Text blocks are concatenated and
// tool_use blocks become tool calls in order of appearance.
func anthropicToGeneric(body []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(body, "content").IsArray() {
		return nil, ai.MissingField(providerName, "content")
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "body", Err: err}
	}

	var text strings.Builder
	choice := ai.ChatChoice{
		Index:        0,
		FinishReason: mapStopReason(response.StopReason),
	}

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			arguments, err := utils.DecodeArguments(string(block.Input))
			if err != nil {
				return nil, &ai.TranslationError{Provider: providerName, Field: "content.input", Err: err}
			}
			choice.ToolCalls = append(choice.ToolCalls, ai.ToolCall{
				Index:    len(choice.ToolCalls),
				ID:       block.ID,
				Function: ai.Function{Name: block.Name, Arguments: arguments},
			})
		}
	}
	choice.Message = ai.ChatMessage{Role: ai.RoleAssistant, Content: text.String()}

	return &ai.ChatResponse{
		ID:      response.ID,
		Object:  response.Type,
		Model:   response.Model,
		Usage:   usageToGeneric(response.Usage),
		Choices: []ai.ChatChoice{choice},
	}, nil
}

// usageToGeneric maps Anthropic counters. The total is only derived when both
// counters were reported.
func usageToGeneric(usage *anthropicUsage) *ai.ChatUsage {
	if usage == nil || (usage.InputTokens == nil && usage.OutputTokens == nil) {
		return nil
	}
	result := &ai.ChatUsage{InputTokens: usage.InputTokens, OutputTokens: usage.OutputTokens}
	if usage.InputTokens != nil && usage.OutputTokens != nil {
		result.TotalTokens = utils.Ptr(*usage.InputTokens + *usage.OutputTokens)
	}
	return result
}

// mapStopReason converts an Anthropic stop_reason to the unified finish
// reason. An empty value stays empty; unknown values map to "other".
func mapStopReason(stopReason string) ai.FinishReason {
	switch stopReason {
	case "":
		return ""
	case "end_turn", "stop_sequence", "pause_turn":
		return ai.FinishReasonStop
	case "tool_use":
		return ai.FinishReasonToolCalls
	case "max_tokens":
		return ai.FinishReasonLength
	case "refusal":
		return ai.FinishReasonContentFilter
	default:
		return ai.FinishReasonOther
	}
}
