package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/jsonschema"
	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// unsupportedSchemaKeys are JSON Schema keywords the Gemini OpenAPI subset
// rejects. They are removed after normalization.
var unsupportedSchemaKeys = []string{"additionalProperties", "$schema", "$id"}

// imageDownload is a remote image whose bytes are filled in after the
// request has been validated.
type imageDownload struct {
	url    string
	target *inlineData
}

// requestToGemini converts a request for a session bound to system. offset
// is the number of messages removed from the caller's history before the
// conversion, so that error fields point at the caller's indices. Remote
// images are returned as pending downloads.
func requestToGemini(system string, offset int, request ai.ChatRequest) (generateContentRequest, []imageDownload, error) {
	if err := ai.ValidateMessages(providerName, request.Messages); err != nil {
		return generateContentRequest{}, nil, err
	}
	if request.Messages[0].Role == ai.RoleSystem {
		return generateContentRequest{}, nil, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].role", offset), "the system instruction is bound to the session")
	}

	req := generateContentRequest{}
	if system != "" {
		req.SystemInstruction = &systemInstruction{Parts: []part{{Text: system}}}
	}

	contents, downloads, err := buildContents(request.Messages, offset)
	if err != nil {
		return generateContentRequest{}, nil, err
	}
	req.Contents = contents

	config, err := buildGenerationConfig(request)
	if err != nil {
		return generateContentRequest{}, nil, err
	}
	req.GenerationConfig = config

	if len(request.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(request.Tools))
		for _, spec := range request.Tools {
			parameters, err := normalizeForGemini(spec.Parameters)
			if err != nil {
				return generateContentRequest{}, nil, fmt.Errorf("failed to normalize parameters of tool %q: %w", spec.Name, err)
			}
			declarations = append(declarations, functionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  parameters,
			})
		}
		req.Tools = []tool{{FunctionDeclarations: declarations}}
	}

	return req, downloads, nil
}

// normalizeForGemini inlines references, drops titles and removes keywords
// Gemini does not accept. A nil schema stays nil.
func normalizeForGemini(schema ai.Schema) (map[string]any, error) {
	normalized, err := ai.NormalizeSchema(schema)
	if err != nil || normalized == nil {
		return nil, err
	}
	return jsonschema.StripKeys(normalized, unsupportedSchemaKeys...), nil
}

func buildGenerationConfig(request ai.ChatRequest) (*generationConfig, error) {
	config := &generationConfig{
		Temperature:     request.Temperature,
		MaxOutputTokens: request.MaxTokens,
	}
	if request.N > 1 {
		config.CandidateCount = utils.Ptr(request.N)
	}
	if request.ResponseSchema != nil {
		schema, err := normalizeForGemini(request.ResponseSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize response schema: %w", err)
		}
		config.ResponseMimeType = "application/json"
		config.ResponseSchema = schema
	}

	if config.Temperature == nil && config.MaxOutputTokens == nil && config.CandidateCount == nil && config.ResponseSchema == nil {
		return nil, nil
	}
	return config, nil
}

// buildContents converts the history to Gemini contents.
// Role mapping: user -> user, assistant -> model, tool -> user with functionResponse.
// Consecutive tool results are merged into one user turn.
func buildContents(messages []ai.Message, offset int) ([]content, []imageDownload, error) {
	var contents []content
	var downloads []imageDownload

	for i, message := range messages {
		index := i + offset

		switch message.Role {
		case ai.RoleUser:
			userContent := content{Role: "user"}
			if len(message.Parts) == 0 {
				userContent.Parts = []part{{Text: message.Content}}
			}
			for _, contentPart := range message.Parts {
				switch contentPart.Type {
				case ai.ContentTypeText:
					userContent.Parts = append(userContent.Parts, part{Text: contentPart.Text})
				case ai.ContentTypeImage:
					data := &inlineData{MimeType: contentPart.Image.Mime()}
					if contentPart.Image.URL != "" {
						downloads = append(downloads, imageDownload{url: contentPart.Image.URL, target: data})
					} else {
						data.Data = base64.StdEncoding.EncodeToString(contentPart.Image.Data)
					}
					userContent.Parts = append(userContent.Parts, part{InlineData: data})
				}
			}
			contents = append(contents, userContent)

		case ai.RoleAssistant:
			modelContent := content{Role: "model"}
			if text := message.Text(); text != "" {
				modelContent.Parts = append(modelContent.Parts, part{Text: text})
			}
			for j, toolCall := range message.ToolCalls {
				args, err := encodeArgs(toolCall.Function.Arguments)
				if err != nil {
					return nil, nil, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].tool_calls[%d].arguments", index, j), "%v", err)
				}
				modelContent.Parts = append(modelContent.Parts, part{
					FunctionCall: &functionCall{Name: toolCall.Function.Name, Args: args},
				})
			}
			if len(modelContent.Parts) == 0 {
				return nil, nil, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d]", index), "assistant message needs content or tool calls")
			}
			contents = append(contents, modelContent)

		case ai.RoleTool:
			if message.Name == "" {
				return nil, nil, ai.NewValidationError(providerName, fmt.Sprintf("messages[%d].name", index), "tool results need the name of the tool that produced them")
			}
			result := part{FunctionResponse: &functionResponse{
				Name:     message.Name,
				Response: functionResponsePayload{Name: message.Name, Content: message.Text()},
			}}
			if last := len(contents) - 1; last >= 0 && isAllFunctionResponses(contents[last]) {
				contents[last].Parts = append(contents[last].Parts, result)
				continue
			}
			contents = append(contents, content{Role: "user", Parts: []part{result}})
		}
	}

	return contents, downloads, nil
}

func isAllFunctionResponses(c content) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

// encodeArgs renders tool-call arguments as a JSON object, {} when nil.
func encodeArgs(arguments map[string]any) (json.RawMessage, error) {
	if arguments == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(arguments)
}

// resolveImages downloads pending remote images and inlines them.
func resolveImages(ctx context.Context, fetcher ai.ImageFetcher, downloads []imageDownload) error {
	for _, download := range downloads {
		data, err := fetcher.Fetch(ctx, download.url)
		if err != nil {
			return fmt.Errorf("%s: %w", providerName, err)
		}
		download.target.Data = base64.StdEncoding.EncodeToString(data)
	}
	return nil
}

// generateContentToGeneric converts a raw generateContent response body.
func generateContentToGeneric(body []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(body, "candidates").IsArray() && !gjson.GetBytes(body, "promptFeedback.blockReason").Exists() {
		return nil, ai.MissingField(providerName, "candidates")
	}

	var resp generateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "body", Err: err}
	}
	return responseToGeneric(resp)
}

// responseToGeneric maps a decoded response. Gemini does not identify its
// responses, so ID, Object and Model stay empty. A blocked prompt becomes a
// single empty choice finished by the content filter.
func responseToGeneric(resp generateContentResponse) (*ai.ChatResponse, error) {
	result := &ai.ChatResponse{
		Usage:   usageToGeneric(resp.UsageMetadata),
		Choices: make([]ai.ChatChoice, 0, len(resp.Candidates)),
	}

	if len(resp.Candidates) == 0 && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		result.Choices = append(result.Choices, ai.ChatChoice{
			Message:      ai.ChatMessage{Role: ai.RoleAssistant},
			FinishReason: ai.FinishReasonContentFilter,
		})
		return result, nil
	}

	for _, c := range resp.Candidates {
		choice, err := candidateToChoice(c)
		if err != nil {
			return nil, err
		}
		result.Choices = append(result.Choices, choice)
	}
	return result, nil
}

func candidateToChoice(c candidate) (ai.ChatChoice, error) {
	choice := ai.ChatChoice{
		Index:        c.Index,
		Message:      ai.ChatMessage{Role: ai.RoleAssistant},
		FinishReason: mapFinishReason(c.FinishReason),
	}
	if c.Content == nil {
		return choice, nil
	}

	var text strings.Builder
	for _, p := range c.Content.Parts {
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
		if p.FunctionCall != nil {
			arguments := map[string]any{}
			if len(p.FunctionCall.Args) > 0 {
				if err := json.Unmarshal(p.FunctionCall.Args, &arguments); err != nil {
					return ai.ChatChoice{}, &ai.TranslationError{Provider: providerName, Field: "candidates.content.parts.functionCall.args", Err: err}
				}
			}
			choice.ToolCalls = append(choice.ToolCalls, ai.ToolCall{
				Index:    len(choice.ToolCalls),
				Function: ai.Function{Name: p.FunctionCall.Name, Arguments: arguments},
			})
		}
	}
	choice.Message.Content = text.String()

	// Gemini reports STOP for turns that end in function calls.
	if len(choice.ToolCalls) > 0 && choice.FinishReason == ai.FinishReasonStop {
		choice.FinishReason = ai.FinishReasonToolCalls
	}
	return choice, nil
}

func usageToGeneric(usage *usageMetadata) *ai.ChatUsage {
	if usage == nil {
		return nil
	}
	return &ai.ChatUsage{
		InputTokens:  usage.PromptTokenCount,
		OutputTokens: usage.CandidatesTokenCount,
		TotalTokens:  usage.TotalTokenCount,
	}
}

// mapFinishReason lower-cases a Gemini finish reason and maps it to the
// unified enum. An empty value stays empty; unknown values map to "other".
func mapFinishReason(reason string) ai.FinishReason {
	switch strings.ToLower(reason) {
	case "":
		return ""
	case "stop":
		return ai.FinishReasonStop
	case "max_tokens":
		return ai.FinishReasonLength
	case "safety", "recitation", "blocklist", "prohibited_content", "spii", "image_safety":
		return ai.FinishReasonContentFilter
	default:
		return ai.FinishReasonOther
	}
}
