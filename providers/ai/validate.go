package ai

import (
	"fmt"
	"strings"
)

// ValidateMessages enforces the structural rules every request adapter relies
// on: a non-empty history, a system message only in first position, known
// roles, user turns with some content, non-empty text parts, and image parts
// carrying exactly one of a URL or inline data.
func ValidateMessages(provider string, messages []Message) error {
	if len(messages) == 0 {
		return NewValidationError(provider, "messages", "at least one message is required")
	}

	for i, message := range messages {
		switch message.Role {
		case RoleSystem:
			if i != 0 {
				return NewValidationError(provider, fmt.Sprintf("messages[%d].role", i), "a system message is only allowed as the first message")
			}
		case RoleUser, RoleAssistant, RoleTool:
		default:
			return NewValidationError(provider, fmt.Sprintf("messages[%d].role", i), "unsupported role %q", message.Role)
		}

		if message.Role == RoleUser && len(message.Parts) == 0 && strings.TrimSpace(message.Content) == "" {
			return NewValidationError(provider, fmt.Sprintf("messages[%d].content", i), "a user message needs text or an image")
		}

		for j, part := range message.Parts {
			field := fmt.Sprintf("messages[%d].parts[%d]", i, j)
			switch part.Type {
			case ContentTypeText:
				if strings.TrimSpace(part.Text) == "" {
					return NewValidationError(provider, field, "empty text part")
				}
			case ContentTypeImage:
				if err := validateImage(provider, field, part.Image); err != nil {
					return err
				}
			default:
				return NewValidationError(provider, field, "unsupported content type %q", part.Type)
			}
		}
	}

	return nil
}

func validateImage(provider, field string, image *Image) error {
	switch {
	case image == nil || (image.URL == "" && len(image.Data) == 0):
		return NewValidationError(provider, field, "image part needs a URL or inline data")
	case image.URL != "" && len(image.Data) > 0:
		return NewValidationError(provider, field, "image part must set only one of URL or inline data")
	}
	return nil
}

// ValidateEmbeddingInputs checks that every embedding input is either a
// non-empty text or a well-formed image.
func ValidateEmbeddingInputs(provider string, inputs []EmbeddingInput) error {
	if len(inputs) == 0 {
		return NewValidationError(provider, "inputs", "at least one input is required")
	}
	for i, input := range inputs {
		field := fmt.Sprintf("inputs[%d]", i)
		if input.Image != nil {
			if input.Text != "" {
				return NewValidationError(provider, field, "an input is either text or an image")
			}
			if err := validateImage(provider, field, input.Image); err != nil {
				return err
			}
			continue
		}
		if input.Text == "" {
			return NewValidationError(provider, field, "empty input")
		}
	}
	return nil
}

// SplitSystem separates a leading system message from the conversation
// history. The returned history is a subslice of messages.
func SplitSystem(messages []Message) (string, []Message) {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return messages[0].Text(), messages[1:]
	}
	return "", messages
}
