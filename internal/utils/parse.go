package utils

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/kaptinlin/jsonrepair"
)

// ErrTruncatedJSON reports a payload that ends inside a string, object or
// array, as happens when generation stops at the token limit.
var ErrTruncatedJSON = errors.New("truncated JSON payload")

// DecodeArguments turns a text-encoded tool-call argument payload into a
// mapping. Strict JSON is tried first; if that fails the payload is passed
// through jsonrepair and decoded again. Repair is limited to cosmetic defects
// (trailing commas, single quotes, unquoted keys): a payload cut off before
// its closing delimiters fails with ErrTruncatedJSON rather than being
// completed with invented values. An empty payload decodes to an empty
// mapping. A payload that is valid JSON but not an object is an error.
func DecodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	arguments, err := decodeObject(raw)
	if err == nil {
		return arguments, nil
	}

	if truncated(raw) {
		return nil, fmt.Errorf("%w: %s", ErrTruncatedJSON, TruncateString(raw, DefaultMaxStringLength))
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("failed to decode arguments and failed to repair JSON: decode error: %w, repair error: %v", err, repairErr)
	}

	arguments, err = decodeObject(repaired)
	if err != nil {
		return nil, fmt.Errorf("failed to decode repaired arguments: %w (original: %s)", err, TruncateString(raw, DefaultMaxStringLength))
	}
	return arguments, nil
}

func decodeObject(raw string) (map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, err
	}
	arguments, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object, got %T", value)
	}
	return arguments, nil
}

// truncated reports whether raw leaves a string, object or array open.
// Both quote styles are tracked since models sometimes emit single quotes.
func truncated(raw string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, r := range raw {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return quote != 0 || depth > 0
}

// EncodeArguments renders an argument mapping as the JSON string some
// providers expect. A nil mapping encodes as "{}".
func EncodeArguments(arguments map[string]any) (string, error) {
	if arguments == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(arguments)
	if err != nil {
		return "", fmt.Errorf("error encoding arguments: %w", err)
	}
	return string(encoded), nil
}

// ParseStringAs decodes model output into T. A string T receives the content
// unchanged. Other types are decoded as JSON after stripping a surrounding
// markdown code fence; malformed JSON is passed through jsonrepair and decoded
// again, unless it was cut off (ErrTruncatedJSON).
func ParseStringAs[T any](content string) (T, error) {
	var result T
	if target, ok := any(&result).(*string); ok {
		*target = content
		return result, nil
	}

	content = stripCodeFence(content)
	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}
	if truncated(content) {
		return result, fmt.Errorf("failed to unmarshal content as %T: %w", result, ErrTruncatedJSON)
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}
	result = *new(T)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (original content: %s)", result, err, TruncateString(content, DefaultMaxStringLength))
	}
	return result, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add around
// JSON answers.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	body, ok := strings.CutPrefix(trimmed, "```")
	if !ok {
		return trimmed
	}
	body, ok = strings.CutSuffix(body, "```")
	if !ok {
		return trimmed
	}
	if newline := strings.IndexByte(body, '\n'); newline >= 0 && !strings.ContainsAny(body[:newline], "{[\"") {
		body = body[newline+1:]
	}
	return strings.TrimSpace(body)
}
