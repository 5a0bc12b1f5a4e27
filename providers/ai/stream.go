package ai

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sort"
	"strings"

	"github.com/leofalp/switchai/internal/utils"
)

// ChatStream is a lazy sequence of partial ChatResponse values. Each element
// is produced from exactly one provider delta: message content holds only the
// new text, choice indices are preserved, and Usage is nil unless that delta
// reported counters (usually only the last one does).
//
// Important: callers must consume the stream, either by iterating with Iter()
// (including breaking out of the loop early) or by calling Collect(). The
// underlying provider holds the HTTP response body open until the iterator
// completes or is abandoned via a loop break.
type ChatStream struct {
	iterator iter.Seq2[*ChatResponse, error]
}

// NewChatStream creates a ChatStream from a raw iterator. The iterator yields
// partial responses with a nil error, and may yield a non-nil error (with a
// nil response) to signal a mid-stream failure, after which it stops.
func NewChatStream(iterator iter.Seq2[*ChatResponse, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleResponseStream wraps a complete response as a one-element stream.
// It is used when a provider has no native streaming.
func NewSingleResponseStream(response *ChatResponse) *ChatStream {
	return NewChatStream(func(yield func(*ChatResponse, error) bool) {
		yield(response, nil)
	})
}

// DeltaAdapter maps one raw provider event to a partial response. A nil
// response with a nil error means the event carries nothing for the caller.
type DeltaAdapter func(data []byte) (*ChatResponse, error)

// NewSSEStream reads Server-Sent Events from body and yields one partial
// response per event through adapt. The body is closed when the iteration
// ends or the caller stops it early. Any error is yielded once and ends the
// stream.
func NewSSEStream(ctx context.Context, provider string, body io.ReadCloser, adapt DeltaAdapter) *ChatStream {
	scanner := utils.NewSSEScanner(body)

	return NewChatStream(func(yield func(*ChatResponse, error) bool) {
		defer utils.CloseWithLog(body)

		for {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}

			payload, err := scanner.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("%s: SSE read error: %w", provider, err))
				return
			}

			delta, err := adapt([]byte(payload))
			if err != nil {
				yield(nil, err)
				return
			}
			if delta == nil {
				slog.Debug("stream event without payload", slog.String("provider", provider))
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	})
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for delta, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    for _, choice := range delta.Choices {
//	        fmt.Print(choice.Message.Content)
//	    }
//	}
func (stream *ChatStream) Iter() iter.Seq2[*ChatResponse, error] {
	return stream.iterator
}

// Collect consumes the entire stream and accumulates it into one response:
// content is concatenated per choice index, tool-call fragments are joined
// per call index and decoded, and usage counters keep the latest reported
// value. A missing total is derived when both other counters were reported. A mid-stream error stops collection and is returned together with
// the partial result accumulated so far.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	builders := map[int]*choiceBuilder{}

	for delta, err := range stream.iterator {
		if err != nil {
			// Argument decoding failures are secondary to the stream error.
			accumulated.Choices, _ = finishChoices(builders)
			return accumulated, err
		}
		if delta == nil {
			continue
		}

		if delta.ID != "" {
			accumulated.ID = delta.ID
		}
		if delta.Object != "" {
			accumulated.Object = delta.Object
		}
		if delta.Model != "" {
			accumulated.Model = delta.Model
		}
		accumulated.Usage = MergeUsage(accumulated.Usage, delta.Usage)
		accumulated.Warnings = append(accumulated.Warnings, delta.Warnings...)

		for _, choice := range delta.Choices {
			builder, ok := builders[choice.Index]
			if !ok {
				builder = &choiceBuilder{index: choice.Index, toolCalls: map[int]*toolCallBuilder{}}
				builders[choice.Index] = builder
			}
			builder.add(choice)
		}
	}

	choices, err := finishChoices(builders)
	accumulated.Choices = choices
	DeriveTotal(accumulated.Usage)
	return accumulated, err
}

// DeriveTotal fills TotalTokens from the two counters when the provider
// reported them in separate events but never sent a total.
func DeriveTotal(usage *ChatUsage) {
	if usage == nil || usage.TotalTokens != nil || usage.InputTokens == nil || usage.OutputTokens == nil {
		return
	}
	total := *usage.InputTokens + *usage.OutputTokens
	usage.TotalTokens = &total
}

// MergeUsage overlays the counters reported by one delta onto the running
// usage. Counters a delta does not report keep their previous value.
func MergeUsage(current, delta *ChatUsage) *ChatUsage {
	if delta == nil {
		return current
	}
	if current == nil {
		current = &ChatUsage{}
	}
	if delta.InputTokens != nil {
		current.InputTokens = delta.InputTokens
	}
	if delta.OutputTokens != nil {
		current.OutputTokens = delta.OutputTokens
	}
	if delta.TotalTokens != nil {
		current.TotalTokens = delta.TotalTokens
	}
	return current
}

// choiceBuilder accumulates the deltas of one choice index.
type choiceBuilder struct {
	index        int
	role         MessageRole
	content      strings.Builder
	finishReason FinishReason
	toolCalls    map[int]*toolCallBuilder
}

func (builder *choiceBuilder) add(choice ChatChoice) {
	if choice.Message.Role != "" {
		builder.role = choice.Message.Role
	}
	builder.content.WriteString(choice.Message.Content)
	if choice.FinishReason != "" {
		builder.finishReason = choice.FinishReason
	}

	for _, call := range choice.ToolCalls {
		callBuilder, ok := builder.toolCalls[call.Index]
		if !ok {
			callBuilder = &toolCallBuilder{}
			builder.toolCalls[call.Index] = callBuilder
		}
		callBuilder.add(call)
	}
}

// toolCallBuilder joins the fragments of one streamed tool call.
type toolCallBuilder struct {
	id        string
	name      string
	arguments map[string]any
	fragments strings.Builder
}

func (builder *toolCallBuilder) add(call ToolCall) {
	if call.ID != "" {
		builder.id = call.ID
	}
	if call.Function.Name != "" {
		builder.name = call.Function.Name
	}
	if call.Function.Arguments != nil {
		builder.arguments = call.Function.Arguments
	}
	builder.fragments.WriteString(call.ArgumentsDelta)
}

func (builder *toolCallBuilder) build(index int) (ToolCall, error) {
	call := ToolCall{Index: index, ID: builder.id, Function: Function{Name: builder.name, Arguments: builder.arguments}}
	if call.Function.Arguments != nil {
		return call, nil
	}

	arguments, err := utils.DecodeArguments(builder.fragments.String())
	if err != nil {
		call.Function.Arguments = map[string]any{}
		return call, &TranslationError{Provider: "stream", Field: "tool_calls.arguments", Err: err}
	}
	call.Function.Arguments = arguments
	return call, nil
}

func finishChoices(builders map[int]*choiceBuilder) ([]ChatChoice, error) {
	var firstErr error
	choices := make([]ChatChoice, 0, len(builders))
	for _, builder := range sortedBuilders(builders) {
		choice, err := builder.build()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		choices = append(choices, choice)
	}
	return choices, firstErr
}

func sortedBuilders(builders map[int]*choiceBuilder) []*choiceBuilder {
	sorted := make([]*choiceBuilder, 0, len(builders))
	for _, builder := range builders {
		sorted = append(sorted, builder)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].index < sorted[j].index })
	return sorted
}

func (builder *choiceBuilder) build() (ChatChoice, error) {
	role := builder.role
	if role == "" {
		role = RoleAssistant
	}
	choice := ChatChoice{
		Index:        builder.index,
		Message:      ChatMessage{Role: role, Content: builder.content.String()},
		FinishReason: builder.finishReason,
	}

	indices := make([]int, 0, len(builder.toolCalls))
	for index := range builder.toolCalls {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var firstErr error
	for _, index := range indices {
		call, err := builder.toolCalls[index].build(index)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		choice.ToolCalls = append(choice.ToolCalls, call)
	}
	return choice, firstErr
}
