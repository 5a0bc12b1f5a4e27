package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/switchai/core/client"
	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs only the model name, total duration, and token counts.
	// Use this when you want lightweight audit trails without noise.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard logs everything in Minimal plus the message count,
	// choice count, finish reason and coercion warnings. This is the
	// recommended default for most applications.
	LogLevelStandard

	// LogLevelVerbose logs everything in Standard plus the first message content
	// and the first choice content, each truncated to 500 characters.
	//
	// WARNING: DO NOT use LogLevelVerbose in production. It will log raw prompt
	// and response text, which may contain sensitive user data, secrets, or PII.
	// It is intended solely for local debugging and development.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose log output.
const truncateLen = 500

// NewLoggingMiddleware creates a MiddlewareConfig that emits structured slog
// log entries before and after every provider call. Synchronous, streaming
// and non-chat calls are covered: for streams the completion entry is emitted
// once the iterator is fully consumed or fails. All entries of one call share
// a random request_id.
//
// The logger parameter must not be nil. Use slog.Default() if you have not
// configured a custom logger.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
		Invoke: buildInvokeLogging(logger),
	}
}

// buildSendLogging constructs the send middleware that logs request/response pairs.
func buildSendLogging(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			logger := logger.With(slog.String("request_id", uuid.NewString()))
			logger.InfoContext(ctx, "llm send",
				buildRequestAttrs(request, level)...,
			)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed",
				buildResponseAttrs(response, elapsed, level)...,
			)

			return response, nil
		}
	}
}

// buildStreamLogging constructs the stream middleware that logs stream start and
// wraps the iterator to log completion or error at the end of the stream.
func buildStreamLogging(logger *slog.Logger, level LogLevel) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			logger := logger.With(slog.String("request_id", uuid.NewString()))
			logger.InfoContext(ctx, "llm stream",
				buildRequestAttrs(request, level)...,
			)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			return wrapStreamWithLogging(ctx, stream, logger, request.Model, level, start), nil
		}
	}
}

// wrapStreamWithLogging returns a new ChatStream whose iterator logs a
// completion entry when the stream ends normally, or an error entry on failure.
func wrapStreamWithLogging(
	ctx context.Context,
	stream *ai.ChatStream,
	logger *slog.Logger,
	model string,
	level LogLevel,
	start time.Time,
) *ai.ChatStream {
	iteratorFunc := func(yield func(*ai.ChatResponse, error) bool) {
		var finishReason ai.FinishReason
		var usage *ai.ChatUsage
		deltas := 0

		for delta, err := range stream.Iter() {
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("deltas", deltas),
					slog.String("error", err.Error()),
				)
				yield(delta, err)
				return
			}

			if delta != nil {
				deltas++
				usage = ai.MergeUsage(usage, delta.Usage)
				for _, choice := range delta.Choices {
					if choice.FinishReason != "" {
						finishReason = choice.FinishReason
					}
				}
			}

			if !yield(delta, nil) {
				// Caller broke out of the range loop early.
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("deltas", deltas),
				)
				return
			}
		}

		attrs := []any{
			slog.String("model", model),
			slog.Duration("duration", time.Since(start)),
		}
		attrs = append(attrs, usageAttrs(usage)...)

		if level >= LogLevelStandard {
			attrs = append(attrs, slog.Int("deltas", deltas))
			if finishReason != "" {
				attrs = append(attrs, slog.String("finish_reason", string(finishReason)))
			}
		}

		logger.InfoContext(ctx, "llm stream completed", attrs...)
	}

	return ai.NewChatStream(iteratorFunc)
}

// buildInvokeLogging logs non-chat calls. Their responses stay with the
// client, so only the call identity, duration and outcome are logged.
func buildInvokeLogging(logger *slog.Logger) client.InvokeMiddleware {
	return func(next client.InvokeFunc) client.InvokeFunc {
		return func(ctx context.Context, call client.Call) error {
			logger := logger.With(
				slog.String("request_id", uuid.NewString()),
				slog.String("operation", string(call.Operation)),
				slog.String("model", call.Model),
			)
			logger.InfoContext(ctx, "llm call")

			start := time.Now()
			err := next(ctx, call)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm call failed",
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.InfoContext(ctx, "llm call completed", slog.Duration("duration", elapsed))
			return nil
		}
	}
}

// buildRequestAttrs returns slog attributes for an outgoing chat request,
// expanding detail according to the requested verbosity level.
func buildRequestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{
		slog.String("model", request.Model),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Int("message_count", len(request.Messages)),
			slog.Int("choices", request.Choices()),
		)
		if len(request.Tools) > 0 {
			attrs = append(attrs, slog.Int("tool_count", len(request.Tools)))
		}
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		first := request.Messages[0]
		attrs = append(attrs,
			slog.String("first_message_role", string(first.Role)),
			slog.String("first_message_content", utils.TruncateString(first.Text(), truncateLen)),
		)
	}

	return attrs
}

// buildResponseAttrs returns slog attributes for a completed chat response,
// expanding detail according to the requested verbosity level.
func buildResponseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
	}
	attrs = append(attrs, usageAttrs(response.Usage)...)

	choice, ok := response.FirstChoice()

	if level >= LogLevelStandard {
		if ok && choice.FinishReason != "" {
			attrs = append(attrs, slog.String("finish_reason", string(choice.FinishReason)))
		}
		if len(response.Warnings) > 0 {
			attrs = append(attrs, slog.Int("warnings", len(response.Warnings)))
		}
	}

	if level >= LogLevelVerbose && ok && choice.Message.Content != "" {
		attrs = append(attrs,
			slog.String("response_content", utils.TruncateString(choice.Message.Content, truncateLen)),
		)
	}

	return attrs
}

// usageAttrs returns one attribute per counter the provider reported.
func usageAttrs(usage *ai.ChatUsage) []any {
	if usage == nil {
		return nil
	}

	var attrs []any
	if usage.InputTokens != nil {
		attrs = append(attrs, slog.Int("input_tokens", *usage.InputTokens))
	}
	if usage.OutputTokens != nil {
		attrs = append(attrs, slog.Int("output_tokens", *usage.OutputTokens))
	}
	if usage.TotalTokens != nil {
		attrs = append(attrs, slog.Int("total_tokens", *usage.TotalTokens))
	}
	return attrs
}
