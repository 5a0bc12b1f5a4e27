package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/switchai/core/client"
	"github.com/leofalp/switchai/providers/ai"
)

const metricsNamespace = "switchai"

// Outcome label values.
const (
	outcomeSuccess  = "success"
	outcomeInvalid  = "invalid"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
	outcomeError    = "error"
)

// metrics holds the collectors shared by the three middleware variants.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// NewMetricsMiddleware creates a MiddlewareConfig that records, per operation
// and model:
//
//   - switchai_requests_total{operation,model,outcome}
//   - switchai_request_duration_seconds{operation,model}
//   - switchai_tokens_total{operation,model,kind} for reported input and
//     output tokens
//
// The collectors are registered with registerer; wrap it with
// prometheus.WrapRegistererWith to add a provider label when several clients
// share one registry. Registering twice on the same registry fails with a
// prometheus.AlreadyRegisteredError.
func NewMetricsMiddleware(registerer prometheus.Registerer) (client.MiddlewareConfig, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Provider calls by operation, model and outcome.",
		}, []string{"operation", "model", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Provider call latency. Streams are measured until the last delta.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by providers, by kind (input or output).",
		}, []string{"operation", "model", "kind"}),
	}

	for _, collector := range []prometheus.Collector{m.requests, m.duration, m.tokens} {
		if err := registerer.Register(collector); err != nil {
			return client.MiddlewareConfig{}, err
		}
	}

	return client.MiddlewareConfig{
		Send:   m.send,
		Stream: m.stream,
		Invoke: m.invoke,
	}, nil
}

func (m *metrics) send(next client.SendFunc) client.SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		start := time.Now()
		response, err := next(ctx, request)
		m.observe(ai.OperationChat, request.Model, start, err)
		if err == nil && response != nil {
			m.addTokens(ai.OperationChat, request.Model, response.Usage)
		}
		return response, err
	}
}

func (m *metrics) stream(next client.StreamFunc) client.StreamFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		start := time.Now()
		stream, err := next(ctx, request)
		if err != nil {
			m.observe(ai.OperationChat, request.Model, start, err)
			return nil, err
		}

		return ai.NewChatStream(func(yield func(*ai.ChatResponse, error) bool) {
			var usage *ai.ChatUsage
			var streamErr error
			defer func() {
				m.observe(ai.OperationChat, request.Model, start, streamErr)
				m.addTokens(ai.OperationChat, request.Model, usage)
			}()

			for delta, err := range stream.Iter() {
				if err != nil {
					streamErr = err
				} else if delta != nil {
					usage = ai.MergeUsage(usage, delta.Usage)
				}
				if !yield(delta, err) || err != nil {
					return
				}
			}
		}), nil
	}
}

func (m *metrics) invoke(next client.InvokeFunc) client.InvokeFunc {
	return func(ctx context.Context, call client.Call) error {
		start := time.Now()
		err := next(ctx, call)
		m.observe(call.Operation, call.Model, start, err)
		return err
	}
}

func (m *metrics) observe(operation ai.Operation, model string, start time.Time, err error) {
	m.requests.WithLabelValues(string(operation), model, outcome(err)).Inc()
	m.duration.WithLabelValues(string(operation), model).Observe(time.Since(start).Seconds())
}

func (m *metrics) addTokens(operation ai.Operation, model string, usage *ai.ChatUsage) {
	if usage == nil {
		return
	}
	if usage.InputTokens != nil {
		m.tokens.WithLabelValues(string(operation), model, "input").Add(float64(*usage.InputTokens))
	}
	if usage.OutputTokens != nil {
		m.tokens.WithLabelValues(string(operation), model, "output").Add(float64(*usage.OutputTokens))
	}
}

// outcome maps an error to a bounded label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ai.ErrInvalidParameter), errors.Is(err, ai.ErrCapability):
		return outcomeInvalid
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	default:
		return outcomeError
	}
}
