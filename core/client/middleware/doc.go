// Package middleware provides built-in middleware implementations for the
// switchai client. Each middleware is constructed via a New* function that
// returns a [client.MiddlewareConfig] ready to be passed to
// [client.WithMiddleware].
//
// # Available Middleware
//
//   - [NewTimeoutMiddleware]: Adds a per-request deadline via context.WithTimeout,
//     ensuring that a stalled provider call does not block the caller indefinitely.
//
//   - [NewLoggingMiddleware]: Emits structured slog log entries before and after
//     every provider call, with three verbosity levels (Minimal, Standard, Verbose).
//     Each call is tagged with a request_id.
//
//   - [NewMetricsMiddleware]: Records request counts, latencies and token usage
//     as Prometheus metrics.
//
// All three cover Chat, StreamChat and the non-chat operations (Embed,
// Transcribe, GenerateImage).
//
// # Usage
//
//	import (
//	    "log/slog"
//	    "time"
//
//	    "github.com/prometheus/client_golang/prometheus"
//
//	    "github.com/leofalp/switchai/core/client"
//	    "github.com/leofalp/switchai/core/client/middleware"
//	)
//
//	metrics, err := middleware.NewMetricsMiddleware(
//	    prometheus.WrapRegistererWith(prometheus.Labels{"provider": "openai"}, prometheus.DefaultRegisterer),
//	)
//
//	c, err := client.New("openai", "gpt-4o-mini",
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(30*time.Second),
//	        metrics,
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// Middlewares execute outermost-first: the first entry in WithMiddleware is the
// outermost wrapper, meaning it runs first on the way in and last on the way out.
// In the example above, a request travels:
//
//	Timeout → Metrics → Logging → Provider
//
// and the response travels back in reverse.
package middleware
