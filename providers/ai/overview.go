package ai

import (
	"context"
	"sync"
)

type overviewKey struct{}

// Overview tallies the calls made with a context that carries it. Counters
// only include values providers actually reported; a call without usage adds
// to Calls but not to the token totals.
type Overview struct {
	mu           sync.Mutex
	calls        int
	inputTokens  int
	outputTokens int
	totalTokens  int
	warnings     []Warning
}

// OverviewSummary is a point-in-time copy of an Overview.
type OverviewSummary struct {
	Calls        int       `json:"calls"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	Warnings     []Warning `json:"warnings,omitempty"`
}

// ToContext returns a child of ctx carrying o.
func (o *Overview) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, overviewKey{}, o)
}

// OverviewFromContext returns the Overview carried by ctx, or nil.
func OverviewFromContext(ctx context.Context) *Overview {
	overview, _ := ctx.Value(overviewKey{}).(*Overview)
	return overview
}

// AddChat records one chat response.
func (o *Overview) AddChat(response *ChatResponse) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls++
	if response == nil {
		return
	}
	if usage := response.Usage; usage != nil {
		o.inputTokens += deref(usage.InputTokens)
		o.outputTokens += deref(usage.OutputTokens)
		o.totalTokens += deref(usage.TotalTokens)
	}
	o.warnings = append(o.warnings, response.Warnings...)
}

// AddEmbedding records one embedding response.
func (o *Overview) AddEmbedding(response *EmbeddingResponse) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls++
	if response == nil || response.Usage == nil {
		return
	}
	o.inputTokens += deref(response.Usage.InputTokens)
	o.totalTokens += deref(response.Usage.TotalTokens)
}

// AddCall records a call that reports no usage (transcription, images).
func (o *Overview) AddCall(warnings ...Warning) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls++
	o.warnings = append(o.warnings, warnings...)
}

// Summary returns a copy of the current totals.
func (o *Overview) Summary() OverviewSummary {
	o.mu.Lock()
	defer o.mu.Unlock()

	return OverviewSummary{
		Calls:        o.calls,
		InputTokens:  o.inputTokens,
		OutputTokens: o.outputTokens,
		TotalTokens:  o.totalTokens,
		Warnings:     append([]Warning(nil), o.warnings...),
	}
}

func deref(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
