package cost

import (
	"fmt"
	"strings"

	"github.com/leofalp/switchai/providers/ai"
)

// DefaultCurrency is used when a price does not name one.
const DefaultCurrency = "USD"

// ModelCost represents the pricing of one model in currency units per
// million tokens.
//
// Example usage:
//
//	price := cost.ModelCost{
//	    InputCostPerMillion:  0.15,
//	    OutputCostPerMillion: 0.60,
//	}
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million" yaml:"input_cost_per_million"`
	OutputCostPerMillion float64 `json:"output_cost_per_million" yaml:"output_cost_per_million"`
	Currency             string  `json:"currency,omitempty" yaml:"currency"`
}

// CalculateInputCost calculates the cost for the given number of input tokens.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return float64(tokens) * mc.InputCostPerMillion / 1_000_000.0
}

// CalculateOutputCost calculates the cost for the given number of output tokens.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return float64(tokens) * mc.OutputCostPerMillion / 1_000_000.0
}

// CalculateTotalCost calculates the cost of both token kinds.
func (mc ModelCost) CalculateTotalCost(inputTokens, outputTokens int) float64 {
	return mc.CalculateInputCost(inputTokens) + mc.CalculateOutputCost(outputTokens)
}

// Validate rejects negative prices.
func (mc ModelCost) Validate() error {
	if mc.InputCostPerMillion < 0 || mc.OutputCostPerMillion < 0 {
		return fmt.Errorf("prices must not be negative, got %s", mc)
	}
	return nil
}

func (mc ModelCost) currency() string {
	if mc.Currency == "" {
		return DefaultCurrency
	}
	return mc.Currency
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	currency := mc.currency()
	return fmt.Sprintf("Input: %.6f %s/M, Output: %.6f %s/M",
		mc.InputCostPerMillion, currency, mc.OutputCostPerMillion, currency)
}

// PriceTable maps model names to prices. A key ending in "*" matches every
// model with that prefix; exact keys win over prefixes and longer prefixes
// win over shorter ones.
type PriceTable map[string]ModelCost

// Lookup returns the price of model.
func (table PriceTable) Lookup(model string) (ModelCost, bool) {
	if price, ok := table[model]; ok {
		return price, true
	}

	best, found := "", false
	for key := range table {
		prefix, ok := strings.CutSuffix(key, "*")
		if !ok || !strings.HasPrefix(model, prefix) {
			continue
		}
		if !found || len(prefix) > len(best) {
			best, found = prefix, true
		}
	}
	if !found {
		return ModelCost{}, false
	}
	return table[best+"*"], true
}

// CostSummary is the estimated cost of the calls in an overview.
type CostSummary struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
	Currency   string  `json:"currency"`
}

// Estimate prices the token counters of summary. Calls whose provider
// reported no usage contribute nothing.
func Estimate(summary ai.OverviewSummary, price ModelCost) CostSummary {
	input := price.CalculateInputCost(summary.InputTokens)
	output := price.CalculateOutputCost(summary.OutputTokens)
	return CostSummary{
		InputCost:  input,
		OutputCost: output,
		TotalCost:  input + output,
		Currency:   price.currency(),
	}
}

// String returns a formatted string representation of the summary.
func (cs CostSummary) String() string {
	return fmt.Sprintf("%.6f %s (input %.6f, output %.6f)", cs.TotalCost, cs.Currency, cs.InputCost, cs.OutputCost)
}
