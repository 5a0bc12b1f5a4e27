package cost

import (
	"math"
	"testing"

	"github.com/leofalp/switchai/providers/ai"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestModelCost_Calculate(t *testing.T) {
	mc := ModelCost{
		InputCostPerMillion:  2.50,
		OutputCostPerMillion: 10.00,
	}

	if got := mc.CalculateInputCost(1_000_000); !almostEqual(got, 2.50) {
		t.Errorf("Expected input cost 2.50, got %f", got)
	}
	if got := mc.CalculateOutputCost(500_000); !almostEqual(got, 5.00) {
		t.Errorf("Expected output cost 5.00, got %f", got)
	}
	if got := mc.CalculateTotalCost(1_000, 2_000); !almostEqual(got, 0.0025+0.02) {
		t.Errorf("Expected total cost 0.0225, got %f", got)
	}
	if got := mc.CalculateTotalCost(0, 0); got != 0 {
		t.Errorf("Expected zero cost for zero tokens, got %f", got)
	}
}

func TestModelCost_String(t *testing.T) {
	mc := ModelCost{InputCostPerMillion: 0.15, OutputCostPerMillion: 0.6}
	expected := "Input: 0.150000 USD/M, Output: 0.600000 USD/M"
	if mc.String() != expected {
		t.Errorf("Expected %s, got %s", expected, mc.String())
	}

	mc.Currency = "EUR"
	expected = "Input: 0.150000 EUR/M, Output: 0.600000 EUR/M"
	if mc.String() != expected {
		t.Errorf("Expected %s, got %s", expected, mc.String())
	}
}

func TestModelCost_Validate(t *testing.T) {
	if err := (ModelCost{InputCostPerMillion: 1}).Validate(); err != nil {
		t.Errorf("Expected valid price, got %v", err)
	}
	if err := (ModelCost{OutputCostPerMillion: -1}).Validate(); err == nil {
		t.Error("Expected an error for a negative price")
	}
}

func TestPriceTable_Lookup(t *testing.T) {
	table := PriceTable{
		"gpt-4o":       {InputCostPerMillion: 2.5},
		"gpt-4o*":      {InputCostPerMillion: 1},
		"gpt-4o-mini*": {InputCostPerMillion: 0.15},
		"claude-*":     {InputCostPerMillion: 3},
	}

	tests := []struct {
		model string
		want  float64
		found bool
	}{
		{"gpt-4o", 2.5, true},
		{"gpt-4o-2024-08-06", 1, true},
		{"gpt-4o-mini-2024-07-18", 0.15, true},
		{"claude-3-5-haiku-latest", 3, true},
		{"mistral-small-latest", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			price, found := table.Lookup(tt.model)
			if found != tt.found {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.model, found, tt.found)
			}
			if price.InputCostPerMillion != tt.want {
				t.Errorf("Lookup(%q) input price = %f, want %f", tt.model, price.InputCostPerMillion, tt.want)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	summary := ai.OverviewSummary{
		Calls:        2,
		InputTokens:  200_000,
		OutputTokens: 50_000,
		TotalTokens:  250_000,
	}
	price := ModelCost{InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60}

	got := Estimate(summary, price)
	if !almostEqual(got.InputCost, 0.03) {
		t.Errorf("Expected input cost 0.03, got %f", got.InputCost)
	}
	if !almostEqual(got.OutputCost, 0.03) {
		t.Errorf("Expected output cost 0.03, got %f", got.OutputCost)
	}
	if !almostEqual(got.TotalCost, 0.06) {
		t.Errorf("Expected total cost 0.06, got %f", got.TotalCost)
	}
	if got.Currency != DefaultCurrency {
		t.Errorf("Expected currency %s, got %s", DefaultCurrency, got.Currency)
	}
}

func TestEstimate_EmptyOverview(t *testing.T) {
	got := Estimate(ai.OverviewSummary{Calls: 1}, ModelCost{InputCostPerMillion: 5, OutputCostPerMillion: 15, Currency: "EUR"})
	if got.TotalCost != 0 {
		t.Errorf("Expected zero cost without usage, got %f", got.TotalCost)
	}
	if got.Currency != "EUR" {
		t.Errorf("Expected currency EUR, got %s", got.Currency)
	}
}

func TestCostSummary_String(t *testing.T) {
	summary := CostSummary{InputCost: 0.01, OutputCost: 0.02, TotalCost: 0.03, Currency: "USD"}
	expected := "0.030000 USD (input 0.010000, output 0.020000)"
	if summary.String() != expected {
		t.Errorf("Expected %s, got %s", expected, summary.String())
	}
}
