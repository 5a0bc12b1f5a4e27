// Package cost estimates the monetary cost of the calls recorded by an
// [ai.Overview].
//
// Prices are expressed per million tokens in a [ModelCost]. A [PriceTable]
// maps model names, or prefixes ending in "*", to their price, and [Estimate]
// turns an overview summary into a [CostSummary].
//
// Providers do not publish prices through their APIs, so tables are supplied
// by the caller (the switchai command reads them from its configuration).
//
// [ai.Overview]: github.com/leofalp/switchai/providers/ai.Overview
package cost
