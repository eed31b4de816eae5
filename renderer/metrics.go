package renderer

import (
	"fmt"
	"math"
	"strings"

	"github.com/varun18-code/indiaquant"
	"gonum.org/v1/gonum/mat"
)

// PerformanceMarkdown renders a full ex-post metric report. The
// benchmark-relative rows only appear when a benchmark was supplied.
func PerformanceMarkdown(r indiaquant.PerformanceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Performance\n\n")
	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Total Return | %s |\n", pct(r.TotalReturn))
	fmt.Fprintf(&b, "| Annualized Return | %s |\n", pct(r.AnnualizedReturn))
	fmt.Fprintf(&b, "| Volatility | %s |\n", pct(r.Volatility))
	fmt.Fprintf(&b, "| Sharpe Ratio | %s |\n", num(r.Sharpe))
	fmt.Fprintf(&b, "| Sortino Ratio | %s |\n", num(r.Sortino))
	fmt.Fprintf(&b, "| Max Drawdown | %s (%s to %s) |\n", pct(r.MaxDrawdown.Depth), r.MaxDrawdown.Peak, r.MaxDrawdown.Trough)
	fmt.Fprintf(&b, "| VaR 95%% | %s |\n", pct(r.VaR95))
	fmt.Fprintf(&b, "| VaR 99%% | %s |\n", pct(r.VaR99))
	if !math.IsNaN(r.Beta) {
		fmt.Fprintf(&b, "| Beta | %s |\n", num(r.Beta))
		fmt.Fprintf(&b, "| Alpha | %s |\n", pct(r.Alpha))
		fmt.Fprintf(&b, "| Information Ratio | %s |\n", num(r.InformationRatio))
	}
	fmt.Fprintln(&b)
	return b.String()
}

// CorrelationMarkdown renders an asset correlation matrix as a square
// markdown table.
func CorrelationMarkdown(assets []indiaquant.Asset, corr *mat.SymDense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Correlation\n\n")
	fmt.Fprint(&b, "| |")
	for _, a := range assets {
		fmt.Fprintf(&b, " %s |", a.Ticker())
	}
	fmt.Fprintln(&b)
	fmt.Fprint(&b, "|:---|")
	for range assets {
		fmt.Fprint(&b, "---:|")
	}
	fmt.Fprintln(&b)
	for i, a := range assets {
		fmt.Fprintf(&b, "| %s |", a.Ticker())
		for j := range assets {
			fmt.Fprintf(&b, " %s |", num(corr.At(i, j)))
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintln(&b)
	return b.String()
}
