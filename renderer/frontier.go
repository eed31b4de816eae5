package renderer

import (
	"fmt"
	"strings"

	"github.com/varun18-code/indiaquant"
)

// FrontierMarkdown renders an efficient frontier sweep: the point table,
// the minimum-variance and tangency weight breakdowns, and a cancellation
// notice when the sweep was interrupted.
func FrontierMarkdown(f *indiaquant.Frontier, tangency *indiaquant.FrontierPoint, riskFree float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Efficient Frontier\n\n")
	if f.Cancelled {
		fmt.Fprintf(&b, "> Sweep cancelled after %d points. The points below are valid but the curve is incomplete.\n\n", len(f.Points))
	}

	fmt.Fprintln(&b, "| # | Return | Volatility | Sharpe |")
	fmt.Fprintln(&b, "|--:|---:|---:|---:|")
	for i, p := range f.Points {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, pct(p.Return), pct(p.Volatility), num(p.Sharpe(riskFree)))
	}
	fmt.Fprintln(&b)

	renderPoint(&b, "Minimum Variance", f.MinVariance, riskFree)
	if tangency != nil {
		renderPoint(&b, "Tangency (Max Sharpe)", *tangency, riskFree)
	}
	return b.String()
}

func renderPoint(b *strings.Builder, title string, p indiaquant.FrontierPoint, riskFree float64) {
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "Return %s, volatility %s, Sharpe %s.\n\n", pct(p.Return), pct(p.Volatility), num(p.Sharpe(riskFree)))
	fmt.Fprintln(b, "| Ticker | Weight |")
	fmt.Fprintln(b, "|:---|---:|")
	assets := p.Portfolio.Assets()
	for i, w := range p.Portfolio.Weights() {
		fmt.Fprintf(b, "| %s | %s |\n", assets[i].Ticker(), weight(w))
	}
	fmt.Fprintln(b)
}
