package renderer

import (
	"fmt"
	"strings"

	"github.com/varun18-code/indiaquant"
)

// maxTradeRows bounds the trade table of a backtest report; older trades
// are elided with a count.
const maxTradeRows = 25

// BacktestMarkdown renders a simulation outcome: the account summary,
// the metric report, and the most recent trades. Failed runs state the
// cause and still show the records produced before the failure.
func BacktestMarkdown(r *indiaquant.BacktestResult, report indiaquant.PerformanceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Backtest: %s\n\n", r.Strategy)

	if r.State == indiaquant.Failed {
		fmt.Fprintf(&b, "> **Run failed**: %v. %d day(s) were simulated before the failure; the figures below cover those days only.\n\n", r.Cause, len(r.Records))
	}

	fmt.Fprintln(&b, "| | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Initial Cash | %s |\n", r.InitialCash)
	fmt.Fprintf(&b, "| Final Equity | %s |\n", r.FinalEquity())
	fmt.Fprintf(&b, "| Trading Days | %d |\n", len(r.Records))
	fmt.Fprintf(&b, "| Trades | %d |\n", len(r.Trades))
	fmt.Fprintf(&b, "| Rejected Trades | %d |\n", len(r.Rejected))
	fmt.Fprintln(&b)

	if len(r.Records) > 0 {
		b.WriteString(PerformanceMarkdown(report))
	}

	if len(r.Positions) > 0 {
		fmt.Fprintf(&b, "## Final Positions\n\n")
		fmt.Fprintln(&b, "| Ticker | Quantity | Avg Cost |")
		fmt.Fprintln(&b, "|:---|---:|---:|")
		for _, p := range r.Positions {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", p.Ticker, p.Quantity, p.AvgCost)
		}
		fmt.Fprintln(&b)
	}

	if len(r.Trades) > 0 {
		fmt.Fprintf(&b, "## Trades\n\n")
		if elided := len(r.Trades) - maxTradeRows; elided > 0 {
			fmt.Fprintf(&b, "%d earlier trade(s) not shown.\n\n", elided)
		}
		fmt.Fprintln(&b, "| Date | Ticker | Quantity | Price | Cost |")
		fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
		start := max(0, len(r.Trades)-maxTradeRows)
		for _, t := range r.Trades[start:] {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", t.On, t.Ticker, t.Quantity, t.Price, t.Cost)
		}
		fmt.Fprintln(&b)
	}

	if len(r.Rejected) > 0 {
		fmt.Fprintf(&b, "## Rejected Trades\n\n")
		fmt.Fprintln(&b, "| Date | Ticker | Quantity | Reason |")
		fmt.Fprintln(&b, "|:---|:---|---:|:---|")
		for _, t := range r.Rejected {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", t.On, t.Ticker, t.Quantity, t.Reason)
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}
