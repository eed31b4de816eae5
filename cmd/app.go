// Package cmd implements the CLI application to fetch market data,
// optimize portfolios and run backtests.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/varun18-code/indiaquant"
)

// Commands lists the subcommands a main package registers.
var Commands = []subcommands.Command{
	&fetchCmd{},
	&frontierCmd{},
	&backtestCmd{},
	&metricsCmd{},
	&fmtCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok
// to use global variables.

var marketFile = flag.String("market-file", "market.jsonl", "Path to the market definition file; price files live next to it")
var verbose = flag.Bool("v", false, "enable debug logging")

// Logger builds the application logger writing human-readable lines to
// stderr, so reports on stdout stay pipeable.
func Logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// DecodeMarket loads the market from the app market file. A missing file
// yields an empty market.
func DecodeMarket() (*indiaquant.Market, error) {
	return indiaquant.DecodeMarket(*marketFile)
}

// EncodeMarket persists the market back to the app market file.
func EncodeMarket(m *indiaquant.Market) error {
	return indiaquant.EncodeMarket(*marketFile, m)
}

// printMarkdown renders markdown for the terminal, falling back to the
// raw text when rendering fails or stdout is not a terminal style target.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// splitTickers parses a comma-separated ticker list.
func splitTickers(s string) []string {
	var tickers []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, strings.ToUpper(t))
		}
	}
	return tickers
}

// splitWeights parses a comma-separated weight list.
func splitWeights(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	weights := make([]float64, len(parts))
	for i, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		weights[i] = w
	}
	return weights, nil
}

// parseRange reads the -from and -to flags into a Range; empty flags
// leave the corresponding side open.
func parseRange(from, to string) (indiaquant.Range, error) {
	var rng indiaquant.Range
	if from != "" {
		d, err := indiaquant.ParseDate(from)
		if err != nil {
			return rng, fmt.Errorf("invalid -from date: %w", err)
		}
		rng.From = d
	}
	if to != "" {
		d, err := indiaquant.ParseDate(to)
		if err != nil {
			return rng, fmt.Errorf("invalid -to date: %w", err)
		}
		rng.To = d
	} else if from != "" {
		rng.To = indiaquant.Today()
	}
	return rng, nil
}

// fail prints an error and maps it to the right exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
