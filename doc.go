// Package indiaquant provides the portfolio optimization and backtesting
// engine behind the IndiaQuant application. It turns historical price data
// into efficient-frontier portfolios and simulated trading histories, and
// computes the risk and performance statistics the presentation layer
// displays.
//
// The core functionalities include:
//   - Market Data Store: immutable, calendar-aligned historical price
//     series per asset, persisted in human-readable JSONL files.
//   - Return & Covariance Estimation: periodic simple or log returns and
//     sample or exponentially-weighted covariance matrices, with explicit
//     alignment and annualization policies.
//   - Efficient Frontier Optimization: deterministic constrained
//     mean-variance solvers producing minimum-variance, tangency and
//     frontier-sweep portfolios.
//   - Backtest Simulation: a period-stepping simulator that applies a
//     pluggable Strategy, rebalancing and transaction costs to produce an
//     equity curve and trade log with exact decimal accounting.
//   - Risk & Performance Metrics: volatility, drawdown, beta, Sharpe and
//     Sortino ratios and related statistics over weights or equity curves.
//
// All result objects are plain immutable values with no I/O side effects:
// rendering and any interactive surfaces are the consuming collaborator's
// responsibility. This package serves as the foundational logic for the
// `iq` command-line tool.
package indiaquant
