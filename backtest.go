package indiaquant

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// SimulationState tracks a Simulator through its lifecycle. A Simulator
// starts Initialized, moves to Running when Run is called, and ends in
// Completed or Failed. A failed run still exposes every record produced
// before the failure.
type SimulationState int

const (
	Initialized SimulationState = iota
	Running
	Completed
	Failed
)

func (s SimulationState) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("SimulationState(%d)", int(s))
	}
}

// A CostModel prices the transaction cost of a single executed trade from
// its absolute notional value.
type CostModel interface {
	Cost(notional Money) Money
}

// ZeroCost charges nothing, the default.
type ZeroCost struct{}

func (ZeroCost) Cost(notional Money) Money { return M(0, notional.Currency()) }

// PerTradeCost charges a flat fee per executed trade.
type PerTradeCost struct{ Fee Money }

func (c PerTradeCost) Cost(notional Money) Money { return c.Fee }

// ProportionalCost charges a fixed fraction of the traded notional.
type ProportionalCost struct{ Rate float64 }

func (c ProportionalCost) Cost(notional Money) Money { return notional.Mul(Q(c.Rate)) }

// BrokerageCost charges a flat fee plus a fraction of the notional, the
// shape of a typical discount-broker schedule.
type BrokerageCost struct {
	Fee  Money
	Rate float64
}

func (c BrokerageCost) Cost(notional Money) Money { return c.Fee.Add(notional.Mul(Q(c.Rate))) }

// Trade is one executed order. Quantity is signed: positive buys,
// negative sells. Price is the execution price per unit and Cost the
// transaction cost charged on top.
type Trade struct {
	On       Date
	Ticker   string
	Quantity Quantity
	Price    Money
	Cost     Money
}

// Notional is the absolute traded value, price times unsigned quantity.
func (t Trade) Notional() Money { return t.Price.Mul(t.Quantity.Abs()) }

// RejectedTrade is an order the simulator refused to execute, with the
// reason. Rejections do not stop a run.
type RejectedTrade struct {
	On       Date
	Ticker   string
	Quantity Quantity
	Reason   string
}

// BacktestRecord is the end-of-day snapshot of a simulated account.
// Equity is always Cash plus Holdings, marked at that day's close.
// Positions holds the quantities held at the close, zero holdings omitted.
type BacktestRecord struct {
	On        Date
	Cash      Money
	Holdings  Money
	Equity    Money
	Positions map[string]Quantity
}

// Position is a final holding with its average acquisition cost. Sells
// realize against the average cost; buys merge into it.
type Position struct {
	Ticker   string
	Quantity Quantity
	AvgCost  Money
}

// BacktestResult is the outcome of one simulation run. On failure, State
// is Failed, Cause holds the error, and Records keeps everything produced
// up to the failing day.
type BacktestResult struct {
	State       SimulationState
	Strategy    string
	InitialCash Money
	Records     []BacktestRecord
	Trades      []Trade
	Rejected    []RejectedTrade
	Positions   []Position
	Cause       error
}

// FinalEquity is the equity of the last record, or the initial cash when
// no record was produced.
func (r *BacktestResult) FinalEquity() Money {
	if len(r.Records) == 0 {
		return r.InitialCash
	}
	return r.Records[len(r.Records)-1].Equity
}

// EquityCurve returns the aligned dates and equity values of the run.
func (r *BacktestResult) EquityCurve() ([]Date, []float64) {
	dates := make([]Date, len(r.Records))
	equity := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		dates[i] = rec.On
		equity[i] = rec.Equity.InexactFloat64()
	}
	return dates, equity
}

// Returns converts the equity curve into simple periodic returns,
// starting from the initial cash.
func (r *BacktestResult) Returns() []float64 {
	returns := make([]float64, 0, len(r.Records))
	prev := r.InitialCash.InexactFloat64()
	for _, rec := range r.Records {
		returns = append(returns, rec.Equity.InexactFloat64()/prev-1)
		prev = rec.Equity.InexactFloat64()
	}
	return returns
}

// Performance computes the ex-post metric report of the run using daily
// annualization. benchmark may be nil.
func (r *BacktestResult) Performance(benchmark []float64, riskFree float64) (PerformanceReport, error) {
	dates, equity := r.EquityCurve()
	return NewPerformanceReport(dates, equity, r.Returns(), benchmark, riskFree, Daily.PeriodsPerYear())
}

// Simulator replays a strategy against historical prices. Each trading
// day it hands the strategy a market truncated to that day, converts the
// returned target weights into orders, executes them at that day's close,
// and snapshots the account. A buy whose notional plus cost exceeds the
// available cash is rejected and recorded, never executed: cash can not
// go negative.
//
// A Simulator is single-shot. Run consumes it; build a fresh Simulator
// (and a fresh Strategy value) to run again. Identical inputs produce
// identical results.
type Simulator struct {
	Market      *Market
	Strategy    Strategy
	Universe    []Asset
	Over        Range
	InitialCash Money
	Costs       CostModel // nil means ZeroCost
	Log         zerolog.Logger

	state SimulationState
}

// State reports the simulator's lifecycle state.
func (s *Simulator) State() SimulationState { return s.state }

func (s *Simulator) validate() error {
	if s.Market == nil {
		return fmt.Errorf("simulator has no market")
	}
	if s.Strategy == nil {
		return fmt.Errorf("simulator has no strategy")
	}
	if len(s.Universe) == 0 {
		return fmt.Errorf("simulator has an empty universe")
	}
	if !s.InitialCash.IsPositive() {
		return fmt.Errorf("initial cash %s is not positive", s.InitialCash)
	}
	for _, a := range s.Universe {
		if !s.Market.Has(a.Ticker()) {
			return fmt.Errorf("universe asset %s has no price series", a.Ticker())
		}
	}
	return nil
}

// Run executes the simulation. On error the returned result is still
// valid: its State is Failed, Cause is the error, and it carries the
// records of every day simulated before the failure.
func (s *Simulator) Run(ctx context.Context) (*BacktestResult, error) {
	result := &BacktestResult{State: Failed, InitialCash: s.InitialCash}
	if s.state != Initialized {
		err := fmt.Errorf("simulation already %s, build a fresh simulator to run again", s.state)
		result.Cause = err
		return result, err
	}
	s.state = Running

	fail := func(err error) (*BacktestResult, error) {
		s.state = Failed
		result.State = Failed
		result.Cause = err
		s.Log.Error().Err(err).Int("days", len(result.Records)).Msg("simulation failed")
		return result, err
	}

	if err := s.validate(); err != nil {
		return fail(err)
	}
	result.Strategy = s.Strategy.Name()
	costs := s.Costs
	if costs == nil {
		costs = ZeroCost{}
	}

	tickers := make([]string, len(s.Universe))
	for i, a := range s.Universe {
		tickers[i] = a.Ticker()
	}
	calendar, err := s.Market.Calendar(tickers, s.Over)
	if err != nil {
		return fail(err)
	}
	if len(calendar) == 0 {
		return fail(&InsufficientDataError{Observations: 0, Needed: 1})
	}

	ccy := s.InitialCash.Currency()
	cash := s.InitialCash
	positions := make(map[string]Quantity, len(s.Universe))
	avgCost := make(map[string]Money, len(s.Universe))

	priceOn := func(ticker string, on Date) (Money, error) {
		p, ok := s.Market.Get(ticker).Price(on)
		if !ok {
			return Money{}, fmt.Errorf("no price for %s on %s", ticker, on)
		}
		return M(p, ccy), nil
	}
	holdingsValue := func(on Date) (Money, error) {
		total := M(0, ccy)
		for _, a := range s.Universe {
			qty := positions[a.Ticker()]
			if qty.IsZero() {
				continue
			}
			price, err := priceOn(a.Ticker(), on)
			if err != nil {
				return Money{}, err
			}
			total = total.Add(price.Mul(qty))
		}
		return total, nil
	}

	s.Log.Info().
		Str("strategy", result.Strategy).
		Stringer("from", calendar[0]).
		Stringer("to", calendar[len(calendar)-1]).
		Int("days", len(calendar)).
		Msg("starting simulation")

	for _, day := range calendar {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("simulation interrupted on %s: %w", day, err))
		}

		held, err := holdingsValue(day)
		if err != nil {
			return fail(err)
		}
		equity := cash.Add(held)

		current, err := s.currentPortfolio(day, positions, equity, priceOn)
		if err != nil {
			return fail(err)
		}
		target, rebalance, err := s.Strategy.Allocate(day, s.Market.Truncated(day), current)
		if err != nil {
			return fail(fmt.Errorf("strategy %s on %s: %w", result.Strategy, day, err))
		}
		if rebalance {
			cash, err = s.execute(day, target, equity, cash, positions, avgCost, costs, priceOn, result)
			if err != nil {
				return fail(err)
			}
			if held, err = holdingsValue(day); err != nil {
				return fail(err)
			}
		}

		snapshot := make(map[string]Quantity, len(positions))
		for ticker, qty := range positions {
			if !qty.IsZero() {
				snapshot[ticker] = qty
			}
		}
		result.Records = append(result.Records, BacktestRecord{
			On:        day,
			Cash:      cash,
			Holdings:  held,
			Equity:    cash.Add(held),
			Positions: snapshot,
		})
	}

	for _, a := range s.Universe {
		qty := positions[a.Ticker()]
		if qty.IsZero() {
			continue
		}
		result.Positions = append(result.Positions, Position{
			Ticker:   a.Ticker(),
			Quantity: qty,
			AvgCost:  avgCost[a.Ticker()],
		})
	}

	s.state = Completed
	result.State = Completed
	s.Log.Info().
		Stringer("final_equity", result.FinalEquity()).
		Int("trades", len(result.Trades)).
		Int("rejected", len(result.Rejected)).
		Msg("simulation completed")
	return result, nil
}

// currentPortfolio expresses the account's holdings as weights of equity.
// Cash keeps the weights below one, so the portfolio is built without the
// sum-to-one check.
func (s *Simulator) currentPortfolio(on Date, positions map[string]Quantity, equity Money, priceOn func(string, Date) (Money, error)) (Portfolio, error) {
	weights := make([]float64, len(s.Universe))
	if equity.IsZero() {
		return NewPortfolio(s.Universe, weights, true)
	}
	for i, a := range s.Universe {
		qty := positions[a.Ticker()]
		if qty.IsZero() {
			continue
		}
		price, err := priceOn(a.Ticker(), on)
		if err != nil {
			return Portfolio{}, err
		}
		weights[i] = price.Mul(qty).InexactFloat64() / equity.InexactFloat64()
	}
	return NewPortfolio(s.Universe, weights, true)
}

// execute trades the account toward the target weights. Sells run before
// buys so their proceeds fund the purchases. Buys that would overdraw the
// account are rejected and recorded.
func (s *Simulator) execute(on Date, target Portfolio, equity, cash Money, positions map[string]Quantity, avgCost map[string]Money, costs CostModel, priceOn func(string, Date) (Money, error), result *BacktestResult) (Money, error) {
	for _, a := range target.Assets() {
		if !s.Market.Has(a.Ticker()) {
			return cash, fmt.Errorf("target asset %s has no price series", a.Ticker())
		}
	}

	type order struct {
		ticker string
		qty    Quantity
		price  Money
	}
	var sells, buys []order
	for _, a := range s.Universe {
		ticker := a.Ticker()
		price, err := priceOn(ticker, on)
		if err != nil {
			return cash, err
		}
		targetValue := equity.Mul(Q(target.Weight(ticker)))
		currentValue := price.Mul(positions[ticker])
		qty := targetValue.Sub(currentValue).DivPrice(price)
		switch {
		case qty.IsNegative():
			// never sell more than held
			if held := positions[ticker]; qty.Neg().GreaterThan(held) {
				qty = held.Neg()
			}
			if !qty.IsZero() {
				sells = append(sells, order{ticker, qty, price})
			}
		case qty.IsPositive():
			buys = append(buys, order{ticker, qty, price})
		}
	}

	for _, o := range sells {
		notional := o.price.Mul(o.qty.Abs())
		cost := costs.Cost(notional)
		cash = cash.Add(notional).Sub(cost)
		positions[o.ticker] = positions[o.ticker].Add(o.qty)
		if positions[o.ticker].IsZero() {
			delete(avgCost, o.ticker)
		}
		result.Trades = append(result.Trades, Trade{On: on, Ticker: o.ticker, Quantity: o.qty, Price: o.price, Cost: cost})
	}
	for _, o := range buys {
		qty := o.qty
		notional := o.price.Mul(qty)
		cost := costs.Cost(notional)
		if notional.Add(cost).GreaterThan(cash) {
			// partial fill up to the available cash, rejecting the rest
			affordable := affordableQuantity(cash, o.price, costs)
			rejected := qty.Sub(affordable)
			result.Rejected = append(result.Rejected, RejectedTrade{
				On:       on,
				Ticker:   o.ticker,
				Quantity: rejected,
				Reason:   fmt.Sprintf("needs %s, only %s available", notional.Add(cost), cash),
			})
			s.Log.Warn().
				Stringer("on", on).
				Str("ticker", o.ticker).
				Stringer("quantity", rejected).
				Msg("rejected buy, not enough cash")
			if !affordable.IsPositive() {
				continue
			}
			qty = affordable
			notional = o.price.Mul(qty)
			cost = costs.Cost(notional)
		}
		cash = cash.Sub(notional).Sub(cost)
		held := positions[o.ticker]
		// merge the fill into the running average acquisition cost
		avgCost[o.ticker] = avgCost[o.ticker].Mul(held).Add(notional).Div(held.Add(qty))
		positions[o.ticker] = held.Add(qty)
		result.Trades = append(result.Trades, Trade{On: on, Ticker: o.ticker, Quantity: qty, Price: o.price, Cost: cost})
	}
	return cash, nil
}

// affordableQuantity finds the largest buy quantity whose notional plus
// cost fits in the available cash. Cost models are assumed monotone in
// the notional.
func affordableQuantity(cash, price Money, costs CostModel) Quantity {
	notional := cash.Sub(costs.Cost(cash))
	for i := 0; i < 4 && notional.IsPositive(); i++ {
		total := notional.Add(costs.Cost(notional))
		if !total.GreaterThan(cash) {
			break
		}
		notional = notional.Sub(total.Sub(cash))
	}
	if !notional.IsPositive() {
		return Q(0)
	}
	return notional.DivPrice(price).Truncate(9)
}
