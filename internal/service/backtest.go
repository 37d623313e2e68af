package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pickeval/internal/config"
	"pickeval/internal/engine"
	"pickeval/internal/models"
	"pickeval/internal/repository"
)

// BacktestService replays historical price series against a pick set and a
// rule set, producing one run document and, in save mode, its persisted
// trade ledger.
type BacktestService struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	Defaults config.BacktestConfig
}

// BacktestParams are the caller's overrides; nil fields fall back to the
// configured defaults. Runs persist by default; Save=false is the opt-out
// for ad hoc evaluations (the comparator uses it).
type BacktestParams struct {
	Algorithms      []string `json:"algorithms"`
	TargetPct       *float64 `json:"target_pct"`
	StopPct         *float64 `json:"stop_pct"`
	MaxHoldDays     *int     `json:"max_hold_days"`
	InitialCapital  *float64 `json:"initial_capital"`
	FeePct          *float64 `json:"fee_pct"`
	PositionSizePct *float64 `json:"position_size_pct"`
	Save            *bool    `json:"save"`
}

type ResolvedParams struct {
	Algorithms      []string `json:"algorithms,omitempty"`
	TargetPct       float64  `json:"target_pct"`
	StopPct         float64  `json:"stop_pct"`
	MaxHoldDays     int      `json:"max_hold_days"`
	InitialCapital  float64  `json:"initial_capital"`
	FeePct          float64  `json:"fee_pct"`
	PositionSizePct float64  `json:"position_size_pct"`
}

// RunResult is the structured document a backtest invocation returns.
type RunResult struct {
	RunID  uint64         `json:"run_id,omitempty"`
	Params ResolvedParams `json:"params"`

	TradesCount  int `json:"trades_count"`
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`
	SkippedPicks int `json:"skipped_picks"`

	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`
	WinRate        float64 `json:"win_rate"`
	AvgWinPct      float64 `json:"avg_win_pct"`
	AvgLossPct     float64 `json:"avg_loss_pct"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	ProfitFactor   float64 `json:"profit_factor"`
	Expectancy     float64 `json:"expectancy"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	FeeDragPct     float64 `json:"fee_drag_pct"`
	TotalFees      float64 `json:"total_fees"`
	NetPnL         float64 `json:"net_pnl"`
	MaxWinStreak   int     `json:"max_win_streak"`
	MaxLossStreak  int     `json:"max_loss_streak"`

	ByAlgorithm map[string]engine.AlgoStats `json:"by_algorithm"`
	ExitReasons map[string]int              `json:"exit_reasons"`
	EquityCurve []engine.EquityPoint        `json:"equity_curve"`

	trades []engine.Trade
}

func (s *BacktestService) resolve(p BacktestParams) ResolvedParams {
	r := ResolvedParams{
		Algorithms:      p.Algorithms,
		TargetPct:       s.Defaults.TargetPct,
		StopPct:         s.Defaults.StopPct,
		MaxHoldDays:     s.Defaults.MaxHoldDays,
		InitialCapital:  s.Defaults.InitialCapital,
		FeePct:          s.Defaults.FeePct,
		PositionSizePct: s.Defaults.PositionSizePct,
	}
	if p.TargetPct != nil {
		r.TargetPct = *p.TargetPct
	}
	if p.StopPct != nil {
		r.StopPct = *p.StopPct
	}
	if p.MaxHoldDays != nil {
		r.MaxHoldDays = *p.MaxHoldDays
	}
	if p.InitialCapital != nil {
		r.InitialCapital = *p.InitialCapital
	}
	if p.FeePct != nil {
		r.FeePct = *p.FeePct
	}
	if p.PositionSizePct != nil {
		r.PositionSizePct = *p.PositionSizePct
	}
	return r
}

func validateParams(p ResolvedParams) error {
	if p.InitialCapital <= 0 {
		return paramErrorf("initial capital must be positive, got %.2f", p.InitialCapital)
	}
	if p.PositionSizePct <= 0 || p.PositionSizePct > 100 {
		return paramErrorf("position size pct must be in (0,100], got %.2f", p.PositionSizePct)
	}
	if p.TargetPct <= 0 || p.StopPct <= 0 {
		return paramErrorf("target and stop percentages must be positive")
	}
	if p.MaxHoldDays < 0 {
		return paramErrorf("max hold days must not be negative, got %d", p.MaxHoldDays)
	}
	if p.FeePct < 0 {
		return paramErrorf("fee pct must not be negative, got %.4f", p.FeePct)
	}
	return nil
}

// Run executes one backtest: validate, simulate every matching pick in
// chronological order, aggregate, and persist the run together with its
// ledger unless the caller opted out. A filter matching zero picks is a
// valid empty result.
func (s *BacktestService) Run(ctx context.Context, params BacktestParams) (*RunResult, error) {
	if s == nil || s.Repo == nil {
		return nil, paramErrorf("backtest service not configured")
	}
	p := s.resolve(params)
	if err := validateParams(p); err != nil {
		return nil, err
	}

	picks, err := s.Repo.ListPicks(ctx, repository.ListPicksParams{
		Algorithms: p.Algorithms,
		Limit:      5000,
	})
	if err != nil {
		return nil, err
	}

	expenseBySymbol, err := s.expenseRatios(ctx)
	if err != nil {
		return nil, err
	}

	rules := engine.ExitRules{
		TargetPct:   p.TargetPct,
		StopPct:     p.StopPct,
		MaxHoldDays: p.MaxHoldDays,
	}
	lookahead := s.lookaheadLimit(p.MaxHoldDays)

	acc := engine.NewEquityAccumulator(p.InitialCapital)
	trades := make([]engine.Trade, 0, len(picks))
	skipped := 0

	for _, pick := range picks {
		entryPrice := pick.EntryPrice.InexactFloat64()
		prices, err := s.Repo.ListPrices(ctx, pick.Symbol, pick.PickDate, lookahead)
		if err != nil {
			return nil, err
		}
		trajectory := make([]engine.PricePoint, 0, len(prices))
		for _, pp := range prices {
			trajectory = append(trajectory, engine.PricePoint{
				Date:  pp.Date,
				Price: pp.Price.InexactFloat64(),
			})
		}

		exit := engine.EvaluateExit(entryPrice, trajectory, rules)
		positionValue := acc.Capital * p.PositionSizePct / 100
		fees := engine.FeeModel{
			TransactionFeePct: p.FeePct,
			AnnualExpensePct:  expenseBySymbol[pick.Symbol],
		}
		trade, ok := engine.Simulate(engine.SimPick{
			Symbol:        pick.Symbol,
			AlgorithmName: pick.AlgorithmName,
			PickDate:      pick.PickDate,
			EntryPrice:    entryPrice,
		}, exit, fees, positionValue)
		if !ok {
			skipped++
			continue
		}
		acc.Apply(trade.NetPnL, trade.ExitDate)
		trades = append(trades, trade)
	}

	summary := engine.Summarize(trades, p.InitialCapital, acc.MaxDrawdownPct())
	result := buildRunResult(p, summary, acc, skipped)
	result.trades = trades

	save := params.Save == nil || *params.Save
	if save {
		if err := s.persist(ctx, result); err != nil {
			return nil, err
		}
	}

	if s.Logger != nil {
		s.Logger.Info("backtest complete",
			zap.Int("picks", len(picks)),
			zap.Int("trades", result.TradesCount),
			zap.Int("skipped", skipped),
			zap.Float64("total_return_pct", result.TotalReturnPct),
			zap.Bool("saved", save),
		)
	}
	return result, nil
}

func (s *BacktestService) expenseRatios(ctx context.Context) (map[string]float64, error) {
	instruments, err := s.Repo.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(instruments))
	for _, ins := range instruments {
		out[ins.Symbol] = ins.ExpenseRatioPct.InexactFloat64()
	}
	return out, nil
}

func (s *BacktestService) lookaheadLimit(maxHoldDays int) int {
	ceiling := s.Defaults.MaxLookaheadDays
	if ceiling <= 0 {
		ceiling = 365
	}
	if maxHoldDays <= 0 || maxHoldDays >= engine.DisabledThreshold {
		return ceiling
	}
	// A few extra rows past the hold window so max_hold can see its exit day.
	limit := maxHoldDays + 5
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func buildRunResult(p ResolvedParams, sum engine.Summary, acc *engine.EquityAccumulator, skipped int) *RunResult {
	totalReturnPct := 0.0
	if p.InitialCapital > 0 {
		totalReturnPct = (acc.Capital - p.InitialCapital) / p.InitialCapital * 100
	}
	return &RunResult{
		Params:         p,
		TradesCount:    sum.Trades,
		Wins:           sum.Wins,
		Losses:         sum.Losses,
		SkippedPicks:   skipped,
		FinalCapital:   acc.Capital,
		TotalReturnPct: totalReturnPct,
		WinRate:        sum.WinRate,
		AvgWinPct:      sum.AvgWinPct,
		AvgLossPct:     sum.AvgLossPct,
		Sharpe:         sum.Sharpe,
		Sortino:        sum.Sortino,
		ProfitFactor:   sum.ProfitFactor,
		Expectancy:     sum.Expectancy,
		MaxDrawdownPct: sum.MaxDrawdownPct,
		FeeDragPct:     sum.FeeDragPct,
		TotalFees:      sum.TotalFees,
		NetPnL:         sum.NetPnL,
		MaxWinStreak:   sum.MaxWinStreak,
		MaxLossStreak:  sum.MaxLossStreak,
		ByAlgorithm:    sum.ByAlgorithm,
		ExitReasons:    sum.ExitReasons,
		EquityCurve:    acc.Curve,
	}
}

// persist writes the run and its ledger in one transaction; the ledger is
// never written without its parent run.
func (s *BacktestService) persist(ctx context.Context, result *RunResult) error {
	curveRaw, _ := json.Marshal(result.EquityCurve)
	byAlgoRaw, _ := json.Marshal(result.ByAlgorithm)
	exitRaw, _ := json.Marshal(result.ExitReasons)

	run := &models.BacktestRun{
		AlgorithmFilter: joinAlgorithms(result.Params.Algorithms),
		TargetPct:       decimal.NewFromFloat(result.Params.TargetPct),
		StopPct:         decimal.NewFromFloat(result.Params.StopPct),
		MaxHoldDays:     result.Params.MaxHoldDays,
		InitialCapital:  decimal.NewFromFloat(result.Params.InitialCapital),
		FeePct:          decimal.NewFromFloat(result.Params.FeePct),
		PositionSizePct: decimal.NewFromFloat(result.Params.PositionSizePct),
		TradesCount:     result.TradesCount,
		WinCount:        result.Wins,
		LossCount:       result.Losses,
		FinalCapital:    decimal.NewFromFloat(result.FinalCapital),
		TotalReturnPct:  decimal.NewFromFloat(result.TotalReturnPct),
		WinRate:         decimal.NewFromFloat(result.WinRate),
		AvgWinPct:       decimal.NewFromFloat(result.AvgWinPct),
		AvgLossPct:      decimal.NewFromFloat(result.AvgLossPct),
		Sharpe:          decimal.NewFromFloat(result.Sharpe),
		Sortino:         decimal.NewFromFloat(result.Sortino),
		ProfitFactor:    decimal.NewFromFloat(result.ProfitFactor),
		Expectancy:      decimal.NewFromFloat(result.Expectancy),
		MaxDrawdownPct:  decimal.NewFromFloat(result.MaxDrawdownPct),
		FeeDragPct:      decimal.NewFromFloat(result.FeeDragPct),
		TotalFees:       decimal.NewFromFloat(result.TotalFees),
		MaxWinStreak:    result.MaxWinStreak,
		MaxLossStreak:   result.MaxLossStreak,
		EquityCurve:     curveRaw,
		ByAlgorithm:     byAlgoRaw,
		ExitBreakdown:   exitRaw,
		CreatedAt:       time.Now().UTC(),
	}

	return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.InsertBacktestRunTx(ctx, tx, run); err != nil {
			return err
		}
		ledger := make([]models.BacktestTrade, 0, len(result.trades))
		for _, t := range result.trades {
			ledger = append(ledger, models.BacktestTrade{
				RunID:         run.ID,
				Symbol:        t.Symbol,
				AlgorithmName: t.AlgorithmName,
				EntryDate:     t.EntryDate,
				ExitDate:      t.ExitDate,
				EntryPrice:    decimal.NewFromFloat(t.EntryPrice),
				ExitPrice:     decimal.NewFromFloat(t.ExitPrice),
				Units:         decimal.NewFromFloat(t.Units),
				GrossPnL:      decimal.NewFromFloat(t.GrossPnL),
				Fees:          decimal.NewFromFloat(t.Fees),
				NetPnL:        decimal.NewFromFloat(t.NetPnL),
				ReturnPct:     decimal.NewFromFloat(t.ReturnPct),
				ExitReason:    t.ExitReason,
				HoldDays:      t.HoldDays,
			})
		}
		if err := s.Repo.InsertBacktestTradesTx(ctx, tx, ledger); err != nil {
			return err
		}
		result.RunID = run.ID
		return nil
	})
}

func joinAlgorithms(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
