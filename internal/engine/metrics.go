package engine

import (
	"math"
	"time"
)

// ProfitFactorCap is the sentinel reported when a trade set has wins and no
// losses; the true ratio is unbounded and a cap keeps every output finite.
const ProfitFactorCap = 9999.0

// Summary is the aggregate view over a closed trade set. Every field is a
// defined, finite value for any input, including empty and single-element
// sets.
type Summary struct {
	Trades int
	Wins   int
	Losses int

	WinRate        float64
	AvgWinPct      float64
	AvgLossPct     float64
	Sharpe         float64
	Sortino        float64
	ProfitFactor   float64
	Expectancy     float64
	MaxDrawdownPct float64
	FeeDragPct     float64

	TotalFees float64
	NetPnL    float64

	MaxWinStreak  int
	MaxLossStreak int

	ByAlgorithm map[string]AlgoStats
	ExitReasons map[string]int
}

// AlgoStats is the per-algorithm slice of a summary.
type AlgoStats struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	NetPnL       float64 `json:"net_pnl"`
	AvgReturnPct float64 `json:"avg_return_pct"`
}

// EquityPoint is one step of a run's capital curve.
type EquityPoint struct {
	TradeIndex   int       `json:"trade_index"`
	CapitalAfter float64   `json:"capital_after"`
	Date         time.Time `json:"date"`
}

// EquityAccumulator threads peak/drawdown state through a chronological fold
// over trades, instead of hiding it in package-level variables.
type EquityAccumulator struct {
	Capital        float64
	peak           float64
	maxDrawdownPct float64
	Curve          []EquityPoint
}

func NewEquityAccumulator(initialCapital float64) *EquityAccumulator {
	return &EquityAccumulator{
		Capital: initialCapital,
		peak:    initialCapital,
	}
}

// Apply folds one trade's net effect into the curve. Trades must be applied
// in chronological order for the drawdown to be meaningful.
func (a *EquityAccumulator) Apply(netPnL float64, date time.Time) {
	a.Capital += netPnL
	if a.Capital > a.peak {
		a.peak = a.Capital
	}
	if a.peak > 0 {
		dd := (a.peak - a.Capital) / a.peak * 100
		if dd > a.maxDrawdownPct {
			a.maxDrawdownPct = dd
		}
	}
	a.Curve = append(a.Curve, EquityPoint{
		TradeIndex:   len(a.Curve),
		CapitalAfter: a.Capital,
		Date:         date,
	})
}

func (a *EquityAccumulator) MaxDrawdownPct() float64 {
	return a.maxDrawdownPct
}

// Summarize reduces a chronological trade list to aggregate statistics.
// A win is strictly positive net P&L; exact-zero results count as losses.
func Summarize(trades []Trade, initialCapital float64, maxDrawdownPct float64) Summary {
	s := Summary{
		Trades:         len(trades),
		MaxDrawdownPct: maxDrawdownPct,
		ByAlgorithm:    map[string]AlgoStats{},
		ExitReasons:    map[string]int{},
	}
	if len(trades) == 0 {
		return s
	}

	returns := make([]float64, 0, len(trades))
	sumWinPct := 0.0
	sumLossPct := 0.0
	sumPosPnL := 0.0
	sumNegPnL := 0.0
	winStreak, lossStreak := 0, 0

	for _, t := range trades {
		returns = append(returns, t.ReturnPct)
		s.TotalFees += t.Fees
		s.NetPnL += t.NetPnL
		s.ExitReasons[t.ExitReason]++

		a := s.ByAlgorithm[t.AlgorithmName]
		a.Trades++
		a.NetPnL += t.NetPnL
		a.AvgReturnPct += t.ReturnPct

		if t.NetPnL > 0 {
			s.Wins++
			a.Wins++
			sumWinPct += t.ReturnPct
			sumPosPnL += t.NetPnL
			winStreak++
			lossStreak = 0
			if winStreak > s.MaxWinStreak {
				s.MaxWinStreak = winStreak
			}
		} else {
			s.Losses++
			sumLossPct += t.ReturnPct
			sumNegPnL += math.Abs(t.NetPnL)
			lossStreak++
			winStreak = 0
			if lossStreak > s.MaxLossStreak {
				s.MaxLossStreak = lossStreak
			}
		}
		s.ByAlgorithm[t.AlgorithmName] = a
	}

	for name, a := range s.ByAlgorithm {
		if a.Trades > 0 {
			a.AvgReturnPct /= float64(a.Trades)
			a.WinRate = float64(a.Wins) / float64(a.Trades) * 100
		}
		s.ByAlgorithm[name] = a
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	if s.Wins > 0 {
		s.AvgWinPct = sumWinPct / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = sumLossPct / float64(s.Losses)
	}

	m := mean(returns)
	if sd := stddev(returns, m); sd > 0 {
		s.Sharpe = m / sd
	}
	if dd := downsideStd(returns); dd > 0 {
		s.Sortino = m / dd
	}

	switch {
	case sumNegPnL > 0:
		s.ProfitFactor = sumPosPnL / sumNegPnL
		if s.ProfitFactor > ProfitFactorCap {
			s.ProfitFactor = ProfitFactorCap
		}
	case sumPosPnL > 0:
		s.ProfitFactor = ProfitFactorCap
	}

	winFrac := float64(s.Wins) / float64(s.Trades)
	lossFrac := float64(s.Losses) / float64(s.Trades)
	s.Expectancy = winFrac*s.AvgWinPct - lossFrac*math.Abs(s.AvgLossPct)

	if initialCapital > 0 {
		s.FeeDragPct = s.TotalFees / initialCapital * 100
	}
	return s
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddev(v []float64, m float64) float64 {
	if len(v) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(v)))
}

// downsideStd is the deviation of negative returns only, around zero.
func downsideStd(v []float64) float64 {
	sum := 0.0
	n := 0
	for _, x := range v {
		if x >= 0 {
			continue
		}
		sum += x * x
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
