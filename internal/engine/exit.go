package engine

import "time"

// Exit reasons a trajectory walk can produce. Manual is only ever set by the
// operator close path, never by the evaluator.
const (
	ExitTargetHit   = "target_hit"
	ExitStopLoss    = "stop_loss"
	ExitMaxHold     = "max_hold"
	ExitEndOfData   = "end_of_data"
	ExitNoPriceData = "no_price_data"
	ExitManual      = "manual"
)

// DisabledThreshold models "no target" / "no stop": a rule carrying this
// value never fires, which turns the walk into buy-and-hold.
const DisabledThreshold = 999

// ExitRules is one named parameter set: take-profit %, stop-loss % (both
// expressed as positive numbers) and a maximum holding period in days.
type ExitRules struct {
	TargetPct   float64
	StopPct     float64
	MaxHoldDays int
}

// PricePoint is one step of a trajectory handed to the evaluator. The first
// point anchors the hold-day count; it may be the entry day itself or, after
// a data gap, the first row past it.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// ExitEvent is the evaluator's verdict: where, when and why the walk stopped.
type ExitEvent struct {
	Index    int
	Date     time.Time
	Price    float64
	Reason   string
	HoldDays int
}

// exitRule is one step of the deterministic priority chain. Order is fixed:
// target before stop before max-hold; reordering these changes outcomes on
// days where several thresholds are crossed at once.
type exitRule struct {
	reason  string
	matches func(changePct float64, elapsedDays int, rules ExitRules) bool
}

var exitPriority = []exitRule{
	{ExitTargetHit, func(chg float64, _ int, r ExitRules) bool {
		return r.TargetPct < DisabledThreshold && chg >= r.TargetPct
	}},
	{ExitStopLoss, func(chg float64, _ int, r ExitRules) bool {
		return r.StopPct < DisabledThreshold && chg <= -r.StopPct
	}},
	{ExitMaxHold, func(_ float64, days int, r ExitRules) bool {
		return r.MaxHoldDays > 0 && days >= r.MaxHoldDays
	}},
}

// EvaluateExit walks a chronological trajectory day by day, starting at the
// first row, and returns the first exit event the rule chain produces. When
// the trajectory opens away from the entry price (a gap entry) the first row
// itself can trigger target or stop.
//
// A trajectory with fewer than two points is a degraded but valid outcome
// (no_price_data at the entry price), not an error: the caller still gets a
// closeable flat trade. Exhausting the trajectory without a trigger returns
// end_of_data at the last known price.
func EvaluateExit(entryPrice float64, trajectory []PricePoint, rules ExitRules) ExitEvent {
	if len(trajectory) < 2 {
		ev := ExitEvent{Reason: ExitNoPriceData, Price: entryPrice}
		if len(trajectory) == 1 {
			ev.Date = trajectory[0].Date
		}
		return ev
	}

	entryDate := trajectory[0].Date
	for i := 0; i < len(trajectory); i++ {
		p := trajectory[i]
		changePct := 0.0
		if entryPrice != 0 {
			changePct = (p.Price - entryPrice) / entryPrice * 100
		}
		elapsed := daysBetween(entryDate, p.Date)
		for _, rule := range exitPriority {
			if rule.matches(changePct, elapsed, rules) {
				return ExitEvent{
					Index:    i,
					Date:     p.Date,
					Price:    p.Price,
					Reason:   rule.reason,
					HoldDays: elapsed,
				}
			}
		}
	}

	last := trajectory[len(trajectory)-1]
	return ExitEvent{
		Index:    len(trajectory) - 1,
		Date:     last.Date,
		Price:    last.Price,
		Reason:   ExitEndOfData,
		HoldDays: daysBetween(entryDate, last.Date),
	}
}

// EvaluateOpenPosition applies the same rule chain to a live position where
// the return and hold days are already known. Returns the reason, or "" when
// no rule fires and the position stays open.
func EvaluateOpenPosition(currentReturnPct float64, holdDays int, rules ExitRules) string {
	for _, rule := range exitPriority {
		if rule.matches(currentReturnPct, holdDays, rules) {
			return rule.reason
		}
	}
	return ""
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
