package engine

import (
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func trajectory(prices ...float64) []PricePoint {
	out := make([]PricePoint, 0, len(prices))
	for i, p := range prices {
		out = append(out, PricePoint{Date: day(i), Price: p})
	}
	return out
}

func TestEvaluateExit_TargetHit(t *testing.T) {
	rules := ExitRules{TargetPct: 5, StopPct: 10, MaxHoldDays: 30}
	ev := EvaluateExit(100, trajectory(100, 103, 108, 95), rules)
	if ev.Reason != ExitTargetHit {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitTargetHit)
	}
	if ev.Index != 2 || ev.Price != 108 {
		t.Fatalf("index=%d price=%.2f want index=2 price=108", ev.Index, ev.Price)
	}
	if ev.HoldDays != 2 {
		t.Fatalf("hold_days=%d want=2", ev.HoldDays)
	}
}

func TestEvaluateExit_StopLoss(t *testing.T) {
	rules := ExitRules{TargetPct: 10, StopPct: 5, MaxHoldDays: 30}
	ev := EvaluateExit(100, trajectory(100, 98, 94.9), rules)
	if ev.Reason != ExitStopLoss {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitStopLoss)
	}
	if ev.Index != 2 {
		t.Fatalf("index=%d want=2", ev.Index)
	}
}

func TestEvaluateExit_TargetBeatsStopSameDay(t *testing.T) {
	// Single day that crosses both thresholds: the chain checks target first.
	rules := ExitRules{TargetPct: 5, StopPct: 5, MaxHoldDays: 30}
	ev := EvaluateExit(100, trajectory(100, 110), rules)
	if ev.Reason != ExitTargetHit {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitTargetHit)
	}
}

func TestEvaluateExit_MaxHold(t *testing.T) {
	rules := ExitRules{TargetPct: 50, StopPct: 50, MaxHoldDays: 2}
	ev := EvaluateExit(100, trajectory(100, 101, 102, 103), rules)
	if ev.Reason != ExitMaxHold {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitMaxHold)
	}
	if ev.HoldDays != 2 {
		t.Fatalf("hold_days=%d want=2", ev.HoldDays)
	}
}

func TestEvaluateExit_DisabledSentinelNeverFires(t *testing.T) {
	rules := ExitRules{TargetPct: DisabledThreshold, StopPct: DisabledThreshold, MaxHoldDays: 0}
	ev := EvaluateExit(100, trajectory(100, 2000, 1, 150), rules)
	if ev.Reason != ExitEndOfData {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitEndOfData)
	}
	if ev.Price != 150 {
		t.Fatalf("price=%.2f want=150", ev.Price)
	}
}

func TestEvaluateExit_EndOfDataFlat(t *testing.T) {
	rules := ExitRules{TargetPct: 10, StopPct: 5, MaxHoldDays: 30}
	ev := EvaluateExit(100, trajectory(100, 100), rules)
	if ev.Reason != ExitEndOfData {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitEndOfData)
	}
	if ev.Price != 100 || ev.HoldDays != 1 {
		t.Fatalf("price=%.2f hold=%d want price=100 hold=1", ev.Price, ev.HoldDays)
	}
}

func TestEvaluateExit_NoPriceData(t *testing.T) {
	rules := ExitRules{TargetPct: 10, StopPct: 5, MaxHoldDays: 30}

	ev := EvaluateExit(100, nil, rules)
	if ev.Reason != ExitNoPriceData {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitNoPriceData)
	}
	if ev.Price != 100 {
		t.Fatalf("price=%.2f want entry price 100", ev.Price)
	}

	ev = EvaluateExit(100, trajectory(100), rules)
	if ev.Reason != ExitNoPriceData {
		t.Fatalf("single point reason=%s want=%s", ev.Reason, ExitNoPriceData)
	}
}

func TestEvaluateExit_GapEntryExitsOnFirstRow(t *testing.T) {
	// Entry at 90 but the first available row already trades at 100: the gap
	// crosses the target, so the walk exits immediately at zero hold days.
	rules := ExitRules{TargetPct: 5, StopPct: 5, MaxHoldDays: 30}
	ev := EvaluateExit(90, trajectory(100, 91), rules)
	if ev.Reason != ExitTargetHit {
		t.Fatalf("reason=%s want=%s", ev.Reason, ExitTargetHit)
	}
	if ev.Index != 0 || ev.Price != 100 {
		t.Fatalf("index=%d price=%.2f want index=0 price=100", ev.Index, ev.Price)
	}
	if ev.HoldDays != 0 {
		t.Fatalf("hold_days=%d want=0", ev.HoldDays)
	}
}

func TestEvaluateExit_FlatFirstRowDoesNotExit(t *testing.T) {
	// The usual case: the first row is the entry day at the entry price and
	// must never trigger anything.
	rules := ExitRules{TargetPct: 5, StopPct: 5, MaxHoldDays: 30}
	ev := EvaluateExit(100, trajectory(100, 103, 106), rules)
	if ev.Index == 0 {
		t.Fatalf("entry-day row produced an exit: %+v", ev)
	}
	if ev.Reason != ExitTargetHit || ev.Index != 2 {
		t.Fatalf("reason=%s index=%d want target_hit at 2", ev.Reason, ev.Index)
	}
}

func TestEvaluateOpenPosition(t *testing.T) {
	rules := ExitRules{TargetPct: 10, StopPct: 5, MaxHoldDays: 60}

	if got := EvaluateOpenPosition(12, 3, rules); got != ExitTargetHit {
		t.Fatalf("got=%s want=%s", got, ExitTargetHit)
	}
	if got := EvaluateOpenPosition(-6, 3, rules); got != ExitStopLoss {
		t.Fatalf("got=%s want=%s", got, ExitStopLoss)
	}
	if got := EvaluateOpenPosition(2, 60, rules); got != ExitMaxHold {
		t.Fatalf("got=%s want=%s", got, ExitMaxHold)
	}
	if got := EvaluateOpenPosition(2, 10, rules); got != "" {
		t.Fatalf("got=%s want open", got)
	}
}
