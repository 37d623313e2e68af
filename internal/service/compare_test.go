package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func newCompareService(repo *stubRepo) *CompareService {
	return &CompareService{
		Backtest: newBacktestService(repo),
		Logger:   zap.NewNop(),
	}
}

func seedCompareFixture(repo *stubRepo) {
	// VTI climbs steadily to +25%; BND drifts down. The aggressive preset
	// rides VTI further than the conservative one.
	seedPick(repo, "VTI", "momentum", 0, 100)
	seedPriceSeries(repo, "VTI", 0, 100, 104, 108, 112, 116, 120, 125)
	seedPick(repo, "BND", "value", 0, 80)
	seedPriceSeries(repo, "BND", 0, 80, 79, 78, 77, 76, 75, 74)
}

func TestComparePresets_RankedByTotalReturn(t *testing.T) {
	repo := newStubRepo()
	seedCompareFixture(repo)

	svc := newCompareService(repo)
	results, err := svc.ComparePresets(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if len(results) != len(builtinPresets) {
		t.Fatalf("results=%d want=%d", len(results), len(builtinPresets))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Run.TotalReturnPct > results[i-1].Run.TotalReturnPct {
			t.Fatalf("results not ranked: %s(%.2f) after %s(%.2f)",
				results[i].Name, results[i].Run.TotalReturnPct,
				results[i-1].Name, results[i-1].Run.TotalReturnPct)
		}
	}
	for i, r := range results {
		if r.Rank != i+1 {
			t.Fatalf("rank=%d at index %d", r.Rank, i)
		}
	}
}

func TestComparePresets_UnknownNameAbortsBeforeRunning(t *testing.T) {
	repo := newStubRepo()
	seedCompareFixture(repo)

	svc := newCompareService(repo)
	_, err := svc.ComparePresets(context.Background(), []string{"balanced", "nope"}, true)
	if err == nil || !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err=%v want ErrInvalidParams", err)
	}
	if len(repo.runs) != 0 {
		t.Fatalf("runs persisted before validation failure: %d", len(repo.runs))
	}
}

func TestComparePresets_NoPersistWithoutSave(t *testing.T) {
	repo := newStubRepo()
	seedCompareFixture(repo)

	svc := newCompareService(repo)
	if _, err := svc.ComparePresets(context.Background(), []string{"balanced"}, false); err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if len(repo.runs) != 0 {
		t.Fatalf("runs=%d want=0 without save", len(repo.runs))
	}

	if _, err := svc.ComparePresets(context.Background(), []string{"balanced"}, true); err != nil {
		t.Fatalf("compare with save failed: %v", err)
	}
	if len(repo.runs) != 1 {
		t.Fatalf("runs=%d want=1 with save", len(repo.runs))
	}
}

func TestComparePresets_BuyAndHoldSentinel(t *testing.T) {
	repo := newStubRepo()
	// A wild swing that would trip any enabled target or stop.
	seedPick(repo, "VTI", "momentum", 0, 100)
	seedPriceSeries(repo, "VTI", 0, 100, 180, 40, 110)

	svc := newCompareService(repo)
	results, err := svc.ComparePresets(context.Background(), []string{"buy_and_hold"}, false)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	run := results[0].Run
	if run.ExitReasons["end_of_data"] != 1 {
		t.Fatalf("exit reasons=%v want end_of_data only", run.ExitReasons)
	}
}

func TestCompareAlgorithms_DefaultsToAll(t *testing.T) {
	repo := newStubRepo()
	seedCompareFixture(repo)

	svc := newCompareService(repo)
	results, err := svc.CompareAlgorithms(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results=%d want=2 algorithms", len(results))
	}
	if results[0].Name != "momentum" {
		t.Fatalf("best=%s want momentum (the winner)", results[0].Name)
	}
}

func TestCompareAlgorithms_EmptyCatalog(t *testing.T) {
	svc := newCompareService(newStubRepo())
	_, err := svc.CompareAlgorithms(context.Background(), nil, false)
	if err == nil || !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err=%v want ErrInvalidParams", err)
	}
}
