package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pickeval/internal/config"
	"pickeval/internal/engine"
	"pickeval/internal/models"
)

func defaultLessonsConfig() config.LessonsConfig {
	return config.LessonsConfig{
		MinSampleSize:   5,
		MinGroupSize:    3,
		ConfidenceBase:  50,
		ConfidenceSlope: 2,
		ConfidenceCap:   95,
		PopulationLimit: 2000,
	}
}

func newLessonService(repo *stubRepo) *LessonService {
	return &LessonService{
		Repo:   repo,
		Logger: zap.NewNop(),
		Config: defaultLessonsConfig(),
	}
}

func seedClosedPosition(repo *stubRepo, symbol, algo string, returnPct float64, holdDays int, score float64, reason string) {
	repo.nextPosID++
	repo.positions = append(repo.positions, models.TrackedPosition{
		ID:             repo.nextPosID,
		Symbol:         symbol,
		AlgorithmName:  algo,
		PickDate:       recentDay(holdDays),
		EntryPrice:     decimal.NewFromFloat(100),
		Score:          decimal.NewFromFloat(score),
		Status:         models.PositionClosed,
		ExitReason:     reason,
		FinalReturnPct: decimal.NewFromFloat(returnPct),
		HoldDays:       holdDays,
	})
}

func TestDetect_BelowMinSampleProducesNothing(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 4; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 5, 10, 70, engine.ExitTargetHit)
	}

	svc := newLessonService(repo)
	result, err := svc.Detect(context.Background())
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if result.LessonsAdded != 0 {
		t.Fatalf("lessons=%d want=0 below min sample", result.LessonsAdded)
	}
	if len(repo.lessons) != 0 {
		t.Fatalf("persisted lessons=%d want=0", len(repo.lessons))
	}
}

func TestDetect_ProducesLessonsAboveThreshold(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 4; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 8, 10, 85, engine.ExitTargetHit)
	}
	for i := 0; i < 3; i++ {
		seedClosedPosition(repo, "BND", "value", -4, 20, 45, engine.ExitStopLoss)
	}

	svc := newLessonService(repo)
	result, err := svc.Detect(context.Background())
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if result.SampleSize != 7 {
		t.Fatalf("sample=%d want=7", result.SampleSize)
	}
	if result.LessonsAdded < 4 {
		t.Fatalf("lessons=%d want at least overall/algorithm/hold/exit/score", result.LessonsAdded)
	}
	if len(repo.lessons) != result.LessonsAdded {
		t.Fatalf("persisted=%d want=%d", len(repo.lessons), result.LessonsAdded)
	}
}

func TestDetect_SameDayRerunOverwrites(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 6; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 6, 10, 75, engine.ExitTargetHit)
	}

	svc := newLessonService(repo)
	first, err := svc.Detect(context.Background())
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	second, err := svc.Detect(context.Background())
	if err != nil {
		t.Fatalf("second detect failed: %v", err)
	}
	if second.LessonsAdded != first.LessonsAdded {
		t.Fatalf("second run added %d, first %d", second.LessonsAdded, first.LessonsAdded)
	}
	if len(repo.lessons) != first.LessonsAdded {
		t.Fatalf("persisted=%d want=%d, rerun must overwrite not append", len(repo.lessons), first.LessonsAdded)
	}
}

func TestDetect_SmallGroupsExcluded(t *testing.T) {
	repo := newStubRepo()
	// "solo" has two trades with a stellar win rate but stays under the
	// minimum group size; "bulk" must win the algorithm lesson.
	for i := 0; i < 2; i++ {
		seedClosedPosition(repo, "AAA", "solo", 50, 5, 90, engine.ExitTargetHit)
	}
	for i := 0; i < 5; i++ {
		seedClosedPosition(repo, "BBB", "bulk", 2, 10, 60, engine.ExitTargetHit)
	}

	svc := newLessonService(repo)
	if _, err := svc.Detect(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	for _, lesson := range repo.lessons {
		if lesson.LessonType != LessonAlgorithm {
			continue
		}
		if lesson.Title == "" {
			t.Fatalf("algorithm lesson missing title")
		}
		if strings.Contains(lesson.Title, "solo") {
			t.Fatalf("undersized group won the lesson: %q", lesson.Title)
		}
	}
}

func TestDetect_ConfidenceCapped(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 100; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 5, 10, 70, engine.ExitTargetHit)
	}

	svc := newLessonService(repo)
	if _, err := svc.Detect(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	for _, lesson := range repo.lessons {
		if lesson.Confidence > 95 {
			t.Fatalf("confidence=%.2f exceeds cap", lesson.Confidence)
		}
		if lesson.Confidence < 50 {
			t.Fatalf("confidence=%.2f below base", lesson.Confidence)
		}
	}
}

func TestDetect_ExitReasonDropsUndersizedGroups(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 5; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 8, 10, 70, engine.ExitTargetHit)
	}
	// Two manual closes stay under the minimum group size and must not show
	// up in the reported breakdown.
	for i := 0; i < 2; i++ {
		seedClosedPosition(repo, "BND", "value", -1, 5, 50, engine.ExitManual)
	}

	svc := newLessonService(repo)
	if _, err := svc.Detect(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	for _, lesson := range repo.lessons {
		if lesson.LessonType != LessonExitReason {
			continue
		}
		var doc struct {
			ByExitReason map[string]json.RawMessage `json:"by_exit_reason"`
		}
		if err := json.Unmarshal(lesson.SupportingData, &doc); err != nil {
			t.Fatalf("supporting data: %v", err)
		}
		if _, ok := doc.ByExitReason[engine.ExitManual]; ok {
			t.Fatalf("undersized group reported: %v", doc.ByExitReason)
		}
		if _, ok := doc.ByExitReason[engine.ExitTargetHit]; !ok {
			t.Fatalf("qualifying group missing: %v", doc.ByExitReason)
		}
		return
	}
	t.Fatalf("exit reason lesson not produced")
}

func TestDetect_ExitReasonAllGroupsUndersized(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 2; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 8, 10, 70, engine.ExitTargetHit)
	}
	for i := 0; i < 2; i++ {
		seedClosedPosition(repo, "BND", "value", -4, 5, 50, engine.ExitStopLoss)
	}
	seedClosedPosition(repo, "SCHB", "value", 1, 40, 60, engine.ExitMaxHold)

	svc := newLessonService(repo)
	if _, err := svc.Detect(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	for _, lesson := range repo.lessons {
		if lesson.LessonType == LessonExitReason {
			t.Fatalf("exit reason lesson produced with no qualifying group")
		}
	}
}

func TestDetect_PriceLookupFailureDegradesEntryTrend(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 6; i++ {
		seedClosedPosition(repo, "VTI", "momentum", 6, 10, 70, engine.ExitTargetHit)
	}
	// Rising prices leading into the pick date so the trend is classifiable.
	for i := 14; i >= 11; i-- {
		repo.prices["VTI"] = append(repo.prices["VTI"], models.PricePoint{
			Symbol: "VTI",
			Date:   recentDay(i),
			Price:  decimal.NewFromFloat(float64(100 + (14 - i))),
		})
	}

	svc := newLessonService(repo)
	if _, err := svc.Detect(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if _, ok := repo.lessons[lessonKeyToday(LessonEntryTrend)]; !ok {
		t.Fatalf("entry trend lesson missing with healthy price store")
	}

	// A failing price store degrades the breakdown to zero samples but must
	// not fail the whole detection run.
	repo.lessons = map[string]models.Lesson{}
	repo.pricesBeforeErr = errors.New("store down")
	if _, err := svc.Detect(context.Background()); err != nil {
		t.Fatalf("detect failed with broken price store: %v", err)
	}
	if _, ok := repo.lessons[lessonKeyToday(LessonEntryTrend)]; ok {
		t.Fatalf("entry trend lesson produced from zero classified samples")
	}
	if len(repo.lessons) == 0 {
		t.Fatalf("other lessons missing, detection degraded too far")
	}
}

func lessonKeyToday(lessonType string) string {
	return time.Now().UTC().Truncate(24*time.Hour).Format("2006-01-02") + "/" + lessonType
}

func TestConfidenceFormula(t *testing.T) {
	svc := newLessonService(newStubRepo())
	if got := svc.confidence(5); got != 60 {
		t.Fatalf("confidence(5)=%.2f want=60", got)
	}
	if got := svc.confidence(1000); got != 95 {
		t.Fatalf("confidence(1000)=%.2f want cap 95", got)
	}
}

func TestClassifyEntryTrend(t *testing.T) {
	mkSeries := func(prices ...float64) []models.PricePoint {
		out := make([]models.PricePoint, 0, len(prices))
		for i, p := range prices {
			out = append(out, models.PricePoint{Date: day(i), Price: decimal.NewFromFloat(p)})
		}
		return out
	}

	if got := classifyEntryTrend(mkSeries(100, 101, 103)); got != "uptrend" {
		t.Fatalf("got=%s want=uptrend", got)
	}
	if got := classifyEntryTrend(mkSeries(100, 99, 97)); got != "downtrend" {
		t.Fatalf("got=%s want=downtrend", got)
	}
	if got := classifyEntryTrend(mkSeries(100, 100.5)); got != "flat" {
		t.Fatalf("got=%s want=flat", got)
	}
	if got := classifyEntryTrend(mkSeries(100)); got != "" {
		t.Fatalf("got=%s want unclassifiable", got)
	}
}
