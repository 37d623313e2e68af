package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pickeval/internal/config"
	"pickeval/internal/engine"
	"pickeval/internal/models"
	"pickeval/internal/repository"
)

const (
	LessonOverall    = "overall_performance"
	LessonAlgorithm  = "algorithm_performance"
	LessonHoldPeriod = "optimal_hold_period"
	LessonEntryTrend = "entry_trend"
	LessonExitReason = "exit_reason_analysis"
	LessonScore      = "score_bracket"
)

// LessonService mines closed positions for repeatable statements about what
// worked. Every detection run writes at most one lesson per type per day;
// a second run the same day overwrites rather than appends.
type LessonService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Config config.LessonsConfig
}

// DetectResult reports one detection pass.
type DetectResult struct {
	LessonsAdded int      `json:"lessons_added"`
	SampleSize   int      `json:"sample_size"`
	Types        []string `json:"types"`
}

func (s *LessonService) Detect(ctx context.Context) (*DetectResult, error) {
	if s == nil || s.Repo == nil {
		return nil, paramErrorf("lesson service not configured")
	}

	closed, err := s.Repo.ListClosedTrackedPositions(ctx, s.Config.PopulationLimit)
	if err != nil {
		return nil, err
	}
	if len(closed) < s.Config.MinSampleSize {
		if s.Logger != nil {
			s.Logger.Info("lesson detection skipped, sample too small",
				zap.Int("closed", len(closed)),
				zap.Int("min", s.Config.MinSampleSize),
			)
		}
		return &DetectResult{SampleSize: len(closed)}, nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	lessons := []*models.Lesson{
		s.overallLesson(closed),
		s.algorithmLesson(closed),
		s.holdPeriodLesson(closed),
		s.entryTrendLesson(ctx, closed),
		s.exitReasonLesson(closed),
		s.scoreBracketLesson(closed),
	}

	result := &DetectResult{SampleSize: len(closed)}
	for _, lesson := range lessons {
		if lesson == nil {
			continue
		}
		lesson.LessonDate = today
		if err := s.Repo.UpsertLesson(ctx, lesson); err != nil {
			return nil, err
		}
		result.LessonsAdded++
		result.Types = append(result.Types, lesson.LessonType)
	}

	if s.Logger != nil {
		s.Logger.Info("lesson detection complete",
			zap.Int("lessons", result.LessonsAdded),
			zap.Int("sample", result.SampleSize),
		)
	}
	return result, nil
}

// groupStats is the per-group accumulator every breakdown shares.
type groupStats struct {
	Count     int     `json:"count"`
	Wins      int     `json:"wins"`
	SumReturn float64 `json:"-"`
	WinRate   float64 `json:"win_rate"`
	AvgReturn float64 `json:"avg_return_pct"`
}

func (g *groupStats) add(returnPct float64) {
	g.Count++
	if returnPct > 0 {
		g.Wins++
	}
	g.SumReturn += returnPct
}

func (g *groupStats) finish() {
	if g.Count == 0 {
		return
	}
	g.WinRate = float64(g.Wins) / float64(g.Count) * 100
	g.AvgReturn = g.SumReturn / float64(g.Count)
}

func (s *LessonService) confidence(n int) float64 {
	c := s.Config.ConfidenceBase + s.Config.ConfidenceSlope*float64(n)
	if c > s.Config.ConfidenceCap {
		c = s.Config.ConfidenceCap
	}
	return c
}

func (s *LessonService) overallLesson(closed []models.TrackedPosition) *models.Lesson {
	stats := &groupStats{}
	for _, pos := range closed {
		stats.add(pos.FinalReturnPct.InexactFloat64())
	}
	stats.finish()

	verdict := "underperforming"
	if stats.WinRate >= 50 {
		verdict = "performing"
	}
	return s.newLesson(LessonOverall,
		fmt.Sprintf("Picks are %s at %.1f%% win rate", verdict, stats.WinRate),
		fmt.Sprintf("Across %d closed positions the win rate is %.1f%% with an average return of %.2f%%.",
			stats.Count, stats.WinRate, stats.AvgReturn),
		stats.Count,
		map[string]any{"overall": stats},
	)
}

func (s *LessonService) algorithmLesson(closed []models.TrackedPosition) *models.Lesson {
	groups := map[string]*groupStats{}
	for _, pos := range closed {
		key := pos.AlgorithmName
		if groups[key] == nil {
			groups[key] = &groupStats{}
		}
		groups[key].add(pos.FinalReturnPct.InexactFloat64())
	}
	best, stats := s.bestGroup(groups, func(g *groupStats) float64 { return g.WinRate })
	if best == "" {
		return nil
	}
	return s.newLesson(LessonAlgorithm,
		fmt.Sprintf("Algorithm %s leads with %.1f%% win rate", best, stats.WinRate),
		fmt.Sprintf("Of the qualifying algorithms, %s has the best win rate at %.1f%% over %d closed positions (avg return %.2f%%).",
			best, stats.WinRate, stats.Count, stats.AvgReturn),
		stats.Count,
		map[string]any{"by_algorithm": finishAll(groups), "best": best},
	)
}

func holdBucket(days int) string {
	switch {
	case days <= 7:
		return "0-7d"
	case days <= 14:
		return "8-14d"
	case days <= 30:
		return "15-30d"
	default:
		return "31d+"
	}
}

func (s *LessonService) holdPeriodLesson(closed []models.TrackedPosition) *models.Lesson {
	groups := map[string]*groupStats{}
	for _, pos := range closed {
		key := holdBucket(pos.HoldDays)
		if groups[key] == nil {
			groups[key] = &groupStats{}
		}
		groups[key].add(pos.FinalReturnPct.InexactFloat64())
	}
	best, stats := s.bestGroup(groups, func(g *groupStats) float64 { return g.AvgReturn })
	if best == "" {
		return nil
	}
	return s.newLesson(LessonHoldPeriod,
		fmt.Sprintf("Holds of %s return %.2f%% on average", best, stats.AvgReturn),
		fmt.Sprintf("The %s hold bucket has the best average return at %.2f%% across %d closed positions (win rate %.1f%%).",
			best, stats.AvgReturn, stats.Count, stats.WinRate),
		stats.Count,
		map[string]any{"by_hold_bucket": finishAll(groups), "best": best},
	)
}

// classifyEntryTrend looks at up to five trading days of prices leading into
// the pick date. Fewer than two points is unclassifiable.
func classifyEntryTrend(prices []models.PricePoint) string {
	if len(prices) < 2 {
		return ""
	}
	first := prices[0].Price.InexactFloat64()
	last := prices[len(prices)-1].Price.InexactFloat64()
	if first == 0 {
		return ""
	}
	chg := (last - first) / first * 100
	switch {
	case chg > 1:
		return "uptrend"
	case chg < -1:
		return "downtrend"
	default:
		return "flat"
	}
}

func (s *LessonService) entryTrendLesson(ctx context.Context, closed []models.TrackedPosition) *models.Lesson {
	groups := map[string]*groupStats{}
	for _, pos := range closed {
		prices, err := s.Repo.ListPricesBefore(ctx, pos.Symbol, pos.PickDate, 5)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("entry trend price lookup failed",
					zap.String("symbol", pos.Symbol),
					zap.Error(err),
				)
			}
			continue
		}
		trend := classifyEntryTrend(prices)
		if trend == "" {
			continue
		}
		if groups[trend] == nil {
			groups[trend] = &groupStats{}
		}
		groups[trend].add(pos.FinalReturnPct.InexactFloat64())
	}
	best, stats := s.bestGroup(groups, func(g *groupStats) float64 { return g.WinRate })
	if best == "" {
		return nil
	}
	return s.newLesson(LessonEntryTrend,
		fmt.Sprintf("Entries into a %s win %.1f%% of the time", best, stats.WinRate),
		fmt.Sprintf("Picks entered during a %s have the best win rate at %.1f%% over %d closed positions (avg return %.2f%%).",
			best, stats.WinRate, stats.Count, stats.AvgReturn),
		stats.Count,
		map[string]any{"by_entry_trend": finishAll(groups), "best": best},
	)
}

func (s *LessonService) exitReasonLesson(closed []models.TrackedPosition) *models.Lesson {
	groups := map[string]*groupStats{}
	for _, pos := range closed {
		key := pos.ExitReason
		if key == "" {
			continue
		}
		if groups[key] == nil {
			groups[key] = &groupStats{}
		}
		groups[key].add(pos.FinalReturnPct.InexactFloat64())
	}
	for key, g := range groups {
		g.finish()
		if g.Count < s.Config.MinGroupSize {
			delete(groups, key)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	targetShare := 0.0
	if g := groups[engine.ExitTargetHit]; g != nil {
		targetShare = float64(g.Count) / float64(len(closed)) * 100
	}
	stopShare := 0.0
	if g := groups[engine.ExitStopLoss]; g != nil {
		stopShare = float64(g.Count) / float64(len(closed)) * 100
	}
	return s.newLesson(LessonExitReason,
		fmt.Sprintf("%.1f%% of exits hit target, %.1f%% stopped out", targetShare, stopShare),
		fmt.Sprintf("Across %d closed positions, %.1f%% exited on target and %.1f%% on the stop; the rest timed out or were closed by hand.",
			len(closed), targetShare, stopShare),
		len(closed),
		map[string]any{"by_exit_reason": groups},
	)
}

func scoreBracket(score float64) string {
	switch {
	case score >= 80:
		return "80+"
	case score >= 60:
		return "60-79"
	case score >= 40:
		return "40-59"
	default:
		return "<40"
	}
}

func (s *LessonService) scoreBracketLesson(closed []models.TrackedPosition) *models.Lesson {
	groups := map[string]*groupStats{}
	for _, pos := range closed {
		key := scoreBracket(pos.Score.InexactFloat64())
		if groups[key] == nil {
			groups[key] = &groupStats{}
		}
		groups[key].add(pos.FinalReturnPct.InexactFloat64())
	}
	best, stats := s.bestGroup(groups, func(g *groupStats) float64 { return g.WinRate })
	if best == "" {
		return nil
	}
	return s.newLesson(LessonScore,
		fmt.Sprintf("Score bracket %s wins %.1f%% of the time", best, stats.WinRate),
		fmt.Sprintf("Picks scored %s have the best win rate at %.1f%% over %d closed positions (avg return %.2f%%).",
			best, stats.WinRate, stats.Count, stats.AvgReturn),
		stats.Count,
		map[string]any{"by_score_bracket": finishAll(groups), "best": best},
	)
}

// bestGroup finishes every group, drops the ones under the minimum group
// size, and picks the highest by the given metric. Ties break on the sorted
// key so re-runs are deterministic.
func (s *LessonService) bestGroup(groups map[string]*groupStats, metric func(*groupStats) float64) (string, *groupStats) {
	keys := make([]string, 0, len(groups))
	for key, g := range groups {
		g.finish()
		if g.Count >= s.Config.MinGroupSize {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	best := ""
	var bestStats *groupStats
	for _, key := range keys {
		g := groups[key]
		if bestStats == nil || metric(g) > metric(bestStats) {
			best, bestStats = key, g
		}
	}
	return best, bestStats
}

func finishAll(groups map[string]*groupStats) map[string]*groupStats {
	for _, g := range groups {
		g.finish()
	}
	return groups
}

func (s *LessonService) newLesson(lessonType, title, text string, n int, supporting map[string]any) *models.Lesson {
	raw, err := json.Marshal(supporting)
	if err != nil {
		raw = []byte("{}")
	}
	return &models.Lesson{
		LessonType:     lessonType,
		Title:          title,
		Text:           text,
		Confidence:     s.confidence(n),
		SupportingData: datatypes.JSON(raw),
	}
}
