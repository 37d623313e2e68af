package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pickeval/internal/models"
	"pickeval/internal/repository"
)

func decimalFromFloat(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Write paths mimic the real store's conflict behavior so idempotency tests
// mean something.
type stubRepo struct {
	instruments []models.Instrument
	picks       []models.Pick
	prices      map[string][]models.PricePoint

	runs      []models.BacktestRun
	trades    []models.BacktestTrade
	positions []models.TrackedPosition
	snapshots map[string]models.DailySnapshot
	lessons   map[string]models.Lesson

	pricesBeforeErr error

	nextRunID uint64
	nextPosID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		prices:    map[string][]models.PricePoint{},
		snapshots: map[string]models.DailySnapshot{},
		lessons:   map[string]models.Lesson{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	return s.instruments, nil
}

func (s *stubRepo) GetInstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	for i := range s.instruments {
		if s.instruments[i].Symbol == symbol {
			return &s.instruments[i], nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListPicks(ctx context.Context, params repository.ListPicksParams) ([]models.Pick, error) {
	out := make([]models.Pick, 0, len(s.picks))
	for _, p := range s.picks {
		if len(params.Algorithms) > 0 && !containsStr(params.Algorithms, p.AlgorithmName) {
			continue
		}
		if params.Symbol != nil && p.Symbol != *params.Symbol {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PickDate.Equal(out[j].PickDate) {
			return out[i].PickDate.Before(out[j].PickDate)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func (s *stubRepo) ListAlgorithmNames(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range s.picks {
		if !seen[p.AlgorithmName] {
			seen[p.AlgorithmName] = true
			out = append(out, p.AlgorithmName)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *stubRepo) ListPrices(ctx context.Context, symbol string, from time.Time, limit int) ([]models.PricePoint, error) {
	out := []models.PricePoint{}
	for _, p := range s.prices[symbol] {
		if p.Date.Before(from) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) ListPricesBefore(ctx context.Context, symbol string, before time.Time, limit int) ([]models.PricePoint, error) {
	if s.pricesBeforeErr != nil {
		return nil, s.pricesBeforeErr
	}
	all := []models.PricePoint{}
	for _, p := range s.prices[symbol] {
		if p.Date.Before(before) {
			all = append(all, p)
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *stubRepo) GetLatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error) {
	series := s.prices[symbol]
	if len(series) == 0 {
		return nil, nil
	}
	p := series[len(series)-1]
	return &p, nil
}

func (s *stubRepo) InsertBacktestRunTx(ctx context.Context, tx *gorm.DB, run *models.BacktestRun) error {
	s.nextRunID++
	run.ID = s.nextRunID
	s.runs = append(s.runs, *run)
	return nil
}

func (s *stubRepo) InsertBacktestTradesTx(ctx context.Context, tx *gorm.DB, trades []models.BacktestTrade) error {
	s.trades = append(s.trades, trades...)
	return nil
}

func (s *stubRepo) GetBacktestRun(ctx context.Context, id uint64) (*models.BacktestRun, error) {
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListBacktestRuns(ctx context.Context, params repository.ListRunsParams) ([]models.BacktestRun, error) {
	return s.runs, nil
}

func (s *stubRepo) ListTradesByRunID(ctx context.Context, runID uint64) ([]models.BacktestTrade, error) {
	out := []models.BacktestTrade{}
	for _, t := range s.trades {
		if t.RunID == runID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubRepo) ImportTrackedPosition(ctx context.Context, item *models.TrackedPosition) (bool, error) {
	for _, p := range s.positions {
		if p.Symbol == item.Symbol && p.AlgorithmName == item.AlgorithmName && p.PickDate.Equal(item.PickDate) {
			return false, nil
		}
	}
	s.nextPosID++
	item.ID = s.nextPosID
	s.positions = append(s.positions, *item)
	return true, nil
}

func (s *stubRepo) UpdateOpenTrackedPosition(ctx context.Context, item *models.TrackedPosition) error {
	for i := range s.positions {
		if s.positions[i].ID == item.ID && s.positions[i].Status == models.PositionOpen {
			s.positions[i] = *item
		}
	}
	return nil
}

func (s *stubRepo) CloseTrackedPosition(ctx context.Context, id uint64, exit repository.PositionExit) error {
	for i := range s.positions {
		if s.positions[i].ID != id || s.positions[i].Status != models.PositionOpen {
			continue
		}
		pos := &s.positions[i]
		pos.Status = models.PositionClosed
		exitDate := exit.ExitDate
		pos.ExitDate = &exitDate
		price := decimalFromFloat(exit.ExitPrice)
		pos.ExitPrice = &price
		pos.ExitReason = exit.ExitReason
		pos.FinalReturnPct = decimalFromFloat(exit.FinalReturnPct)
		pos.CurrentPrice = decimalFromFloat(exit.CurrentPrice)
		pos.HoldDays = exit.HoldDays
	}
	return nil
}

func (s *stubRepo) GetTrackedPosition(ctx context.Context, id uint64) (*models.TrackedPosition, error) {
	for i := range s.positions {
		if s.positions[i].ID == id {
			p := s.positions[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListTrackedPositions(ctx context.Context, params repository.ListTrackedPositionsParams) ([]models.TrackedPosition, error) {
	out := []models.TrackedPosition{}
	for _, p := range s.positions {
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubRepo) ListOpenTrackedPositions(ctx context.Context) ([]models.TrackedPosition, error) {
	out := []models.TrackedPosition{}
	for _, p := range s.positions {
		if p.Status == models.PositionOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubRepo) ListClosedTrackedPositions(ctx context.Context, limit int) ([]models.TrackedPosition, error) {
	out := []models.TrackedPosition{}
	for _, p := range s.positions {
		if p.Status == models.PositionClosed {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) CountTrackedPositions(ctx context.Context, status string) (int64, error) {
	n := int64(0)
	for _, p := range s.positions {
		if status == "" || p.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) UpsertDailySnapshot(ctx context.Context, item *models.DailySnapshot) error {
	s.snapshots[item.TrackDate.Format("2006-01-02")] = *item
	return nil
}

func (s *stubRepo) ListDailySnapshots(ctx context.Context, params repository.ListSnapshotsParams) ([]models.DailySnapshot, error) {
	out := []models.DailySnapshot{}
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	return out, nil
}

func (s *stubRepo) UpsertLesson(ctx context.Context, item *models.Lesson) error {
	s.lessons[item.LessonDate.Format("2006-01-02")+"/"+item.LessonType] = *item
	return nil
}

func (s *stubRepo) ListLessons(ctx context.Context, params repository.ListLessonsParams) ([]models.Lesson, error) {
	out := []models.Lesson{}
	for _, l := range s.lessons {
		if params.Type != nil && l.LessonType != *params.Type {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
