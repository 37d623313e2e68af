package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pickeval/internal/config"
	"pickeval/internal/engine"
	"pickeval/internal/models"
	"pickeval/internal/repository"
)

// TrackerService follows picks forward in time. One invocation runs three
// idempotent phases in order: import new picks, refresh open positions,
// snapshot the population. Import runs first so same-day picks are eligible
// for immediate evaluation.
type TrackerService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Config config.TrackerConfig
}

// TrackResult is the structured document one tracker invocation returns.
type TrackResult struct {
	Imported int    `json:"imported"`
	Updated  int    `json:"updated"`
	Closed   int    `json:"closed"`
	Skipped  int    `json:"skipped"`
	Snapshot string `json:"snapshot_date"`
}

func (s *TrackerService) Track(ctx context.Context) (*TrackResult, error) {
	if s == nil || s.Repo == nil {
		return nil, paramErrorf("tracker service not configured")
	}

	imported, err := s.importPicks(ctx)
	if err != nil {
		return nil, err
	}
	updated, closed, skipped, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	snapDate, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("tracker run complete",
			zap.Int("imported", imported),
			zap.Int("updated", updated),
			zap.Int("closed", closed),
			zap.Int("skipped", skipped),
		)
	}
	return &TrackResult{
		Imported: imported,
		Updated:  updated,
		Closed:   closed,
		Skipped:  skipped,
		Snapshot: snapDate,
	}, nil
}

// importPicks seeds one open position per unseen pick. The conflict-ignoring
// insert on (symbol, algorithm, pick_date) makes re-runs produce zero new
// rows on an unchanged catalog.
func (s *TrackerService) importPicks(ctx context.Context) (int, error) {
	picks, err := s.Repo.ListPicks(ctx, repository.ListPicksParams{Limit: s.Config.ImportLimit})
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, pick := range picks {
		pos := &models.TrackedPosition{
			Symbol:        pick.Symbol,
			AlgorithmName: pick.AlgorithmName,
			PickDate:      pick.PickDate,
			EntryPrice:    pick.EntryPrice,
			CurrentPrice:  pick.EntryPrice,
			PeakPrice:     pick.EntryPrice,
			TroughPrice:   pick.EntryPrice,
			TargetPct:     decimal.NewFromFloat(s.Config.TargetPct),
			StopPct:       decimal.NewFromFloat(s.Config.StopPct),
			MaxHoldDays:   s.Config.MaxHoldDays,
			Score:         pick.Score,
			RiskLevel:     pick.RiskLevel,
			Status:        models.PositionOpen,
		}
		inserted, err := s.Repo.ImportTrackedPosition(ctx, pos)
		if err != nil {
			return imported, err
		}
		if inserted {
			imported++
		}
	}
	return imported, nil
}

// refresh re-prices every open position and applies the exit rule chain.
// Positions with no price history are left untouched; lack of data never
// closes a position.
func (s *TrackerService) refresh(ctx context.Context) (updated, closed, skipped int, err error) {
	open, err := s.Repo.ListOpenTrackedPositions(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	now := time.Now().UTC()

	for i := range open {
		pos := &open[i]
		latest, err := s.Repo.GetLatestPrice(ctx, pos.Symbol)
		if err != nil {
			return updated, closed, skipped, err
		}
		if latest == nil {
			skipped++
			continue
		}

		price := latest.Price.InexactFloat64()
		entry := pos.EntryPrice.InexactFloat64()
		returnPct := 0.0
		if entry != 0 {
			returnPct = (price - entry) / entry * 100
		}
		holdDays := int(now.Sub(pos.PickDate).Hours() / 24)
		if holdDays < 0 {
			holdDays = 0
		}

		pos.CurrentPrice = latest.Price
		pos.CurrentReturnPct = decimal.NewFromFloat(returnPct)
		if latest.Price.GreaterThan(pos.PeakPrice) {
			pos.PeakPrice = latest.Price
		}
		if latest.Price.LessThan(pos.TroughPrice) {
			pos.TroughPrice = latest.Price
		}
		pos.HoldDays = holdDays

		rules := engine.ExitRules{
			TargetPct:   pos.TargetPct.InexactFloat64(),
			StopPct:     pos.StopPct.InexactFloat64(),
			MaxHoldDays: pos.MaxHoldDays,
		}
		reason := engine.EvaluateOpenPosition(returnPct, holdDays, rules)
		if reason != "" {
			err = s.Repo.CloseTrackedPosition(ctx, pos.ID, repository.PositionExit{
				ExitDate:       latest.Date,
				ExitPrice:      price,
				ExitReason:     reason,
				FinalReturnPct: returnPct,
				CurrentPrice:   price,
				HoldDays:       holdDays,
			})
			if err != nil {
				return updated, closed, skipped, err
			}
			closed++
			continue
		}

		if err := s.Repo.UpdateOpenTrackedPosition(ctx, pos); err != nil {
			return updated, closed, skipped, err
		}
		updated++
	}
	return updated, closed, skipped, nil
}

// snapshot upserts today's summary row from the full position population.
func (s *TrackerService) snapshot(ctx context.Context) (string, error) {
	positions, err := s.Repo.ListTrackedPositions(ctx, repository.ListTrackedPositionsParams{Limit: 5000})
	if err != nil {
		return "", err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	snap := buildSnapshot(today, positions)
	if err := s.Repo.UpsertDailySnapshot(ctx, snap); err != nil {
		return "", err
	}
	return today.Format("2006-01-02"), nil
}

func buildSnapshot(today time.Time, positions []models.TrackedPosition) *models.DailySnapshot {
	snap := &models.DailySnapshot{TrackDate: today}
	if len(positions) == 0 {
		return snap
	}

	sumWin, sumLoss := 0.0, 0.0
	sumHold := 0
	bestRet, worstRet := 0.0, 0.0
	best, worst := "", ""

	for _, pos := range positions {
		ret := pos.CurrentReturnPct.InexactFloat64()
		if pos.Status == models.PositionClosed {
			ret = pos.FinalReturnPct.InexactFloat64()
			snap.ClosedCount++
			if ret > 0 {
				snap.Wins++
				sumWin += ret
			} else {
				snap.Losses++
				sumLoss += ret
			}
		} else {
			snap.OpenCount++
		}
		sumHold += pos.HoldDays
		if best == "" || ret > bestRet {
			best, bestRet = pos.Symbol, ret
		}
		if worst == "" || ret < worstRet {
			worst, worstRet = pos.Symbol, ret
		}
	}

	if snap.ClosedCount > 0 {
		snap.WinRate = decimal.NewFromFloat(float64(snap.Wins) / float64(snap.ClosedCount) * 100)
	}
	if snap.Wins > 0 {
		snap.AvgWinPct = decimal.NewFromFloat(sumWin / float64(snap.Wins))
	}
	if snap.Losses > 0 {
		snap.AvgLossPct = decimal.NewFromFloat(sumLoss / float64(snap.Losses))
	}
	snap.AvgHoldDays = decimal.NewFromFloat(float64(sumHold) / float64(len(positions)))
	snap.BestSymbol = best
	snap.WorstSymbol = worst
	return snap
}

// ManualClose closes one open position at the latest known price with the
// manual exit reason. Closing an already-closed position is rejected.
func (s *TrackerService) ManualClose(ctx context.Context, id uint64) (*models.TrackedPosition, error) {
	if s == nil || s.Repo == nil {
		return nil, paramErrorf("tracker service not configured")
	}
	pos, err := s.Repo.GetTrackedPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, paramErrorf("position %d not found", id)
	}
	if pos.Status != models.PositionOpen {
		return nil, paramErrorf("position %d already closed", id)
	}

	price := pos.CurrentPrice.InexactFloat64()
	exitDate := time.Now().UTC().Truncate(24 * time.Hour)
	if latest, err := s.Repo.GetLatestPrice(ctx, pos.Symbol); err != nil {
		return nil, err
	} else if latest != nil {
		price = latest.Price.InexactFloat64()
		exitDate = latest.Date
	}

	entry := pos.EntryPrice.InexactFloat64()
	returnPct := 0.0
	if entry != 0 {
		returnPct = (price - entry) / entry * 100
	}
	holdDays := int(time.Now().UTC().Sub(pos.PickDate).Hours() / 24)
	if holdDays < 0 {
		holdDays = 0
	}

	err = s.Repo.CloseTrackedPosition(ctx, pos.ID, repository.PositionExit{
		ExitDate:       exitDate,
		ExitPrice:      price,
		ExitReason:     engine.ExitManual,
		FinalReturnPct: returnPct,
		CurrentPrice:   price,
		HoldDays:       holdDays,
	})
	if err != nil {
		return nil, err
	}
	return s.Repo.GetTrackedPosition(ctx, pos.ID)
}
