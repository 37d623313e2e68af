package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickeval/internal/models"
	"pickeval/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Catalog ----------------------------------------------------------------

func (s *Store) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Instrument
	if err := s.db.WithContext(ctx).
		Model(&models.Instrument{}).
		Order("symbol asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetInstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	var item models.Instrument
	err := s.db.WithContext(ctx).Model(&models.Instrument{}).Where("symbol = ?", symbol).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPicks(ctx context.Context, params repository.ListPicksParams) ([]models.Pick, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Pick{})
	if len(params.Algorithms) > 0 {
		query = query.Where("algorithm_name IN ?", params.Algorithms)
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("pick_date >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("pick_date <= ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 1000)
	offset := normalizeOffset(params.Offset)
	var items []models.Pick
	if err := query.
		Order("pick_date asc, symbol asc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAlgorithmNames(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var names []string
	if err := s.db.WithContext(ctx).
		Model(&models.Pick{}).
		Distinct("algorithm_name").
		Order("algorithm_name asc").
		Pluck("algorithm_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) ListPrices(ctx context.Context, symbol string, from time.Time, limit int) ([]models.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	limit = normalizeLimit(limit, 400)
	query := s.db.WithContext(ctx).
		Model(&models.PricePoint{}).
		Where("symbol = ?", symbol)
	if !from.IsZero() {
		query = query.Where("date >= ?", from)
	}
	var items []models.PricePoint
	if err := query.Order("date asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPricesBefore(ctx context.Context, symbol string, before time.Time, limit int) ([]models.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	limit = normalizeLimit(limit, 30)
	var items []models.PricePoint
	if err := s.db.WithContext(ctx).
		Model(&models.PricePoint{}).
		Where("symbol = ?", symbol).
		Where("date < ?", before).
		Order("date desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *Store) GetLatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	var item models.PricePoint
	err := s.db.WithContext(ctx).
		Model(&models.PricePoint{}).
		Where("symbol = ?", symbol).
		Order("date desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Backtest runs ----------------------------------------------------------

func (s *Store) InsertBacktestRunTx(ctx context.Context, tx *gorm.DB, run *models.BacktestRun) error {
	if s == nil || run == nil {
		return nil
	}
	db := tx
	if db == nil {
		db = s.db
	}
	if db == nil {
		return nil
	}
	return db.WithContext(ctx).Omit("Trades").Create(run).Error
}

func (s *Store) InsertBacktestTradesTx(ctx context.Context, tx *gorm.DB, trades []models.BacktestTrade) error {
	if s == nil || len(trades) == 0 {
		return nil
	}
	db := tx
	if db == nil {
		db = s.db
	}
	if db == nil {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(trades, 200).Error
}

func (s *Store) GetBacktestRun(ctx context.Context, id uint64) (*models.BacktestRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if id == 0 {
		return nil, nil
	}
	var item models.BacktestRun
	err := s.db.WithContext(ctx).Model(&models.BacktestRun{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBacktestRuns(ctx context.Context, params repository.ListRunsParams) ([]models.BacktestRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BacktestRun{})
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.BacktestRun
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTradesByRunID(ctx context.Context, runID uint64) ([]models.BacktestTrade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if runID == 0 {
		return nil, nil
	}
	var items []models.BacktestTrade
	if err := s.db.WithContext(ctx).
		Model(&models.BacktestTrade{}).
		Where("run_id = ?", runID).
		Order("entry_date asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Tracked positions ------------------------------------------------------

func (s *Store) ImportTrackedPosition(ctx context.Context, item *models.TrackedPosition) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "algorithm_name"},
			{Name: "pick_date"},
		},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) UpdateOpenTrackedPosition(ctx context.Context, item *models.TrackedPosition) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TrackedPosition{}).
		Where("id = ?", item.ID).
		Where("status = ?", models.PositionOpen).
		Updates(map[string]any{
			"current_price":      item.CurrentPrice,
			"current_return_pct": item.CurrentReturnPct,
			"peak_price":         item.PeakPrice,
			"trough_price":       item.TroughPrice,
			"hold_days":          item.HoldDays,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (s *Store) CloseTrackedPosition(ctx context.Context, id uint64, exit repository.PositionExit) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	exitPrice := decimal.NewFromFloat(exit.ExitPrice)
	// Guarded on status so closing is a one-shot transition; a second close
	// attempt matches zero rows and is a no-op.
	return s.db.WithContext(ctx).
		Model(&models.TrackedPosition{}).
		Where("id = ?", id).
		Where("status = ?", models.PositionOpen).
		Updates(map[string]any{
			"status":             models.PositionClosed,
			"exit_date":          exit.ExitDate,
			"exit_price":         exitPrice,
			"exit_reason":        exit.ExitReason,
			"final_return_pct":   decimal.NewFromFloat(exit.FinalReturnPct),
			"current_price":      decimal.NewFromFloat(exit.CurrentPrice),
			"current_return_pct": decimal.NewFromFloat(exit.FinalReturnPct),
			"hold_days":          exit.HoldDays,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (s *Store) GetTrackedPosition(ctx context.Context, id uint64) (*models.TrackedPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if id == 0 {
		return nil, nil
	}
	var item models.TrackedPosition
	err := s.db.WithContext(ctx).Model(&models.TrackedPosition{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTrackedPositions(ctx context.Context, params repository.ListTrackedPositionsParams) ([]models.TrackedPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TrackedPosition{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Algorithm != nil && strings.TrimSpace(*params.Algorithm) != "" {
		query = query.Where("algorithm_name = ?", strings.TrimSpace(*params.Algorithm))
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "pick_date")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TrackedPosition
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOpenTrackedPositions(ctx context.Context) ([]models.TrackedPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TrackedPosition
	if err := s.db.WithContext(ctx).
		Model(&models.TrackedPosition{}).
		Where("status = ?", models.PositionOpen).
		Order("pick_date asc, symbol asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListClosedTrackedPositions(ctx context.Context, limit int) ([]models.TrackedPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 2000)
	var items []models.TrackedPosition
	if err := s.db.WithContext(ctx).
		Model(&models.TrackedPosition{}).
		Where("status = ?", models.PositionClosed).
		Order("exit_date asc, id asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrackedPositions(ctx context.Context, status string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TrackedPosition{})
	if strings.TrimSpace(status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(status))
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// --- Daily snapshots --------------------------------------------------------

func (s *Store) UpsertDailySnapshot(ctx context.Context, item *models.DailySnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "track_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open_count",
			"closed_count",
			"wins",
			"losses",
			"win_rate",
			"avg_win_pct",
			"avg_loss_pct",
			"avg_hold_days",
			"best_symbol",
			"worst_symbol",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListDailySnapshots(ctx context.Context, params repository.ListSnapshotsParams) ([]models.DailySnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.DailySnapshot{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("track_date >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("track_date <= ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 90)
	offset := normalizeOffset(params.Offset)
	var items []models.DailySnapshot
	if err := query.
		Order("track_date desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Lessons ----------------------------------------------------------------

func (s *Store) UpsertLesson(ctx context.Context, item *models.Lesson) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.LessonType) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "lesson_date"},
			{Name: "lesson_type"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"title",
			"text",
			"confidence",
			"supporting_data",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListLessons(ctx context.Context, params repository.ListLessonsParams) ([]models.Lesson, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Lesson{})
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("lesson_type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("lesson_date >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Lesson
	if err := query.
		Order("lesson_date desc, lesson_type asc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 5000 {
		return 5000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var orderableColumns = map[string]struct{}{
	"created_at": {},
	"pick_date":  {},
	"exit_date":  {},
	"track_date": {},
	"symbol":     {},
	"status":     {},
	"hold_days":  {},
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(strings.ToLower(orderBy))
	if _, ok := orderableColumns[col]; !ok {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
