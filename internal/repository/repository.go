package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pickeval/internal/models"
)

// Repository is the storage surface the simulation core runs against. All
// writes to unique-keyed entities are upserts so concurrent scheduler ticks
// stay duplicate-safe.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Catalog: instruments, picks and price series are written by external
	// collaborators; the core only reads them.
	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	GetInstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error)
	ListPicks(ctx context.Context, params ListPicksParams) ([]models.Pick, error)
	ListAlgorithmNames(ctx context.Context) ([]string, error)
	ListPrices(ctx context.Context, symbol string, from time.Time, limit int) ([]models.PricePoint, error)
	ListPricesBefore(ctx context.Context, symbol string, before time.Time, limit int) ([]models.PricePoint, error)
	GetLatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error)

	// Backtest runs own their trade ledger; the two are only ever written
	// together inside one transaction.
	InsertBacktestRunTx(ctx context.Context, tx *gorm.DB, run *models.BacktestRun) error
	InsertBacktestTradesTx(ctx context.Context, tx *gorm.DB, trades []models.BacktestTrade) error
	GetBacktestRun(ctx context.Context, id uint64) (*models.BacktestRun, error)
	ListBacktestRuns(ctx context.Context, params ListRunsParams) ([]models.BacktestRun, error)
	ListTradesByRunID(ctx context.Context, runID uint64) ([]models.BacktestTrade, error)

	// Tracked positions.
	ImportTrackedPosition(ctx context.Context, item *models.TrackedPosition) (bool, error)
	UpdateOpenTrackedPosition(ctx context.Context, item *models.TrackedPosition) error
	CloseTrackedPosition(ctx context.Context, id uint64, exit PositionExit) error
	GetTrackedPosition(ctx context.Context, id uint64) (*models.TrackedPosition, error)
	ListTrackedPositions(ctx context.Context, params ListTrackedPositionsParams) ([]models.TrackedPosition, error)
	ListOpenTrackedPositions(ctx context.Context) ([]models.TrackedPosition, error)
	ListClosedTrackedPositions(ctx context.Context, limit int) ([]models.TrackedPosition, error)
	CountTrackedPositions(ctx context.Context, status string) (int64, error)

	// Daily snapshots, upserted on track date.
	UpsertDailySnapshot(ctx context.Context, item *models.DailySnapshot) error
	ListDailySnapshots(ctx context.Context, params ListSnapshotsParams) ([]models.DailySnapshot, error)

	// Lessons, upserted on (lesson date, lesson type).
	UpsertLesson(ctx context.Context, item *models.Lesson) error
	ListLessons(ctx context.Context, params ListLessonsParams) ([]models.Lesson, error)
}

// PositionExit freezes a position. Applied only while the row is still open,
// so a closed position can never be closed twice with different values.
type PositionExit struct {
	ExitDate       time.Time
	ExitPrice      float64
	ExitReason     string
	FinalReturnPct float64
	CurrentPrice   float64
	HoldDays       int
}

type ListPicksParams struct {
	Limit      int
	Offset     int
	Algorithms []string
	Symbol     *string
	Since      *time.Time
	Until      *time.Time
}

type ListRunsParams struct {
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool
}

type ListTrackedPositionsParams struct {
	Limit     int
	Offset    int
	Status    *string
	Algorithm *string
	Symbol    *string
	OrderBy   string
	Asc       *bool
}

type ListSnapshotsParams struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

type ListLessonsParams struct {
	Limit  int
	Offset int
	Type   *string
	Since  *time.Time
}
