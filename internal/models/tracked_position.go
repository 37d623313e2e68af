package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionOpen   = "open"
	PositionClosed = "closed"
)

// TrackedPosition follows one pick forward in time as if it were a live
// position. Created exactly once per (symbol, algorithm, pick date); mutated
// on every refresh while open; frozen on close. Exit fields of a closed
// position are immutable history.
type TrackedPosition struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_tracked_symbol_algo_date;index"`
	AlgorithmName string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_tracked_symbol_algo_date;index"`
	PickDate      time.Time `gorm:"type:date;not null;uniqueIndex:idx_tracked_symbol_algo_date;index"`

	EntryPrice       decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CurrentPrice     decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CurrentReturnPct decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	PeakPrice        decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	TroughPrice      decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	HoldDays         int             `gorm:"not null;default:0"`

	// Exit thresholds captured at import so later config changes do not
	// retroactively move the goalposts on an open position.
	TargetPct   decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	StopPct     decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	MaxHoldDays int             `gorm:"not null"`

	Score     decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	RiskLevel string          `gorm:"type:varchar(20)"`

	Status         string           `gorm:"type:varchar(20);not null;default:'open';index"`
	ExitDate       *time.Time       `gorm:"type:date"`
	ExitPrice      *decimal.Decimal `gorm:"type:numeric(20,6)"`
	ExitReason     string           `gorm:"type:varchar(20);index"`
	FinalReturnPct decimal.Decimal  `gorm:"type:numeric(10,4);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TrackedPosition) TableName() string {
	return "tracked_positions"
}
