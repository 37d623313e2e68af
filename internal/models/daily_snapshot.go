package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySnapshot summarizes the tracker population for one calendar day.
// Unique on track date; re-running the tracker the same day overwrites it.
type DailySnapshot struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TrackDate time.Time `gorm:"type:date;not null;uniqueIndex"`

	OpenCount   int `gorm:"not null;default:0"`
	ClosedCount int `gorm:"not null;default:0"`
	Wins        int `gorm:"not null;default:0"`
	Losses      int `gorm:"not null;default:0"`

	WinRate     decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	AvgWinPct   decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	AvgLossPct  decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	AvgHoldDays decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`

	BestSymbol  string `gorm:"type:varchar(20)"`
	WorstSymbol string `gorm:"type:varchar(20)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailySnapshot) TableName() string {
	return "daily_snapshots"
}
