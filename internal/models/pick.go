package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pick is an upstream algorithm's recommendation to enter an instrument at a
// point in time. Produced by the external pick pipeline; read-only here.
type Pick struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_pick_symbol_algo_date;index"`
	AlgorithmName string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_pick_symbol_algo_date;index"`
	PickDate      time.Time `gorm:"type:date;not null;uniqueIndex:idx_pick_symbol_algo_date;index"`

	EntryPrice decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Score      decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	Rating     string          `gorm:"type:varchar(20)"`
	RiskLevel  string          `gorm:"type:varchar(20)"`
	Timeframe  string          `gorm:"type:varchar(20)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Pick) TableName() string {
	return "picks"
}
