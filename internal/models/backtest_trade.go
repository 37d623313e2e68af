package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestTrade is one simulated trade inside a run's ledger. Run-scoped;
// never shared across runs.
type BacktestTrade struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	RunID uint64 `gorm:"not null;index"`

	Symbol        string    `gorm:"type:varchar(20);not null;index"`
	AlgorithmName string    `gorm:"type:varchar(50);not null;index"`
	EntryDate     time.Time `gorm:"type:date;not null"`
	ExitDate      time.Time `gorm:"type:date;not null"`

	EntryPrice decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	ExitPrice  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Units      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	GrossPnL   decimal.Decimal `gorm:"column:gross_pnl;type:numeric(30,10);not null"`
	Fees       decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	NetPnL     decimal.Decimal `gorm:"column:net_pnl;type:numeric(30,10);not null"`
	ReturnPct  decimal.Decimal `gorm:"type:numeric(10,4);not null"`

	ExitReason string `gorm:"type:varchar(20);not null;index"`
	HoldDays   int    `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (BacktestTrade) TableName() string {
	return "backtest_trades"
}
