package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BacktestRun is one historical replay: the parameter set it ran under, the
// aggregate results, and the equity curve. Owns its trade ledger 1:N.
type BacktestRun struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	AlgorithmFilter string `gorm:"type:varchar(200)"`

	TargetPct       decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	StopPct         decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	MaxHoldDays     int             `gorm:"not null"`
	InitialCapital  decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	FeePct          decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	PositionSizePct decimal.Decimal `gorm:"type:numeric(10,4);not null"`

	TradesCount    int             `gorm:"not null;default:0"`
	WinCount       int             `gorm:"not null;default:0"`
	LossCount      int             `gorm:"not null;default:0"`
	FinalCapital   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	TotalReturnPct decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	WinRate        decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	AvgWinPct      decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	AvgLossPct     decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	Sharpe         decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	Sortino        decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	ProfitFactor   decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	Expectancy     decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	MaxDrawdownPct decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	FeeDragPct     decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	TotalFees      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	MaxWinStreak   int             `gorm:"not null;default:0"`
	MaxLossStreak  int             `gorm:"not null;default:0"`

	EquityCurve   datatypes.JSON `gorm:"type:jsonb"`
	ByAlgorithm   datatypes.JSON `gorm:"type:jsonb"`
	ExitBreakdown datatypes.JSON `gorm:"type:jsonb"`

	Trades []BacktestTrade `gorm:"foreignKey:RunID"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}
