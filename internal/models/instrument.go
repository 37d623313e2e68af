package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is reference data owned by the external catalog. The core only
// reads it; the expense ratio feeds the periodic fee proration.
type Instrument struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Symbol string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(200)"`

	Category        string          `gorm:"type:varchar(50);index"`
	ExpenseRatioPct decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Instrument) TableName() string {
	return "instruments"
}
