package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one observation of an instrument's daily price series.
// Append-only; rows are never mutated once written.
type PricePoint struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_price_symbol_date;index"`
	Date   time.Time `gorm:"type:date;not null;uniqueIndex:idx_price_symbol_date"`

	Price decimal.Decimal `gorm:"type:numeric(20,6);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PricePoint) TableName() string {
	return "price_points"
}
