package db

import (
	"pickeval/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Instrument{},
		&models.PricePoint{},
		&models.Pick{},
		&models.TrackedPosition{},
		&models.BacktestRun{},
		&models.BacktestTrade{},
		&models.DailySnapshot{},
		&models.Lesson{},
	)
}
