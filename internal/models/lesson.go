package models

import (
	"time"

	"gorm.io/datatypes"
)

// Lesson is a confidence-scored statement mined from closed trades. Unique on
// (lesson date, lesson type): re-detection the same day replaces the row.
type Lesson struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	LessonDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_lesson_date_type;index"`
	LessonType string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_lesson_date_type;index"`

	Title      string  `gorm:"type:varchar(200);not null"`
	Text       string  `gorm:"type:text;not null"`
	Confidence float64 `gorm:"not null;default:0"`

	SupportingData datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Lesson) TableName() string {
	return "lessons"
}
