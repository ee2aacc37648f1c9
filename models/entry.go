package models

import "time"

// Entry is one day's health reading. Rows are only ever inserted or deleted, never updated.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      string    `gorm:"type:varchar(10);index;not null" json:"date"` // YYYY-MM-DD
	Steps     int       `gorm:"not null" json:"steps"`
	HeartRate int       `gorm:"not null" json:"heart_rate"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName keeps the table name used by earlier deployments.
func (Entry) TableName() string {
	return "metrics"
}

// EntryInput is a validated create request.
type EntryInput struct {
	Date      string `json:"date"`
	Steps     int    `json:"steps"`
	HeartRate int    `json:"heart_rate"`
}
