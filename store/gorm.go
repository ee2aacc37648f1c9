package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/healthtracker/models"
)

// GormStore keeps entries in a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened database. The metrics table must already be migrated.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, in models.EntryInput) (models.Entry, error) {
	entry := models.Entry{Date: in.Date, Steps: in.Steps, HeartRate: in.HeartRate}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

func (s *GormStore) List(ctx context.Context, f Filter) ([]models.Entry, error) {
	query := s.db.WithContext(ctx).Model(&models.Entry{})
	if f.Start != "" {
		query = query.Where("date >= ?", f.Start)
	}
	if f.End != "" {
		query = query.Where("date <= ?", f.End)
	}

	entries := []models.Entry{}
	if err := query.Order("date ASC").Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (models.Entry, error) {
	var entry models.Entry
	err := s.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Entry{}, ErrNotFound
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return entry, nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Entry{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete entry %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// statsRow holds the raw aggregate; MIN/MAX/AVG are NULL on an empty table.
type statsRow struct {
	TotalEntries int64
	AvgSteps     sql.NullFloat64
	AvgHeartRate sql.NullFloat64
	MaxSteps     sql.NullInt64
	MinSteps     sql.NullInt64
	MaxHeartRate sql.NullInt64
	MinHeartRate sql.NullInt64
}

// Stats computes every aggregate in a single query.
func (s *GormStore) Stats(ctx context.Context) (models.Stats, error) {
	var row statsRow
	err := s.db.WithContext(ctx).Model(&models.Entry{}).Select(
		"COUNT(*) AS total_entries, " +
			"AVG(steps) AS avg_steps, AVG(heart_rate) AS avg_heart_rate, " +
			"MAX(steps) AS max_steps, MIN(steps) AS min_steps, " +
			"MAX(heart_rate) AS max_heart_rate, MIN(heart_rate) AS min_heart_rate",
	).Scan(&row).Error
	if err != nil {
		return models.Stats{}, fmt.Errorf("aggregate entries: %w", err)
	}

	return models.Stats{
		TotalEntries: row.TotalEntries,
		AvgSteps:     roundAvg(row.AvgSteps.Float64),
		AvgHeartRate: roundAvg(row.AvgHeartRate.Float64),
		MaxSteps:     row.MaxSteps.Int64,
		MinSteps:     row.MinSteps.Int64,
		MaxHeartRate: row.MaxHeartRate.Int64,
		MinHeartRate: row.MinHeartRate.Int64,
	}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
