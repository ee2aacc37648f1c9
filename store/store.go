// Package store persists health entries.
//
// Handlers depend on the Store interface only; GormStore backs production and
// MemoryStore backs tests and ephemeral runs.
package store

import (
	"context"
	"errors"
	"math"

	"github.com/cppla/healthtracker/models"
)

// ErrNotFound is returned by Get and Delete when no entry has the given id.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("entry not found")

// Filter restricts List to an inclusive date range. Empty bounds are ignored.
type Filter struct {
	Start string
	End   string
}

// Store is the persistence contract for entries.
type Store interface {
	Create(ctx context.Context, in models.EntryInput) (models.Entry, error)
	List(ctx context.Context, f Filter) ([]models.Entry, error)
	Get(ctx context.Context, id uint) (models.Entry, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (models.Stats, error)
	Close() error
}

// roundAvg rounds a mean to the nearest integer, halves away from zero.
func roundAvg(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	return int64(math.Round(v))
}
