package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/healthtracker/models"
)

// MemoryStore implements Store in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.Entry // insertion order, ids ascending
	nextID  uint
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{nextID: 1, now: now}
}

func (m *MemoryStore) Create(ctx context.Context, in models.EntryInput) (models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return models.Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := models.Entry{
		ID:        m.nextID,
		Date:      in.Date,
		Steps:     in.Steps,
		HeartRate: in.HeartRate,
		CreatedAt: m.now().UTC(),
	}
	m.nextID++
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]models.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if f.Start != "" && e.Date < f.Start {
			continue
		}
		if f.End != "" && e.Date > f.End {
			continue
		}
		out = append(out, e)
	}
	m.mu.RUnlock()

	// stable keeps id order among equal dates
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id uint) (models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return models.Entry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexOf(id); i >= 0 {
		return m.entries[i], nil
	}
	return models.Entry{}, ErrNotFound
}

func (m *MemoryStore) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return nil
}

func (m *MemoryStore) Stats(ctx context.Context) (models.Stats, error) {
	if err := ctx.Err(); err != nil {
		return models.Stats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st models.Stats
	if len(m.entries) == 0 {
		return st, nil
	}

	// Sums are float64 like SQL AVG; steps up to 2^53 would overflow an int64 total
	var sumSteps, sumHR float64
	st.MinSteps, st.MinHeartRate = int64(m.entries[0].Steps), int64(m.entries[0].HeartRate)
	for _, e := range m.entries {
		steps, hr := int64(e.Steps), int64(e.HeartRate)
		sumSteps += float64(steps)
		sumHR += float64(hr)
		st.MinSteps = min64(st.MinSteps, steps)
		st.MaxSteps = max64(st.MaxSteps, steps)
		st.MinHeartRate = min64(st.MinHeartRate, hr)
		st.MaxHeartRate = max64(st.MaxHeartRate, hr)
	}
	n := float64(len(m.entries))
	st.TotalEntries = int64(len(m.entries))
	st.AvgSteps = roundAvg(sumSteps / n)
	st.AvgHeartRate = roundAvg(sumHR / n)
	return st, nil
}

func (m *MemoryStore) Close() error { return nil }

// indexOf does a binary search; entries stay sorted by id because ids only grow.
func (m *MemoryStore) indexOf(id uint) int {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].ID >= id })
	if i < len(m.entries) && m.entries[i].ID == id {
		return i
	}
	return -1
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
