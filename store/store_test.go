package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/healthtracker/models"
)

func setupTestGormStore(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Entry{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	s := NewGormStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func setupTestMemoryStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore(nil)
}

// backends runs every contract test against both implementations.
var backends = map[string]func(t *testing.T) Store{
	"gorm-sqlite": setupTestGormStore,
	"memory":      setupTestMemoryStore,
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, setup(t))
		})
	}
}

func mustCreate(t *testing.T, s Store, date string, steps, hr int) models.Entry {
	t.Helper()
	e, err := s.Create(context.Background(), models.EntryInput{Date: date, Steps: steps, HeartRate: hr})
	if err != nil {
		t.Fatalf("Create(%s): %v", date, err)
	}
	return e
}

func TestStore_CreateAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		created := mustCreate(t, s, "2024-06-01", 8500, 72)
		if created.ID == 0 {
			t.Fatal("expected an assigned id")
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}

		got, err := s.Get(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Date != "2024-06-01" || got.Steps != 8500 || got.HeartRate != 72 {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})
}

func TestStore_IDsIncrease(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		a := mustCreate(t, s, "2024-01-01", 1, 60)
		b := mustCreate(t, s, "2024-01-01", 2, 60)
		if b.ID <= a.ID {
			t.Errorf("ids not increasing: %d then %d", a.ID, b.ID)
		}
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		if _, err := s.Get(context.Background(), 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_ListOrderAndFilter(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		mustCreate(t, s, "2024-01-25", 5, 70)
		mustCreate(t, s, "2024-01-10", 1, 70)
		mustCreate(t, s, "2024-01-05", 0, 70)
		mustCreate(t, s, "2024-01-20", 4, 70)
		mustCreate(t, s, "2024-01-15", 2, 70)
		mustCreate(t, s, "2024-01-15", 3, 70)

		all, err := s.List(context.Background(), Filter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 6 {
			t.Fatalf("expected 6 entries, got %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i-1].Date > all[i].Date {
				t.Fatalf("not ascending at %d: %s > %s", i, all[i-1].Date, all[i].Date)
			}
		}

		ranged, err := s.List(context.Background(), Filter{Start: "2024-01-10", End: "2024-01-20"})
		if err != nil {
			t.Fatalf("List range: %v", err)
		}
		wantSteps := []int{1, 2, 3, 4}
		if len(ranged) != len(wantSteps) {
			t.Fatalf("expected %d entries in range, got %d: %+v", len(wantSteps), len(ranged), ranged)
		}
		for i, e := range ranged {
			if e.Steps != wantSteps[i] {
				t.Errorf("entry %d steps = %d, want %d (ties must keep insertion order)", i, e.Steps, wantSteps[i])
			}
		}

		fromOnly, _ := s.List(context.Background(), Filter{Start: "2024-01-20"})
		if len(fromOnly) != 2 {
			t.Errorf("start-only filter returned %d entries, want 2", len(fromOnly))
		}
		toOnly, _ := s.List(context.Background(), Filter{End: "2024-01-05"})
		if len(toOnly) != 1 {
			t.Errorf("end-only filter returned %d entries, want 1", len(toOnly))
		}
	})
}

func TestStore_ListEmptyIsNotNil(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		got, err := s.List(context.Background(), Filter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if got == nil {
			t.Error("empty list must be non-nil so it encodes as []")
		}
	})
}

func TestStore_DeleteTwice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		e := mustCreate(t, s, "2024-03-01", 10, 65)
		if err := s.Delete(context.Background(), e.ID); err != nil {
			t.Fatalf("first delete: %v", err)
		}
		if err := s.Delete(context.Background(), e.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}
		if _, err := s.Get(context.Background(), e.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("get after delete: expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_StatsEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		st, err := s.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if st != (models.Stats{}) {
			t.Errorf("expected zero stats, got %+v", st)
		}
	})
}

func TestStore_Stats(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		mustCreate(t, s, "2024-06-01", 8500, 72)
		st, err := s.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if st.TotalEntries != 1 || st.AvgSteps != 8500 || st.AvgHeartRate != 72 {
			t.Errorf("single-entry stats wrong: %+v", st)
		}

		mustCreate(t, s, "2024-06-02", 8501, 73)
		mustCreate(t, s, "2024-06-03", 1000, 40)
		st, err = s.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		want := models.Stats{
			TotalEntries: 3,
			AvgSteps:     6000, // 18001/3 = 6000.33
			AvgHeartRate: 62,   // 185/3 = 61.67
			MaxSteps:     8501,
			MinSteps:     1000,
			MaxHeartRate: 73,
			MinHeartRate: 40,
		}
		if st != want {
			t.Errorf("stats = %+v, want %+v", st, want)
		}
	})
}

func TestStore_StatsRoundsHalfUp(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		mustCreate(t, s, "2024-06-01", 1, 70)
		mustCreate(t, s, "2024-06-02", 2, 71)
		st, err := s.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if st.AvgSteps != 2 || st.AvgHeartRate != 71 {
			t.Errorf("expected 1.5 -> 2 and 70.5 -> 71, got %+v", st)
		}
	})
}

func TestStore_StatsLargeStepTotals(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		const steps = 1 << 53
		// 1025 * 2^53 is past the int64 range
		for i := 0; i < 1025; i++ {
			mustCreate(t, s, "2024-06-01", steps, 60)
		}
		st, err := s.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if st.AvgSteps != steps {
			t.Errorf("AvgSteps = %d, want %d", st.AvgSteps, int64(steps))
		}
		if st.MaxSteps != steps || st.MinSteps != steps {
			t.Errorf("min/max = %d/%d", st.MinSteps, st.MaxSteps)
		}
	})
}

func TestStore_ConcurrentCreates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Create(context.Background(), models.EntryInput{Date: "2024-05-01", Steps: i, HeartRate: 60})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent create: %v", err)
			}
		}
		st, _ := s.Stats(context.Background())
		if st.TotalEntries != n {
			t.Errorf("expected %d entries, got %d", n, st.TotalEntries)
		}
	})
}

func TestMemoryStore_UsesClock(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s := NewMemoryStore(func() time.Time { return fixed })
	e, _ := s.Create(context.Background(), models.EntryInput{Date: "2024-06-01", Steps: 1, HeartRate: 60})
	if !e.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %s, want %s", e.CreatedAt, fixed)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Create(ctx, models.EntryInput{Date: "2024-06-01"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
