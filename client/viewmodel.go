package client

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cppla/healthtracker/models"
	"github.com/cppla/healthtracker/validation"
)

const (
	SuccessSaved  = "Metric saved successfully!"
	FallbackFetch = "Failed to fetch metrics"
	FallbackSave  = "Failed to save metric"

	// SuccessWindow is how long the save confirmation stays visible.
	SuccessWindow = 3 * time.Second
)

// ErrSubmitInFlight is returned by Submit while an earlier submission is outstanding.
var ErrSubmitInFlight = errors.New("submission already in progress")

// ViewModel is the dashboard state: the entry table, the form draft, the date filter
// and transient status flags.
//
// It is driven by a single UI loop and is not safe for concurrent use, with one exception:
// Submit may be called while another Submit runs and then fails fast with ErrSubmitInFlight.
//
// Refetches are not coalesced or cancelled. When filter changes overlap, whichever
// response resolves last wins, even if it belongs to the older filter.
type ViewModel struct {
	api *Client
	now func() time.Time

	Entries []models.Entry
	Draft   Draft
	Filter  DateRange
	Loading bool
	Err     string

	success      string
	successUntil time.Time
	submitting   atomic.Bool
}

// NewViewModel creates a view-model with an empty table and a draft dated today.
func NewViewModel(api *Client, now func() time.Time) *ViewModel {
	if now == nil {
		now = time.Now
	}
	vm := &ViewModel{api: api, now: now, Entries: []models.Entry{}}
	vm.resetDraft()
	return vm
}

// Load replaces Entries with a fresh server listing for the current filter.
func (vm *ViewModel) Load(ctx context.Context) error {
	vm.Loading = true
	defer func() { vm.Loading = false }()

	entries, err := vm.api.ListMetrics(ctx, vm.Filter)
	if err != nil {
		vm.Err = messageOr(err, FallbackFetch)
		return err
	}
	sortByDate(entries)
	vm.Entries = entries
	vm.Err = ""
	return nil
}

// SetFilter changes the date range and refetches.
func (vm *ViewModel) SetFilter(ctx context.Context, r DateRange) error {
	vm.Filter = r
	return vm.Load(ctx)
}

// ClearFilter removes both bounds and refetches.
func (vm *ViewModel) ClearFilter(ctx context.Context) error {
	return vm.SetFilter(ctx, DateRange{})
}

// Submit sends the draft. On success the saved row is appended immediately, the draft is
// reset and the list is refetched; the refetch result replaces the optimistic append.
// A failed save leaves Entries untouched and reports the server's message in Err.
// Errors from the follow-up refetch are reported in Err only.
func (vm *ViewModel) Submit(ctx context.Context) error {
	if !vm.submitting.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer vm.submitting.Store(false)

	vm.Loading = true
	vm.Err = ""
	vm.success = ""

	saved, err := vm.api.CreateMetric(ctx, vm.Draft)
	if err != nil {
		vm.Err = messageOr(err, FallbackSave)
		vm.Loading = false
		return err
	}

	entries := make([]models.Entry, 0, len(vm.Entries)+1)
	entries = append(entries, vm.Entries...)
	entries = append(entries, saved)
	sortByDate(entries)
	vm.Entries = entries

	vm.success = SuccessSaved
	vm.successUntil = vm.now().Add(SuccessWindow)
	vm.resetDraft()

	_ = vm.Load(ctx)
	return nil
}

// Submitting reports whether a submission is outstanding; the submit control is disabled meanwhile.
func (vm *ViewModel) Submitting() bool {
	return vm.submitting.Load()
}

// Success returns the save confirmation while it is still within SuccessWindow.
func (vm *ViewModel) Success() string {
	if vm.success == "" || !vm.now().Before(vm.successUntil) {
		return ""
	}
	return vm.success
}

// AvgSteps is the rounded mean over the loaded entries, 0 when empty. It follows the
// current filter and can differ from the server-wide /api/stats value.
func (vm *ViewModel) AvgSteps() int {
	return roundedMean(vm.Entries, func(e models.Entry) int { return e.Steps })
}

// AvgHeartRate is the rounded mean heart rate over the loaded entries, 0 when empty.
func (vm *ViewModel) AvgHeartRate() int {
	return roundedMean(vm.Entries, func(e models.Entry) int { return e.HeartRate })
}

func (vm *ViewModel) resetDraft() {
	vm.Draft = Draft{Date: validation.Today(vm.now())}
}

func roundedMean(entries []models.Entry, field func(models.Entry) int) int {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		sum += float64(field(e))
	}
	return int(math.Round(sum / float64(len(entries))))
}

func sortByDate(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
}

func messageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
