// Package validation checks entry payloads before they reach the store.
//
// Payload fields arrive as decoded JSON (map[string]any) because clients send
// raw form strings as well as numbers. Checks run in a fixed order and the first
// failure is reported; clients rely on that order when showing a single message.
package validation

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/healthtracker/models"
)

const (
	MsgDateRequired      = "Date is required"
	MsgDateFormat        = "Invalid date format. Use YYYY-MM-DD"
	MsgDateFuture        = "Date cannot be in the future"
	MsgStepsRequired     = "Steps are required"
	MsgHeartRateRequired = "Heart rate is required"
	MsgStepsInvalid      = "Steps must be a positive integer"
	MsgHeartRateInvalid  = "Heart rate must be between 30 and 220 bpm"

	MinHeartRate = 30
	MaxHeartRate = 220

	// DateLayout is the only accepted date form. Lexical order equals calendar order.
	DateLayout = "2006-01-02"
)

// maxExactInt bounds numeric input to what a float64 carries exactly.
const maxExactInt = 1 << 53

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Error is a user-correctable rejection of a payload.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(msg string) (models.EntryInput, error) {
	return models.EntryInput{}, &Error{Message: msg}
}

// Today returns the local calendar date of now in DateLayout.
func Today(now time.Time) string {
	return now.In(time.Local).Format(DateLayout)
}

// Entry validates payload against today (DateLayout) and returns the normalized input.
func Entry(payload map[string]any, today string) (models.EntryInput, error) {
	rawDate, ok := payload["date"]
	if !ok || rawDate == nil || rawDate == "" {
		return fail(MsgDateRequired)
	}
	date, isString := rawDate.(string)
	if !isString || !datePattern.MatchString(date) {
		return fail(MsgDateFormat)
	}
	if date > today {
		return fail(MsgDateFuture)
	}

	if missing(payload, "steps") {
		return fail(MsgStepsRequired)
	}
	if missing(payload, "heart_rate") {
		return fail(MsgHeartRateRequired)
	}

	steps, ok := toInt(payload["steps"])
	if !ok || steps < 0 {
		return fail(MsgStepsInvalid)
	}
	heartRate, ok := toInt(payload["heart_rate"])
	if !ok || heartRate < MinHeartRate || heartRate > MaxHeartRate {
		return fail(MsgHeartRateInvalid)
	}

	return models.EntryInput{Date: date, Steps: steps, HeartRate: heartRate}, nil
}

// missing reports an absent, null or empty-string field.
func missing(payload map[string]any, key string) bool {
	v, ok := payload[key]
	return !ok || v == nil || v == ""
}

// toInt accepts JSON numbers and numeric strings that hold an integral value.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return floatToInt(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case int:
		return t, true
	case int64:
		if t > maxExactInt || t < -maxExactInt {
			return 0, false
		}
		return int(t), true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > maxExactInt || f < -maxExactInt {
		return 0, false
	}
	return int(f), true
}
