package models

// Stats summarises every stored entry. All fields are zero when the store is empty.
type Stats struct {
	TotalEntries int64 `json:"total_entries"`
	AvgSteps     int64 `json:"avg_steps"`
	AvgHeartRate int64 `json:"avg_heart_rate"`
	MaxSteps     int64 `json:"max_steps"`
	MinSteps     int64 `json:"min_steps"`
	MaxHeartRate int64 `json:"max_heart_rate"`
	MinHeartRate int64 `json:"min_heart_rate"`
}
