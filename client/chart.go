package client

// DenseThreshold is the point count above which charts drop per-point markers.
const DenseThreshold = 200

// ChartPoint is one entry on the separate steps and heart-rate trend charts.
type ChartPoint struct {
	Date      string `json:"date"`
	Steps     int    `json:"steps"`
	HeartRate int    `json:"heart_rate"`
}

// OverlayPoint puts both series on a shared 0..1 scale for the combined chart.
type OverlayPoint struct {
	Date          string  `json:"date"`
	StepsNorm     float64 `json:"steps_norm"`
	HeartRateNorm float64 `json:"hr_norm"`
}

// Chart returns the loaded entries as chart points in table order.
func (vm *ViewModel) Chart() []ChartPoint {
	points := make([]ChartPoint, len(vm.Entries))
	for i, e := range vm.Entries {
		points[i] = ChartPoint{Date: e.Date, Steps: e.Steps, HeartRate: e.HeartRate}
	}
	return points
}

// Overlay min-max normalizes steps and heart rate independently.
func (vm *ViewModel) Overlay() []OverlayPoint {
	steps := make([]float64, len(vm.Entries))
	hr := make([]float64, len(vm.Entries))
	for i, e := range vm.Entries {
		steps[i] = float64(e.Steps)
		hr[i] = float64(e.HeartRate)
	}
	steps = normalize(steps)
	hr = normalize(hr)

	points := make([]OverlayPoint, len(vm.Entries))
	for i, e := range vm.Entries {
		points[i] = OverlayPoint{Date: e.Date, StepsNorm: steps[i], HeartRateNorm: hr[i]}
	}
	return points
}

// Dense reports whether the chart has too many points for markers.
func (vm *ViewModel) Dense() bool {
	return len(vm.Entries) > DenseThreshold
}

// normalize maps values onto 0..1; a flat series maps to 0.5 throughout.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for i, v := range values {
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
