package calibration

// Request describes one calibration sweep
type Request struct {
	Comparisons int   `json:"comparisons"`
	SampleSize  int   `json:"sample_size"`
	Seed        int64 `json:"seed"`
	Workers     int   `json:"workers"`
}

// Interval is a two-sided confidence interval
type Interval struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Level float64 `json:"level"`
}

// Contains reports whether x lies inside the closed interval
func (i Interval) Contains(x float64) bool {
	return x >= i.Low && x <= i.High
}

// Distribution summarises the p-values of a sweep
type Distribution struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Report is the empirical false-positive behaviour of the generator
type Report struct {
	Request          Request      `json:"request"`
	SignificantCount int          `json:"significant_count"`
	Rate             float64      `json:"rate"`
	Interval         Interval     `json:"interval"`
	PValues          Distribution `json:"p_values"`
}
