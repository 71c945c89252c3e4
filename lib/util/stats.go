package util

import "math"

// Stats summarises a set of samples.
type Stats struct {
	Count        int     `json:"count"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"std_deviation"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes the statistics of values using the population standard deviation.
// An empty input yields the zero Stats.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{Count: len(values), Min: values[0], Max: values[0]}

	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	var squares float64
	for _, v := range values {
		d := v - s.Mean
		squares += d * d
	}
	s.StdDeviation = math.Sqrt(squares / float64(len(values)))

	s.MinMaxRatio = 1
	if s.Max > 0 {
		s.MinMaxRatio = s.Min / s.Max
	}
	return s
}

// Fairness describes how evenly a resource was shared.
type Fairness struct {
	Stats
	// Quality is 1 for a perfectly even distribution and approaches 0 when some
	// participants got nothing while others got everything.
	Quality float64 `json:"quality"`
	// Starved is the number of participants with a zero sample.
	Starved int `json:"starved"`
}

// NewFairness computes the fairness of a per-participant count distribution.
// Quality averages (1 - coefficient of variation, floored at 0) with the min/max ratio.
func NewFairness(counts []uint64) Fairness {
	values := make([]float64, len(counts))
	starved := 0
	for i, c := range counts {
		values[i] = float64(c)
		if c == 0 {
			starved++
		}
	}

	stats := NewStats(values)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	quality := 0.0
	if stats.Count > 0 && stats.Max > 0 {
		quality = (1-math.Min(1, cv))*0.5 + stats.MinMaxRatio*0.5
	}

	return Fairness{Stats: stats, Quality: quality, Starved: starved}
}
