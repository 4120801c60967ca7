package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Point is a single observation in a time series. A NaN value marks a
// missing observation.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeries is an ordered sequence of observations for one named variable.
// Invariants: timestamps strictly increasing, no duplicates. Once a series
// has been handed to the pipeline it is treated as immutable; operations
// return copies.
type TimeSeries struct {
	Name       string      `json:"name"`
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
}

// NewTimeSeries creates a series from points, sorting by timestamp.
func NewTimeSeries(name string, points []Point) *TimeSeries {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	ts := &TimeSeries{
		Name:       name,
		Timestamps: make([]time.Time, len(sorted)),
		Values:     make([]float64, len(sorted)),
	}
	for i, p := range sorted {
		ts.Timestamps[i] = p.Timestamp
		ts.Values[i] = p.Value
	}
	return ts
}

// Len returns the number of observations.
func (s *TimeSeries) Len() int {
	return len(s.Values)
}

// Validate checks the series invariants: matching lengths, strictly
// increasing timestamps, no duplicates.
func (s *TimeSeries) Validate() error {
	if len(s.Timestamps) != len(s.Values) {
		return fmt.Errorf("series %q: %d timestamps but %d values", s.Name, len(s.Timestamps), len(s.Values))
	}
	for i := 1; i < len(s.Timestamps); i++ {
		if !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return fmt.Errorf("series %q: timestamps not strictly increasing at index %d", s.Name, i)
		}
	}
	return nil
}

// Mean calculates the arithmetic mean, ignoring missing values.
func (s *TimeSeries) Mean() float64 {
	sum, n := 0.0, 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Variance calculates the sample variance, ignoring missing values.
func (s *TimeSeries) Variance() float64 {
	mean := s.Mean()
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sumSq, n := 0.0, 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			diff := v - mean
			sumSq += diff * diff
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return sumSq / float64(n-1)
}

// Slice returns a copy of the series restricted to [start, end).
func (s *TimeSeries) Slice(start, end int) *TimeSeries {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &TimeSeries{Name: s.Name}
	}
	out := &TimeSeries{
		Name:       s.Name,
		Timestamps: make([]time.Time, end-start),
		Values:     make([]float64, end-start),
	}
	copy(out.Timestamps, s.Timestamps[start:end])
	copy(out.Values, s.Values[start:end])
	return out
}

// Copy creates a deep copy.
func (s *TimeSeries) Copy() *TimeSeries {
	return s.Slice(0, len(s.Values))
}

// SeriesSet maps variable name to its time series. After preprocessing all
// members share a common aligned timestamp index.
type SeriesSet struct {
	Series map[string]*TimeSeries `json:"series"`
}

// NewSeriesSet creates an empty set.
func NewSeriesSet() *SeriesSet {
	return &SeriesSet{Series: make(map[string]*TimeSeries)}
}

// Add inserts a series keyed by its name.
func (ss *SeriesSet) Add(s *TimeSeries) {
	ss.Series[s.Name] = s
}

// Names returns the variable names in deterministic (sorted) order.
func (ss *SeriesSet) Names() []string {
	names := make([]string, 0, len(ss.Series))
	for name := range ss.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of variables.
func (ss *SeriesSet) Len() int {
	return len(ss.Series)
}

// AlignedLen returns the shared observation count, or -1 when members
// disagree (i.e. the set is not aligned).
func (ss *SeriesSet) AlignedLen() int {
	n := -1
	for _, s := range ss.Series {
		if n == -1 {
			n = s.Len()
		} else if s.Len() != n {
			return -1
		}
	}
	return n
}

// Index returns the shared timestamp index of an aligned set.
func (ss *SeriesSet) Index() []time.Time {
	for _, name := range ss.Names() {
		s := ss.Series[name]
		idx := make([]time.Time, len(s.Timestamps))
		copy(idx, s.Timestamps)
		return idx
	}
	return nil
}

// Matrix returns the aligned observations as a T x K matrix with columns
// ordered by Names().
func (ss *SeriesSet) Matrix() [][]float64 {
	names := ss.Names()
	n := ss.AlignedLen()
	if n <= 0 {
		return nil
	}
	m := make([][]float64, n)
	for t := 0; t < n; t++ {
		row := make([]float64, len(names))
		for k, name := range names {
			row[k] = ss.Series[name].Values[t]
		}
		m[t] = row
	}
	return m
}

// Slice returns a copy of the set with every series restricted to [start, end).
func (ss *SeriesSet) Slice(start, end int) *SeriesSet {
	out := NewSeriesSet()
	for _, s := range ss.Series {
		out.Add(s.Slice(start, end))
	}
	return out
}
