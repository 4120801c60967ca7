package forecast

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

// Preprocessor cleans and aligns raw series onto a common regular index.
//
// Gap policy: interior gaps are filled by linear interpolation between the
// surrounding observations; leading and trailing missing values are dropped
// by restricting to the overlapping window. The policy is applied uniformly
// to every series.
type Preprocessor struct {
	cfg    config.ForecastConfig
	logger *logrus.Logger
}

// PreparedSet is the preprocessor's output: an aligned SeriesSet, the index
// interval, and the differencing order required to stationarize each
// variable. The differencing is recorded, not applied; the model selector
// reads it when fixing ARIMA's d.
type PreparedSet struct {
	Set       *models.SeriesSet
	Interval  time.Duration
	DiffOrder map[string]int
}

// LastTimestamp returns the final index timestamp of the aligned set.
func (p *PreparedSet) LastTimestamp() time.Time {
	idx := p.Set.Index()
	if len(idx) == 0 {
		return time.Time{}
	}
	return idx[len(idx)-1]
}

// Len returns the aligned observation count.
func (p *PreparedSet) Len() int {
	return p.Set.AlignedLen()
}

// Truncate returns a copy of the prepared set with the last n observations
// removed. Differencing orders are carried over unchanged so a back-test
// refit uses the same spec.
func (p *PreparedSet) Truncate(n int) *PreparedSet {
	total := p.Len()
	diffOrder := make(map[string]int, len(p.DiffOrder))
	for k, v := range p.DiffOrder {
		diffOrder[k] = v
	}
	return &PreparedSet{
		Set:       p.Set.Slice(0, total-n),
		Interval:  p.Interval,
		DiffOrder: diffOrder,
	}
}

// NewPreprocessor creates a preprocessor bound to the pipeline configuration.
func NewPreprocessor(cfg config.ForecastConfig, logger *logrus.Logger) *Preprocessor {
	return &Preprocessor{cfg: cfg, logger: logger}
}

// Prepare cleans every series in the raw set, aligns them to a common
// regular timestamp index and determines per-variable differencing orders.
func (p *Preprocessor) Prepare(ctx context.Context, raw *models.SeriesSet) (*PreparedSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := raw.Names()
	if len(names) == 0 {
		return nil, utils.NewAllMissingError("")
	}

	cleaned := make(map[string]*models.TimeSeries, len(names))
	var deltas []time.Duration
	for _, name := range names {
		s := cleanSeries(raw.Series[name])
		if s.Len() == 0 {
			return nil, utils.NewAllMissingError(name)
		}
		if s.Len() < p.cfg.MinObservations {
			return nil, utils.NewInsufficientDataError(name, s.Len(), p.cfg.MinObservations)
		}
		cleaned[name] = s
		for i := 1; i < s.Len(); i++ {
			deltas = append(deltas, s.Timestamps[i].Sub(s.Timestamps[i-1]))
		}
	}

	step := medianDuration(deltas)
	if step <= 0 {
		return nil, utils.NewInsufficientDataError(names[0], 1, p.cfg.MinObservations)
	}

	// Overlapping window across all series: latest start, earliest end.
	start := cleaned[names[0]].Timestamps[0]
	end := cleaned[names[0]].Timestamps[cleaned[names[0]].Len()-1]
	for _, name := range names[1:] {
		s := cleaned[name]
		if first := s.Timestamps[0]; first.After(start) {
			start = first
		}
		if last := s.Timestamps[s.Len()-1]; last.Before(end) {
			end = last
		}
	}
	if start.After(end) {
		return nil, utils.NewInsufficientDataError(names[0], 0, p.cfg.MinObservations)
	}

	index := buildIndex(start, end, step)
	if len(index) < p.cfg.MinObservations {
		return nil, utils.NewInsufficientDataError(names[0], len(index), p.cfg.MinObservations)
	}

	aligned := models.NewSeriesSet()
	diffOrder := make(map[string]int, len(names))
	for _, name := range names {
		values := interpolateAt(cleaned[name], index)
		ts := &models.TimeSeries{Name: name, Timestamps: index, Values: values}
		aligned.Add(ts)
		diffOrder[name] = requiredDifferencing(values, p.cfg.MaxD)
	}

	p.logger.WithFields(logrus.Fields{
		"variables":    len(names),
		"observations": len(index),
		"interval":     step.String(),
	}).Info("Series set aligned")

	return &PreparedSet{Set: aligned, Interval: step, DiffOrder: diffOrder}, nil
}

// cleanSeries drops missing and non-finite observations and duplicate
// timestamps (first wins), keeping chronological order.
func cleanSeries(s *models.TimeSeries) *models.TimeSeries {
	points := make([]models.Point, 0, s.Len())
	for i := range s.Values {
		if math.IsNaN(s.Values[i]) || math.IsInf(s.Values[i], 0) {
			continue
		}
		points = append(points, models.Point{Timestamp: s.Timestamps[i], Value: s.Values[i]})
	}
	out := models.NewTimeSeries(s.Name, points)

	// Drop duplicate timestamps after sorting.
	dedupTs := out.Timestamps[:0]
	dedupVals := out.Values[:0]
	for i := range out.Values {
		if len(dedupTs) > 0 && !out.Timestamps[i].After(dedupTs[len(dedupTs)-1]) {
			continue
		}
		dedupTs = append(dedupTs, out.Timestamps[i])
		dedupVals = append(dedupVals, out.Values[i])
	}
	out.Timestamps = dedupTs
	out.Values = dedupVals
	return out
}

// medianDuration returns the median of the observed gaps, the target
// alignment frequency.
func medianDuration(deltas []time.Duration) time.Duration {
	if len(deltas) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(deltas))
	copy(sorted, deltas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// buildIndex produces the regular timestamp index from start to end.
func buildIndex(start, end time.Time, step time.Duration) []time.Time {
	var index []time.Time
	for t := start; !t.After(end); t = t.Add(step) {
		index = append(index, t)
	}
	return index
}

// interpolateAt samples the series at each index timestamp, linearly
// interpolating between the surrounding observations. Index timestamps are
// guaranteed to lie inside the series' observed window.
func interpolateAt(s *models.TimeSeries, index []time.Time) []float64 {
	values := make([]float64, len(index))
	j := 0
	for i, t := range index {
		for j < s.Len()-1 && s.Timestamps[j+1].Before(t) {
			j++
		}
		switch {
		case !s.Timestamps[j].After(t) && j+1 < s.Len() && !s.Timestamps[j+1].Before(t):
			left, right := s.Timestamps[j], s.Timestamps[j+1]
			span := right.Sub(left).Seconds()
			if span == 0 || t.Equal(left) {
				values[i] = s.Values[j]
			} else if t.Equal(right) {
				values[i] = s.Values[j+1]
			} else {
				frac := t.Sub(left).Seconds() / span
				values[i] = s.Values[j] + frac*(s.Values[j+1]-s.Values[j])
			}
		case t.Before(s.Timestamps[0]):
			values[i] = s.Values[0]
		default:
			values[i] = s.Values[s.Len()-1]
		}
	}
	return values
}
