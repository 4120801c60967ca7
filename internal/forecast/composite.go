package forecast

import (
	"fmt"

	"github.com/dealpulse/ma-health-go/internal/models"
)

// CompositeName is the variable name of the weighted composite index.
const CompositeName = "Composite"

// Composite builds the weighted composite index from an aligned set.
// Missing weights default to an equal share; variables not present in the
// set are rejected. The composite is the sum of the weighted members, the
// headline M&A health number.
func Composite(set *models.SeriesSet, weights map[string]float64) (*models.TimeSeries, error) {
	n := set.AlignedLen()
	if n <= 0 {
		return nil, fmt.Errorf("composite requires an aligned series set")
	}

	names := set.Names()
	if weights == nil {
		weights = make(map[string]float64, len(names))
		for _, name := range names {
			weights[name] = 1.0 / float64(len(names))
		}
	}
	for name := range weights {
		if _, ok := set.Series[name]; !ok {
			return nil, fmt.Errorf("composite weight for unknown variable %q", name)
		}
	}

	values := make([]float64, n)
	for name, w := range weights {
		s := set.Series[name]
		for t := 0; t < n; t++ {
			values[t] += w * s.Values[t]
		}
	}

	return &models.TimeSeries{
		Name:       CompositeName,
		Timestamps: set.Index(),
		Values:     values,
	}, nil
}

// Reduce collapses a multi-variable prepared set to its composite index,
// used when multivariate modeling is disabled. The composite gets its own
// differencing order, determined from the combined series.
func Reduce(prep *PreparedSet, weights map[string]float64, maxD int) (*PreparedSet, error) {
	composite, err := Composite(prep.Set, weights)
	if err != nil {
		return nil, err
	}
	set := models.NewSeriesSet()
	set.Add(composite)
	return &PreparedSet{
		Set:       set,
		Interval:  prep.Interval,
		DiffOrder: map[string]int{CompositeName: requiredDifferencing(composite.Values, maxD)},
	}, nil
}
