package forecast

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

// Candidate is a fittable model order with its information-criterion score.
type Candidate struct {
	Spec models.ModelSpec
	AIC  float64
}

// Selector chooses the model family and order for a prepared set: ARIMA for
// a single variable, VAR when several variables are modeled jointly. Orders
// are ranked by AIC over a bounded grid; ties break toward the smaller
// parameter count.
type Selector struct {
	cfg    config.ForecastConfig
	logger *logrus.Logger
}

// NewSelector creates a selector bound to the pipeline configuration.
func NewSelector(cfg config.ForecastConfig, logger *logrus.Logger) *Selector {
	return &Selector{cfg: cfg, logger: logger}
}

// Select returns the ranked candidate list, best first. The engine consumes
// the head and falls back to a simpler candidate on non-convergence.
func (s *Selector) Select(ctx context.Context, prep *PreparedSet) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := prep.Set.Names()
	if len(names) == 1 || !s.cfg.Multivariate {
		return s.selectARIMA(prep, names[0])
	}
	return s.selectVAR(prep, names)
}

func (s *Selector) selectARIMA(prep *PreparedSet, name string) ([]Candidate, error) {
	series := prep.Set.Series[name]
	if series.Variance() == 0 {
		return nil, utils.NewModelSelectionError(string(models.FamilyARIMA),
			"series %q is constant", name)
	}

	d := prep.DiffOrder[name]
	var candidates []Candidate
	for p := 0; p <= s.cfg.MaxP; p++ {
		for q := 0; q <= s.cfg.MaxQ; q++ {
			m, err := fitARIMA(series.Values, p, d, q)
			if err != nil {
				continue
			}
			candidates = append(candidates, Candidate{
				Spec: models.ModelSpec{
					Family:    models.FamilyARIMA,
					P:         p,
					D:         d,
					Q:         q,
					Variables: []string{name},
				},
				AIC: m.aic,
			})
		}
	}
	if len(candidates) == 0 {
		return nil, utils.NewModelSelectionError(string(models.FamilyARIMA),
			"no candidate order converged for %q", name)
	}

	rankCandidates(candidates)
	best := candidates[0]
	s.logger.WithFields(logrus.Fields{
		"family":     best.Spec.Family,
		"p":          best.Spec.P,
		"d":          best.Spec.D,
		"q":          best.Spec.Q,
		"aic":        best.AIC,
		"candidates": len(candidates),
	}).Info("Model order selected")
	return candidates, nil
}

func (s *Selector) selectVAR(prep *PreparedSet, names []string) ([]Candidate, error) {
	for _, name := range names {
		if prep.Set.Series[name].Variance() == 0 {
			return nil, utils.NewModelSelectionError(string(models.FamilyVAR),
				"series %q is constant", name)
		}
	}

	data := prep.Set.Matrix()
	var candidates []Candidate
	for lag := 1; lag <= s.cfg.MaxVARLag; lag++ {
		m, err := fitVAR(data, lag)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Spec: models.ModelSpec{
				Family:    models.FamilyVAR,
				P:         lag,
				Variables: append([]string(nil), names...),
			},
			AIC: m.aic,
		})
	}
	if len(candidates) == 0 {
		return nil, utils.NewModelSelectionError(string(models.FamilyVAR),
			"no lag order converged for %d variables (degenerate or singular covariance)", len(names))
	}

	rankCandidates(candidates)
	best := candidates[0]
	s.logger.WithFields(logrus.Fields{
		"family":     best.Spec.Family,
		"lag":        best.Spec.P,
		"variables":  len(names),
		"aic":        best.AIC,
		"candidates": len(candidates),
	}).Info("Model order selected")
	return candidates, nil
}

// rankCandidates sorts by AIC ascending, ties broken by the smaller total
// parameter count (prefer the simpler model).
func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AIC != candidates[j].AIC {
			return candidates[i].AIC < candidates[j].AIC
		}
		return candidates[i].Spec.ParamCount() < candidates[j].Spec.ParamCount()
	})
}
