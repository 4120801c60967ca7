package forecast

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

// innerLevel is the fixed confidence level of the secondary band emitted on
// every forecast point, regardless of the requested level.
const innerLevel = 0.80

// FittedModel is a trained model ready to produce point forecasts with
// confidence intervals. Implementations are deterministic: the same training
// data and horizon always yield the same output.
type FittedModel interface {
	Spec() models.ModelSpec
	Forecast(horizon int, level float64) (*models.ForecastResult, error)
}

// Engine fits the selected model order to prepared data and hands back a
// FittedModel. A non-converging head candidate triggers exactly one fallback
// to a simpler candidate from the ranked list.
type Engine struct {
	cfg    config.ForecastConfig
	logger *logrus.Logger
}

// NewEngine creates an engine bound to the pipeline configuration.
func NewEngine(cfg config.ForecastConfig, logger *logrus.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Fit trains the best-ranked candidate. If fitting fails it retries once with
// the next simpler candidate (lower parameter count, falling back to rank
// order) and returns FitConvergenceError when that also fails.
func (e *Engine) Fit(ctx context.Context, prep *PreparedSet, candidates []Candidate) (FittedModel, error) {
	if len(candidates) == 0 {
		return nil, utils.NewModelSelectionError("none", "empty candidate list")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	first := candidates[0]
	fitted, err := e.FitSpec(ctx, prep, first.Spec)
	if err == nil {
		return fitted, nil
	}
	e.logger.WithFields(logrus.Fields{
		"family": first.Spec.Family,
		"error":  err.Error(),
	}).Warn("Best candidate failed to fit, falling back")

	fallback, ok := simplerCandidate(candidates, first)
	if !ok {
		return nil, utils.NewFitConvergenceError(string(first.Spec.Family), 1, err.Error())
	}
	fitted, err = e.FitSpec(ctx, prep, fallback.Spec)
	if err != nil {
		return nil, utils.NewFitConvergenceError(string(fallback.Spec.Family), 2, err.Error())
	}
	return fitted, nil
}

// FitSpec trains exactly the given order without fallback. The validator uses
// it to refit the production spec on the truncated training window.
func (e *Engine) FitSpec(ctx context.Context, prep *PreparedSet, spec models.ModelSpec) (FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch spec.Family {
	case models.FamilyARIMA:
		name := spec.Variables[0]
		series, ok := prep.Set.Series[name]
		if !ok {
			return nil, utils.NewModelSelectionError(string(spec.Family), "variable %q not in prepared set", name)
		}
		m, err := fitARIMA(series.Values, spec.P, spec.D, spec.Q)
		if err != nil {
			return nil, err
		}
		return &fittedARIMA{spec: spec, model: m, last: prep.LastTimestamp(), interval: prep.Interval}, nil
	case models.FamilyVAR:
		m, err := fitVAR(prep.Set.Matrix(), spec.P)
		if err != nil {
			return nil, err
		}
		return &fittedVAR{spec: spec, model: m, last: prep.LastTimestamp(), interval: prep.Interval}, nil
	default:
		return nil, utils.NewModelSelectionError(string(spec.Family), "unknown model family")
	}
}

// simplerCandidate picks the first candidate after the failed one with a
// strictly smaller parameter count, or the next-ranked candidate when none
// is simpler.
func simplerCandidate(candidates []Candidate, failed Candidate) (Candidate, bool) {
	for _, c := range candidates[1:] {
		if c.Spec.ParamCount() < failed.Spec.ParamCount() {
			return c, true
		}
	}
	if len(candidates) > 1 {
		return candidates[1], true
	}
	return Candidate{}, false
}

type fittedARIMA struct {
	spec     models.ModelSpec
	model    *arimaModel
	last     time.Time
	interval time.Duration
}

func (f *fittedARIMA) Spec() models.ModelSpec { return f.spec }

func (f *fittedARIMA) Forecast(horizon int, level float64) (*models.ForecastResult, error) {
	if horizon <= 0 {
		return nil, utils.NewInvalidHorizonError(horizon)
	}
	points, se, err := f.model.forecast(horizon)
	if err != nil {
		return nil, err
	}

	z := normalQuantile((1 + level) / 2)
	zi := normalQuantile((1 + innerLevel) / 2)
	vf := models.VariableForecast{Variable: f.spec.Variables[0]}
	for i := 0; i < horizon; i++ {
		vf.Path = append(vf.Path, models.ForecastPoint{
			Timestamp:  f.last.Add(time.Duration(i+1) * f.interval),
			Point:      points[i],
			Lower:      points[i] - z*se[i],
			Upper:      points[i] + z*se[i],
			InnerLower: points[i] - zi*se[i],
			InnerUpper: points[i] + zi*se[i],
		})
	}

	return &models.ForecastResult{
		Horizon:         horizon,
		ConfidenceLevel: level,
		Spec:            f.spec,
		Variables:       []models.VariableForecast{vf},
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

type fittedVAR struct {
	spec     models.ModelSpec
	model    *varModel
	last     time.Time
	interval time.Duration
}

func (f *fittedVAR) Spec() models.ModelSpec { return f.spec }

func (f *fittedVAR) Forecast(horizon int, level float64) (*models.ForecastResult, error) {
	if horizon <= 0 {
		return nil, utils.NewInvalidHorizonError(horizon)
	}
	points, se, err := f.model.forecast(horizon)
	if err != nil {
		return nil, err
	}

	z := normalQuantile((1 + level) / 2)
	zi := normalQuantile((1 + innerLevel) / 2)
	variables := make([]models.VariableForecast, len(f.spec.Variables))
	for k, name := range f.spec.Variables {
		vf := models.VariableForecast{Variable: name}
		for i := 0; i < horizon; i++ {
			vf.Path = append(vf.Path, models.ForecastPoint{
				Timestamp:  f.last.Add(time.Duration(i+1) * f.interval),
				Point:      points[i][k],
				Lower:      points[i][k] - z*se[i][k],
				Upper:      points[i][k] + z*se[i][k],
				InnerLower: points[i][k] - zi*se[i][k],
				InnerUpper: points[i][k] + zi*se[i][k],
			})
		}
		variables[k] = vf
	}

	return &models.ForecastResult{
		Horizon:         horizon,
		ConfidenceLevel: level,
		Spec:            f.spec,
		Variables:       variables,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}
