package forecast

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

// healthPassThreshold is the minimum health score for a passing back-test.
const healthPassThreshold = 50.0

// Validator back-tests a selected spec on a held-out tail of the prepared
// data and scores the forecast accuracy as a 0-100 health score.
type Validator struct {
	cfg    config.ForecastConfig
	logger *logrus.Logger
}

// NewValidator creates a validator bound to the pipeline configuration.
func NewValidator(cfg config.ForecastConfig, logger *logrus.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logger}
}

// Validate refits the given spec with the holdout tail removed, forecasts
// over the holdout window and compares against the actuals. The holdout size
// is the configured fraction of the sample, at least one observation.
func (v *Validator) Validate(ctx context.Context, prep *PreparedSet, spec models.ModelSpec, engine *Engine) (*models.ValidationReport, error) {
	total := prep.Len()
	holdout := int(math.Round(float64(total) * v.cfg.HoldoutFraction))
	if holdout < 1 {
		holdout = 1
	}
	remaining := total - holdout
	if remaining < v.cfg.MinObservations {
		return nil, utils.NewInsufficientHoldoutError(holdout, remaining, v.cfg.MinObservations)
	}

	train := prep.Truncate(holdout)
	fitted, err := engine.FitSpec(ctx, train, spec)
	if err != nil {
		return nil, err
	}
	result, err := fitted.Forecast(holdout, v.cfg.ConfidenceLevel)
	if err != nil {
		return nil, err
	}

	metrics := make([]models.VariableMetrics, 0, len(spec.Variables))
	var mapeSum float64
	for _, vf := range result.Variables {
		actual := prep.Set.Series[vf.Variable].Values[remaining:]
		m := accuracyMetrics(vf, actual)
		mapeSum += m.MAPE
		metrics = append(metrics, m)
	}

	avgMAPE := mapeSum / float64(len(metrics))
	health := decimal.NewFromFloat(100.0 / (1.0 + avgMAPE/10.0)).Round(1)
	passed := health.GreaterThanOrEqual(decimal.NewFromFloat(healthPassThreshold))

	v.logger.WithFields(logrus.Fields{
		"family":       spec.Family,
		"holdout":      holdout,
		"avg_mape":     avgMAPE,
		"health_score": health.String(),
		"passed":       passed,
	}).Info("Back-test complete")

	return &models.ValidationReport{
		Metrics:     metrics,
		HealthScore: health,
		Passed:      passed,
		HoldoutSize: holdout,
	}, nil
}

// accuracyMetrics computes MAPE and RMSE of a variable forecast against the
// holdout actuals. Near-zero actuals are guarded with an epsilon denominator
// so a single zero observation cannot blow up the percentage error.
func accuracyMetrics(vf models.VariableForecast, actual []float64) models.VariableMetrics {
	const eps = 1e-8
	var apeSum, sqSum float64
	for i, p := range vf.Path {
		err := actual[i] - p.Point
		denom := math.Abs(actual[i])
		if denom < eps {
			denom = eps
		}
		apeSum += math.Abs(err) / denom
		sqSum += err * err
	}
	n := float64(len(vf.Path))
	return models.VariableMetrics{
		Variable: vf.Variable,
		MAPE:     100.0 * apeSum / n,
		RMSE:     math.Sqrt(sqSum / n),
	}
}
