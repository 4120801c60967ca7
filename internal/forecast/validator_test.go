package forecast

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

func TestValidate_ARIMA(t *testing.T) {
	prep := preparedFrom(map[string][]float64{"trend": trendValues(100)})
	engine := NewEngine(testConfig(), testLogger())
	spec := models.ModelSpec{Family: models.FamilyARIMA, P: 1, D: 1, Q: 0, Variables: []string{"trend"}}

	report, err := NewValidator(testConfig(), testLogger()).Validate(context.Background(), prep, spec, engine)
	require.NoError(t, err)

	// 10% of 100 observations held out
	assert.Equal(t, 10, report.HoldoutSize)
	require.Len(t, report.Metrics, 1)
	assert.Equal(t, "trend", report.Metrics[0].Variable)
	assert.GreaterOrEqual(t, report.Metrics[0].MAPE, 0.0)
	assert.GreaterOrEqual(t, report.Metrics[0].RMSE, 0.0)

	assert.True(t, report.HealthScore.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, report.HealthScore.LessThanOrEqual(decimal.NewFromInt(100)))
	assert.Equal(t, report.HealthScore.GreaterThanOrEqual(decimal.NewFromInt(50)), report.Passed)
}

func TestValidate_VARPerVariableMetrics(t *testing.T) {
	x, y := correlatedPair(60)
	prep := preparedFrom(map[string][]float64{"deal_volume": x, "valuations": y})
	engine := NewEngine(testConfig(), testLogger())
	spec := models.ModelSpec{Family: models.FamilyVAR, P: 1, Variables: []string{"deal_volume", "valuations"}}

	report, err := NewValidator(testConfig(), testLogger()).Validate(context.Background(), prep, spec, engine)
	require.NoError(t, err)

	assert.Equal(t, 6, report.HoldoutSize)
	require.Len(t, report.Metrics, 2)
	names := []string{report.Metrics[0].Variable, report.Metrics[1].Variable}
	assert.ElementsMatch(t, []string{"deal_volume", "valuations"}, names)
}

func TestValidate_InsufficientHoldout(t *testing.T) {
	// 11 observations: holdout 1 leaves 10, fine at min 10; raise the
	// minimum so the same data fails
	cfg := testConfig()
	cfg.MinObservations = 11
	prep := preparedFrom(map[string][]float64{"trend": trendValues(11)})
	engine := NewEngine(cfg, testLogger())
	spec := models.ModelSpec{Family: models.FamilyARIMA, P: 0, D: 0, Q: 0, Variables: []string{"trend"}}

	_, err := NewValidator(cfg, testLogger()).Validate(context.Background(), prep, spec, engine)
	var holdoutErr *utils.InsufficientHoldoutError
	require.ErrorAs(t, err, &holdoutErr)
	assert.Equal(t, 1, holdoutErr.Holdout)
	assert.Equal(t, 10, holdoutErr.Remaining)
	assert.Equal(t, 11, holdoutErr.Required)
}

func TestValidate_MinimumHoldoutIsOne(t *testing.T) {
	// round(12 * 0.1) = 1
	prep := preparedFrom(map[string][]float64{"trend": trendValues(12)})
	engine := NewEngine(testConfig(), testLogger())
	spec := models.ModelSpec{Family: models.FamilyARIMA, P: 0, D: 1, Q: 0, Variables: []string{"trend"}}

	report, err := NewValidator(testConfig(), testLogger()).Validate(context.Background(), prep, spec, engine)
	require.NoError(t, err)
	assert.Equal(t, 1, report.HoldoutSize)
}

func TestAccuracyMetrics(t *testing.T) {
	vf := models.VariableForecast{
		Variable: "x",
		Path: []models.ForecastPoint{
			{Point: 10}, {Point: 20}, {Point: 30},
		},
	}
	m := accuracyMetrics(vf, []float64{10, 25, 30})
	assert.Equal(t, "x", m.Variable)
	// only the middle point errs, by 5 on an actual of 25
	assert.InDelta(t, 100.0/3.0*(5.0/25.0), m.MAPE, 1e-9)
	assert.InDelta(t, 5.0/1.7320508, m.RMSE, 1e-6)
}
