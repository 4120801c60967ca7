package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

func fitTrend(t *testing.T, n int) (*PreparedSet, FittedModel) {
	t.Helper()
	prep := preparedFrom(map[string][]float64{"trend": trendValues(n)})
	engine := NewEngine(testConfig(), testLogger())
	candidates, err := NewSelector(testConfig(), testLogger()).Select(context.Background(), prep)
	require.NoError(t, err)
	fitted, err := engine.Fit(context.Background(), prep, candidates)
	require.NoError(t, err)
	return prep, fitted
}

func TestEngine_TrendForecastWidens(t *testing.T) {
	prep, fitted := fitTrend(t, 100)
	require.Equal(t, models.FamilyARIMA, fitted.Spec().Family)
	assert.GreaterOrEqual(t, fitted.Spec().D, 1)

	result, err := fitted.Forecast(6, 0.95)
	require.NoError(t, err)
	require.Len(t, result.Variables, 1)

	path := result.Variables[0].Path
	require.Len(t, path, 6)
	for i, fp := range path {
		assert.Less(t, fp.Lower, fp.Point)
		assert.Greater(t, fp.Upper, fp.Point)
		// the fixed 80% band nests inside the requested 95% band
		assert.Greater(t, fp.InnerLower, fp.Lower)
		assert.Less(t, fp.InnerUpper, fp.Upper)
		// future timestamps continue the aligned index
		expected := prep.LastTimestamp().Add(time.Duration(i+1) * prep.Interval)
		assert.Equal(t, expected, fp.Timestamp)
	}
	// intervals widen with the horizon
	for i := 1; i < len(path); i++ {
		prev := path[i-1].Upper - path[i-1].Lower
		curr := path[i].Upper - path[i].Lower
		assert.Greater(t, curr, prev, "interval must widen at step %d", i)
	}
}

func TestEngine_InvalidHorizon(t *testing.T) {
	_, fitted := fitTrend(t, 60)

	_, err := fitted.Forecast(0, 0.95)
	var horizonErr *utils.InvalidHorizonError
	require.ErrorAs(t, err, &horizonErr)

	_, err = fitted.Forecast(-3, 0.95)
	require.ErrorAs(t, err, &horizonErr)
}

func TestEngine_HorizonOne(t *testing.T) {
	_, fitted := fitTrend(t, 60)
	result, err := fitted.Forecast(1, 0.95)
	require.NoError(t, err)
	assert.Len(t, result.Variables[0].Path, 1)
}

func TestEngine_Deterministic(t *testing.T) {
	_, a := fitTrend(t, 80)
	_, b := fitTrend(t, 80)

	ra, err := a.Forecast(12, 0.95)
	require.NoError(t, err)
	rb, err := b.Forecast(12, 0.95)
	require.NoError(t, err)
	assert.Equal(t, ra.Variables, rb.Variables)
}

func TestEngine_WiderLevelWiderInterval(t *testing.T) {
	_, fitted := fitTrend(t, 80)

	narrow, err := fitted.Forecast(6, 0.80)
	require.NoError(t, err)
	wide, err := fitted.Forecast(6, 0.99)
	require.NoError(t, err)

	for i := range narrow.Variables[0].Path {
		nw := narrow.Variables[0].Path[i].Upper - narrow.Variables[0].Path[i].Lower
		ww := wide.Variables[0].Path[i].Upper - wide.Variables[0].Path[i].Lower
		assert.Greater(t, ww, nw)
	}
}

func TestEngine_VARForecast(t *testing.T) {
	x, y := correlatedPair(60)
	prep := preparedFrom(map[string][]float64{"deal_volume": x, "valuations": y})
	engine := NewEngine(testConfig(), testLogger())
	candidates, err := NewSelector(testConfig(), testLogger()).Select(context.Background(), prep)
	require.NoError(t, err)
	fitted, err := engine.Fit(context.Background(), prep, candidates)
	require.NoError(t, err)
	require.Equal(t, models.FamilyVAR, fitted.Spec().Family)

	result, err := fitted.Forecast(6, 0.95)
	require.NoError(t, err)
	require.Len(t, result.Variables, 2)
	for _, vf := range result.Variables {
		assert.Len(t, vf.Path, 6)
	}
	assert.NotNil(t, result.Variable("deal_volume"))
	assert.NotNil(t, result.Variable("valuations"))
	assert.Nil(t, result.Variable("unknown"))
}

func TestEngine_FallbackOnBadCandidate(t *testing.T) {
	prep := preparedFrom(map[string][]float64{"trend": trendValues(60)})
	engine := NewEngine(testConfig(), testLogger())

	candidates := []Candidate{
		{Spec: models.ModelSpec{Family: models.FamilyARIMA, P: 2, Q: 2, Variables: []string{"missing"}}, AIC: 1},
		{Spec: models.ModelSpec{Family: models.FamilyARIMA, P: 0, D: 1, Q: 0, Variables: []string{"trend"}}, AIC: 2},
	}
	fitted, err := engine.Fit(context.Background(), prep, candidates)
	require.NoError(t, err)
	assert.Equal(t, "trend", fitted.Spec().Variables[0])
}

func TestEngine_ConvergenceErrorAfterFallback(t *testing.T) {
	prep := preparedFrom(map[string][]float64{"trend": trendValues(60)})
	engine := NewEngine(testConfig(), testLogger())

	candidates := []Candidate{
		{Spec: models.ModelSpec{Family: models.FamilyARIMA, P: 2, Q: 2, Variables: []string{"missing"}}, AIC: 1},
		{Spec: models.ModelSpec{Family: models.FamilyARIMA, P: 1, Q: 0, Variables: []string{"also_missing"}}, AIC: 2},
	}
	_, err := engine.Fit(context.Background(), prep, candidates)
	var convErr *utils.FitConvergenceError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 2, convErr.Attempts)
}
