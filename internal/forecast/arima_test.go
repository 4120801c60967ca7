package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitARIMA_WhiteNoise(t *testing.T) {
	values := arValues(60, 0)
	m, err := fitARIMA(values, 0, 0, 0)
	require.NoError(t, err)

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	assert.InDelta(t, mean, m.intercept, 1e-9)
	assert.Greater(t, m.variance, 0.0)

	points, se, err := m.forecast(4)
	require.NoError(t, err)
	require.Len(t, points, 4)
	for i := range points {
		assert.InDelta(t, mean, points[i], 1e-9)
		assert.InDelta(t, se[0], se[i], 1e-9)
	}
}

func TestFitARIMA_LinearTrendIntegrated(t *testing.T) {
	// perfectly linear: first difference is the constant 1
	values := make([]float64, 50)
	for i := range values {
		values[i] = float64(i + 1)
	}
	m, err := fitARIMA(values, 0, 1, 0)
	require.NoError(t, err)

	points, _, err := m.forecast(3)
	require.NoError(t, err)
	assert.InDelta(t, 51, points[0], 1e-6)
	assert.InDelta(t, 52, points[1], 1e-6)
	assert.InDelta(t, 53, points[2], 1e-6)
}

func TestFitARIMA_QuadraticTwiceIntegrated(t *testing.T) {
	// exact quadratic: the second difference is the constant 2, so the
	// forecast must continue the squares exactly
	values := make([]float64, 12)
	for i := range values {
		values[i] = float64(i * i)
	}
	m, err := fitARIMA(values, 0, 2, 0)
	require.NoError(t, err)

	points, _, err := m.forecast(2)
	require.NoError(t, err)
	assert.InDelta(t, 144, points[0], 1e-9)
	assert.InDelta(t, 169, points[1], 1e-9)
}

func TestFitARIMA_WideningIntervals(t *testing.T) {
	m, err := fitARIMA(trendValues(100), 1, 1, 0)
	require.NoError(t, err)

	_, se, err := m.forecast(6)
	require.NoError(t, err)
	require.Len(t, se, 6)
	for i := 1; i < len(se); i++ {
		assert.Greater(t, se[i], se[i-1], "standard error must widen at step %d", i)
	}
}

func TestFitARIMA_Deterministic(t *testing.T) {
	values := arValues(80, 0.6)
	a, err := fitARIMA(values, 2, 0, 1)
	require.NoError(t, err)
	b, err := fitARIMA(values, 2, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, a.arCoeffs, b.arCoeffs)
	assert.Equal(t, a.maCoeffs, b.maCoeffs)
	assert.Equal(t, a.aic, b.aic)

	pa, sa, err := a.forecast(12)
	require.NoError(t, err)
	pb, sb, err := b.forecast(12)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, sa, sb)
}

func TestFitARIMA_TooFewObservations(t *testing.T) {
	_, err := fitARIMA([]float64{1, 2, 3}, 2, 1, 2)
	assert.Error(t, err)
}

func TestARIMAPsiWeights(t *testing.T) {
	m, err := fitARIMA(arValues(60, 0.5), 1, 0, 0)
	require.NoError(t, err)

	psi := m.psiWeights(5)
	require.Len(t, psi, 5)
	assert.Equal(t, 1.0, psi[0])
	// AR(1): psi_j = phi^j
	phi := m.arCoeffs[0]
	assert.InDelta(t, phi, psi[1], 1e-9)
	assert.InDelta(t, phi*phi, psi[2], 1e-9)
}
