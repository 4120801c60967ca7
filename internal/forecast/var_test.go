package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func varTestData(n int) [][]float64 {
	x, y := correlatedPair(n)
	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = []float64{x[i], y[i]}
	}
	return data
}

func TestFitVAR_Basic(t *testing.T) {
	m, err := fitVAR(varTestData(60), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, m.k)
	assert.Equal(t, 2, m.lag)
	require.Len(t, m.coeffs, 2)
	// per-equation: intercept + k*lag coefficients
	assert.Len(t, m.coeffs[0], 1+2*2)
	assert.False(t, m.aic != m.aic, "AIC must not be NaN")
}

func TestFitVAR_Forecast(t *testing.T) {
	m, err := fitVAR(varTestData(60), 1)
	require.NoError(t, err)

	points, se, err := m.forecast(6)
	require.NoError(t, err)
	require.Len(t, points, 6)
	require.Len(t, se, 6)
	for i := range points {
		assert.Len(t, points[i], 2)
		assert.Len(t, se[i], 2)
		for k := 0; k < 2; k++ {
			assert.Greater(t, se[i][k], 0.0)
		}
	}
	// forecast-error variance never shrinks with the horizon
	for i := 1; i < 6; i++ {
		for k := 0; k < 2; k++ {
			assert.GreaterOrEqual(t, se[i][k], se[i-1][k]-1e-12)
		}
	}
}

func TestFitVAR_Deterministic(t *testing.T) {
	data := varTestData(60)
	a, err := fitVAR(data, 2)
	require.NoError(t, err)
	b, err := fitVAR(data, 2)
	require.NoError(t, err)

	assert.Equal(t, a.coeffs, b.coeffs)
	pa, sa, err := a.forecast(12)
	require.NoError(t, err)
	pb, sb, err := b.forecast(12)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, sa, sb)
}

func TestFitVAR_SingleVariableRejected(t *testing.T) {
	data := make([][]float64, 40)
	vals := arValues(40, 0.5)
	for i := range data {
		data[i] = []float64{vals[i]}
	}
	_, err := fitVAR(data, 1)
	assert.Error(t, err)
}

func TestFitVAR_TooFewObservations(t *testing.T) {
	_, err := fitVAR(varTestData(5), 3)
	assert.Error(t, err)
}

func TestMatrixHelpers(t *testing.T) {
	a := [][]float64{{1, 2}, {3, 4}}
	b := [][]float64{{5, 6}, {7, 8}}

	prod := matMul(a, b)
	assert.Equal(t, [][]float64{{19, 22}, {43, 50}}, prod)

	sum := matAdd(a, b)
	assert.Equal(t, [][]float64{{6, 8}, {10, 12}}, sum)

	tr := transpose(a)
	assert.Equal(t, [][]float64{{1, 3}, {2, 4}}, tr)

	id := identity(2)
	assert.Equal(t, a, matMul(a, id))
}
