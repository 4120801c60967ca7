// Package forecast implements the numeric forecasting pipeline: series
// preprocessing, ARIMA/VAR model selection, fitting with uncertainty bounds
// and back-test validation.
package forecast

import "math"

// acf computes the autocorrelation function up to maxLag. Index 0 is always 1.
func acf(values []float64, maxLag int) []float64 {
	n := len(values)
	if n == 0 || maxLag < 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	c0 := 0.0
	for _, v := range values {
		diff := v - mean
		c0 += diff * diff
	}
	if c0 == 0 {
		return nil
	}

	result := make([]float64, maxLag+1)
	result[0] = 1
	for lag := 1; lag <= maxLag; lag++ {
		ck := 0.0
		for t := lag; t < n; t++ {
			ck += (values[t] - mean) * (values[t-lag] - mean)
		}
		result[lag] = ck / c0
	}
	return result
}

// yuleWalker estimates AR coefficients from the ACF using Levinson-Durbin
// recursion.
func yuleWalker(acfVals []float64, order int) []float64 {
	if order <= 0 || len(acfVals) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acfVals[1]
	if order == 1 {
		return phi
	}

	v := 1 - phi[0]*phi[0]
	for i := 1; i < order; i++ {
		lambda := acfVals[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acfVals[i-j]
		}
		lambda /= v

		newPhi := make([]float64, i+1)
		for j := 0; j < i; j++ {
			newPhi[j] = phi[j] - lambda*phi[i-1-j]
		}
		newPhi[i] = lambda
		copy(phi, newPhi)

		v *= 1 - lambda*lambda
		if v <= 0 {
			break
		}
	}
	return phi
}

// olsRegression performs ordinary least squares. Returns coefficients and
// their standard errors, or nils when X'X is singular.
func olsRegression(x [][]float64, y []float64) (coeffs, stdErrors []float64) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, nil
	}
	k := len(x[0])

	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			xty[j] += x[i][j] * y[i]
			for l := 0; l < k; l++ {
				xtx[j][l] += x[i][j] * x[i][l]
			}
		}
	}

	xtxInv := invertMatrix(xtx)
	if xtxInv == nil {
		return nil, nil
	}

	coeffs = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coeffs[i] += xtxInv[i][j] * xty[j]
		}
	}

	sse := 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coeffs[j] * x[i][j]
		}
		residual := y[i] - pred
		sse += residual * residual
	}

	if n <= k {
		return coeffs, nil
	}
	s2 := sse / float64(n-k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		stdErrors[i] = math.Sqrt(s2 * xtxInv[i][i])
	}
	return coeffs, stdErrors
}

// invertMatrix inverts a square matrix via Gauss-Jordan elimination.
// Returns nil for singular matrices.
func invertMatrix(m [][]float64) [][]float64 {
	n := len(m)
	if n == 0 {
		return nil
	}

	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i][:n], m[i])
		aug[i][n+i] = 1
	}

	for i := 0; i < n; i++ {
		maxRow := i
		for k := i + 1; k < n; k++ {
			if math.Abs(aug[k][i]) > math.Abs(aug[maxRow][i]) {
				maxRow = k
			}
		}
		aug[i], aug[maxRow] = aug[maxRow], aug[i]

		if math.Abs(aug[i][i]) < 1e-10 {
			return nil
		}

		pivot := aug[i][i]
		for j := 0; j < 2*n; j++ {
			aug[i][j] /= pivot
		}
		for k := 0; k < n; k++ {
			if k != i {
				factor := aug[k][i]
				for j := 0; j < 2*n; j++ {
					aug[k][j] -= factor * aug[i][j]
				}
			}
		}
	}

	result := make([][]float64, n)
	for i := 0; i < n; i++ {
		result[i] = make([]float64, n)
		copy(result[i], aug[i][n:])
	}
	return result
}

// logDeterminant computes ln|M| via LU decomposition with partial pivoting.
// Returns -Inf for singular or non-positive-determinant matrices.
func logDeterminant(m [][]float64) float64 {
	n := len(m)
	if n == 0 {
		return math.Inf(-1)
	}

	lu := make([][]float64, n)
	for i := range m {
		lu[i] = make([]float64, n)
		copy(lu[i], m[i])
	}

	sign := 1.0
	logDet := 0.0
	for i := 0; i < n; i++ {
		maxRow := i
		for k := i + 1; k < n; k++ {
			if math.Abs(lu[k][i]) > math.Abs(lu[maxRow][i]) {
				maxRow = k
			}
		}
		if maxRow != i {
			lu[i], lu[maxRow] = lu[maxRow], lu[i]
			sign = -sign
		}
		pivot := lu[i][i]
		if math.Abs(pivot) < 1e-300 {
			return math.Inf(-1)
		}
		if pivot < 0 {
			sign = -sign
		}
		logDet += math.Log(math.Abs(pivot))
		for k := i + 1; k < n; k++ {
			factor := lu[k][i] / pivot
			for j := i; j < n; j++ {
				lu[k][j] -= factor * lu[i][j]
			}
		}
	}
	if sign < 0 {
		return math.Inf(-1)
	}
	return logDet
}

// normalQuantile returns the standard normal quantile for p in (0, 1),
// using the Acklam rational approximation (relative error below 1.15e-9).
func normalQuantile(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= pHigh:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}

// diff computes the first difference of a slice.
func diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// allFinite reports whether every element is a finite number.
func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
