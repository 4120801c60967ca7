package forecast

import "math"

// ADFResult holds the outcome of an Augmented Dickey-Fuller unit-root test.
// The null hypothesis is that the series has a unit root; a p-value below
// 0.05 rejects the null, i.e. the series is stationary.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	IsStationary bool
}

// adfTest performs the ADF regression with a constant term:
//
//	delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i}) + eps
//
// testing beta = 0 (unit root) against beta < 0 (stationary). maxLag <= 0
// selects the default floor((n-1)^(1/3)). Smooth series make the
// lagged-difference columns collinear, so a degenerate regression retries
// with progressively fewer augmentation lags before giving up. Returns nil
// when no lag order yields a usable regression.
func adfTest(values []float64, maxLag int) *ADFResult {
	n := len(values)
	if n < 10 {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	d := diff(values)
	for lag := maxLag; lag >= 0; lag-- {
		if result := adfRegression(values, d, lag); result != nil {
			return result
		}
	}
	return nil
}

// adfRegression runs the test regression at a fixed augmentation lag order.
// Returns nil when the design matrix is singular or the fit is degenerate.
func adfRegression(values, d []float64, lag int) *ADFResult {
	n := len(values)
	nObs := n - lag - 1
	if nObs < 10 {
		return nil
	}

	y := make([]float64, nObs)
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + lag
		y[i] = d[t]

		// x[i] = [1, y_{t-1}, delta_y_{t-1}, ..., delta_y_{t-lag}]
		x[i] = make([]float64, 2+lag)
		x[i][0] = 1
		x[i][1] = values[t]
		for j := 1; j <= lag; j++ {
			x[i][1+j] = d[t-j]
		}
	}

	coeffs, se := olsRegression(x, y)
	if coeffs == nil || se == nil || len(coeffs) < 2 || len(se) < 2 || se[1] == 0 {
		return nil
	}

	// A near-perfect fit means the series follows a deterministic
	// recurrence at this lag order and the t statistic is numerical noise.
	sse, tss := 0.0, 0.0
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(nObs)
	for i := 0; i < nObs; i++ {
		pred := 0.0
		for j := range coeffs {
			pred += coeffs[j] * x[i][j]
		}
		r := y[i] - pred
		sse += r * r
		dev := y[i] - yMean
		tss += dev * dev
	}
	// With an intercept column a valid fit never beats machine precision or
	// loses to the plain mean; either extreme marks a broken design matrix.
	if tss <= 0 || sse <= 1e-12*tss || sse >= tss {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic:    tStat,
		PValue:       pValue,
		Lags:         lag,
		NObs:         nObs,
		IsStationary: pValue < 0.05,
	}
}

// mackinnonPValue approximates the ADF p-value for the constant-only
// regression by interpolating the MacKinnon (1994) critical-value bands.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// requiredDifferencing returns the differencing order d needed to
// stationarize the series, capped at maxD. The series itself is never
// altered here; callers record d on the model spec. An inconclusive test
// stops the ladder: differencing is only added on evidence of a unit root,
// never on a regression that could not be run.
func requiredDifferencing(values []float64, maxD int) int {
	current := values
	for d := 0; d < maxD; d++ {
		result := adfTest(current, 0)
		if result == nil || result.IsStationary {
			return d
		}
		current = diff(current)
		if len(current) < 10 {
			return d
		}
	}
	return maxD
}
