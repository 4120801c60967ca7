package forecast

import (
	"errors"
	"math"
)

// arimaModel is a fitted ARIMA(p,d,q) model estimated by conditional sum of
// squares: Yule-Walker starting values for the AR part, then gradient
// refinement of the AR and MA coefficients.
type arimaModel struct {
	p, d, q int

	arCoeffs  []float64
	maCoeffs  []float64
	intercept float64
	variance  float64
	aic       float64
	logLik    float64

	diffData  []float64
	diffTails []float64 // last value of each differencing stage, order 0..d-1
	residuals []float64
}

// fitARIMA fits an ARIMA model on the given values. The returned model is
// deterministic for fixed inputs and orders.
func fitARIMA(values []float64, p, d, q int) (*arimaModel, error) {
	if len(values) < p+q+d+5 {
		return nil, errors.New("insufficient data points for the specified order")
	}

	m := &arimaModel{
		p: p, d: d, q: q,
		arCoeffs:  make([]float64, p),
		maCoeffs:  make([]float64, q),
		diffTails: make([]float64, 0, d),
	}

	diffed := append([]float64(nil), values...)
	for i := 0; i < d; i++ {
		m.diffTails = append(m.diffTails, diffed[len(diffed)-1])
		diffed = diff(diffed)
		if len(diffed) == 0 {
			return nil, errors.New("differencing resulted in empty series")
		}
	}
	m.diffData = diffed

	if err := m.fitCSS(); err != nil {
		return nil, err
	}
	m.calculateIC()

	if !allFinite(m.arCoeffs) || !allFinite(m.maCoeffs) ||
		math.IsNaN(m.variance) || math.IsInf(m.variance, 0) || m.variance < 0 {
		return nil, errors.New("parameter estimation did not converge")
	}
	return m, nil
}

func (m *arimaModel) fitCSS() error {
	y := m.diffData
	n := len(y)

	if m.p == 0 && m.q == 0 {
		// White noise around a constant level.
		mean := 0.0
		for _, v := range y {
			mean += v
		}
		m.intercept = mean / float64(n)
		m.residuals = make([]float64, n)
		sse := 0.0
		for i, v := range y {
			m.residuals[i] = v - m.intercept
			sse += m.residuals[i] * m.residuals[i]
		}
		if n > 1 {
			m.variance = sse / float64(n-1)
		} else {
			m.variance = sse
		}
		return nil
	}

	if m.p > 0 {
		if acfVals := acf(y, m.p); acfVals != nil {
			if phi := yuleWalker(acfVals, m.p); phi != nil {
				copy(m.arCoeffs, phi)
			}
		}
	}
	for i := range m.maCoeffs {
		m.maCoeffs[i] = 0.1
	}

	return m.optimizeCSS()
}

// optimizeCSS refines parameters by gradient descent on the conditional sum
// of squares, with stationarity/invertibility bounds on the coefficients.
func (m *arimaModel) optimizeCSS() error {
	y := m.diffData
	n := len(y)
	p, q := m.p, m.q

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.intercept = mean / float64(n)

	const (
		maxIter      = 100
		tolerance    = 1e-6
		learningRate = 0.01
	)

	startIdx := p
	if q > startIdx {
		startIdx = q
	}

	residuals := make([]float64, n)
	computeResiduals := func() float64 {
		sse := 0.0
		for t := 0; t < n; t++ {
			if t < startIdx {
				residuals[t] = y[t] - m.intercept
				continue
			}
			pred := m.intercept
			for i := 0; i < p && t-i-1 >= 0; i++ {
				pred += m.arCoeffs[i] * (y[t-i-1] - m.intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				pred += m.maCoeffs[i] * residuals[t-i-1]
			}
			residuals[t] = y[t] - pred
			sse += residuals[t] * residuals[t]
		}
		return sse
	}

	prevSSE := computeResiduals()
	for iter := 0; iter < maxIter; iter++ {
		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		for i := 0; i < p; i++ {
			m.arCoeffs[i] -= learningRate * arGrad[i] / float64(n)
			m.arCoeffs[i] = math.Max(-0.99, math.Min(0.99, m.arCoeffs[i]))
		}
		for i := 0; i < q; i++ {
			m.maCoeffs[i] -= learningRate * maGrad[i] / float64(n)
			m.maCoeffs[i] = math.Max(-0.99, math.Min(0.99, m.maCoeffs[i]))
		}

		newSSE := computeResiduals()
		if math.Abs(prevSSE-newSSE) < tolerance {
			break
		}
		prevSSE = newSSE
	}

	m.residuals = residuals

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += residuals[t] * residuals[t]
		count++
	}
	if count <= 0 {
		return errors.New("no usable residuals for variance estimate")
	}
	if count > p+q+1 {
		m.variance = sse / float64(count-p-q-1)
	} else {
		m.variance = sse / float64(count)
	}
	return nil
}

func (m *arimaModel) calculateIC() {
	n := len(m.residuals)
	k := m.p + m.q + 1

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.variance > 0 {
		m.logLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.variance) - sse/(2*m.variance)
	} else {
		m.logLik = math.Inf(-1)
	}
	m.aic = -2*m.logLik + 2*float64(k)
}

// forecast produces steps-ahead point forecasts on the original scale and
// the standard error of each step's forecast distribution. Standard errors
// accumulate psi weights, so they are nondecreasing in the step index.
func (m *arimaModel) forecast(steps int) (points, se []float64, err error) {
	if steps < 1 {
		return nil, nil, errors.New("steps must be at least 1")
	}

	y := m.diffData
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.intercept
		for i := 0; i < m.p && t-i-1 >= 0; i++ {
			pred += m.arCoeffs[i] * (extY[t-i-1] - m.intercept)
		}
		// Future residuals have expectation zero.
		for i := 0; i < m.q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.maCoeffs[i] * extResiduals[t-i-1]
		}
		extY[t] = pred
		extResiduals[t] = 0
	}

	points = append([]float64(nil), extY[n:]...)
	if m.d > 0 {
		points = m.integrate(points)
	}

	psi := m.psiWeights(steps)
	se = make([]float64, steps)
	cum := 0.0
	for h := 0; h < steps; h++ {
		cum += psi[h] * psi[h]
		se[h] = math.Sqrt(m.variance * cum)
	}
	return points, se, nil
}

// psiWeights computes the first `steps` MA-infinity weights of the ARIMA
// process: the ARMA psi recursion, cumulated once per differencing order.
func (m *arimaModel) psiWeights(steps int) []float64 {
	psi := make([]float64, steps)
	psi[0] = 1
	for j := 1; j < steps; j++ {
		v := 0.0
		if j <= m.q {
			v += m.maCoeffs[j-1]
		}
		for i := 1; i <= m.p && i <= j; i++ {
			v += m.arCoeffs[i-1] * psi[j-i]
		}
		psi[j] = v
	}
	for d := 0; d < m.d; d++ {
		for j := 1; j < steps; j++ {
			psi[j] += psi[j-1]
		}
	}
	return psi
}

// integrate undoes differencing to return forecasts on the original scale.
// Each pass cumulates from the tail of the matching differenced training
// series, innermost order first, so d=2 reconstructs through the first
// difference before reaching the level scale.
func (m *arimaModel) integrate(forecasts []float64) []float64 {
	result := append([]float64(nil), forecasts...)
	for i := m.d - 1; i >= 0; i-- {
		lastVal := m.diffTails[i]
		for j := range result {
			if j == 0 {
				result[j] += lastVal
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}
