package forecast

import (
	"errors"
	"math"
)

// varModel is a fitted VAR(p) model over K variables, estimated equation by
// equation with OLS on the common lagged regressor matrix.
type varModel struct {
	lag int
	k   int

	// coeffs[eq] = [intercept, A_1 row, ..., A_p row], each A_j row having
	// one coefficient per variable in column order.
	coeffs [][]float64
	sigma  [][]float64 // residual covariance, df-adjusted
	aic    float64

	data [][]float64 // training observations, T x K
}

// fitVAR fits a VAR(lag) model on a T x K observation matrix. The columns
// must follow the set's deterministic variable order.
func fitVAR(data [][]float64, lag int) (*varModel, error) {
	t := len(data)
	if t == 0 {
		return nil, errors.New("empty observation matrix")
	}
	k := len(data[0])
	if k < 2 {
		return nil, errors.New("VAR requires at least two variables")
	}
	if lag < 1 {
		return nil, errors.New("VAR lag must be at least 1")
	}
	nObs := t - lag
	nParams := 1 + k*lag
	if nObs <= nParams {
		return nil, errors.New("insufficient observations for the specified lag")
	}

	// Common regressor matrix: [1, y_{t-1}, ..., y_{t-lag}].
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		row := make([]float64, nParams)
		row[0] = 1
		pos := 1
		for j := 1; j <= lag; j++ {
			for c := 0; c < k; c++ {
				row[pos] = data[i+lag-j][c]
				pos++
			}
		}
		x[i] = row
	}

	m := &varModel{lag: lag, k: k, coeffs: make([][]float64, k)}
	m.data = make([][]float64, t)
	for i := range data {
		m.data[i] = append([]float64(nil), data[i]...)
	}

	residuals := make([][]float64, nObs)
	for i := range residuals {
		residuals[i] = make([]float64, k)
	}

	for eq := 0; eq < k; eq++ {
		y := make([]float64, nObs)
		for i := 0; i < nObs; i++ {
			y[i] = data[i+lag][eq]
		}
		coeffs, _ := olsRegression(x, y)
		if coeffs == nil || !allFinite(coeffs) {
			return nil, errors.New("singular regressor covariance")
		}
		m.coeffs[eq] = coeffs
		for i := 0; i < nObs; i++ {
			pred := 0.0
			for j, c := range coeffs {
				pred += c * x[i][j]
			}
			residuals[i][eq] = y[i] - pred
		}
	}

	// Residual covariance: MLE version for the information criterion,
	// df-adjusted version for forecast error variance.
	sigmaMLE := make([][]float64, k)
	m.sigma = make([][]float64, k)
	dfDenom := float64(nObs - nParams)
	for a := 0; a < k; a++ {
		sigmaMLE[a] = make([]float64, k)
		m.sigma[a] = make([]float64, k)
		for b := 0; b < k; b++ {
			sum := 0.0
			for i := 0; i < nObs; i++ {
				sum += residuals[i][a] * residuals[i][b]
			}
			sigmaMLE[a][b] = sum / float64(nObs)
			m.sigma[a][b] = sum / dfDenom
		}
	}

	logDet := logDeterminant(sigmaMLE)
	if math.IsInf(logDet, -1) {
		return nil, errors.New("singular residual covariance")
	}
	m.aic = logDet + 2*float64(k*k*lag+k)/float64(nObs)
	if math.IsNaN(m.aic) {
		return nil, errors.New("information criterion is not finite")
	}
	return m, nil
}

// lagMatrix returns the K x K coefficient matrix A_j for lag j (1-based).
func (m *varModel) lagMatrix(j int) [][]float64 {
	a := make([][]float64, m.k)
	offset := 1 + (j-1)*m.k
	for row := 0; row < m.k; row++ {
		a[row] = m.coeffs[row][offset : offset+m.k]
	}
	return a
}

// forecast produces steps-ahead point forecasts per variable and the
// standard error of each step, accumulated from the moving-average
// representation so per-variable errors are nondecreasing in the step.
func (m *varModel) forecast(steps int) (points, se [][]float64, err error) {
	if steps < 1 {
		return nil, nil, errors.New("steps must be at least 1")
	}

	// Recursive point forecasts.
	hist := make([][]float64, len(m.data), len(m.data)+steps)
	copy(hist, m.data)
	points = make([][]float64, steps)
	for h := 0; h < steps; h++ {
		next := make([]float64, m.k)
		for eq := 0; eq < m.k; eq++ {
			pred := m.coeffs[eq][0]
			pos := 1
			for j := 1; j <= m.lag; j++ {
				lagged := hist[len(hist)-j]
				for c := 0; c < m.k; c++ {
					pred += m.coeffs[eq][pos] * lagged[c]
					pos++
				}
			}
			next[eq] = pred
		}
		hist = append(hist, next)
		points[h] = next
	}

	// Psi matrices: Psi_0 = I, Psi_i = sum_{j<=min(i,lag)} Psi_{i-j} A_j.
	psis := make([][][]float64, steps)
	psis[0] = identity(m.k)
	for i := 1; i < steps; i++ {
		sum := zeros(m.k)
		for j := 1; j <= m.lag && j <= i; j++ {
			sum = matAdd(sum, matMul(psis[i-j], m.lagMatrix(j)))
		}
		psis[i] = sum
	}

	// MSE_h = sum_{i<h} Psi_i Sigma Psi_i'. Only the diagonal is needed.
	se = make([][]float64, steps)
	cumVar := make([]float64, m.k)
	for h := 0; h < steps; h++ {
		contrib := matMul(matMul(psis[h], m.sigma), transpose(psis[h]))
		row := make([]float64, m.k)
		for c := 0; c < m.k; c++ {
			cumVar[c] += contrib[c][c]
			row[c] = math.Sqrt(math.Max(cumVar[c], 0))
		}
		se[h] = row
	}
	return points, se, nil
}

func identity(n int) [][]float64 {
	m := zeros(n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

func zeros(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func matMul(a, b [][]float64) [][]float64 {
	n := len(a)
	out := zeros(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for l := 0; l < n; l++ {
				sum += a[i][l] * b[l][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func matAdd(a, b [][]float64) [][]float64 {
	n := len(a)
	out := zeros(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

func transpose(a [][]float64) [][]float64 {
	n := len(a)
	out := zeros(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}
