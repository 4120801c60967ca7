package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ModelFamily identifies the forecasting model family.
type ModelFamily string

const (
	FamilyARIMA ModelFamily = "ARIMA"
	FamilyVAR   ModelFamily = "VAR"
)

// ModelSpec describes a chosen model: family, order parameters and the
// variables it applies to. Immutable once produced by the selector.
type ModelSpec struct {
	Family    ModelFamily `json:"family"`
	P         int         `json:"p"`
	D         int         `json:"d,omitempty"`
	Q         int         `json:"q,omitempty"`
	Variables []string    `json:"variables"`
}

// ParamCount returns the total parameter count, the tie-break criterion in
// model selection (simpler model wins).
func (m ModelSpec) ParamCount() int {
	switch m.Family {
	case FamilyVAR:
		k := len(m.Variables)
		return k * (1 + k*m.P)
	default:
		return m.P + m.Q + 1
	}
}

// ForecastPoint is one forecasted step for one variable. Lower/Upper bound
// the requested confidence level; InnerLower/InnerUpper always bound the
// 80% level, emitted alongside for chart shading.
type ForecastPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Point      float64   `json:"point"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	InnerLower float64   `json:"inner_lower"`
	InnerUpper float64   `json:"inner_upper"`
}

// VariableForecast is the forecast path of a single variable.
type VariableForecast struct {
	Variable string          `json:"variable"`
	Path     []ForecastPoint `json:"path"`
}

// ForecastResult is the unit exchanged with the narrative bridge: the
// forecast horizon with uncertainty bounds, the model that produced it and
// the back-test health score.
type ForecastResult struct {
	RequestID       string             `json:"request_id"`
	Horizon         int                `json:"horizon"`
	ConfidenceLevel float64            `json:"confidence_level"`
	Spec            ModelSpec          `json:"model_spec"`
	Variables       []VariableForecast `json:"variables"`
	HealthScore     decimal.Decimal    `json:"health_score"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// Variable returns the forecast path for a named variable, or nil.
func (r *ForecastResult) Variable(name string) *VariableForecast {
	for i := range r.Variables {
		if r.Variables[i].Variable == name {
			return &r.Variables[i]
		}
	}
	return nil
}

// VariableMetrics holds back-test error metrics for one variable.
type VariableMetrics struct {
	Variable string  `json:"variable"`
	MAPE     float64 `json:"mape"`
	RMSE     float64 `json:"rmse"`
}

// ValidationReport summarises the back-test: per-variable error metrics and
// a 0-100 health score (lower error, higher score).
type ValidationReport struct {
	Metrics     []VariableMetrics `json:"metrics"`
	HealthScore decimal.Decimal   `json:"health_score"`
	Passed      bool              `json:"passed"`
	HoldoutSize int               `json:"holdout_size"`
}
