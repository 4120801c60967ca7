package forecast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

func TestSelect_SingleVariableIsARIMA(t *testing.T) {
	prep := preparedFrom(map[string][]float64{"deal_volume": arValues(60, 0.6)})

	candidates, err := NewSelector(testConfig(), testLogger()).Select(context.Background(), prep)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	for _, c := range candidates {
		assert.Equal(t, models.FamilyARIMA, c.Spec.Family)
		assert.Equal(t, []string{"deal_volume"}, c.Spec.Variables)
		assert.Equal(t, prep.DiffOrder["deal_volume"], c.Spec.D)
	}
	// ranked ascending by AIC
	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i-1].AIC, candidates[i].AIC)
	}
}

func TestSelect_MultivariateIsVAR(t *testing.T) {
	x, y := correlatedPair(60)
	prep := preparedFrom(map[string][]float64{"deal_volume": x, "valuations": y})

	candidates, err := NewSelector(testConfig(), testLogger()).Select(context.Background(), prep)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	for _, c := range candidates {
		assert.Equal(t, models.FamilyVAR, c.Spec.Family)
		assert.ElementsMatch(t, []string{"deal_volume", "valuations"}, c.Spec.Variables)
		assert.GreaterOrEqual(t, c.Spec.P, 1)
		assert.LessOrEqual(t, c.Spec.P, testConfig().MaxVARLag)
	}
}

func TestSelect_MultivariateDisabledFallsBackToARIMA(t *testing.T) {
	cfg := testConfig()
	cfg.Multivariate = false
	prep := preparedFrom(map[string][]float64{"deal_volume": arValues(60, 0.6)})

	candidates, err := NewSelector(cfg, testLogger()).Select(context.Background(), prep)
	require.NoError(t, err)
	assert.Equal(t, models.FamilyARIMA, candidates[0].Spec.Family)
}

func TestSelect_ConstantSeriesRejected(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 7.5
	}
	prep := preparedFrom(map[string][]float64{"flat": values})

	_, err := NewSelector(testConfig(), testLogger()).Select(context.Background(), prep)
	var selErr *utils.ModelSelectionError
	require.ErrorAs(t, err, &selErr)
}

func TestSelect_CanceledContext(t *testing.T) {
	prep := preparedFrom(map[string][]float64{"deal_volume": arValues(60, 0.6)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSelector(testConfig(), testLogger()).Select(ctx, prep)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankCandidates_TieBreaksOnParamCount(t *testing.T) {
	candidates := []Candidate{
		{Spec: models.ModelSpec{Family: models.FamilyARIMA, P: 2, Q: 2, Variables: []string{"a"}}, AIC: 10},
		{Spec: models.ModelSpec{Family: models.FamilyARIMA, P: 1, Q: 0, Variables: []string{"a"}}, AIC: 10},
	}
	rankCandidates(candidates)
	assert.Equal(t, 1, candidates[0].Spec.P)
	assert.Equal(t, 0, candidates[0].Spec.Q)
}
