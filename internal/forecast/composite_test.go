package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealpulse/ma-health-go/internal/models"
)

func TestComposite_EqualWeights(t *testing.T) {
	set := models.NewSeriesSet()
	set.Add(dailySeries("a", []float64{10, 20, 30}))
	set.Add(dailySeries("b", []float64{30, 40, 50}))

	c, err := Composite(set, nil)
	require.NoError(t, err)
	assert.Equal(t, CompositeName, c.Name)
	assert.InDelta(t, 20, c.Values[0], 1e-9)
	assert.InDelta(t, 30, c.Values[1], 1e-9)
	assert.InDelta(t, 40, c.Values[2], 1e-9)
}

func TestComposite_ExplicitWeights(t *testing.T) {
	set := models.NewSeriesSet()
	set.Add(dailySeries("a", []float64{10, 20}))
	set.Add(dailySeries("b", []float64{100, 200}))

	c, err := Composite(set, map[string]float64{"a": 0.9, "b": 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 19, c.Values[0], 1e-9)
	assert.InDelta(t, 38, c.Values[1], 1e-9)
}

func TestComposite_UnknownWeightRejected(t *testing.T) {
	set := models.NewSeriesSet()
	set.Add(dailySeries("a", []float64{1, 2}))

	_, err := Composite(set, map[string]float64{"nope": 1})
	assert.Error(t, err)
}

func TestReduce(t *testing.T) {
	x, y := correlatedPair(40)
	prep := preparedFrom(map[string][]float64{"deal_volume": x, "valuations": y})

	reduced, err := Reduce(prep, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{CompositeName}, reduced.Set.Names())
	assert.Equal(t, prep.Len(), reduced.Len())
	assert.Equal(t, prep.Interval, reduced.Interval)
	assert.Contains(t, reduced.DiffOrder, CompositeName)
}
