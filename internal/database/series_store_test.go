package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealpulse/ma-health-go/internal/models"
)

func TestSeriesStore_LoadSeriesSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"indicator", "observed_at", "value"}).
		AddRow("deal_volume", base, 42.0).
		AddRow("deal_volume", base.AddDate(0, 1, 0), 44.5).
		AddRow("valuations", base, 7.1)
	mock.ExpectQuery("SELECT indicator, observed_at, value").
		WithArgs([]string{"deal_volume", "valuations"}, base, base.AddDate(0, 2, 0)).
		WillReturnRows(rows)

	store := NewSeriesStore(mock)
	set, err := store.LoadSeriesSet(context.Background(),
		[]string{"deal_volume", "valuations"}, base, base.AddDate(0, 2, 0))
	require.NoError(t, err)

	assert.Equal(t, []string{"deal_volume", "valuations"}, set.Names())
	require.Equal(t, 2, set.Series["deal_volume"].Len())
	assert.Equal(t, 44.5, set.Series["deal_volume"].Values[1])
	assert.Equal(t, 1, set.Series["valuations"].Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesStore_LoadSeriesSet_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT indicator, observed_at, value").
		WithArgs([]string{"deal_volume"}, base, base.AddDate(1, 0, 0)).
		WillReturnRows(pgxmock.NewRows([]string{"indicator", "observed_at", "value"}))

	store := NewSeriesStore(mock)
	set, err := store.LoadSeriesSet(context.Background(), []string{"deal_volume"}, base, base.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesStore_ListIndicators(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT DISTINCT indicator").
		WillReturnRows(pgxmock.NewRows([]string{"indicator"}).
			AddRow("deal_volume").
			AddRow("valuations"))

	store := NewSeriesStore(mock)
	names, err := store.ListIndicators(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"deal_volume", "valuations"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesStore_SaveForecast(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	result := &models.ForecastResult{
		RequestID:       "req-1",
		Horizon:         6,
		ConfidenceLevel: 0.95,
		Spec:            models.ModelSpec{Family: models.FamilyARIMA, P: 1, D: 1, Variables: []string{"deal_volume"}},
		HealthScore:     decimal.NewFromFloat(61.3),
		GeneratedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO forecasts").
		WithArgs(result.RequestID, "ARIMA", result.Horizon, result.HealthScore,
			pgxmock.AnyArg(), result.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewSeriesStore(mock)
	require.NoError(t, store.SaveForecast(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}
