package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dealpulse/ma-health-go/internal/models"
)

// Querier is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SeriesStore reads indicator observations and persists forecast runs.
type SeriesStore struct {
	db Querier
}

func NewSeriesStore(db Querier) *SeriesStore {
	return &SeriesStore{db: db}
}

// LoadSeriesSet fetches the named indicators over the given window, grouped
// into one time series per indicator. Indicators with no observations in the
// window are simply absent from the result.
func (s *SeriesStore) LoadSeriesSet(ctx context.Context, indicators []string, from, to time.Time) (*models.SeriesSet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT indicator, observed_at, value
		 FROM indicator_observations
		 WHERE indicator = ANY($1) AND observed_at >= $2 AND observed_at <= $3
		 ORDER BY indicator, observed_at`,
		indicators, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	points := make(map[string][]models.Point)
	for rows.Next() {
		var (
			indicator  string
			observedAt time.Time
			value      float64
		)
		if err := rows.Scan(&indicator, &observedAt, &value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		points[indicator] = append(points[indicator], models.Point{Timestamp: observedAt, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}

	set := models.NewSeriesSet()
	for indicator, pts := range points {
		set.Add(models.NewTimeSeries(indicator, pts))
	}
	return set, nil
}

// ListIndicators returns the distinct indicator names with stored
// observations, alphabetically ordered.
func (s *SeriesStore) ListIndicators(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT indicator FROM indicator_observations ORDER BY indicator`)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveForecast persists a completed forecast run with its full payload for
// later inspection.
func (s *SeriesStore) SaveForecast(ctx context.Context, result *models.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO forecasts (request_id, model_family, horizon, health_score, payload, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.RequestID, string(result.Spec.Family), result.Horizon,
		result.HealthScore, payload, result.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to insert forecast: %w", err)
	}
	return nil
}
