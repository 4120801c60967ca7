package forecast

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/models"
)

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() config.ForecastConfig {
	return config.ForecastConfig{
		MinObservations: 10,
		HoldoutFraction: 0.1,
		MaxP:            2,
		MaxD:            2,
		MaxQ:            2,
		MaxVARLag:       3,
		ConfidenceLevel: 0.95,
		DefaultHorizon:  12,
		Multivariate:    true,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// dailySeries builds a daily series starting at testBase.
func dailySeries(name string, values []float64) *models.TimeSeries {
	points := make([]models.Point, len(values))
	for i, v := range values {
		points[i] = models.Point{Timestamp: testBase.AddDate(0, 0, i), Value: v}
	}
	return models.NewTimeSeries(name, points)
}

// trendValues is a rising series with a deterministic wiggle, stationary
// after one difference.
func trendValues(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 0.5*float64(i) + 2*math.Sin(float64(i))
	}
	return values
}

// arValues simulates an AR(1) process with deterministic pseudo-noise.
func arValues(n int, phi float64) []float64 {
	values := make([]float64, n)
	prev := 0.0
	for i := range values {
		noise := math.Sin(float64(i)*12.9898) * 1.5
		prev = phi*prev + noise
		values[i] = prev + 50
	}
	return values
}

// correlatedPair builds two co-moving series: the second follows the first
// with a one-step lag.
func correlatedPair(n int) (x, y []float64) {
	x = arValues(n+1, 0.7)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		noise := math.Sin(float64(i)*78.233) * 0.8
		y[i] = 0.6*x[i] + noise + 20
	}
	return x[1:], y
}

func preparedFrom(values map[string][]float64) *PreparedSet {
	set := models.NewSeriesSet()
	for name, vals := range values {
		set.Add(dailySeries(name, vals))
	}
	prep, err := NewPreprocessor(testConfig(), testLogger()).Prepare(context.Background(), set)
	if err != nil {
		panic(err)
	}
	return prep
}
