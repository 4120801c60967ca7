package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/services"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

// IndicatorLister exposes the catalog of stored indicators.
type IndicatorLister interface {
	ListIndicators(ctx context.Context) ([]string, error)
}

// ForecastRunner runs the forecasting pipeline.
type ForecastRunner interface {
	Run(ctx context.Context, req services.ForecastRequest) (*services.ForecastResponse, error)
}

// ForecastHandler serves the forecast API.
type ForecastHandler struct {
	service ForecastRunner
	lister  IndicatorLister
	logger  *logrus.Logger
}

func NewForecastHandler(service ForecastRunner, lister IndicatorLister, logger *logrus.Logger) *ForecastHandler {
	return &ForecastHandler{service: service, lister: lister, logger: logger}
}

// observation is one input data point in a forecast request.
type observation struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Value     float64   `json:"value"`
}

// forecastRequest is the POST /forecast body. Series carries inline data;
// alternatively the named indicators are loaded from storage.
type forecastRequest struct {
	Series          map[string][]observation `json:"series"`
	Indicators      []string                 `json:"indicators"`
	From            time.Time                `json:"from"`
	To              time.Time                `json:"to"`
	Horizon         int                      `json:"horizon"`
	ConfidenceLevel float64                  `json:"confidence_level"`
}

// RunForecast handles POST /api/v1/forecast.
func (h *ForecastHandler) RunForecast(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Series) == 0 && len(req.Indicators) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must name indicators or carry series data"})
		return
	}

	svcReq := services.ForecastRequest{
		Indicators:      req.Indicators,
		From:            req.From,
		To:              req.To,
		Horizon:         req.Horizon,
		ConfidenceLevel: req.ConfidenceLevel,
	}
	if len(req.Series) > 0 {
		set := models.NewSeriesSet()
		for name, obs := range req.Series {
			points := make([]models.Point, len(obs))
			for i, o := range obs {
				points[i] = models.Point{Timestamp: o.Timestamp, Value: o.Value}
			}
			set.Add(models.NewTimeSeries(name, points))
		}
		svcReq.Series = set
	}

	resp, err := h.service.Run(c.Request.Context(), svcReq)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListIndicators handles GET /api/v1/indicators.
func (h *ForecastHandler) ListIndicators(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "indicator storage not configured"})
		return
	}
	names, err := h.lister.ListIndicators(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list indicators")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list indicators"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indicators": names})
}

// writeError maps the pipeline error taxonomy to HTTP statuses: bad request
// for malformed input, unprocessable entity for data-quality failures,
// internal server error for model failures.
func (h *ForecastHandler) writeError(c *gin.Context, err error) {
	var (
		horizonErr     *utils.InvalidHorizonError
		dataErr        *utils.InsufficientDataError
		missingErr     *utils.AllMissingError
		holdoutErr     *utils.InsufficientHoldoutError
		selectionErr   *utils.ModelSelectionError
		convergenceErr *utils.FitConvergenceError
	)
	switch {
	case errors.As(err, &horizonErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &dataErr), errors.As(err, &missingErr), errors.As(err, &holdoutErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &selectionErr), errors.As(err, &convergenceErr):
		h.logger.WithError(err).Error("Model fitting failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request canceled"})
	default:
		h.logger.WithError(err).Error("Forecast request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
