package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/cache"
	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/forecast"
	"github.com/dealpulse/ma-health-go/internal/models"
	"github.com/dealpulse/ma-health-go/internal/telemetry"
	"github.com/dealpulse/ma-health-go/internal/utils"
)

// SeriesLoader fetches indicator observations for a window.
type SeriesLoader interface {
	LoadSeriesSet(ctx context.Context, indicators []string, from, to time.Time) (*models.SeriesSet, error)
}

// ForecastSink persists completed forecast runs.
type ForecastSink interface {
	SaveForecast(ctx context.Context, result *models.ForecastResult) error
}

// ForecastRequest describes one forecast run. Series carries the data
// inline; when nil the named indicators are loaded from the store.
type ForecastRequest struct {
	Indicators      []string
	From            time.Time
	To              time.Time
	Series          *models.SeriesSet
	Horizon         int
	ConfidenceLevel float64
}

// ForecastResponse is the complete outcome of a run.
type ForecastResponse struct {
	Result    *models.ForecastResult   `json:"result"`
	Report    *models.ValidationReport `json:"report,omitempty"`
	Narrative string                   `json:"narrative"`
	Regime    string                   `json:"regime"`
	Cached    bool                     `json:"cached"`
}

// ForecastService runs the full pipeline: preprocess, select, fit, forecast,
// validate, narrate. Concurrent runs are bounded by a worker pool sized from
// the machine's CPU count.
type ForecastService struct {
	cfg          *config.Config
	store        SeriesLoader
	sink         ForecastSink
	cache        *cache.RedisForecastCache
	narrative    *NarrativeService
	notifier     *RegimeNotifier
	tracer       *telemetry.PipelineTracer
	preprocessor *forecast.Preprocessor
	selector     *forecast.Selector
	engine       *forecast.Engine
	validator    *forecast.Validator
	logger       *logrus.Logger

	slots chan struct{}

	mu         sync.Mutex
	lastRegime string
}

// NewForecastService wires the pipeline. Store, sink and cache may be nil;
// the corresponding steps are skipped.
func NewForecastService(cfg *config.Config, store SeriesLoader, sink ForecastSink, forecastCache *cache.RedisForecastCache, narrative *NarrativeService, notifier *RegimeNotifier, logger *logrus.Logger) *ForecastService {
	size := cfg.Forecast.WorkerPoolSize
	if size <= 0 {
		size = workerPoolSize()
	}

	return &ForecastService{
		cfg:          cfg,
		store:        store,
		sink:         sink,
		cache:        forecastCache,
		narrative:    narrative,
		notifier:     notifier,
		tracer:       telemetry.NewPipelineTracer(),
		preprocessor: forecast.NewPreprocessor(cfg.Forecast, logger),
		selector:     forecast.NewSelector(cfg.Forecast, logger),
		engine:       forecast.NewEngine(cfg.Forecast, logger),
		validator:    forecast.NewValidator(cfg.Forecast, logger),
		logger:       logger,
		slots:        make(chan struct{}, size),
	}
}

// workerPoolSize derives the pool size from the logical CPU count.
func workerPoolSize() int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		count = runtime.NumCPU()
	}
	return count
}

// Run executes one forecast request end to end. The context is honored
// between pipeline stages, so a canceled request stops at the next stage
// boundary.
func (s *ForecastService) Run(ctx context.Context, req ForecastRequest) (*ForecastResponse, error) {
	requestID := uuid.NewString()
	started := time.Now()
	log := s.logger.WithField("request_id", requestID)

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = s.cfg.Forecast.DefaultHorizon
	}
	if horizon <= 0 {
		return nil, utils.NewInvalidHorizonError(horizon)
	}
	level := req.ConfidenceLevel
	if level == 0 {
		level = s.cfg.Forecast.ConfidenceLevel
	}

	raw, err := s.resolveSeries(ctx, req)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(raw, horizon, level)
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			log.Info("Forecast served from cache")
			return s.finishRun(ctx, raw, cached, nil, true, log)
		}
	}

	ctx, prepSpan := s.tracer.StartStage(ctx, "preprocess", requestID)
	prep, err := s.preprocessor.Prepare(ctx, raw)
	prepSpan.End()
	if err != nil {
		return nil, err
	}
	if !s.cfg.Forecast.Multivariate && len(prep.Set.Names()) > 1 {
		prep, err = forecast.Reduce(prep, nil, s.cfg.Forecast.MaxD)
		if err != nil {
			return nil, err
		}
	}

	ctx, selSpan := s.tracer.StartStage(ctx, "select", requestID)
	candidates, err := s.selector.Select(ctx, prep)
	selSpan.End()
	if err != nil {
		return nil, err
	}

	ctx, fitSpan := s.tracer.StartStage(ctx, "fit", requestID)
	fitted, err := s.engine.Fit(ctx, prep, candidates)
	if err != nil {
		fitSpan.End()
		return nil, err
	}
	spec := fitted.Spec()
	s.tracer.RecordModel(fitSpan, string(spec.Family), spec.P, spec.D, spec.Q)
	fitSpan.End()

	result, err := fitted.Forecast(horizon, level)
	if err != nil {
		return nil, err
	}
	result.RequestID = requestID

	ctx, valSpan := s.tracer.StartStage(ctx, "validate", requestID)
	report, err := s.validator.Validate(ctx, prep, spec, s.engine)
	if err != nil {
		valSpan.End()
		return nil, err
	}
	result.HealthScore = report.HealthScore
	s.tracer.RecordOutcome(valSpan, report.HealthScore.String(), report.Passed)
	valSpan.End()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result); err != nil {
			log.WithError(err).Warn("Failed to cache forecast result")
		}
	}
	if s.sink != nil {
		if err := s.sink.SaveForecast(ctx, result); err != nil {
			log.WithError(err).Warn("Failed to persist forecast result")
		}
	}

	resp, err := s.finishRun(ctx, raw, result, report, false, log)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"model_family": spec.Family,
		"horizon":      horizon,
		"health_score": report.HealthScore.String(),
		"duration_ms":  time.Since(started).Milliseconds(),
	}).Info("Forecast run complete")
	return resp, nil
}

// finishRun builds the narrative and regime outcome shared by fresh and
// cached runs. The preprocessing here is cheap relative to model fitting.
func (s *ForecastService) finishRun(ctx context.Context, raw *models.SeriesSet, result *models.ForecastResult, report *models.ValidationReport, cached bool, log *logrus.Entry) (*ForecastResponse, error) {
	prep, err := s.preprocessor.Prepare(ctx, raw)
	if err != nil {
		return nil, err
	}

	briefing := s.narrative.BuildBriefing(prep, result, report)
	text := s.narrative.Generate(ctx, briefing)

	s.mu.Lock()
	previous := s.lastRegime
	s.lastRegime = briefing.Regime
	s.mu.Unlock()

	if s.notifier != nil && !cached {
		if err := s.notifier.NotifyRegime(ctx, briefing.Regime, previous, briefing.HealthScore, briefing.CurrentValue); err != nil {
			log.WithError(err).Warn("Failed to send regime alert")
		}
	}

	return &ForecastResponse{
		Result:    result,
		Report:    report,
		Narrative: text,
		Regime:    briefing.Regime,
		Cached:    cached,
	}, nil
}

func (s *ForecastService) resolveSeries(ctx context.Context, req ForecastRequest) (*models.SeriesSet, error) {
	if req.Series != nil {
		return req.Series, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("no series provided and no store configured")
	}
	if len(req.Indicators) == 0 {
		return nil, fmt.Errorf("no indicators named in request")
	}
	to := req.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	from := req.From
	if from.IsZero() {
		from = to.AddDate(-10, 0, 0)
	}
	return s.store.LoadSeriesSet(ctx, req.Indicators, from, to)
}
