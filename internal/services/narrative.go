package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"

	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/forecast"
	"github.com/dealpulse/ma-health-go/internal/models"
)

// Regime bands of the composite health index.
const (
	RegimeRobustExpansion   = "Robust Expansion"
	RegimeModerateExpansion = "Moderate Expansion"
	RegimeCoolingNeutral    = "Cooling / Neutral"
	RegimeContraction       = "Contraction"
)

// momentumPeriod is the SMA window used to judge whether the index is
// running above or below its recent trend.
const momentumPeriod = 6

// Regime maps a composite index value to its market regime band.
func Regime(value float64) string {
	switch {
	case value >= 60:
		return RegimeRobustExpansion
	case value >= 50:
		return RegimeModerateExpansion
	case value >= 40:
		return RegimeCoolingNeutral
	default:
		return RegimeContraction
	}
}

// Briefing is the structured summary handed to the narrative service: the
// numeric facts an executive summary is written from. It contains no prose.
type Briefing struct {
	RequestID     string   `json:"request_id"`
	CurrentValue  float64  `json:"current_value"`
	Regime        string   `json:"regime"`
	ChangeMoM     float64  `json:"change_mom"`
	ChangeYoY     float64  `json:"change_yoy"`
	ForecastEnd   float64  `json:"forecast_end"`
	Trend         string   `json:"trend"`
	AboveTrend    bool     `json:"above_trend"`
	TopDriver     string   `json:"top_driver,omitempty"`
	LagDriver     string   `json:"lag_driver,omitempty"`
	HealthScore   string   `json:"health_score"`
	Horizon       int      `json:"horizon"`
	History       []string `json:"history"`
	ModelFamily   string   `json:"model_family"`
	ValidationOK  bool     `json:"validation_ok"`
	GeneratedAt   string   `json:"generated_at"`
	CompositeName string   `json:"composite_name"`
}

// NarrativeService turns a forecast run into an executive narrative. When a
// remote narrative backend is configured it is called with retry and rate
// limiting; otherwise a deterministic local summary is produced, so the
// pipeline never fails for lack of prose.
type NarrativeService struct {
	cfg        config.NarrativeConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	printer    *message.Printer
	logger     *logrus.Logger
}

// NewNarrativeService creates the narrative bridge.
func NewNarrativeService(cfg config.NarrativeConfig, logger *logrus.Logger) *NarrativeService {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	return &NarrativeService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), rps),
		printer:    message.NewPrinter(language.English),
		logger:     logger,
	}
}

// BuildBriefing assembles the numeric briefing from the prepared history and
// the forecast result. The composite drives the headline numbers; component
// variables rank the top and lagging drivers.
func (n *NarrativeService) BuildBriefing(prep *forecast.PreparedSet, result *models.ForecastResult, report *models.ValidationReport) *Briefing {
	composite := n.compositeHistory(prep)
	values := composite.Values
	last := len(values) - 1

	current := values[last]
	changeMoM := 0.0
	if last >= 1 {
		changeMoM = current - values[last-1]
	}
	changeYoY := current - values[0]
	if last >= 12 {
		changeYoY = current - values[last-12]
	}

	fcEnd := current
	if vf := n.compositeForecast(result); vf != nil && len(vf.Path) > 0 {
		fcEnd = vf.Path[len(vf.Path)-1].Point
	}
	trendWord := "softening"
	if fcEnd > current {
		trendWord = "improving"
	}

	top, lag := rankDrivers(prep)

	history := make([]string, 0, len(values))
	for i, ts := range composite.Timestamps {
		history = append(history, n.printer.Sprintf("%s: %.1f", ts.Format("2006-01"), values[i]))
	}

	return &Briefing{
		RequestID:     result.RequestID,
		CurrentValue:  current,
		Regime:        Regime(current),
		ChangeMoM:     changeMoM,
		ChangeYoY:     changeYoY,
		ForecastEnd:   fcEnd,
		Trend:         trendWord,
		AboveTrend:    aboveTrend(values),
		TopDriver:     top,
		LagDriver:     lag,
		HealthScore:   result.HealthScore.String(),
		Horizon:       result.Horizon,
		History:       history,
		ModelFamily:   string(result.Spec.Family),
		ValidationOK:  report != nil && report.Passed,
		GeneratedAt:   result.GeneratedAt.Format(time.RFC3339),
		CompositeName: forecast.CompositeName,
	}
}

// Generate produces the executive narrative for a briefing. Remote failures
// degrade to the local summary rather than failing the forecast.
func (n *NarrativeService) Generate(ctx context.Context, briefing *Briefing) string {
	if n.cfg.ServiceURL == "" || n.cfg.APIKey == "" {
		return n.localSummary(briefing)
	}

	text, err := n.callRemote(ctx, briefing)
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"request_id": briefing.RequestID,
			"error":      err.Error(),
		}).Warn("Narrative service unavailable, using local summary")
		return n.localSummary(briefing)
	}
	return text
}

func (n *NarrativeService) callRemote(ctx context.Context, briefing *Briefing) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"model":    n.cfg.Model,
		"briefing": briefing,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal briefing: %w", err)
	}

	maxRetryTime, err := time.ParseDuration(n.cfg.MaxRetryTime)
	if err != nil || maxRetryTime <= 0 {
		maxRetryTime = 30 * time.Second
	}

	var narrative string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.ServiceURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("narrative service returned status %d", resp.StatusCode)
		}

		var body struct {
			Narrative string `json:"narrative"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode narrative response: %w", err))
		}
		if body.Narrative == "" {
			return backoff.Permanent(fmt.Errorf("narrative service returned empty narrative"))
		}
		narrative = body.Narrative
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = maxRetryTime
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return "", err
	}
	return narrative, nil
}

// localSummary renders the deterministic fallback narrative from the
// briefing facts.
func (n *NarrativeService) localSummary(b *Briefing) string {
	momentum := "below"
	if b.AboveTrend {
		momentum = "above"
	}
	summary := n.printer.Sprintf(
		"The M&A Health Index currently stands at %.1f, indicating a regime of %s. "+
			"Activity has shifted by %+.1f points month-over-month and %+.1f points year-over-year, "+
			"running %s its recent trend.",
		b.CurrentValue, b.Regime, b.ChangeMoM, b.ChangeYoY, momentum)

	outlook := n.printer.Sprintf(
		" Outlook: the %d-step forecast suggests conditions are %s, projected to reach %.1f.",
		b.Horizon, b.Trend, b.ForecastEnd)

	drivers := ""
	if b.TopDriver != "" && b.LagDriver != "" && b.TopDriver != b.LagDriver {
		drivers = n.printer.Sprintf(
			" The primary support for the current environment is %s, while %s remains a headwind.",
			b.TopDriver, b.LagDriver)
	}
	return summary + outlook + drivers
}

// compositeHistory returns the composite series when one can be built, or
// the single prepared series otherwise.
func (n *NarrativeService) compositeHistory(prep *forecast.PreparedSet) *models.TimeSeries {
	names := prep.Set.Names()
	if len(names) == 1 {
		return prep.Set.Series[names[0]]
	}
	composite, err := forecast.Composite(prep.Set, nil)
	if err != nil {
		return prep.Set.Series[names[0]]
	}
	return composite
}

// compositeForecast picks the forecast path closest to the headline number:
// the composite if present, else the first variable.
func (n *NarrativeService) compositeForecast(result *models.ForecastResult) *models.VariableForecast {
	if vf := result.Variable(forecast.CompositeName); vf != nil {
		return vf
	}
	if len(result.Variables) > 0 {
		return &result.Variables[0]
	}
	return nil
}

// aboveTrend reports whether the last observation sits above its simple
// moving average.
func aboveTrend(values []float64) bool {
	if len(values) < momentumPeriod {
		return false
	}
	sma := trend.NewSmaWithPeriod[float64](momentumPeriod)
	smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	if len(smoothed) == 0 {
		return false
	}
	return values[len(values)-1] > smoothed[len(smoothed)-1]
}

// rankDrivers orders the component variables by their latest value and
// returns the strongest and weakest. A single-variable set has no drivers.
func rankDrivers(prep *forecast.PreparedSet) (top, lag string) {
	names := prep.Set.Names()
	if len(names) < 2 {
		return "", ""
	}

	type driver struct {
		name  string
		value float64
	}
	drivers := make([]driver, 0, len(names))
	for _, name := range names {
		s := prep.Set.Series[name]
		drivers = append(drivers, driver{name: name, value: s.Values[len(s.Values)-1]})
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].value > drivers[j].value })
	return drivers[0].name, drivers[len(drivers)-1].name
}
