package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/observability"
)

var (
	ErrPlaceNotFound     = errors.New("place not found")
	ErrGeocodingDisabled = errors.New("place lookup requires a geocoder")
)

// Ingester produces the merged observation record for a location.
type Ingester interface {
	Observe(ctx context.Context, loc domain.Location, horizonHours int) (domain.ObservationRecord, error)
}

// Paraphraser rewrites an alert in natural language. It never affects score or level.
type Paraphraser interface {
	Paraphrase(ctx context.Context, alert domain.AlertMessage, queryText string) (string, error)
}

// Request is one assessLocation call.
type Request struct {
	Location     domain.Location
	QueryText    string
	HorizonHours int // 0 selects the pipeline default
}

// Result carries everything produced for one query.
type Result struct {
	Record     domain.ObservationRecord `json:"observation"`
	Assessment domain.RiskAssessment    `json:"assessment"`
	Alert      domain.AlertMessage      `json:"alert"`
	Summary    string                   `json:"summary,omitempty"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParaphraser adds an optional natural-language summary to each result.
func WithParaphraser(p Paraphraser) Option {
	return func(pl *Pipeline) { pl.paraphraser = p }
}

// WithQueryTimeout bounds each assessment, ingest and paraphrase together.
// A paraphrase still pending at the deadline is dropped and the alert is returned without a summary.
func WithQueryTimeout(d time.Duration) Option {
	return func(pl *Pipeline) { pl.queryTimeout = d }
}

// WithGeocoder enables AssessPlace.
func WithGeocoder(g domain.Geocoder) Option {
	return func(pl *Pipeline) { pl.geocoder = g }
}

// Pipeline runs ingest, classify, and format for each query. Queries share no
// mutable state apart from the readiness flag.
type Pipeline struct {
	ingester       Ingester
	paraphraser    Paraphraser
	geocoder       domain.Geocoder
	logger         *slog.Logger
	metrics        *observability.Metrics
	defaultHorizon int
	queryTimeout   time.Duration
	upstreamDown   atomic.Bool
}

// New creates a Pipeline around an ingester.
func New(ing Ingester, logger *slog.Logger, metrics *observability.Metrics, defaultHorizon int, opts ...Option) *Pipeline {
	p := &Pipeline{
		ingester:       ing,
		logger:         logger,
		metrics:        metrics,
		defaultHorizon: defaultHorizon,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness fails while the most recent query got no data from any source.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.upstreamDown.Load() {
		return errors.New("upstream data sources unavailable on last query")
	}
	return nil
}

// AssessLocation fetches conditions at req.Location and classifies them.
//
// With partial data it returns a full Result together with a *domain.DataUnavailableError.
// With no data it returns an error satisfying errors.Is(err, domain.ErrInsufficientData);
// Result.Record is still populated for inspection.
func (p *Pipeline) AssessLocation(ctx context.Context, req Request) (Result, error) {
	if p.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}

	horizon := req.HorizonHours
	if horizon == 0 {
		horizon = p.defaultHorizon
	}

	rec, err := p.ingester.Observe(ctx, req.Location, horizon)
	var unavailable *domain.DataUnavailableError
	if err != nil && !errors.As(err, &unavailable) {
		p.metrics.AssessmentErrors.WithLabelValues("invalid_request").Inc()
		return Result{}, err
	}
	p.upstreamDown.Store(unavailable != nil && rec.Available() == 0)

	assessment, cerr := domain.Classify(rec)
	if cerr != nil {
		p.metrics.AssessmentErrors.WithLabelValues("insufficient_data").Inc()
		p.logger.Warn("no factors available", "lat", rec.Location.Latitude, "lon", rec.Location.Longitude, "error", err)
		return Result{Record: rec}, errors.Join(cerr, err)
	}
	if unavailable != nil {
		p.metrics.AssessmentErrors.WithLabelValues("data_unavailable").Inc()
	}

	alert := domain.FormatAlert(assessment, rec)
	res := Result{Record: rec, Assessment: assessment, Alert: alert}
	p.metrics.Assessments.WithLabelValues(string(assessment.Level)).Inc()
	p.logger.Info("location assessed",
		"record_id", rec.ID,
		"location", rec.Location.String(),
		"level", assessment.Level,
		"score", assessment.Score,
		"unavailable_sources", rec.UnavailableSources,
	)

	if p.paraphraser != nil {
		summary, perr := p.paraphrase(ctx, alert, req.QueryText)
		switch {
		case errors.Is(perr, context.DeadlineExceeded):
			p.metrics.Paraphrases.WithLabelValues("timeout").Inc()
			p.logger.Warn("paraphrase timed out, returning alert without summary", "error", perr)
		case perr != nil:
			p.metrics.Paraphrases.WithLabelValues("error").Inc()
			p.logger.Warn("paraphrase failed, returning alert without summary", "error", perr)
		default:
			p.metrics.Paraphrases.WithLabelValues("success").Inc()
			res.Summary = summary
		}
	}

	return res, err
}

// paraphrase returns as soon as ctx is done, even if the paraphraser ignores it.
func (p *Pipeline) paraphrase(ctx context.Context, alert domain.AlertMessage, queryText string) (string, error) {
	type outcome struct {
		summary string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := p.paraphraser.Paraphrase(ctx, alert, queryText)
		done <- outcome{summary, err}
	}()

	select {
	case o := <-done:
		return o.summary, o.err
	case <-ctx.Done():
		return "", fmt.Errorf("paraphrase: %w", ctx.Err())
	}
}

// AssessPlace resolves a place name with the geocoder, then assesses it.
func (p *Pipeline) AssessPlace(ctx context.Context, place, queryText string, horizonHours int) (Result, error) {
	if p.geocoder == nil {
		return Result{}, ErrGeocodingDisabled
	}
	found, err := p.geocoder.ForwardGeocode(ctx, place)
	if err != nil {
		p.metrics.AssessmentErrors.WithLabelValues("geocode").Inc()
		return Result{}, fmt.Errorf("resolve place %q: %w", place, err)
	}
	if !found.Found() {
		return Result{}, fmt.Errorf("%q: %w", place, ErrPlaceNotFound)
	}

	name := found.PlaceName
	if name == "" {
		name = found.FormattedAddress
	}
	return p.AssessLocation(ctx, Request{
		Location:     domain.Location{Latitude: found.Lat, Longitude: found.Lon, Name: name},
		QueryText:    queryText,
		HorizonHours: horizonHours,
	})
}
