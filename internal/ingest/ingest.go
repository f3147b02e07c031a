// Package ingest gathers the measurements for one query from independent upstream sources.
//
// Sources run concurrently under a single per-query deadline. Each gets one immediate
// retry. A failed source never discards what the others returned: its fields stay
// unavailable and its name is reported through a *domain.DataUnavailableError.
// Audit sinks receive the merged record in the background and can never fail the query.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/observability"
)

// Source fetches the subset of measurements one upstream provides.
// A source may return partial measurements together with an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context, loc domain.Location, horizonHours int) (domain.Measurements, error)
}

// AuditSink persists observation records. It is write-only from the ingester's view.
type AuditSink interface {
	Name() string
	Store(ctx context.Context, rec domain.ObservationRecord) error
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithAuditSinks adds sinks that receive every record carrying at least one measurement.
func WithAuditSinks(sinks ...AuditSink) Option {
	return func(i *Ingester) { i.sinks = append(i.sinks, sinks...) }
}

// WithGeocoder names unnamed locations by reverse geocoding, best-effort.
func WithGeocoder(g domain.Geocoder) Option {
	return func(i *Ingester) { i.geocoder = g }
}

// WithAuditTimeout bounds each background audit write.
func WithAuditTimeout(d time.Duration) Option {
	return func(i *Ingester) { i.auditTimeout = d }
}

// Ingester runs the sources for a query and merges their results.
type Ingester struct {
	sources      []Source
	sinks        []AuditSink
	geocoder     domain.Geocoder
	timeout      time.Duration
	auditTimeout time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics

	auditMu sync.Mutex // guards closed and scheduling on audits
	closed  bool
	audits  conc.WaitGroup
}

// New creates an Ingester. timeout bounds all source fetches of one query together.
func New(sources []Source, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Ingester {
	i := &Ingester{
		sources:      sources,
		timeout:      timeout,
		auditTimeout: 10 * time.Second,
		logger:       logger.With("component", "ingest"),
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type fetchResult struct {
	m    domain.Measurements
	err  error
	done bool
}

// Observe fetches and merges measurements for loc over the next horizonHours.
// When some sources fail the merged record is still returned, alongside a
// *domain.DataUnavailableError naming them.
func (i *Ingester) Observe(ctx context.Context, loc domain.Location, horizonHours int) (domain.ObservationRecord, error) {
	if err := loc.Validate(); err != nil {
		return domain.ObservationRecord{}, err
	}
	if err := domain.ValidateHorizon(horizonHours); err != nil {
		return domain.ObservationRecord{}, err
	}

	qctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([]fetchResult, len(i.sources))
		place   string
		wg      conc.WaitGroup
	)
	for idx, src := range i.sources {
		wg.Go(func() {
			m, err := i.fetch(qctx, src, loc, horizonHours)
			mu.Lock()
			results[idx] = fetchResult{m: m, err: err, done: true}
			mu.Unlock()
		})
	}
	if loc.Name == "" && i.geocoder != nil {
		wg.Go(func() {
			name := i.reverseGeocode(qctx, loc)
			mu.Lock()
			place = name
			mu.Unlock()
		})
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if r := wg.WaitAndRecover(); r != nil {
			i.logger.Error("source fetch panicked", "error", r.AsError())
		}
	}()
	select {
	case <-finished:
	case <-qctx.Done():
	}

	mu.Lock()
	snapshot := slices.Clone(results)
	located := loc
	if place != "" {
		located.Name = place
	}
	mu.Unlock()

	rec := domain.ObservationRecord{
		ID:           uuid.NewString(),
		Location:     located,
		HorizonHours: horizonHours,
		ObservedAt:   domain.Now(),
	}
	var failures []domain.SourceFailure
	for idx, r := range snapshot {
		name := i.sources[idx].Name()
		if !r.done {
			r.err = errors.New("fetch aborted")
			if err := qctx.Err(); err != nil {
				r.err = fmt.Errorf("no response within %s: %w", i.timeout, err)
			}
		}
		rec.Merge(r.m)
		if r.err != nil {
			failures = append(failures, domain.SourceFailure{Source: name, Err: r.err})
			rec.UnavailableSources = append(rec.UnavailableSources, name)
		}
	}

	if rec.Available() > 0 {
		i.audit(rec)
	}

	if len(failures) > 0 {
		return rec, &domain.DataUnavailableError{Failures: failures}
	}
	return rec, nil
}

// Close waits for in-flight audit writes. Records observed after Close are not audited.
func (i *Ingester) Close() {
	i.auditMu.Lock()
	i.closed = true
	i.auditMu.Unlock()
	i.audits.Wait()
}

// fetch calls src with a single immediate retry, keeping fields from either attempt.
func (i *Ingester) fetch(ctx context.Context, src Source, loc domain.Location, horizonHours int) (domain.Measurements, error) {
	name := src.Name()
	start := time.Now()
	defer func() {
		i.metrics.SourceFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	m, err := src.Fetch(ctx, loc, horizonHours)
	if err != nil && ctx.Err() == nil {
		i.metrics.SourceFetches.WithLabelValues(name, "retry").Inc()
		i.logger.Warn("source fetch failed, retrying", "source", name, "error", err)

		var retried domain.Measurements
		retried, err = src.Fetch(ctx, loc, horizonHours)
		retried.Merge(m)
		m = retried
	}

	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		i.metrics.SourceFetches.WithLabelValues(name, "error").Inc()
		i.logger.Warn("source unavailable", "source", name, "error", err)
		return m, err
	}
	i.metrics.SourceFetches.WithLabelValues(name, "success").Inc()
	return m, nil
}

func (i *Ingester) reverseGeocode(ctx context.Context, loc domain.Location) string {
	res, err := i.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		i.logger.Warn("reverse geocode failed", "error", err, "lat", loc.Latitude, "lon", loc.Longitude)
		return ""
	}
	if res.PlaceName != "" {
		return res.PlaceName
	}
	return res.FormattedAddress
}

// audit hands rec to every sink in the background. Failures are logged and dropped.
func (i *Ingester) audit(rec domain.ObservationRecord) {
	i.auditMu.Lock()
	defer i.auditMu.Unlock()
	if i.closed {
		for _, sink := range i.sinks {
			i.metrics.AuditWrites.WithLabelValues(sink.Name(), "skipped").Inc()
		}
		if len(i.sinks) > 0 {
			i.logger.Warn("ingester closed, audit skipped", "record_id", rec.ID)
		}
		return
	}
	for _, sink := range i.sinks {
		i.audits.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), i.auditTimeout)
			defer cancel()

			if err := sink.Store(ctx, rec); err != nil {
				i.metrics.AuditWrites.WithLabelValues(sink.Name(), "error").Inc()
				i.logger.Warn("audit write failed", "sink", sink.Name(), "record_id", rec.ID, "error", err)
				return
			}
			i.metrics.AuditWrites.WithLabelValues(sink.Name(), "success").Inc()
		})
	}
}
