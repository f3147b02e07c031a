// Package monitor re-assesses a fixed watchlist on a cron schedule and
// forwards elevated alerts to a notifier.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/observability"
	"github.com/couchcryptid/marine-alert-service/internal/pipeline"
)

// Assessor runs one location query.
type Assessor interface {
	AssessLocation(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, alert domain.AlertMessage) error
}

// Monitor checks each watched location and notifies when its level reaches minLevel.
type Monitor struct {
	schedule string
	targets  []domain.Location
	minLevel domain.Level
	assessor Assessor
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New validates the schedule and builds a Monitor.
func New(schedule string, targets []domain.Location, minLevel domain.Level, assessor Assessor, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) (*Monitor, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid monitor schedule %q: %w", schedule, err)
	}
	return &Monitor{
		schedule: schedule,
		targets:  targets,
		minLevel: minLevel,
		assessor: assessor,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Run checks the watchlist once, then on every tick of the schedule until ctx is cancelled.
// A tick that fires while a check is still running is skipped. Run waits for an
// in-flight check to finish before returning.
func (m *Monitor) Run(ctx context.Context) error {
	c := cron.New()
	job := m.job(ctx)
	if _, err := c.AddJob(m.schedule, job); err != nil {
		return fmt.Errorf("schedule watchlist: %w", err)
	}

	m.logger.Info("watchlist monitor started", "schedule", m.schedule, "targets", len(m.targets), "min_level", m.minLevel)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	c.Start()
	job.Run()
	<-ctx.Done()
	<-c.Stop().Done()

	m.logger.Info("watchlist monitor stopped")
	return nil
}

// job wraps CheckAll so that concurrent runs collapse into one.
func (m *Monitor) job(ctx context.Context) cron.Job {
	skip := cron.SkipIfStillRunning(cronLogger{m.logger})
	return cron.NewChain(skip).Then(cron.FuncJob(func() { m.CheckAll(ctx) }))
}

// CheckAll assesses every target once and returns how many alerts were sent.
// A failing target is logged and does not stop the others.
func (m *Monitor) CheckAll(ctx context.Context) int {
	sent := 0
	for _, target := range m.targets {
		if ctx.Err() != nil {
			break
		}
		alerted, err := m.check(ctx, target)
		switch {
		case err != nil:
			m.metrics.MonitorRuns.WithLabelValues("error").Inc()
			m.logger.Warn("watchlist check failed", "location", target.String(), "error", err)
		case alerted:
			m.metrics.MonitorRuns.WithLabelValues("alerted").Inc()
			sent++
		default:
			m.metrics.MonitorRuns.WithLabelValues("quiet").Inc()
		}
	}
	return sent
}

func (m *Monitor) check(ctx context.Context, target domain.Location) (bool, error) {
	res, err := m.assessor.AssessLocation(ctx, pipeline.Request{Location: target})
	if err != nil {
		// Partial data still yields a usable level.
		var unavailable *domain.DataUnavailableError
		if errors.Is(err, domain.ErrInsufficientData) || !errors.As(err, &unavailable) {
			return false, err
		}
	}
	if !res.Assessment.Level.AtLeast(m.minLevel) {
		return false, nil
	}

	if err := m.notifier.Notify(ctx, res.Alert); err != nil {
		m.metrics.Notifications.WithLabelValues("error").Inc()
		return false, fmt.Errorf("notify: %w", err)
	}
	m.metrics.Notifications.WithLabelValues("success").Inc()
	m.logger.Info("alert sent", "location", target.String(), "level", res.Assessment.Level, "score", res.Assessment.Score)
	return true, nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
