// Package app assembles the assessment pipeline and its optional integrations from config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	kafkaadapter "github.com/couchcryptid/marine-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/marine-alert-service/internal/adapter/mapbox"
	"github.com/couchcryptid/marine-alert-service/internal/adapter/openai"
	"github.com/couchcryptid/marine-alert-service/internal/adapter/openmeteo"
	s3adapter "github.com/couchcryptid/marine-alert-service/internal/adapter/s3"
	"github.com/couchcryptid/marine-alert-service/internal/adapter/telegram"
	"github.com/couchcryptid/marine-alert-service/internal/config"
	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/ingest"
	"github.com/couchcryptid/marine-alert-service/internal/monitor"
	"github.com/couchcryptid/marine-alert-service/internal/observability"
	"github.com/couchcryptid/marine-alert-service/internal/pipeline"
)

// App holds the wired components shared by the service and the CLI.
type App struct {
	Pipeline *pipeline.Pipeline
	// Monitor is nil unless a watchlist and a Telegram chat are configured.
	Monitor *monitor.Monitor

	ingester    *ingest.Ingester
	kafkaWriter *kafkaadapter.Writer
	logger      *slog.Logger
}

// New builds an App. Optional integrations are enabled by their config and
// logged either way.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{logger: logger}

	meteo := openmeteo.NewClient(cfg.MarineURL, cfg.ForecastURL, cfg.QueryTimeout, logger)
	sources := []ingest.Source{openmeteo.NewMarineWeatherSource(meteo)}
	if cfg.OceanEnabled {
		sources = append(sources, openmeteo.NewOceanPhysicsSource(meteo))
	} else {
		logger.Info("ocean physics source disabled")
	}

	var ingestOpts []ingest.Option
	pipelineOpts := []pipeline.Option{pipeline.WithQueryTimeout(cfg.QueryTimeout)}

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		ingestOpts = append(ingestOpts, ingest.WithGeocoder(geocoder))
		pipelineOpts = append(pipelineOpts, pipeline.WithGeocoder(geocoder))
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var sinks []ingest.AuditSink
	if cfg.S3Enabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		sinks = append(sinks, s3adapter.NewAuditStore(awss3.NewFromConfig(awsCfg), cfg.AuditS3Bucket, cfg.AuditS3Prefix, logger))
		logger.Info("s3 audit enabled", "bucket", cfg.AuditS3Bucket, "prefix", cfg.AuditS3Prefix)
	}
	if cfg.KafkaEnabled() {
		a.kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, a.kafkaWriter)
		logger.Info("kafka audit enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAuditTopic)
	}
	if len(sinks) > 0 {
		ingestOpts = append(ingestOpts, ingest.WithAuditSinks(sinks...))
	}

	if cfg.OpenAIEnabled() {
		pipelineOpts = append(pipelineOpts, pipeline.WithParaphraser(openai.NewParaphraser(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)))
		logger.Info("alert paraphrasing enabled", "model", cfg.OpenAIModel)
	}

	a.ingester = ingest.New(sources, cfg.QueryTimeout, logger, metrics, ingestOpts...)
	a.Pipeline = pipeline.New(a.ingester, logger, metrics, cfg.ForecastHorizonHours, pipelineOpts...)

	switch {
	case len(cfg.MonitorWatchlist) == 0:
	case !cfg.TelegramEnabled():
		logger.Warn("MONITOR_WATCHLIST is set but Telegram is not configured; monitor disabled")
	default:
		mon, err := newMonitor(cfg, a.Pipeline, logger, metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Monitor = mon
	}

	return a, nil
}

func newMonitor(cfg *config.Config, assessor monitor.Assessor, logger *slog.Logger, metrics *observability.Metrics) (*monitor.Monitor, error) {
	minLevel, err := domain.ParseLevel(cfg.MonitorMinLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid MONITOR_MIN_LEVEL: %w", err)
	}
	notifier, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	if err != nil {
		return nil, err
	}

	targets := make([]domain.Location, 0, len(cfg.MonitorWatchlist))
	for _, t := range cfg.MonitorWatchlist {
		targets = append(targets, domain.Location{Latitude: t.Latitude, Longitude: t.Longitude, Name: t.Name})
	}
	return monitor.New(cfg.MonitorSchedule, targets, minLevel, assessor, notifier, logger, metrics)
}

// Close waits for pending audit writes, then releases the Kafka producer.
func (a *App) Close() {
	start := time.Now()
	a.ingester.Close()
	a.logger.Debug("audit writes drained", "elapsed", time.Since(start))

	if a.kafkaWriter != nil {
		if err := a.kafkaWriter.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}
}
