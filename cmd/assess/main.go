// Command assess prints a one-off maritime risk alert for a coordinate or a named place.
//
// It reads the same environment configuration as the service, so audit sinks,
// geocoding, and paraphrasing apply when configured.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/marine-alert-service/internal/app"
	"github.com/couchcryptid/marine-alert-service/internal/config"
	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/observability"
	"github.com/couchcryptid/marine-alert-service/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		lat     = flag.Float64("lat", 0, "latitude in decimal degrees")
		lon     = flag.Float64("lon", 0, "longitude in decimal degrees")
		place   = flag.String("place", "", "place name to geocode instead of -lat/-lon (requires MAPBOX_TOKEN)")
		name    = flag.String("name", "", "display name for -lat/-lon")
		query   = flag.String("query", "", "free-text question for the natural-language summary")
		horizon = flag.Int("horizon", 0, "forecast hours to consider (default FORECAST_HORIZON_HOURS)")
		asJSON  = flag.Bool("json", false, "print the full result as JSON")
	)
	flag.Parse()

	latSet, lonSet := false, false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			latSet = true
		case "lon":
			lonSet = true
		}
	})
	if *place == "" && (!latSet || !lonSet) {
		fmt.Fprintln(os.Stderr, "assess: either -place or both -lat and -lon are required")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	var res pipeline.Result
	if *place != "" {
		res, err = a.Pipeline.AssessPlace(ctx, *place, *query, *horizon)
	} else {
		res, err = a.Pipeline.AssessLocation(ctx, pipeline.Request{
			Location:     domain.Location{Latitude: *lat, Longitude: *lon, Name: *name},
			QueryText:    *query,
			HorizonHours: *horizon,
		})
	}

	var unavailable *domain.DataUnavailableError
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientData):
		fmt.Fprintln(os.Stderr, "assess: no risk factor could be measured:", err)
		return 1
	case errors.As(err, &unavailable):
		fmt.Fprintln(os.Stderr, "assess: partial data:", err)
	default:
		fmt.Fprintln(os.Stderr, "assess:", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintln(os.Stderr, "assess:", err)
			return 1
		}
		return 0
	}

	fmt.Print(res.Alert.Text)
	if res.Summary != "" {
		fmt.Printf("\n%s\n", res.Summary)
	}
	return 0
}
