package openmeteo

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
)

const (
	MarineWeatherSourceName = "marine-weather"
	OceanPhysicsSourceName  = "ocean-physics"

	metresPerNauticalMile = 1852.0
)

var (
	waveUnits       = map[string]float64{"m": 1, "ft": 0.3048}
	windUnits       = map[string]float64{"kn": 1, "km/h": 1 / 1.852, "m/s": 3.6 / 1.852, "mp/h": 1.609344 / 1.852}
	visibilityUnits = map[string]float64{"m": 1 / metresPerNauticalMile, "ft": 0.3048 / metresPerNauticalMile}
	currentUnits    = map[string]float64{"km/h": 1, "m/s": 3.6, "kn": 1.852}
)

// MarineWeatherSource provides wave height from the marine API and wind speed and
// visibility from the forecast API. If one endpoint fails the other's fields are
// still returned with the error.
type MarineWeatherSource struct {
	client *Client
}

// NewMarineWeatherSource creates the marine-weather source.
func NewMarineWeatherSource(c *Client) *MarineWeatherSource {
	return &MarineWeatherSource{client: c}
}

func (s *MarineWeatherSource) Name() string { return MarineWeatherSourceName }

// Fetch implements ingest.Source.
func (s *MarineWeatherSource) Fetch(ctx context.Context, loc domain.Location, horizonHours int) (domain.Measurements, error) {
	var (
		m    domain.Measurements
		errs []error
	)

	waves, err := s.client.getHourly(ctx, s.client.marineURL,
		hourlyParams(loc.Latitude, loc.Longitude, horizonHours, "wave_height"))
	if err != nil {
		errs = append(errs, fmt.Errorf("marine endpoint: %w", err))
	} else {
		m.WaveHeightM, err = convert(worst(waves.Hourly.WaveHeight, horizonHours, higher), waves.HourlyUnits["wave_height"], waveUnits)
		if err != nil {
			errs = append(errs, fmt.Errorf("wave_height: %w", err))
		}
	}

	params := hourlyParams(loc.Latitude, loc.Longitude, horizonHours, "wind_speed_10m,visibility")
	params.Set("wind_speed_unit", "kn")
	weather, err := s.client.getHourly(ctx, s.client.forecastURL, params)
	if err != nil {
		errs = append(errs, fmt.Errorf("forecast endpoint: %w", err))
		return m, errors.Join(errs...)
	}

	m.WindSpeedKt, err = convert(worst(weather.Hourly.WindSpeed10m, horizonHours, higher), weather.HourlyUnits["wind_speed_10m"], windUnits)
	if err != nil {
		errs = append(errs, fmt.Errorf("wind_speed_10m: %w", err))
	}
	m.VisibilityNm, err = convert(worst(weather.Hourly.Visibility, horizonHours, lower), weather.HourlyUnits["visibility"], visibilityUnits)
	if err != nil {
		errs = append(errs, fmt.Errorf("visibility: %w", err))
	}

	return m, errors.Join(errs...)
}

// OceanPhysicsSource provides surface current velocity from the marine API.
type OceanPhysicsSource struct {
	client *Client
}

// NewOceanPhysicsSource creates the ocean-physics source.
func NewOceanPhysicsSource(c *Client) *OceanPhysicsSource {
	return &OceanPhysicsSource{client: c}
}

func (s *OceanPhysicsSource) Name() string { return OceanPhysicsSourceName }

// Fetch implements ingest.Source.
func (s *OceanPhysicsSource) Fetch(ctx context.Context, loc domain.Location, horizonHours int) (domain.Measurements, error) {
	resp, err := s.client.getHourly(ctx, s.client.marineURL,
		hourlyParams(loc.Latitude, loc.Longitude, horizonHours, "ocean_current_velocity"))
	if err != nil {
		return domain.Measurements{}, err
	}
	current, err := convert(worst(resp.Hourly.OceanCurrentVelocity, horizonHours, higher),
		resp.HourlyUnits["ocean_current_velocity"], currentUnits)
	if err != nil {
		return domain.Measurements{}, fmt.Errorf("ocean_current_velocity: %w", err)
	}
	return domain.Measurements{CurrentVelocityKmh: current}, nil
}
