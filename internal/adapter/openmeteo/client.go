// Package openmeteo adapts the Open-Meteo marine and forecast APIs into ingest sources.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client performs requests against the Open-Meteo endpoints.
type Client struct {
	httpClient  *http.Client
	marineURL   string
	forecastURL string
	logger      *slog.Logger
}

// NewClient creates an Open-Meteo client. timeout bounds each HTTP request.
func NewClient(marineURL, forecastURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		marineURL:   marineURL,
		forecastURL: forecastURL,
		logger:      logger,
	}
}

// Open-Meteo API response types.

type response struct {
	HourlyUnits map[string]string `json:"hourly_units"`
	Hourly      hourly            `json:"hourly"`
}

type hourly struct {
	Time                 []string   `json:"time"`
	WaveHeight           []*float64 `json:"wave_height"`
	OceanCurrentVelocity []*float64 `json:"ocean_current_velocity"`
	WindSpeed10m         []*float64 `json:"wind_speed_10m"`
	Visibility           []*float64 `json:"visibility"`
}

type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// hourlyParams builds the query for hourly variables at a point over the next horizon hours.
func hourlyParams(lat, lon float64, horizonHours int, variables string) url.Values {
	return url.Values{
		"latitude":       {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":      {strconv.FormatFloat(lon, 'f', 4, 64)},
		"hourly":         {variables},
		"forecast_hours": {strconv.Itoa(horizonHours)},
		"timezone":       {"GMT"},
	}
}

func (c *Client) getHourly(ctx context.Context, baseURL string, params url.Values) (response, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return response{}, fmt.Errorf("parse url: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}

	c.logger.Debug("open-meteo request", "url", u.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Reason != "" {
			return response{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, apiErr.Reason)
		}
		return response{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// worst scans the first horizon slots and keeps the value for which worse(v, current)
// holds. Null, NaN, and negative slots are skipped. Returns nil when nothing usable remains.
func worst(values []*float64, horizonHours int, worse func(a, b float64) bool) *float64 {
	var out *float64
	for i, v := range values {
		if i >= horizonHours {
			break
		}
		if v == nil || math.IsNaN(*v) || *v < 0 {
			continue
		}
		if out == nil || worse(*v, *out) {
			x := *v
			out = &x
		}
	}
	return out
}

func higher(a, b float64) bool { return a > b }
func lower(a, b float64) bool  { return a < b }

// convert scales a value reported in unit into the target unit using factors.
func convert(v *float64, unit string, factors map[string]float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := factors[unit]
	if !ok {
		return nil, fmt.Errorf("unexpected unit %q", unit)
	}
	x := *v * f
	return &x, nil
}
