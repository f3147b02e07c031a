package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
)

var capeTown = domain.Location{Latitude: -33.9249, Longitude: 18.4241}

const marineWaves = `{
  "latitude": -33.9,
  "longitude": 18.4,
  "hourly_units": {"time": "iso8601", "wave_height": "m"},
  "hourly": {
    "time": ["2025-03-14T00:00", "2025-03-14T01:00", "2025-03-14T02:00", "2025-03-14T03:00"],
    "wave_height": [1.2, null, 2.8, 6.0]
  }
}`

const forecastWeather = `{
  "hourly_units": {"time": "iso8601", "wind_speed_10m": "kn", "visibility": "m"},
  "hourly": {
    "time": ["2025-03-14T00:00", "2025-03-14T01:00", "2025-03-14T02:00"],
    "wind_speed_10m": [12.0, 18.0, 9.5],
    "visibility": [24140, 7408, null]
  }
}`

const marineCurrents = `{
  "hourly_units": {"time": "iso8601", "ocean_current_velocity": "km/h"},
  "hourly": {
    "time": ["2025-03-14T00:00", "2025-03-14T01:00"],
    "ocean_current_velocity": [0.4, 1.2]
  }
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/v1/marine", srv.URL+"/v1/forecast", 5*time.Second, discardLogger())
}

func TestMarineWeatherSource_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-33.9249", q.Get("latitude"))
		assert.Equal(t, "18.4241", q.Get("longitude"))
		assert.Equal(t, "3", q.Get("forecast_hours"))

		switch r.URL.Path {
		case "/v1/marine":
			assert.Equal(t, "wave_height", q.Get("hourly"))
			io.WriteString(w, marineWaves) //nolint:errcheck // test server
		case "/v1/forecast":
			assert.Equal(t, "wind_speed_10m,visibility", q.Get("hourly"))
			assert.Equal(t, "kn", q.Get("wind_speed_unit"))
			io.WriteString(w, forecastWeather) //nolint:errcheck // test server
		default:
			http.NotFound(w, r)
		}
	})

	m, err := NewMarineWeatherSource(client).Fetch(context.Background(), capeTown, 3)
	require.NoError(t, err)

	require.NotNil(t, m.WaveHeightM)
	assert.Equal(t, 2.8, *m.WaveHeightM, "worst value inside the horizon; the 6.0 m slot is outside it")
	require.NotNil(t, m.WindSpeedKt)
	assert.Equal(t, 18.0, *m.WindSpeedKt)
	require.NotNil(t, m.VisibilityNm)
	assert.InDelta(t, 4.0, *m.VisibilityNm, 1e-9, "lowest visibility, metres to nautical miles")
	assert.Nil(t, m.CurrentVelocityKmh)
	assert.Equal(t, MarineWeatherSourceName, NewMarineWeatherSource(client).Name())
}

func TestMarineWeatherSource_ForecastDown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/forecast" {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		io.WriteString(w, marineWaves) //nolint:errcheck // test server
	})

	m, err := NewMarineWeatherSource(client).Fetch(context.Background(), capeTown, 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast endpoint")
	assert.Contains(t, err.Error(), "status 502")

	require.NotNil(t, m.WaveHeightM, "marine endpoint data survives a forecast outage")
	assert.Equal(t, 6.0, *m.WaveHeightM)
	assert.Nil(t, m.WindSpeedKt)
}

func TestMarineWeatherSource_APIErrorReason(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": true, "reason": "Latitude must be in range of -90 to 90°."}`) //nolint:errcheck // test server
	})

	_, err := NewMarineWeatherSource(client).Fetch(context.Background(), capeTown, 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Latitude must be in range")
}

func TestOceanPhysicsSource_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/marine", r.URL.Path)
		assert.Equal(t, "ocean_current_velocity", r.URL.Query().Get("hourly"))
		io.WriteString(w, marineCurrents) //nolint:errcheck // test server
	})

	m, err := NewOceanPhysicsSource(client).Fetch(context.Background(), capeTown, 24)
	require.NoError(t, err)
	require.NotNil(t, m.CurrentVelocityKmh)
	assert.Equal(t, 1.2, *m.CurrentVelocityKmh)
	assert.Nil(t, m.WaveHeightM)
}

func TestOceanPhysicsSource_AllNullIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"hourly_units":{"ocean_current_velocity":"km/h"},"hourly":{"time":["t0","t1"],"ocean_current_velocity":[null,null]}}`) //nolint:errcheck // test server
	})

	m, err := NewOceanPhysicsSource(client).Fetch(context.Background(), capeTown, 24)
	require.NoError(t, err, "a point with no coverage is not a failure")
	assert.Nil(t, m.CurrentVelocityKmh)
}

func TestOceanPhysicsSource_UnitConversion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"hourly_units":{"ocean_current_velocity":"m/s"},"hourly":{"time":["t0"],"ocean_current_velocity":[0.5]}}`) //nolint:errcheck // test server
	})

	m, err := NewOceanPhysicsSource(client).Fetch(context.Background(), capeTown, 24)
	require.NoError(t, err)
	assert.InDelta(t, 1.8, *m.CurrentVelocityKmh, 1e-9)
}

func TestOceanPhysicsSource_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewOceanPhysicsSource(client).Fetch(ctx, capeTown, 24)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorst(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	values := []*float64{v(1), nil, v(-3), v(5), v(2)}

	assert.Equal(t, 5.0, *worst(values, 24, higher))
	assert.Equal(t, 1.0, *worst(values, 24, lower), "negative readings are skipped")
	assert.Equal(t, 1.0, *worst(values, 3, higher))
	assert.Nil(t, worst([]*float64{nil}, 24, higher))
}
