package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/observability"
)

var capeTown = domain.Location{Latitude: -33.9249, Longitude: 18.4241}

// --- mocks ---

type mockIngester struct {
	rec     domain.ObservationRecord
	err     error
	gotLoc  domain.Location
	horizon int
}

func (m *mockIngester) Observe(_ context.Context, loc domain.Location, horizonHours int) (domain.ObservationRecord, error) {
	m.gotLoc = loc
	m.horizon = horizonHours
	rec := m.rec
	rec.Location = loc
	return rec, m.err
}

type mockParaphraser struct {
	summary string
	err     error
	delay   time.Duration // sleeps without watching ctx, like a stuck client
	query   string
}

func (m *mockParaphraser) Paraphrase(_ context.Context, _ domain.AlertMessage, queryText string) (string, error) {
	m.query = queryText
	time.Sleep(m.delay)
	return m.summary, m.err
}

type mockGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (m *mockGeocoder) ForwardGeocode(context.Context, string) (domain.GeocodingResult, error) {
	return m.result, m.err
}

func (m *mockGeocoder) ReverseGeocode(context.Context, float64, float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func observed() domain.ObservationRecord {
	return domain.ObservationRecord{
		ID: "obs-1",
		Measurements: domain.Measurements{
			WaveHeightM:        domain.Measured(2.8),
			WindSpeedKt:        domain.Measured(18),
			CurrentVelocityKmh: domain.Measured(1.2),
			VisibilityNm:       domain.Measured(4),
		},
		HorizonHours: 24,
		ObservedAt:   time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC),
	}
}

func unavailable(sources ...string) *domain.DataUnavailableError {
	e := &domain.DataUnavailableError{}
	for _, s := range sources {
		e.Failures = append(e.Failures, domain.SourceFailure{Source: s, Err: errors.New("status 503")})
	}
	return e
}

// --- tests ---

func TestAssessLocation(t *testing.T) {
	ing := &mockIngester{rec: observed()}
	metrics := observability.NewMetricsForTesting()
	p := New(ing, discardLogger(), metrics, 24)

	res, err := p.AssessLocation(context.Background(), Request{Location: capeTown})
	require.NoError(t, err)

	assert.Equal(t, 24, ing.horizon, "default horizon applied")
	assert.Equal(t, 50, res.Assessment.Score)
	assert.Equal(t, domain.LevelAdvisory, res.Alert.Level)
	assert.Contains(t, res.Alert.Text, "ADVISORY - Maritime Safety Alert")
	assert.Empty(t, res.Summary)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Assessments.WithLabelValues("ADVISORY")))
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestAssessLocation_CustomHorizon(t *testing.T) {
	ing := &mockIngester{rec: observed()}
	p := New(ing, discardLogger(), observability.NewMetricsForTesting(), 24)

	_, err := p.AssessLocation(context.Background(), Request{Location: capeTown, HorizonHours: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, ing.horizon)
}

func TestAssessLocation_PartialData(t *testing.T) {
	rec := observed()
	rec.CurrentVelocityKmh = nil
	rec.UnavailableSources = []string{"ocean-physics"}
	ing := &mockIngester{rec: rec, err: unavailable("ocean-physics")}
	metrics := observability.NewMetricsForTesting()
	p := New(ing, discardLogger(), metrics, 24)

	res, err := p.AssessLocation(context.Background(), Request{Location: capeTown})

	var du *domain.DataUnavailableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, 50, res.Assessment.Score, "partial data is still classified")
	assert.Contains(t, res.Alert.Text, "Unavailable sources: ocean-physics")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssessmentErrors.WithLabelValues("data_unavailable")))
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestAssessLocation_AllSourcesFailed(t *testing.T) {
	rec := domain.ObservationRecord{UnavailableSources: []string{"marine-weather", "ocean-physics"}}
	ing := &mockIngester{rec: rec, err: unavailable("marine-weather", "ocean-physics")}
	p := New(ing, discardLogger(), observability.NewMetricsForTesting(), 24)

	res, err := p.AssessLocation(context.Background(), Request{Location: capeTown})

	require.ErrorIs(t, err, domain.ErrInsufficientData)
	var du *domain.DataUnavailableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, []string{"marine-weather", "ocean-physics"}, du.Sources())
	assert.Empty(t, res.Alert.Text, "no alert without an assessment")
	require.Error(t, p.CheckReadiness(context.Background()))

	// A later successful query restores readiness.
	ing.rec, ing.err = observed(), nil
	_, err = p.AssessLocation(context.Background(), Request{Location: capeTown})
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestAssessLocation_NoFactorsWithoutFailure(t *testing.T) {
	ing := &mockIngester{rec: domain.ObservationRecord{}}
	p := New(ing, discardLogger(), observability.NewMetricsForTesting(), 24)

	_, err := p.AssessLocation(context.Background(), Request{Location: capeTown})
	require.ErrorIs(t, err, domain.ErrInsufficientData)
	require.NoError(t, p.CheckReadiness(context.Background()), "sources answered, they just had no coverage")
}

func TestAssessLocation_InvalidRequest(t *testing.T) {
	ing := &mockIngester{err: domain.ErrInvalidLocation}
	p := New(ing, discardLogger(), observability.NewMetricsForTesting(), 24)

	_, err := p.AssessLocation(context.Background(), Request{Location: domain.Location{Latitude: 99}})
	require.ErrorIs(t, err, domain.ErrInvalidLocation)
	assert.NotErrorIs(t, err, domain.ErrInsufficientData)
}

func TestAssessLocation_Paraphrase(t *testing.T) {
	t.Run("summary attached", func(t *testing.T) {
		para := &mockParaphraser{summary: "Moderate seas. Small craft take care."}
		p := New(&mockIngester{rec: observed()}, discardLogger(), observability.NewMetricsForTesting(), 24, WithParaphraser(para))

		res, err := p.AssessLocation(context.Background(), Request{Location: capeTown, QueryText: "Safe to kayak?"})
		require.NoError(t, err)
		assert.Equal(t, "Moderate seas. Small craft take care.", res.Summary)
		assert.Equal(t, "Safe to kayak?", para.query)
	})

	t.Run("failure is swallowed and never changes the verdict", func(t *testing.T) {
		para := &mockParaphraser{err: errors.New("rate limited")}
		metrics := observability.NewMetricsForTesting()
		p := New(&mockIngester{rec: observed()}, discardLogger(), metrics, 24, WithParaphraser(para))

		res, err := p.AssessLocation(context.Background(), Request{Location: capeTown})
		require.NoError(t, err)
		assert.Empty(t, res.Summary)
		assert.Equal(t, domain.LevelAdvisory, res.Assessment.Level)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Paraphrases.WithLabelValues("error")))
	})
}

func TestAssessLocation_QueryTimeoutBoundsParaphrase(t *testing.T) {
	para := &mockParaphraser{summary: "late", delay: 3 * time.Second}
	metrics := observability.NewMetricsForTesting()
	p := New(&mockIngester{rec: observed()}, discardLogger(), metrics, 24,
		WithParaphraser(para), WithQueryTimeout(200*time.Millisecond))

	start := time.Now()
	res, err := p.AssessLocation(context.Background(), Request{Location: capeTown})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second, "the query deadline covers the paraphrase")
	assert.Empty(t, res.Summary)
	assert.Equal(t, domain.LevelAdvisory, res.Assessment.Level)
	assert.NotEmpty(t, res.Alert.Text)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Paraphrases.WithLabelValues("timeout")))
}

func TestAssessLocation_QueryTimeoutReachesIngest(t *testing.T) {
	ing := &deadlineIngester{}
	p := New(ing, discardLogger(), observability.NewMetricsForTesting(), 24, WithQueryTimeout(time.Minute))

	_, err := p.AssessLocation(context.Background(), Request{Location: capeTown})
	require.NoError(t, err)
	require.True(t, ing.hadDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Minute), ing.deadline, 5*time.Second)
}

type deadlineIngester struct {
	hadDeadline bool
	deadline    time.Time
}

func (d *deadlineIngester) Observe(ctx context.Context, loc domain.Location, _ int) (domain.ObservationRecord, error) {
	d.deadline, d.hadDeadline = ctx.Deadline()
	rec := observed()
	rec.Location = loc
	return rec, nil
}

func TestAssessPlace(t *testing.T) {
	t.Run("resolves and assesses", func(t *testing.T) {
		ing := &mockIngester{rec: observed()}
		geo := &mockGeocoder{result: domain.GeocodingResult{Lat: -29.8587, Lon: 31.0218, PlaceName: "Durban", FormattedAddress: "Durban, KwaZulu-Natal, South Africa"}}
		p := New(ing, discardLogger(), observability.NewMetricsForTesting(), 24, WithGeocoder(geo))

		res, err := p.AssessPlace(context.Background(), "Durban", "", 12)
		require.NoError(t, err)
		assert.Equal(t, domain.Location{Latitude: -29.8587, Longitude: 31.0218, Name: "Durban"}, ing.gotLoc)
		assert.Equal(t, 12, ing.horizon)
		assert.Contains(t, res.Alert.Text, "Location: Durban (-29.8587, 31.0218)")
	})

	t.Run("unknown place", func(t *testing.T) {
		p := New(&mockIngester{}, discardLogger(), observability.NewMetricsForTesting(), 24, WithGeocoder(&mockGeocoder{}))
		_, err := p.AssessPlace(context.Background(), "Atlantis", "", 0)
		require.ErrorIs(t, err, ErrPlaceNotFound)
	})

	t.Run("geocoder error", func(t *testing.T) {
		p := New(&mockIngester{}, discardLogger(), observability.NewMetricsForTesting(), 24,
			WithGeocoder(&mockGeocoder{err: errors.New("status 401")}))
		_, err := p.AssessPlace(context.Background(), "Durban", "", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolve place")
	})

	t.Run("no geocoder", func(t *testing.T) {
		p := New(&mockIngester{}, discardLogger(), observability.NewMetricsForTesting(), 24)
		_, err := p.AssessPlace(context.Background(), "Durban", "", 0)
		require.ErrorIs(t, err, ErrGeocodingDisabled)
	})
}
