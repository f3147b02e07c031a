package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultHorizonHours is the forecast window used when a query does not name one.
	DefaultHorizonHours = 24
	// MaxHorizonHours bounds the forecast window to what the upstream feeds cover reliably.
	MaxHorizonHours = 168
)

// Location identifies the point being assessed.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// Validate reports ErrInvalidLocation for coordinates outside the WGS84 range.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v: %w", l.Latitude, ErrInvalidLocation)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v: %w", l.Longitude, ErrInvalidLocation)
	}
	return nil
}

// String renders the location name, falling back to its coordinates.
func (l Location) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%.4f, %.4f", l.Latitude, l.Longitude)
}

// ValidateHorizon reports ErrInvalidHorizon for a window outside 1..MaxHorizonHours.
func ValidateHorizon(hours int) error {
	if hours < 1 || hours > MaxHorizonHours {
		return fmt.Errorf("horizon %d hours: %w", hours, ErrInvalidHorizon)
	}
	return nil
}

// Measurements holds the four risk factors. A nil field is unavailable.
type Measurements struct {
	WaveHeightM        *float64 `json:"wave_height_m"`
	WindSpeedKt        *float64 `json:"wind_speed_kt"`
	CurrentVelocityKmh *float64 `json:"current_velocity_kmh"`
	VisibilityNm       *float64 `json:"visibility_nm"`
}

// Merge fills fields that are still unavailable from other. Fields already set win.
func (m *Measurements) Merge(other Measurements) {
	if m.WaveHeightM == nil {
		m.WaveHeightM = other.WaveHeightM
	}
	if m.WindSpeedKt == nil {
		m.WindSpeedKt = other.WindSpeedKt
	}
	if m.CurrentVelocityKmh == nil {
		m.CurrentVelocityKmh = other.CurrentVelocityKmh
	}
	if m.VisibilityNm == nil {
		m.VisibilityNm = other.VisibilityNm
	}
}

// Available counts the fields that carry a usable value.
func (m Measurements) Available() int {
	n := 0
	for _, v := range []*float64{m.WaveHeightM, m.WindSpeedKt, m.CurrentVelocityKmh, m.VisibilityNm} {
		if usable(v) {
			n++
		}
	}
	return n
}

// ObservationRecord is the merged snapshot produced for one query.
type ObservationRecord struct {
	ID       string   `json:"id,omitempty"`
	Location Location `json:"location"`
	Measurements
	HorizonHours int       `json:"horizon_hours"`
	ObservedAt   time.Time `json:"observed_at"`

	// UnavailableSources names upstream sources that failed for this query.
	UnavailableSources []string `json:"unavailable_sources,omitempty"`
}

// Measured returns a pointer to v, for building Measurements.
func Measured(v float64) *float64 {
	return &v
}

// usable rejects NaN and negative readings; every factor is a non-negative magnitude.
func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && *v >= 0
}
