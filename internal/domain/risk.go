package domain

import (
	"fmt"
	"strings"
)

// Level is the ordinal alert label derived from a risk score.
type Level string

const (
	LevelInformational Level = "INFORMATIONAL"
	LevelAdvisory      Level = "ADVISORY"
	LevelWarning       Level = "WARNING"
	LevelUrgent        Level = "URGENT"
)

var levelRank = map[Level]int{
	LevelInformational: 0,
	LevelAdvisory:      1,
	LevelWarning:       2,
	LevelUrgent:        3,
}

// LevelForScore maps a 0-100 score onto the fixed breakpoints.
func LevelForScore(score int) Level {
	switch {
	case score <= 25:
		return LevelInformational
	case score <= 50:
		return LevelAdvisory
	case score <= 75:
		return LevelWarning
	default:
		return LevelUrgent
	}
}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRank[l]; !ok {
		return "", fmt.Errorf("unknown alert level %q", s)
	}
	return l, nil
}

// AtLeast reports whether l is as severe as threshold or more.
func (l Level) AtLeast(threshold Level) bool {
	return levelRank[l] >= levelRank[threshold]
}

// Bucket is the threshold band a factor's value falls into.
type Bucket int

const (
	BucketLow Bucket = iota
	BucketModerate
	BucketHigh
	BucketSevere
)

var bucketScores = [...]int{0, 25, 50, 100}

// SubScore is the bucket's contribution to the composite score.
func (b Bucket) SubScore() int {
	return bucketScores[b]
}

// MarshalText encodes the bucket by name.
func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b Bucket) String() string {
	switch b {
	case BucketModerate:
		return "moderate"
	case BucketHigh:
		return "high"
	case BucketSevere:
		return "severe"
	default:
		return "low"
	}
}

// Factor names one of the four risk inputs.
type Factor string

const (
	FactorWaveHeight      Factor = "wave_height"
	FactorWindSpeed       Factor = "wind_speed"
	FactorCurrentVelocity Factor = "current_velocity"
	FactorVisibility      Factor = "visibility"
)

// Label is the human-readable factor name.
func (f Factor) Label() string {
	switch f {
	case FactorWaveHeight:
		return "wave height"
	case FactorWindSpeed:
		return "wind speed"
	case FactorCurrentVelocity:
		return "current velocity"
	case FactorVisibility:
		return "visibility"
	}
	return string(f)
}

// Unit is the unit the factor is measured in.
func (f Factor) Unit() string {
	switch f {
	case FactorWaveHeight:
		return "m"
	case FactorWindSpeed:
		return "kt"
	case FactorCurrentVelocity:
		return "km/h"
	case FactorVisibility:
		return "nm"
	}
	return ""
}

// FactorScore is one available factor's contribution.
type FactorScore struct {
	Factor   Factor  `json:"factor"`
	Value    float64 `json:"value"`
	Bucket   Bucket  `json:"bucket"`
	SubScore int     `json:"sub_score"`
}

// Reason renders the factor with its measured value, e.g. "Wave height 2.80 m (high)".
func (s FactorScore) Reason() string {
	label := s.Factor.Label()
	format := "%s %.2f %s (%s)"
	if s.Factor == FactorWindSpeed {
		format = "%s %.1f %s (%s)"
	}
	return fmt.Sprintf(format, strings.ToUpper(label[:1])+label[1:], s.Value, s.Factor.Unit(), s.Bucket)
}

// RiskAssessment is the classifier's verdict. It is never mutated after Classify returns it.
type RiskAssessment struct {
	Score int   `json:"score"`
	Level Level `json:"level"`

	// TriggeredFactors lists one reason per factor above its Low bucket, in fixed factor
	// order, plus a note when the assessment rests on a single factor.
	TriggeredFactors []string `json:"triggered_factors"`

	// Factors holds every available factor, including those in the Low bucket.
	Factors []FactorScore `json:"factors"`
}
