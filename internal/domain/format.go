package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertValidity is how long an issued alert stays current.
const AlertValidity = 24 * time.Hour

var recommendations = map[Level]string{
	LevelInformational: "Safe conditions for all vessel types. Routine monitoring recommended.",
	LevelAdvisory:      "Proceed with caution. Small craft should monitor closely.",
	LevelWarning:       "Challenging conditions. Small vessels should postpone. Enhanced monitoring required.",
	LevelUrgent:        "Hazardous conditions. All non-essential operations should cease. Immediate action required.",
}

// Recommendation returns the canned guidance for a level.
func Recommendation(l Level) string {
	return recommendations[l]
}

// AlertMessage is a rendered assessment, ready for display or delivery.
type AlertMessage struct {
	Location           Location  `json:"location"`
	Level              Level     `json:"level"`
	Score              int       `json:"score"`
	TriggeredFactors   []string  `json:"triggered_factors"`
	Recommendation     string    `json:"recommendation"`
	IssuedAt           time.Time `json:"issued_at"`
	ValidUntil         time.Time `json:"valid_until"`
	UnavailableSources []string  `json:"unavailable_sources,omitempty"`
	Text               string    `json:"text"`
}

// FormatAlert renders the assessment of rec as a fixed-layout text block.
func FormatAlert(a RiskAssessment, rec ObservationRecord) AlertMessage {
	msg := AlertMessage{
		Location:           rec.Location,
		Level:              a.Level,
		Score:              a.Score,
		TriggeredFactors:   append([]string(nil), a.TriggeredFactors...),
		Recommendation:     Recommendation(a.Level),
		IssuedAt:           rec.ObservedAt,
		ValidUntil:         rec.ObservedAt.Add(AlertValidity),
		UnavailableSources: append([]string(nil), rec.UnavailableSources...),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - Maritime Safety Alert\n", msg.Level)
	if rec.Location.Name != "" {
		fmt.Fprintf(&b, "Location: %s (%.4f, %.4f)\n", rec.Location.Name, rec.Location.Latitude, rec.Location.Longitude)
	} else {
		fmt.Fprintf(&b, "Location: %s\n", rec.Location)
	}
	fmt.Fprintf(&b, "Issued: %s\n", msg.IssuedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Valid until: %s\n", msg.ValidUntil.Format(time.RFC3339))
	fmt.Fprintf(&b, "Risk Score: %d/100\n", msg.Score)
	b.WriteString("\nTriggered factors:\n")
	if len(msg.TriggeredFactors) == 0 {
		b.WriteString("- none\n")
	}
	for _, f := range msg.TriggeredFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "\nRecommendation: %s\n", msg.Recommendation)
	if len(msg.UnavailableSources) > 0 {
		fmt.Fprintf(&b, "Unavailable sources: %s\n", strings.Join(msg.UnavailableSources, ", "))
	}
	msg.Text = b.String()
	return msg
}
