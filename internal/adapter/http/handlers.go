package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
	"github.com/couchcryptid/marine-alert-service/internal/pipeline"
)

// AssessInput is the query string of GET /v1/assess.
type AssessInput struct {
	Latitude     float64 `query:"latitude" required:"true" minimum:"-90" maximum:"90" doc:"Latitude in decimal degrees"`
	Longitude    float64 `query:"longitude" required:"true" minimum:"-180" maximum:"180" doc:"Longitude in decimal degrees"`
	Name         string  `query:"name" doc:"Display name for the location"`
	Query        string  `query:"query" doc:"Free-text question, used only for the natural-language summary"`
	HorizonHours int     `query:"horizon_hours" doc:"Forecast hours to consider (default from server config, max 168)"`
}

// AssessPlaceInput is the query string of GET /v1/assess/place.
type AssessPlaceInput struct {
	Name         string `query:"name" required:"true" minLength:"1" doc:"Place name to resolve"`
	Query        string `query:"query" doc:"Free-text question, used only for the natural-language summary"`
	HorizonHours int    `query:"horizon_hours" doc:"Forecast hours to consider (default from server config, max 168)"`
}

// AssessmentBody is the JSON response for both assess operations.
type AssessmentBody struct {
	ID                 string                   `json:"id" doc:"Observation record id"`
	Level              domain.Level             `json:"level" enum:"INFORMATIONAL,ADVISORY,WARNING,URGENT"`
	Score              int                      `json:"score" minimum:"0" maximum:"100"`
	TriggeredFactors   []string                 `json:"triggered_factors"`
	Recommendation     string                   `json:"recommendation"`
	Message            string                   `json:"message" doc:"Rendered alert text"`
	Summary            string                   `json:"summary,omitempty" doc:"Natural-language rewrite of the alert, when enabled"`
	UnavailableSources []string                 `json:"unavailable_sources" doc:"Upstream sources that failed for this query"`
	Observation        domain.ObservationRecord `json:"observation"`
}

// AssessOutput wraps AssessmentBody for huma.
type AssessOutput struct {
	Body AssessmentBody
}

func (s *Server) handleAssess(ctx context.Context, in *AssessInput) (*AssessOutput, error) {
	res, err := s.assessor.AssessLocation(ctx, pipeline.Request{
		Location:     domain.Location{Latitude: in.Latitude, Longitude: in.Longitude, Name: in.Name},
		QueryText:    in.Query,
		HorizonHours: in.HorizonHours,
	})
	return s.respond(res, err)
}

func (s *Server) handleAssessPlace(ctx context.Context, in *AssessPlaceInput) (*AssessOutput, error) {
	res, err := s.assessor.AssessPlace(ctx, in.Name, in.Query, in.HorizonHours)
	return s.respond(res, err)
}

// respond maps a pipeline outcome onto the API. Partial data is a success.
func (s *Server) respond(res pipeline.Result, err error) (*AssessOutput, error) {
	if err != nil {
		var unavailable *domain.DataUnavailableError
		if errors.Is(err, domain.ErrInsufficientData) || !errors.As(err, &unavailable) {
			return nil, s.toAPIError(err)
		}
	}

	body := AssessmentBody{
		ID:                 res.Record.ID,
		Level:              res.Assessment.Level,
		Score:              res.Assessment.Score,
		TriggeredFactors:   append([]string{}, res.Assessment.TriggeredFactors...),
		Recommendation:     res.Alert.Recommendation,
		Message:            res.Alert.Text,
		Summary:            res.Summary,
		UnavailableSources: append([]string{}, res.Record.UnavailableSources...),
		Observation:        res.Record,
	}
	return &AssessOutput{Body: body}, nil
}

func (s *Server) toAPIError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidLocation), errors.Is(err, domain.ErrInvalidHorizon):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrInsufficientData):
		msg := "no risk factor could be measured for this location"
		var unavailable *domain.DataUnavailableError
		if errors.As(err, &unavailable) {
			msg = fmt.Sprintf("%s; unavailable sources: %s", msg, strings.Join(unavailable.Sources(), ", "))
		}
		return huma.Error503ServiceUnavailable(msg)
	case errors.Is(err, pipeline.ErrPlaceNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, pipeline.ErrGeocodingDisabled):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("assessment timed out")
	default:
		s.logger.Error("assessment failed", "error", err)
		return huma.Error502BadGateway("upstream lookup failed")
	}
}
