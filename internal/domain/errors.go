package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientData means no risk factor was known, so no assessment is possible.
	ErrInsufficientData = errors.New("insufficient data: no risk factor available")

	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidHorizon  = errors.New("invalid forecast horizon")
)

// SourceFailure records why one upstream source produced no data.
type SourceFailure struct {
	Source string
	Err    error
}

// DataUnavailableError reports the upstream sources that failed or timed out.
// Data from the remaining sources may still have been returned alongside it.
type DataUnavailableError struct {
	Failures []SourceFailure
}

func (e *DataUnavailableError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Source, f.Err)
	}
	return "data unavailable: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-source causes, so errors.Is(err, context.DeadlineExceeded) works.
func (e *DataUnavailableError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Sources returns the names of the failed sources in reporting order.
func (e *DataUnavailableError) Sources() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Source
	}
	return names
}
