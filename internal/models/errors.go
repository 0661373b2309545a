package models

import "fmt"

// LoadErrorKind classifies dataset load failures
type LoadErrorKind string

const (
	LoadFileNotFound      LoadErrorKind = "file_not_found"
	LoadMalformedSchema   LoadErrorKind = "malformed_schema"
	LoadUnsupportedFormat LoadErrorKind = "unsupported_format"
	LoadSourceUnavailable LoadErrorKind = "source_unavailable"
)

// LoadError is returned when the raw table cannot be turned into a Dataset.
// It is fatal to the load, not to the process.
type LoadError struct {
	Kind    LoadErrorKind
	Path    string
	Missing []string
	Err     error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case LoadMalformedSchema:
		return fmt.Sprintf("malformed schema in %s: missing columns %v", e.Path, e.Missing)
	case LoadFileNotFound:
		return fmt.Sprintf("dataset file not found: %s", e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Err)
		}
		return fmt.Sprintf("load %s: %s", e.Path, e.Kind)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsTransient reports whether retrying the load may succeed
func (e *LoadError) IsTransient() bool {
	return e.Kind == LoadSourceUnavailable
}

// ValidationErrorKind classifies rejected user input
type ValidationErrorKind string

const (
	DateOutOfBounds ValidationErrorKind = "date_out_of_bounds"
	RangeInverted   ValidationErrorKind = "range_inverted"
	InvalidInput    ValidationErrorKind = "invalid_input"
)

// ValidationError represents a rejected filter or request value.
// Validation errors short-circuit the request that raised them.
type ValidationError struct {
	Kind    ValidationErrorKind
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// AggregationErrorKind classifies reducers that could not produce a value
type AggregationErrorKind string

const (
	InsufficientMetrics AggregationErrorKind = "insufficient_metrics"
	DegenerateRange     AggregationErrorKind = "degenerate_range"
	NoData              AggregationErrorKind = "no_data"
)

// AggregationError is recovered locally by callers, which substitute the
// documented fallback for the affected output.
type AggregationError struct {
	Kind      AggregationErrorKind
	Operation string
	Message   string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}
