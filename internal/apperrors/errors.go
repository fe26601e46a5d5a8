// Package apperrors holds the error kinds the scoring pipeline can fail with.
// Handlers match them with errors.As to pick a status code.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind names used in structured error bodies.
const (
	KindBadRequest        = "bad_request"
	KindExtraction        = "extraction_error"
	KindUpstream          = "upstream_error"
	KindMalformedResponse = "malformed_response"
	KindValidation        = "validation_error"
	KindInternal          = "internal_error"
)

// ErrEmptyText is returned when there is nothing left to score.
var ErrEmptyText = errors.New("text is empty")

// BadRequestError reports a missing or malformed caller-supplied field.
type BadRequestError struct {
	Field   string
	Message string
}

func (e *BadRequestError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ExtractionError means an uploaded document could not be parsed at all.
type ExtractionError struct {
	Filename string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Filename, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// UpstreamError means the text-generation service was unreachable or returned a fault.
type UpstreamError struct {
	Provider string
	Cause    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream: %v", e.Provider, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// MalformedResponseError means the model output was not valid JSON even after the repair call.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON after repair: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// ValidationError means the model output parsed but does not match the expected shape.
// Key names the offending category.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid score for %q: %s", e.Key, e.Reason)
}

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	var (
		br  *BadRequestError
		ex  *ExtractionError
		up  *UpstreamError
		mr  *MalformedResponseError
		val *ValidationError
	)
	switch {
	case errors.As(err, &br), errors.Is(err, ErrEmptyText):
		return KindBadRequest
	case errors.As(err, &ex):
		return KindExtraction
	case errors.As(err, &up):
		return KindUpstream
	case errors.As(err, &mr):
		return KindMalformedResponse
	case errors.As(err, &val):
		return KindValidation
	default:
		return KindInternal
	}
}
