package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for each failure class
type ErrorCode string

const (
	// Fatal errors abort the whole pipeline run
	ErrCodeInputMissing         ErrorCode = "INPUT_MISSING"
	ErrCodeHeaderMissing        ErrorCode = "HEADER_MISSING"
	ErrCodeGazetteerUnavailable ErrorCode = "GAZETTEER_UNAVAILABLE"
	ErrCodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	ErrCodeConfigInvalid        ErrorCode = "CONFIG_INVALID"

	// Recoverable per-row / per-field / per-listing errors
	ErrCodeRowMalformed         ErrorCode = "ROW_MALFORMED"
	ErrCodeFieldUnresolved      ErrorCode = "FIELD_UNRESOLVED"
	ErrCodeListingPersistFailed ErrorCode = "LISTING_PERSIST_FAILED"
	ErrCodeListingTimeout       ErrorCode = "LISTING_TIMEOUT"
)

// Severity maps an error class to how the pipeline reacts to it
type Severity int

const (
	// SeverityFatal aborts the batch with a non-zero exit
	SeverityFatal Severity = iota
	// SeverityRow skips the offending row and continues
	SeverityRow
	// SeverityField leaves the field empty and continues with the listing
	SeverityField
	// SeverityListing skips the offending listing and continues the batch
	SeverityListing
)

// PipelineError is a structured error carrying its failure class
type PipelineError struct {
	Code     ErrorCode
	Severity Severity
	Message  string
	Details  map[string]any
	Err      error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// WithDetail adds additional context to the error
func (e *PipelineError) WithDetail(key string, value any) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new PipelineError
func New(code ErrorCode, severity Severity, message string) *PipelineError {
	return &PipelineError{Code: code, Severity: severity, Message: message}
}

// Wrap wraps an existing error with PipelineError context
func Wrap(err error, code ErrorCode, severity Severity, message string) *PipelineError {
	return &PipelineError{Code: code, Severity: severity, Message: message, Err: err}
}

// Fatal error constructors

func InputMissing(path string) *PipelineError {
	return New(ErrCodeInputMissing, SeverityFatal,
		fmt.Sprintf("input file %q is missing or empty", path))
}

func HeaderMissing(path string) *PipelineError {
	return New(ErrCodeHeaderMissing, SeverityFatal,
		fmt.Sprintf("input file %q has no header row", path))
}

func GazetteerUnavailable(err error) *PipelineError {
	return Wrap(err, ErrCodeGazetteerUnavailable, SeverityFatal,
		"gazetteer reference data is absent and could not be fetched")
}

func DatabaseError(err error) *PipelineError {
	return Wrap(err, ErrCodeDatabaseError, SeverityFatal, "database operation failed")
}

func ConfigInvalid(message string) *PipelineError {
	return New(ErrCodeConfigInvalid, SeverityFatal, message)
}

// Recoverable error constructors

func RowMalformed(lineNo, got, want int) *PipelineError {
	return New(ErrCodeRowMalformed, SeverityRow,
		fmt.Sprintf("row %d has %d columns, header has %d", lineNo, got, want))
}

func FieldUnresolved(listingID, field, reason string) *PipelineError {
	return New(ErrCodeFieldUnresolved, SeverityField,
		fmt.Sprintf("listing %s: %s unresolved: %s", listingID, field, reason)).
		WithDetail("listing_id", listingID).
		WithDetail("field", field)
}

func ListingPersistFailed(listingID string, err error) *PipelineError {
	return Wrap(err, ErrCodeListingPersistFailed, SeverityListing,
		fmt.Sprintf("listing %s could not be persisted", listingID)).
		WithDetail("listing_id", listingID)
}

func ListingTimeout(listingID string) *PipelineError {
	return New(ErrCodeListingTimeout, SeverityListing,
		fmt.Sprintf("listing %s exceeded the per-listing processing timeout", listingID)).
		WithDetail("listing_id", listingID)
}

// IsFatal reports whether err carries a fatal pipeline error
func IsFatal(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	// Unclassified errors abort: failing loud beats silently dropping data
	return true
}

// GetPipelineError extracts a PipelineError from an error chain
func GetPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	ok := errors.As(err, &pe)
	return pe, ok
}
