package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodePersistence  = "PERSISTENCE_FAILED"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeExtractPanic = "EXTRACTION_PANIC"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
//
// Message is safe to show to callers. Err may carry driver or browser
// internals and is only meant for logs.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// NewValidationError reports bad caller input. Nothing has been persisted.
func NewValidationError(message string) *ScrapeError {
	return &ScrapeError{Code: ErrCodeInvalidInput, Message: message}
}

// NewPersistenceError reports a job store failure.
func NewPersistenceError(message string, err error) *ScrapeError {
	return &ScrapeError{Code: ErrCodePersistence, Message: message, Err: err}
}

// CodeOf returns the code of the first ScrapeError in err's chain,
// or ErrCodeInternal.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeInvalidInput
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	return CodeOf(err) == ErrCodePersistence
}

// IsExtractionFatal reports whether err aborted an extraction session.
func IsExtractionFatal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTimeout, ErrCodeNavigation, ErrCodeBrowserCrash, ErrCodeExtractPanic:
		return true
	}
	return false
}

// PublicMessage returns the caller-facing summary of err. For a ScrapeError
// that is its Message; wrapped driver errors are never included.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal error"
}
