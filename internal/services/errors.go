package services

import (
	"errors"
	"fmt"
)

// The pipeline's failure taxonomy. Nothing below the orchestrator may reach
// the HTTP caller directly: every internal failure maps to a degraded result
// or a user-facing fallback. Only ConfigurationError propagates hard, because
// it means the system cannot function until an administrator intervenes.

// ConfigurationError means no active schema or weight set exists. Fatal,
// surfaced as 5xx, never retried.
type ConfigurationError struct {
	Resource string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error (%s): %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("configuration error (%s)", e.Resource)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExtractionError means the upstream extraction call failed after retries or
// returned completely unparseable output. The turn proceeds without a venture
// update.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// InsufficientDataError means a venture cannot be created yet because no
// identifying name could be derived. Not user-visible.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// ReplyGenerationError means reply generation failed; the user receives the
// fallback message and the original message is preserved for reprocessing.
type ReplyGenerationError struct {
	Err error
}

func (e *ReplyGenerationError) Error() string {
	return fmt.Sprintf("reply generation failed: %v", e.Err)
}

func (e *ReplyGenerationError) Unwrap() error { return e.Err }

// FieldWarning records a single extracted field dropped during validation.
// Field drops never abort a turn; they are aggregated and logged.
type FieldWarning struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

func IsInsufficientDataError(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}
