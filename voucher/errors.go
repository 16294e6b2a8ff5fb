/*
errors.go - Centralized error types for the VR pipeline

PURPOSE:
  All pipeline error types in one place. Stage packages wrap these with
  additional context; the driver uses the category helpers to decide
  whether a run proceeds or halts.

ERROR CATEGORIES:
  1. Recoverable input errors - a missing optional source file; the stage
     proceeds with reduced data and logs a warning.
  2. Fatal input errors - a required or unreadable input, or a missing
     upstream checkpoint; the pipeline halts and reports stage and file.
  3. Classifier errors - the external rule classifier failed or returned a
     malformed decision set. Always fatal: no safe default exists, since
     "exclude nothing" and "exclude everything" both risk wrong payouts.
  4. Record-level problems - bad dates, missing fields. Never surfaced as
     errors; the validator repairs and audits them.

USAGE:
  if voucher.IsFatal(err) {
      return status, err // halt the run
  }
  log.Warn("source skipped", zap.Error(err))
*/
package voucher

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSourceMissing is returned when a source spreadsheet is absent.
	// Recoverable for the optional worker-status sources; the reader's
	// caller treats a missing active base as fatal regardless.
	ErrSourceMissing = errors.New("source file missing")

	// ErrSourceUnreadable is returned when a required input exists but
	// cannot be read or parsed. Fatal for the stage.
	ErrSourceUnreadable = errors.New("source file unreadable")

	// ErrArtifactMissing is returned when a stage's upstream checkpoint
	// artifact does not exist. Fatal: partial upstream output must never
	// be consumed.
	ErrArtifactMissing = errors.New("upstream artifact missing")

	// ErrClassifierUnavailable is returned when the external rule
	// classifier cannot be reached. Fatal for the exclusion stage.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrMalformedDecision is returned when the classifier responds with
	// output the resolver cannot interpret. Fatal: a silent keep-all
	// would cause incorrect payouts.
	ErrMalformedDecision = errors.New("malformed classifier decision set")

	// ErrInvalidPeriod is returned when a reference period ends before it
	// starts.
	ErrInvalidPeriod = errors.New("invalid reference period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StageError reports which stage failed and on which file, so the driver
// can surface it without re-parsing messages.
type StageError struct {
	Stage string
	File  string
	Err   error
}

func (e *StageError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.File, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ClassifierError wraps a failure from the external classification
// collaborator, keeping the provider name for the report.
type ClassifierError struct {
	Provider string
	Err      error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier %s: %v", e.Provider, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal reports whether the error must halt the pipeline.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnreadable) ||
		errors.Is(err, ErrArtifactMissing) ||
		errors.Is(err, ErrClassifierUnavailable) ||
		errors.Is(err, ErrMalformedDecision) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsRecoverable reports whether the stage may proceed with reduced data.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSourceMissing)
}
