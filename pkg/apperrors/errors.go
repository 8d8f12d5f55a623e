package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInactive = errors.New("entity is inactive")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidationError is returned when a proposed mutation fails a structural
// check or a business guard. The whole mutation is aborted; nothing is
// committed and no history row is written.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed [%s]: %s", e.Rule, e.Message)
}

// NewValidationError creates a ValidationError for the named rule.
func NewValidationError(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// VersionConflict is returned when an Update carries an expectedVersion that
// no longer matches the stored row. The caller should re-read and retry.
type VersionConflict struct {
	EntityType string
	EntityID   string
	Expected   int
	Actual     int
}

func (e *VersionConflict) Error() string {
	return fmt.Sprintf("version conflict on %s %s: expected %d, stored %d",
		e.EntityType, e.EntityID, e.Expected, e.Actual)
}

// IsRetryable marks version conflicts as transient: the caller should
// re-read the row and retry with the fresh version.
func (e *VersionConflict) IsRetryable() bool {
	return true
}

// IsVersionConflict reports whether err is (or wraps) a VersionConflict.
func IsVersionConflict(err error) bool {
	var vc *VersionConflict
	return errors.As(err, &vc)
}

// PropagationDepthExceeded indicates a synchronization chain either revisited
// a (rule, entity) pair or ran past the configured depth bound. It is fatal
// to the originating mutation; the entire chain rolls back.
type PropagationDepthExceeded struct {
	Rule     string
	EntityID string
	Depth    int
	MaxDepth int
}

func (e *PropagationDepthExceeded) Error() string {
	return fmt.Sprintf("propagation depth exceeded at rule %q (entity %s, depth %d, max %d)",
		e.Rule, e.EntityID, e.Depth, e.MaxDepth)
}

// IsPropagationDepthExceeded reports whether err is (or wraps) a
// PropagationDepthExceeded.
func IsPropagationDepthExceeded(err error) bool {
	var pd *PropagationDepthExceeded
	return errors.As(err, &pd)
}

// ReferentialIntegrityError is returned when the target of a relationship is
// missing or inactive.
type ReferentialIntegrityError struct {
	Relation string
	TargetID string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("referential integrity violation: %s target %s is missing or inactive",
		e.Relation, e.TargetID)
}

// EvaluationError wraps an infrastructure failure during anomaly evaluation
// or a report query. Bad data never produces an EvaluationError; bad data is
// what evaluation reports as alerts.
type EvaluationError struct {
	Stage string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed during %s: %v", e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// NewEvaluationError creates an EvaluationError for the given stage.
func NewEvaluationError(stage string, err error) *EvaluationError {
	return &EvaluationError{Stage: stage, Err: err}
}
