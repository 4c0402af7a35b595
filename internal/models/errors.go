package models

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures so callers can tell a bad request from a bad
// record from a failed save without string matching.
type ErrKind int

const (
	KindValidation  ErrKind = iota + 1 // caller supplied invalid input; nothing was mutated
	KindComputation                    // a single record could not be processed
	KindPersistence                    // the alert store failed; the operation may be retried
)

func (k ErrKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindComputation:
		return "computation"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// KindError tags an error with its ErrKind.
type KindError struct {
	Kind ErrKind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

func ValidationError(format string, args ...any) error {
	return &KindError{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

func ComputationError(format string, args ...any) error {
	return &KindError{Kind: KindComputation, Err: fmt.Errorf(format, args...)}
}

func PersistenceError(err error) error {
	return &KindError{Kind: KindPersistence, Err: err}
}

// KindOf extracts the ErrKind from err, or 0 if err is untagged.
func KindOf(err error) ErrKind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return 0
}
