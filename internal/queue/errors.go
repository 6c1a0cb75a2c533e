package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown item or a missing scan folder.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition reports a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrorClassifier allows errors to declare their classification. Known kinds
// are "not_found", "format", "collaborator" and "configuration".
type ErrorClassifier interface {
	ErrorKind() string
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	ItemID string
	From   Status
	To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("item %s: %s -> %s not allowed", e.ItemID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ErrorKind returns the classification used in result records.
func (e *TransitionError) ErrorKind() string { return "state" }

// Kind returns the classification of err, or "unknown" when nothing in the
// chain implements ErrorClassifier.
func Kind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	return "unknown"
}
