package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrQueueEmpty reports a run against a queue with no items.
	ErrQueueEmpty = errors.New("queue is empty; scan the input folder first")
	// ErrNothingToProcess reports a run whose operation selects no item.
	ErrNothingToProcess = errors.New("no items to process")
	// ErrUnknownOperation reports an operation name the runner does not know.
	ErrUnknownOperation = errors.New("unknown operation")
)

// ErrorClassifier allows errors to declare their classification.
type ErrorClassifier interface {
	ErrorKind() string
}

// NotFoundError reports a missing input file.
type NotFoundError struct {
	What string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

func (e *NotFoundError) Unwrap() error { return fs.ErrNotExist }

// ErrorKind classifies the error for result records.
func (e *NotFoundError) ErrorKind() string { return "not_found" }

// FormatError reports subtitle content that cannot be used.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// ErrorKind classifies the error for result records.
func (e *FormatError) ErrorKind() string { return "format" }

// CollaboratorError reports a failed call to the encoder or the translation
// service.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for result records.
func (e *CollaboratorError) ErrorKind() string { return "collaborator" }

// ConfigurationError reports settings that make a run impossible.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for result records.
func (e *ConfigurationError) ErrorKind() string { return "configuration" }

// panicError carries a recovered panic from one item.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("unexpected failure: %v", e.value)
}

func (e *panicError) ErrorKind() string { return "internal" }

// Kind returns the classification of err, or "unknown" when nothing in the
// chain implements ErrorClassifier. The outermost classifier wins.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	if errors.Is(err, fs.ErrNotExist) {
		return "not_found"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "unknown"
}
