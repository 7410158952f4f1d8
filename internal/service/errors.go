package service

import (
	"errors"
	"fmt"

	"github.com/studyai/studyai-go/internal/model"
)

var (
	ErrInvalidContentType = errors.New("invalid content type specified")
	ErrUpstream           = errors.New("upstream model failure")
)

// ValidationError wraps a rejected request body.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SchemaError describes model output that did not match the requested shape.
type SchemaError struct {
	ContentType model.ContentType
	Reason      string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model output is not a valid %s: %s", e.ContentType, e.Reason)
}

// upstream tags err as an upstream failure while keeping its message.
func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
