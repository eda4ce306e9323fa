package gesture

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds reported to callers alongside the message.
const (
	KindShapeMismatch    = "shape_mismatch"
	KindInferenceFailure = "inference_failure"
	KindConfiguration    = "configuration"
	KindUnknown          = "unknown"
)

// ShapeError reports a RawSample whose element count does not match the schema.
type ShapeError struct {
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("Expected %d values, got %d", e.Expected, e.Actual)
}

// InferenceError wraps any failure raised by the underlying classifier.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ConfigurationError is fatal at startup; a service is never built from a
// configuration that produces one.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	var shapeErr *ShapeError
	var inferErr *InferenceError
	var cfgErr *ConfigurationError
	switch {
	case errors.As(err, &shapeErr):
		return KindShapeMismatch
	case errors.As(err, &inferErr):
		return KindInferenceFailure
	case errors.As(err, &cfgErr):
		return KindConfiguration
	default:
		return KindUnknown
	}
}
