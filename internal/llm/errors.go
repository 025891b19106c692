package llm

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// DefaultErrorMessage is shown when the provider gives no usable message.
const DefaultErrorMessage = "OpenAI request failed"

var (
	ErrProvider        = errors.New("provider request failed")
	ErrSchemaViolation = errors.New("response violates schema")
)

// ProviderError is a transport failure or a non-2xx provider response.
// Status is 0 when no response was received.
type ProviderError struct {
	Status  int
	Message string
	cause   error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("OpenAI error (status %d): %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.cause }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// SchemaViolationError means the model answered with something the result
// schema does not allow. Nothing is salvaged from such a response.
type SchemaViolationError struct {
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return "response violates schema: " + e.Reason
}

func (e *SchemaViolationError) Is(target error) bool { return target == ErrSchemaViolation }

func schemaViolation(format string, args ...any) *SchemaViolationError {
	return &SchemaViolationError{Reason: fmt.Sprintf(format, args...)}
}

// ErrorInfo maps any error to a status (0 if unknown) and a message suitable
// for display.
func ErrorInfo(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		msg := pe.Message
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return pe.Status, msg
	}

	if errors.Is(err, context.Canceled) {
		return 0, "Request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, "Request timed out"
	}

	var sv *SchemaViolationError
	if errors.As(err, &sv) {
		return 0, "The model returned an invalid response: " + sv.Reason
	}

	if msg := err.Error(); msg != "" {
		return 0, msg
	}
	return 0, DefaultErrorMessage
}
