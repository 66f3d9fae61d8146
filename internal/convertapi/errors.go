package convertapi

import (
	"errors"
	"fmt"

	"wordxl/internal/services"
)

// StatusError reports a non-2xx response. Error() returns the phase message
// the session shows to users.
type StatusError struct {
	Op         string
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Message
}

// Detail includes the operation and HTTP status for logs.
func (e *StatusError) Detail() string {
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return services.ErrRemote }

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// UserMessage returns the short message shown for a failed call: the phase
// message for rejected responses, the full error otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
