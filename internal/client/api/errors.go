package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iudanet/chatdesk/pkg/api"
)

var (
	// ErrAuthExpired означает, что сессию восстановить нельзя: токена нет
	// или refresh не удался. Вызывающий должен разлогинить пользователя.
	ErrAuthExpired = errors.New("session expired, please log in again")

	// ErrBusy returned when a conflicting operation is still in flight
	ErrBusy = errors.New("another operation is in progress")
)

// maxErrorBody ограничивает, сколько тела ошибки мы храним и логируем
const maxErrorBody = 4 << 10

// NetworkError transport failure: no HTTP response was received.
type NetworkError struct {
	Err error
	Op  string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError a response was received with a non-2xx status.
type ServerError struct {
	Message string
	Body    []byte
	Status  int
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

// ValidationError malformed input: either from the caller or a payload from
// the server that does not match the documented shape.
type ValidationError struct {
	Err    error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// newServerError builds a ServerError, pulling a human-readable message out
// of the body when the backend sent one.
func newServerError(status int, body []byte) *ServerError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	se := &ServerError{Status: status, Body: body}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		se.Message = errResp.Text()
	}
	if se.Message == "" {
		se.Message = strings.TrimSpace(string(body))
	}
	if se.Message == "" {
		se.Message = http.StatusText(status)
	}
	return se
}

// malformed wraps a decode/validation failure of a server payload.
func malformed(what string, err error) *ValidationError {
	return &ValidationError{Field: what, Reason: err.Error(), Err: err}
}

// IsStatus reports whether err is a ServerError with the given status.
func IsStatus(err error, status int) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Status == status
}
