package llm

import (
	"errors"
	"fmt"
)

// ErrorType classifies completion failures.
type ErrorType string

const (
	ErrorTypeAPI      ErrorType = "api"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeResponse ErrorType = "response"
)

// ErrMissingAPIKey is returned when a remote provider is configured without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// Error is a provider failure with enough context to log.
type Error struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Provider != "" {
		prefix += " " + e.Provider
	}
	if e.StatusCode != 0 {
		prefix += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// APIError reports a transport or HTTP status failure.
func APIError(provider string, status int, message string, err error) *Error {
	return &Error{Type: ErrorTypeAPI, Provider: provider, StatusCode: status, Message: message, Err: err}
}

// ResponseError reports a reply that arrived but could not be used.
func ResponseError(provider, message string, err error) *Error {
	return &Error{Type: ErrorTypeResponse, Provider: provider, Message: message, Err: err}
}

// ConfigError reports an unusable client configuration.
func ConfigError(message string, err error) *Error {
	return &Error{Type: ErrorTypeConfig, Message: message, Err: err}
}
