package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories surfaced by the publishing layer.
type ErrorKind string

const (
	KindNotConnected        ErrorKind = "not_connected"
	KindOAuth               ErrorKind = "oauth_error"
	KindProviderAPI         ErrorKind = "provider_api_error"
	KindUnsupported         ErrorKind = "unsupported_operation"
	KindPartialMediaFailure ErrorKind = "partial_media_failure"
	KindInvalidRequest      ErrorKind = "invalid_request"
)

// OAuth operation names attached to KindOAuth errors.
const (
	OperationTokenExchange = "token_exchange"
	OperationTokenRefresh  = "token_refresh"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotConnected        = &PlatformError{Kind: KindNotConnected}
	ErrOAuth               = &PlatformError{Kind: KindOAuth}
	ErrProviderAPI         = &PlatformError{Kind: KindProviderAPI}
	ErrUnsupported         = &PlatformError{Kind: KindUnsupported}
	ErrPartialMediaFailure = &PlatformError{Kind: KindPartialMediaFailure}
	ErrInvalidRequest      = &PlatformError{Kind: KindInvalidRequest}
)

// PlatformError carries a failure kind together with the platform and operation it came from.
type PlatformError struct {
	Kind       ErrorKind
	Platform   Platform
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *PlatformError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Platform != "" && e.Operation != "":
		return fmt.Sprintf("%s %s: %s", e.Platform, e.Operation, msg)
	case e.Platform != "":
		return fmt.Sprintf("%s: %s", e.Platform, msg)
	default:
		return msg
	}
}

func (e *PlatformError) Unwrap() error { return e.Err }

// Is matches another *PlatformError by kind, so sentinels like ErrNotConnected work with errors.Is.
func (e *PlatformError) Is(target error) bool {
	t, ok := target.(*PlatformError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the failure kind of err, or "" when err is not a PlatformError.
func KindOf(err error) ErrorKind {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func NewNotConnectedError(platform Platform) *PlatformError {
	return &PlatformError{
		Kind:     KindNotConnected,
		Platform: platform,
		Message:  fmt.Sprintf("%s account not connected", platform),
	}
}

func NewOAuthError(platform Platform, operation string, statusCode int, message string, err error) *PlatformError {
	return &PlatformError{
		Kind:       KindOAuth,
		Platform:   platform,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func NewProviderError(platform Platform, operation string, statusCode int, message string) *PlatformError {
	return &PlatformError{
		Kind:       KindProviderAPI,
		Platform:   platform,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

func NewUnsupportedError(platform Platform, operation, message string) *PlatformError {
	return &PlatformError{
		Kind:      KindUnsupported,
		Platform:  platform,
		Operation: operation,
		Message:   message,
	}
}

func NewInvalidRequestError(platform Platform, operation, message string) *PlatformError {
	return &PlatformError{
		Kind:      KindInvalidRequest,
		Platform:  platform,
		Operation: operation,
		Message:   message,
	}
}

// WrapProviderError turns a transport failure into a provider error unless it already carries a kind.
func WrapProviderError(platform Platform, operation string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PlatformError
	if errors.As(err, &pe) {
		return err
	}
	return &PlatformError{Kind: KindProviderAPI, Platform: platform, Operation: operation, Err: err}
}
