package kontomanager

import (
	"fmt"
)

// ErrorKind classifies a client failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConfig is an invalid client configuration (unknown brand, missing credentials).
	KindConfig
	// KindLogin is a rejected login or a session the portal no longer recognizes.
	KindLogin
	// KindHTTPStatus is a 4xx/5xx response.
	KindHTTPStatus
	// KindTransport is a connection failure or timeout.
	KindTransport
	// KindMissingToken means a form did not carry the expected CSRF token.
	KindMissingToken
	// KindApplication is a JSON endpoint reporting a status other than "OK".
	KindApplication
	// KindUnexpectedResponse is a mutation response that does not confirm success.
	KindUnexpectedResponse
	// KindNotFound is a requested entity (ex. a bill number) that does not exist.
	KindNotFound
	// KindUnavailable is a requested document that the portal does not offer for an entity.
	KindUnavailable
	// KindInvalidArgument is an argument rejected before anything is sent.
	KindInvalidArgument
	// KindParse is a page or payload that could not be decoded at all.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindLogin:
		return "login"
	case KindHTTPStatus:
		return "http-status"
	case KindTransport:
		return "transport"
	case KindMissingToken:
		return "missing-token"
	case KindApplication:
		return "application"
	case KindUnexpectedResponse:
		return "unexpected-response"
	case KindNotFound:
		return "not-found"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// Error is the single error type returned by every client operation.
type Error struct {
	Kind    ErrorKind
	Message string
	// StatusCode is set for KindHTTPStatus.
	StatusCode int
	Err        error
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kontomanager: %s: %s", e.Message, e.Err.Error())
	}
	return fmt.Sprintf("kontomanager: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrLogin) works for every login failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConfig             = &Error{Kind: KindConfig}
	ErrLogin              = &Error{Kind: KindLogin}
	ErrHTTPStatus         = &Error{Kind: KindHTTPStatus}
	ErrTransport          = &Error{Kind: KindTransport}
	ErrMissingToken       = &Error{Kind: KindMissingToken}
	ErrApplication        = &Error{Kind: KindApplication}
	ErrUnexpectedResponse = &Error{Kind: KindUnexpectedResponse}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnavailable        = &Error{Kind: KindUnavailable}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrParse              = &Error{Kind: KindParse}
)
