// Package errs carries the domain error taxonomy shared by the escrow and
// payment services. Handlers map kinds to HTTP statuses; services never return
// raw gorm or gateway errors to callers.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindInvalidState
	KindConflict
	KindGatewayDisabled
	KindGateway
	KindUnsupported
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %v", entity, id)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func InvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func GatewayDisabled(gateway string) *Error {
	return &Error{Kind: KindGatewayDisabled, Message: fmt.Sprintf("%s is currently disabled", gateway)}
}

func Gateway(msg string, cause error) *Error {
	return &Error{Kind: KindGateway, Message: msg, Cause: cause}
}

func Unsupported(msg string) *Error {
	return &Error{Kind: KindUnsupported, Message: msg}
}

// KindOf returns the kind of err, or 0 if err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }

// HTTPStatus maps a domain error to the status the JSON layer should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return 404
	case KindUnauthorized:
		return 403
	case KindInvalidState, KindUnsupported:
		return 400
	case KindConflict:
		return 409
	case KindGatewayDisabled:
		return 400
	case KindGateway:
		return 502
	default:
		return 500
	}
}
