package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth marks a rejected authorize request.
	ErrAuth = errors.New("authorization rejected")
	// ErrDataUnavailable marks a history response without usable prices.
	ErrDataUnavailable = errors.New("history data unavailable")
	// ErrSubscribe marks a rejected or failed tick subscription.
	ErrSubscribe = errors.New("tick subscription failed")
	// ErrUnsubscribe marks a rejected forget_all request.
	ErrUnsubscribe = errors.New("unsubscribe failed")
	// ErrTrade marks a rejected buy request.
	ErrTrade = errors.New("trade rejected")
	// ErrConnectionInterrupted is returned once the websocket read side has failed.
	ErrConnectionInterrupted = errors.New("connection interrupted")
	// ErrRequestTimeout is returned when a response does not arrive within the request timeout.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrOutOfOrder is returned when an operation is not allowed in the current session state.
	ErrOutOfOrder = errors.New("operation out of order")
	// ErrClosed is returned for any operation on a closed session.
	ErrClosed = errors.New("session closed")
)

// APIError is a response that carried an error object.
type APIError struct {
	Op      string
	Code    string
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Code)
}

// NewAPIError builds the error a rejected op request resolves to.
func NewAPIError(op, code, message string) *APIError {
	return &APIError{Op: op, Code: code, Message: message, kind: kindFor(op)}
}

// Unwrap exposes the sentinel matching the failed operation.
func (e *APIError) Unwrap() error { return e.kind }

func kindFor(op string) error {
	switch op {
	case opAuthorize:
		return ErrAuth
	case opHistory:
		return ErrDataUnavailable
	case opTicks:
		return ErrSubscribe
	case opForgetAll:
		return ErrUnsubscribe
	case opBuy:
		return ErrTrade
	default:
		return nil
	}
}
