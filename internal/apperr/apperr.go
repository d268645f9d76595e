// Package apperr defines the closed set of error kinds the points engine can
// return. Callers (the API layer) match on Kind to pick a transport status;
// anything that is not an *Error is an infrastructure failure.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNotFound: user, account, transaction, promotion, event or guest missing.
	KindNotFound Kind = iota + 1
	// KindInvalidState: operation does not apply to the target's current state.
	KindInvalidState
	// KindAlreadyUsed: one-time promotion reused by the same user.
	KindAlreadyUsed
	// KindInsufficientBalance: transfer, redemption or event award exceeds what is available.
	KindInsufficientBalance
	// KindForbidden: unverified user attempting a transfer or redemption.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindAlreadyUsed:
		return "already_used"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func AlreadyUsed(format string, args ...any) *Error {
	return &Error{Kind: KindAlreadyUsed, Message: fmt.Sprintf(format, args...)}
}

func InsufficientBalance(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientBalance, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
