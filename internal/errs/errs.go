package errs

import (
	"errors"

	cr "github.com/cockroachdb/errors"
)

// Caller errors. Each aborts the operation with no state change.
var (
	ErrPermissionDenied   = cr.New("permission denied")
	ErrCapacityExceeded   = cr.New("value exceeds configured maximum")
	ErrBoxNotFound        = cr.New("box not found")
	ErrPoolNotEmpty       = cr.New("standard pool is not empty")
	ErrPaymentFailed      = cr.New("payment failed")
	ErrBlacklisted        = cr.New("account is blacklisted")
	ErrAlreadyBlacklisted = cr.New("account already blacklisted")
	ErrNotBlacklisted     = cr.New("account not blacklisted")
	ErrInvalidPool        = cr.New("invalid pool")
	ErrInvalidCounter     = cr.New("invalid inventory counter")
	ErrInvalidAmount      = cr.New("invalid amount")
	ErrNotFound           = cr.New("not found")
	ErrAlreadyExists      = cr.New("already exists")
)

// Ledger errors.
var (
	ErrInsufficientFunds = cr.New("insufficient funds")
	ErrAccountNotFound   = cr.New("account not found")
	ErrKeepAlive         = cr.New("transfer would reap payer account")
)

// Invariant violations. These indicate a defect, not a bad request.
var (
	ErrCounterUnderflow   = cr.New("counter underflow")
	ErrArithmeticOverflow = cr.New("arithmetic overflow")
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...any) error {
	return cr.Newf(format, args...)
}

// markedError keeps the message of err while both err and mark stay
// reachable through Unwrap.
type markedError struct {
	err  error
	mark error
}

func (e *markedError) Error() string   { return e.err.Error() }
func (e *markedError) Unwrap() []error { return []error{e.err, e.mark} }

// Mark tags err so that errors.Is(err, markErr) holds, for both the standard
// library and cockroachdb, while keeping the original message.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return &markedError{err: err, mark: markErr}
}

func Is(err, target error) bool {
	return errors.Is(err, target) || cr.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target) || cr.As(err, target)
}

// IsInvariant reports whether err is a broken internal invariant.
func IsInvariant(err error) bool {
	return Is(err, ErrCounterUnderflow) || Is(err, ErrArithmeticOverflow)
}

// IsLedger reports whether err is a refused transfer rather than a storage
// failure.
func IsLedger(err error) bool {
	return Is(err, ErrInsufficientFunds) || Is(err, ErrKeepAlive) ||
		Is(err, ErrAccountNotFound) || Is(err, ErrInvalidAmount)
}
