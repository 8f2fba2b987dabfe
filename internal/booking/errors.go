package booking

import (
	"errors"
	"fmt"
)

// Error kinds.  Every error returned by the engine wraps exactly one of
// these, so callers branch with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidDate        = errors.New("invalid date")
	ErrSlotTaken          = errors.New("slot taken")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrDuplicate is returned by a Store when an insert violates a unique
// key.  It never leaves the engine: a duplicate student is re-read and a
// duplicate slot becomes ErrSlotTaken.
var ErrDuplicate = errors.New("duplicate key")

// Error carries a kind, a human readable reason and, for quota
// failures, the name of the offending student.
type Error struct {
	Kind    error
	Reason  string
	Student string
	Err     error // underlying storage error, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func storageError(op string, err error) *Error {
	return &Error{Kind: ErrStorageUnavailable, Reason: op, Err: err}
}

// KindName returns the wire name of the kind wrapped by err, or
// "Internal" when err carries none of the known kinds.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrInvalidDate):
		return "InvalidDate"
	case errors.Is(err, ErrSlotTaken):
		return "SlotTaken"
	case errors.Is(err, ErrQuotaExceeded):
		return "QuotaExceeded"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrStorageUnavailable):
		return "StorageUnavailable"
	}
	return "Internal"
}

// Reason returns the human readable part of err without the kind prefix.
func Reason(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Reason
	}
	return err.Error()
}
