// Package apperr defines the error kinds that cross the store boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("store unavailable")
	ErrInvalid     = errors.New("invalid input")
)

// Error is a store failure annotated with where it happened.
// Kind is one of the sentinel errors above and is matched by errors.Is.
type Error struct {
	Store string
	Op    string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %v", e.Store, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v: %v", e.Store, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// E builds an *Error. A nil err yields nil.
func E(store, op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Store: store, Op: op, Kind: kind, Err: err}
}

// NotFound reports a missing target for op.
func NotFound(store, op, format string, args ...any) error {
	return &Error{Store: store, Op: op, Kind: ErrNotFound, Err: fmt.Errorf(format, args...)}
}

// Invalid reports rejected caller input for op.
func Invalid(store, op, format string, args ...any) error {
	return &Error{Store: store, Op: op, Kind: ErrInvalid, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the sentinel kind of err. Anything that is neither
// not-found nor invalid input is treated as the store being unavailable.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrInvalid):
		return ErrInvalid
	default:
		return ErrUnavailable
	}
}

// Normalize converts any error into an *Error for store/op, keeping the
// kind if err already carries one.
func Normalize(store, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Store: store, Op: op, Kind: KindOf(err), Err: err}
}
