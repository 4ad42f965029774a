// Package result provides Option, Result and deferred Task values used to
// hand request outcomes back to callers without panics or nil sentinels.
package result

import (
	"errors"
	"fmt"
)

var (
	// ErrNilError replaces a nil error passed to Err so the result stays a failure.
	ErrNilError = errors.New("result: failure without error")
	// ErrNilTask is returned when a nil Task is run.
	ErrNilTask = errors.New("result: nil task")
)

// Result is either a success carrying a value or a failure carrying an error.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a success value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure. The error is kept as-is; nil becomes ErrNilError.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = ErrNilError
	}
	return Result[T]{err: err}
}

func (r Result[T]) IsOk() bool  { return r.err == nil }
func (r Result[T]) IsErr() bool { return r.err != nil }

// Get unpacks the result in the usual (value, error) form.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// Value returns the success value, or the zero value on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Error returns the failure, or nil on success.
func (r Result[T]) Error() error {
	return r.err
}

func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Err(%v)", r.err)
	}
	return fmt.Sprintf("Ok(%v)", r.value)
}

// Map transforms the success value; failures pass through untouched.
func Map[A, B any](r Result[A], fn func(A) B) Result[B] {
	if r.err != nil {
		return Result[B]{err: r.err}
	}
	return Ok(fn(r.value))
}

// MapErr transforms the failure; successes pass through untouched.
func MapErr[T any](r Result[T], fn func(error) error) Result[T] {
	if r.err == nil {
		return r
	}
	return Err[T](fn(r.err))
}

// FlatMap chains a fallible step onto a success.
func FlatMap[A, B any](r Result[A], fn func(A) Result[B]) Result[B] {
	if r.err != nil {
		return Result[B]{err: r.err}
	}
	return fn(r.value)
}

// Fold collapses the result into a single value.
func Fold[A, B any](r Result[A], onErr func(error) B, onOk func(A) B) B {
	if r.err != nil {
		return onErr(r.err)
	}
	return onOk(r.value)
}
