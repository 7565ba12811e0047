package bsl

import "time"

// Result is the outcome of a tool run: either a parsed value or a failure
// message taken from the tool's output.
type Result[T any] struct {
	ok      bool
	value   T
	failure string

	// ExitCode is the tool's exit status.
	ExitCode int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Succeeded returns a successful Result holding v.
func Succeeded[T any](v T) Result[T] {
	return Result[T]{ok: true, value: v}
}

// Failed returns a failed Result with the given message.
func Failed[T any](msg string) Result[T] {
	if msg == "" {
		msg = "tool reported failure without output"
	}

	return Result[T]{failure: msg}
}

// OK reports whether the run succeeded.
func (r Result[T]) OK() bool { return r.ok }

// Value returns the parsed value. It is the zero value for failed results.
func (r Result[T]) Value() T { return r.value }

// Failure returns the failure message. It is empty for successful results.
func (r Result[T]) Failure() string { return r.failure }

func (r Result[T]) timed(exitCode int, d time.Duration) Result[T] {
	r.ExitCode = exitCode
	r.Duration = d

	return r
}
