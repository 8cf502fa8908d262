package llm

import "context"

// Result is the outcome of one oracle call: either a value or the reason it failed.
// Callers obtain the value through Or, which requires a fallback for the failure case.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a failure; a nil err is replaced by a generic OracleError
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = &OracleError{Kind: KindTransport, Err: errEmptyFailure}
	}
	return Result[T]{err: err}
}

// IsOk reports whether the call succeeded
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Err returns the failure reason, or nil on success
func (r Result[T]) Err() error {
	return r.err
}

// Value returns the value and whether the call succeeded
func (r Result[T]) Value() (T, bool) {
	return r.value, r.err == nil
}

// Or returns the value on success, otherwise the fallback computed from the failure
func (r Result[T]) Or(fallback func(err error) T) T {
	if r.err != nil {
		return fallback(r.err)
	}
	return r.value
}

// Ask runs a prompt through the oracle and decodes the answer into T
func Ask[T any](ctx context.Context, o Oracle, p Prompt, vars map[string]any) Result[T] {
	var out T
	if err := o.Complete(ctx, p, vars, &out); err != nil {
		return Fail[T](err)
	}
	return Ok(out)
}
