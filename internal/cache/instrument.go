package cache

import (
	"context"
	"fmt"

	"github.com/heysubinoy/pyazcache/pkg/kv"
)

// Op is a single-argument store-backed operation that can be wrapped with
// call counting and call history.
type Op[A, R any] func(ctx context.Context, arg A) (R, error)

// InputsKey is the list holding the recorded arguments of name.
func InputsKey(name string) string { return name + ":inputs" }

// OutputsKey is the list holding the recorded results of name.
func OutputsKey(name string) string { return name + ":outputs" }

// CountCalls returns op wrapped so that every call increments the counter
// stored under name before delegating.
func CountCalls[A, R any](store kv.Store, name string, op Op[A, R]) Op[A, R] {
	return func(ctx context.Context, arg A) (R, error) {
		if _, err := store.Incr(ctx, name); err != nil {
			var zero R
			return zero, fmt.Errorf("failed to count call to %s: %w", name, err)
		}
		return op(ctx, arg)
	}
}

// CallHistory returns op wrapped so that its argument is appended to
// InputsKey(name) before the call and its result to OutputsKey(name) after.
// A failed call records "error: <msg>" so the two lists stay the same length.
func CallHistory[A, R any](store kv.Store, name string, op Op[A, R]) Op[A, R] {
	inputs, outputs := InputsKey(name), OutputsKey(name)

	return func(ctx context.Context, arg A) (R, error) {
		var zero R
		if _, err := store.RPush(ctx, inputs, []byte(repr(arg))); err != nil {
			return zero, fmt.Errorf("failed to record input of %s: %w", name, err)
		}

		res, err := op(ctx, arg)
		out := fmt.Sprint(res)
		if err != nil {
			out = "error: " + err.Error()
		}

		if _, perr := store.RPush(ctx, outputs, []byte(out)); perr != nil && err == nil {
			return zero, fmt.Errorf("failed to record output of %s: %w", name, perr)
		}
		return res, err
	}
}
