package cache

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/heysubinoy/pyazcache/pkg/kv"
)

// CallRecord is one recorded invocation of an instrumented operation.
type CallRecord struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// History reads the call counter and the recorded calls of name, oldest first.
// An operation that was never called has a count of 0 and no records.
func History(ctx context.Context, store kv.Store, name string) (int64, []CallRecord, error) {
	var count int64
	raw, found, err := store.Get(ctx, name)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read call count of %s: %w", name, err)
	}
	if found {
		count, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("corrupt call count for %s: %w", name, err)
		}
	}

	inputs, err := store.LRange(ctx, InputsKey(name), 0, -1)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read inputs of %s: %w", name, err)
	}
	outputs, err := store.LRange(ctx, OutputsKey(name), 0, -1)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read outputs of %s: %w", name, err)
	}

	// Another process may be between pushing an input and its output.
	n := min(len(inputs), len(outputs))
	records := make([]CallRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, CallRecord{Input: string(inputs[i]), Output: string(outputs[i])})
	}
	return count, records, nil
}

// Replay writes the call history of name to w:
//
//	Cache.store was called 2 times:
//	Cache.store("foo") -> 5f1c...
//	Cache.store(42) -> 9a0b...
func Replay(ctx context.Context, w io.Writer, store kv.Store, name string) error {
	count, records, err := History(ctx, store, name)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s was called %d times:\n", name, count); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s(%s) -> %s\n", name, r.Input, r.Output); err != nil {
			return err
		}
	}
	return nil
}
