package kv

import "errors"

var (
	// ErrWrongType is returned when a list operation hits a plain value or
	// a value operation hits a list.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

	// ErrNotInteger is returned by Incr when the stored value is not a decimal integer.
	ErrNotInteger = errors.New("value is not an integer or out of range")
)
