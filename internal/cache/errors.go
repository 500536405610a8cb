package cache

import "errors"

var (
	// ErrUnsupportedType is returned by Store for values that are not text,
	// bytes, integers or floats.
	ErrUnsupportedType = errors.New("unsupported value type")

	// ErrNotUTF8 is returned by GetStr when the stored bytes are not valid UTF-8.
	ErrNotUTF8 = errors.New("stored value is not valid UTF-8")

	// ErrNilDecoder is returned by GetAs when no decode function is given.
	ErrNilDecoder = errors.New("decode function is nil")
)
