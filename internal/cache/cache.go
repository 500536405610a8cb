// Package cache stores scalar values under random keys in a kv.Store and
// keeps a replayable history of the calls made to it.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/heysubinoy/pyazcache/pkg/kv"
)

// StoreMethod is the name Store's counter and history are kept under.
const StoreMethod = "Cache.store"

// Cache writes values under generated keys and reads them back.
type Cache struct {
	kv    kv.Store
	store Op[any, string]
}

// New returns a Cache over s.
//
// New flushes the whole keyspace of s, so every Cache starts empty. Anything
// else sharing the store loses its data too.
func New(ctx context.Context, s kv.Store) (*Cache, error) {
	if err := s.FlushAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush store: %w", err)
	}
	log.WithField("store", fmt.Sprintf("%T", s)).Debug("flushed store for new cache")

	return Attach(s), nil
}

// Attach returns a Cache over s without flushing it. Use it for processes that
// share a store another Cache already reset, such as raft followers.
func Attach(s kv.Store) *Cache {
	c := &Cache{kv: s}
	c.store = CallHistory(s, StoreMethod, CountCalls(s, StoreMethod, c.set))
	return c
}

// KV returns the underlying store.
func (c *Cache) KV() kv.Store {
	return c.kv
}

// Store writes data under a fresh random key and returns the key.
// data must be a string, []byte, integer or float.
func (c *Cache) Store(ctx context.Context, data any) (string, error) {
	return c.store(ctx, data)
}

func (c *Cache) set(ctx context.Context, data any) (string, error) {
	value, err := encode(data)
	if err != nil {
		return "", err
	}
	key := uuid.New().String()
	if err := c.kv.Set(ctx, key, value); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	log.WithFields(log.Fields{"key": key, "size": len(value)}).Debug("stored value")
	return key, nil
}

// Get returns the raw bytes stored under key, or nil if key was never written.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, found, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return value, nil
}

// GetStr returns the value under key as text. A missing key gives "".
func (c *Cache) GetStr(ctx context.Context, key string) (string, error) {
	s, _, err := GetAs(ctx, c, key, DecodeString)
	return s, err
}

// GetInt returns the value under key as an integer. Missing keys and values
// that are not decimal integers give 0. Parsing follows DecodeInt.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	value, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := DecodeInt(value)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// GetFloat is GetInt for floating-point values.
func (c *Cache) GetFloat(ctx context.Context, key string) (float64, error) {
	value, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	f, err := DecodeFloat(value)
	if err != nil {
		return 0, nil
	}
	return f, nil
}

// Replay writes the call history of the named operation to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer, name string) error {
	return Replay(ctx, w, c.kv, name)
}

// GetAs fetches key and converts it with decode. found is false, and decode
// is not called, when key was never written.
func GetAs[T any](ctx context.Context, c *Cache, key string, decode func([]byte) (T, error)) (v T, found bool, err error) {
	if decode == nil {
		return v, false, ErrNilDecoder
	}
	raw, err := c.Get(ctx, key)
	if err != nil || raw == nil {
		return v, false, err
	}
	v, err = decode(raw)
	if err != nil {
		return v, true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return v, true, nil
}

// DecodeBytes returns b unchanged.
func DecodeBytes(b []byte) ([]byte, error) { return b, nil }

// DecodeString interprets b as UTF-8 text.
func DecodeString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrNotUTF8
	}
	return string(b), nil
}

// DecodeInt parses b as a base 10 integer. Surrounding whitespace is ignored
// and single underscores may group digits, as in "1_000".
func DecodeInt(b []byte) (int64, error) {
	s := string(bytes.TrimSpace(b))
	if strings.Contains(s, "_") {
		digits, ok := stripDigitSeparators(s)
		if !ok {
			return 0, &strconv.NumError{Func: "ParseInt", Num: s, Err: strconv.ErrSyntax}
		}
		s = digits
	}
	return strconv.ParseInt(s, 10, 64)
}

// stripDigitSeparators drops underscores that sit between two digits and
// reports false for any other underscore.
func stripDigitSeparators(s string) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			sb.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return sb.String(), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// DecodeFloat parses b as a 64-bit float, ignoring surrounding whitespace.
func DecodeFloat(b []byte) (float64, error) {
	return strconv.ParseFloat(string(bytes.TrimSpace(b)), 64)
}
