// Package storetest checks that a kv.Store behaves the way the cache expects.
package storetest

import (
	"context"
	"testing"

	"github.com/heysubinoy/pyazcache/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises every kv.Store operation against stores built by newStore.
// Each subtest gets its own store.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		s := newStore(t)
		v, found, err := s.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		want := []byte{0x00, 0xff, 'a', '\n'}
		require.NoError(t, s.Set(ctx, "k", want))

		got, found, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, want, got)
	})

	t.Run("empty value is found", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte{}))

		got, found, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Len(t, got, 0)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("one")))
		require.NoError(t, s.Set(ctx, "k", []byte("two")))

		got, _, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("incr", func(t *testing.T) {
		s := newStore(t)
		for want := int64(1); want <= 3; want++ {
			n, err := s.Incr(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}

		got, _, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, "3", string(got))

		require.NoError(t, s.Set(ctx, "text", []byte("abc")))
		_, err = s.Incr(ctx, "text")
		assert.ErrorIs(t, err, kv.ErrNotInteger)
	})

	t.Run("rpush and lrange", func(t *testing.T) {
		s := newStore(t)
		for i, v := range []string{"a", "b", "c", "d"} {
			n, err := s.RPush(ctx, "list", []byte(v))
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), n)
		}

		tests := []struct {
			name        string
			start, stop int64
			want        []string
		}{
			{"all", 0, -1, []string{"a", "b", "c", "d"}},
			{"single", 1, 1, []string{"b"}},
			{"tail", -2, -1, []string{"c", "d"}},
			{"stop past end", 2, 100, []string{"c", "d"}},
			{"start past end", 10, 20, nil},
			{"inverted", 3, 1, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.LRange(ctx, "list", tt.start, tt.stop)
				require.NoError(t, err)
				assert.Equal(t, tt.want, toStrings(got))
			})
		}

		got, err := s.LRange(ctx, "missing", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("wrong type", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "plain", []byte("x")))
		_, err := s.RPush(ctx, "plain", []byte("y"))
		assert.ErrorIs(t, err, kv.ErrWrongType)
		_, err = s.LRange(ctx, "plain", 0, -1)
		assert.ErrorIs(t, err, kv.ErrWrongType)

		_, err = s.RPush(ctx, "list", []byte("y"))
		require.NoError(t, err)
		_, _, err = s.Get(ctx, "list")
		assert.ErrorIs(t, err, kv.ErrWrongType)
		_, err = s.Incr(ctx, "list")
		assert.ErrorIs(t, err, kv.ErrWrongType)
	})

	t.Run("flush all", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("v")))
		_, err := s.RPush(ctx, "list", []byte("v"))
		require.NoError(t, err)

		require.NoError(t, s.FlushAll(ctx))

		_, found, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
		got, err := s.LRange(ctx, "list", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func toStrings(vals [][]byte) []string {
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
