package cache

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/heysubinoy/pyazcache/internal/store"
	"github.com/heysubinoy/pyazcache/pkg/kv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh store of every local kind.
func backends(t *testing.T) map[string]kv.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	rs, err := store.NewRedisStore(context.Background(), &redis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })

	return map[string]kv.Store{
		"memory": store.NewMemStore(),
		"redis":  rs,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, err := New(ctx, s)
			require.NoError(t, err)

			t.Run("str", func(t *testing.T) {
				key, err := c.Store(ctx, "héllo wörld")
				require.NoError(t, err)
				got, err := c.GetStr(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, "héllo wörld", got)
			})

			t.Run("bytes", func(t *testing.T) {
				want := []byte{0x00, 0x01, 0xfe, 0xff}
				key, err := c.Store(ctx, want)
				require.NoError(t, err)
				got, err := c.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})

			t.Run("int", func(t *testing.T) {
				for _, want := range []int64{0, 42, -7, math.MaxInt64, math.MinInt64} {
					key, err := c.Store(ctx, want)
					require.NoError(t, err)
					got, err := c.GetInt(ctx, key)
					require.NoError(t, err)
					assert.Equal(t, want, got)
				}

				key, err := c.Store(ctx, int(12))
				require.NoError(t, err)
				got, err := c.GetInt(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, int64(12), got)
			})

			t.Run("float", func(t *testing.T) {
				for _, want := range []float64{3.14, -0.5, 1e300, 0.1 + 0.2} {
					key, err := c.Store(ctx, want)
					require.NoError(t, err)
					got, err := c.GetFloat(ctx, key)
					require.NoError(t, err)
					assert.Equal(t, want, got)
				}
			})

			t.Run("get with decoder", func(t *testing.T) {
				key, err := c.Store(ctx, 99)
				require.NoError(t, err)

				n, found, err := GetAs(ctx, c, key, DecodeInt)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, int64(99), n)

				raw, found, err := GetAs(ctx, c, key, DecodeBytes)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, []byte("99"), raw)
			})
		})
	}
}

func TestStoreUniqueKeys(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		key, err := c.Store(ctx, i)
		require.NoError(t, err)
		seen[key] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestStoreUnsupportedType(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	_, err = c.Store(ctx, struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = c.Store(ctx, nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	raw, err := c.Get(ctx, "never-written")
	require.NoError(t, err)
	assert.Nil(t, raw)

	s, err := c.GetStr(ctx, "never-written")
	require.NoError(t, err)
	assert.Equal(t, "", s)

	n, err := c.GetInt(ctx, "never-written")
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := c.GetFloat(ctx, "never-written")
	require.NoError(t, err)
	assert.Zero(t, f)

	called := false
	_, found, err := GetAs(ctx, c, "never-written", func(b []byte) (string, error) {
		called = true
		return string(b), nil
	})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, called)
}

func TestGetIntNonNumeric(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	for _, v := range []any{"abc", "12abc", 3.5, []byte{0xff}} {
		key, err := c.Store(ctx, v)
		require.NoError(t, err)
		n, err := c.GetInt(ctx, key)
		require.NoError(t, err)
		assert.Zero(t, n, "value %v", v)
	}

	key, err := c.Store(ctx, "not a float")
	require.NoError(t, err)
	f, err := c.GetFloat(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, f)
}

func TestDecodeInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{" 42\n", 42, false},
		{"-7", -7, false},
		{"1_000", 1000, false},
		{"1_000_000", 1000000, false},
		{"_1", 0, true},
		{"1_", 0, true},
		{"1__0", 0, true},
		{"-_1", 0, true},
		{"0x10", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := DecodeInt([]byte(tt.in))
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestGetIntLenientParse(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	key, err := c.Store(ctx, " 42")
	require.NoError(t, err)
	n, err := c.GetInt(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	key, err = c.Store(ctx, "2.5\t")
	require.NoError(t, err)
	f, err := c.GetFloat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
}

func TestGetStrInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	key, err := c.Store(ctx, []byte{0xff, 0xfe})
	require.NoError(t, err)

	_, err = c.GetStr(ctx, key)
	assert.ErrorIs(t, err, ErrNotUTF8)
}

func TestGetAsNilDecoder(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, store.NewMemStore())
	require.NoError(t, err)

	_, _, err = GetAs[int](ctx, c, "k", nil)
	assert.ErrorIs(t, err, ErrNilDecoder)
}

func TestNewFlushesStore(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := New(ctx, s)
			require.NoError(t, err)
			key, err := first.Store(ctx, "old")
			require.NoError(t, err)

			second, err := New(ctx, s)
			require.NoError(t, err)

			got, err := second.Get(ctx, key)
			require.NoError(t, err)
			assert.Nil(t, got)

			count, records, err := History(ctx, s, StoreMethod)
			require.NoError(t, err)
			assert.Zero(t, count)
			assert.Empty(t, records)
		})
	}
}

func TestAttachKeepsState(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	c, err := New(ctx, s)
	require.NoError(t, err)
	key, err := c.Store(ctx, "kept")
	require.NoError(t, err)

	other := Attach(s)
	got, err := other.GetStr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

// failingStore fails every call with err.
type failingStore struct {
	kv.Store
	err error
}

func (f failingStore) FlushAll(context.Context) error { return f.err }
func (f failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.err
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	_, err := New(ctx, failingStore{Store: store.NewMemStore(), err: boom})
	assert.ErrorIs(t, err, boom)

	c := Attach(failingStore{Store: store.NewMemStore(), err: boom})
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	_, err = c.GetInt(ctx, "k")
	assert.ErrorIs(t, err, boom)
}
