package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	"github.com/heysubinoy/pyazcache/internal/cache"
	"github.com/heysubinoy/pyazcache/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.InstrumentedStore) {
	t.Helper()

	s := store.NewInstrumentedStore(store.NewMemStore())
	c, err := cache.New(context.Background(), s)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewServer(c, nil).RegisterRoutes(mux)
	mux.Handle("/metrics", MetricsHandler(s))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, s
}

func postStore(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Post(url+"/store", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Key string `json:"key"`
	}
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out.Key
}

func TestHTTPStoreAndGet(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	tests := []struct {
		name string
		body string
		as   string
		want string
	}{
		{"str", `{"type":"str","value":"hello"}`, "str", "hello"},
		{"default type", `{"value":"plain"}`, "raw", "plain"},
		{"bytes", `{"type":"bytes","value":"AAH/"}`, "raw", "\x00\x01\xff"},
		{"int", `{"type":"int","value":1234}`, "int", "1234"},
		{"float", `{"type":"float","value":2.5}`, "float", "2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, key := postStore(t, ts.URL, tt.body)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			require.NotEmpty(t, key)

			got, err := c.Get(ctx, key, tt.as)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestHTTPStoreBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, body := range []string{
		`not json`,
		`{"type":"str"}`,
		`{"type":"str","value":null}`,
		`{"type":"int","value":null}`,
		`{"type":"int","value":"abc"}`,
		`{"type":"int","value":1.5}`,
		`{"type":"complex","value":1}`,
	} {
		resp, _ := postStore(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err := http.Get(ts.URL + "/store")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPGetMissing(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	_, err := c.Get(ctx, "never-written", "raw")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	got, err := c.Get(ctx, "never-written", "int")
	require.NoError(t, err)
	assert.Equal(t, "0", string(got))

	got, err = c.Get(ctx, "never-written", "float")
	require.NoError(t, err)
	assert.Equal(t, "0", string(got))

	resp, err := http.Get(ts.URL + "/get")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/get?key=x&as=yaml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPGetIntNonNumeric(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	key, err := c.Store(ctx, "str", "twelve")
	require.NoError(t, err)

	got, err := c.Get(ctx, key, "int")
	require.NoError(t, err)
	assert.Equal(t, "0", string(got))
}

func TestHTTPGetStrInvalidUTF8(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	key, err := c.Store(ctx, "bytes", []byte{0xff})
	require.NoError(t, err)

	_, err = c.Get(ctx, key, "str")
	assert.ErrorContains(t, err, "422")
}

func TestHTTPReplay(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	key, err := c.Store(ctx, "str", "foo")
	require.NoError(t, err)

	out, err := c.Replay(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Cache.store was called 1 times:\nCache.store(\"foo\") -> "+key+"\n", out)

	out, err = c.Replay(ctx, "Cache.other")
	require.NoError(t, err)
	assert.Equal(t, "Cache.other was called 0 times:\n", out)
}

func TestHTTPJoinWithoutRaft(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/join", "application/json", strings.NewReader(`{"id":"n2","addr":"x:1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

type recordingJoiner struct {
	id, addr string
}

func (r *recordingJoiner) Join(id, addr string) error {
	r.id, r.addr = id, addr
	return nil
}

func TestHTTPJoin(t *testing.T) {
	c, err := cache.New(context.Background(), store.NewMemStore())
	require.NoError(t, err)
	j := &recordingJoiner{}
	srv := NewServer(c, nil)
	srv.Joiner = j

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(`{"id":"n2","addr":"127.0.0.1:7002"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "n2", j.id)
	assert.Equal(t, "127.0.0.1:7002", j.addr)

	req = httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(`{"id":"n2"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// newInmemCluster starts two raft voters on in-memory transports and returns
// them once both agree on a leader.
func newInmemCluster(t *testing.T) (leader, follower *raft.Raft, followerFSM *store.RaftStore) {
	t.Helper()

	ids := []raft.ServerID{"n1", "n2"}
	addrs := make([]raft.ServerAddress, len(ids))
	transports := make([]*raft.InmemTransport, len(ids))
	for i := range ids {
		addrs[i], transports[i] = raft.NewInmemTransport("")
	}
	transports[0].Connect(addrs[1], transports[1])
	transports[1].Connect(addrs[0], transports[0])

	boot := raft.Configuration{Servers: []raft.Server{
		{ID: ids[0], Address: addrs[0]},
		{ID: ids[1], Address: addrs[1]},
	}}

	nodes := make([]*raft.Raft, len(ids))
	fsms := make([]*store.RaftStore, len(ids))
	for i, id := range ids {
		conf := raft.DefaultConfig()
		conf.LocalID = id
		conf.HeartbeatTimeout = 50 * time.Millisecond
		conf.ElectionTimeout = 50 * time.Millisecond
		conf.LeaderLeaseTimeout = 50 * time.Millisecond
		conf.CommitTimeout = 5 * time.Millisecond
		conf.Logger = hclog.NewNullLogger()

		logs := raft.NewInmemStore()
		snaps := raft.NewInmemSnapshotStore()
		require.NoError(t, raft.BootstrapCluster(conf, logs, logs, snaps, transports[i], boot))

		fsms[i] = store.NewRaftStore(store.NewMemStore())
		r, err := raft.NewRaft(conf, fsms[i], logs, logs, snaps, transports[i])
		require.NoError(t, err)
		t.Cleanup(func() { r.Shutdown().Error() })
		nodes[i] = r
	}

	require.Eventually(t, func() bool {
		for _, r := range nodes {
			if addr, _ := r.LeaderWithID(); addr == "" {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	for i, r := range nodes {
		if r.State() != raft.Leader {
			return nodes[1-i], r, fsms[i]
		}
	}
	t.Fatal("both nodes claim leadership")
	return nil, nil, nil
}

func TestHTTPFollowerRejectsWrites(t *testing.T) {
	leader, follower, fsm := newInmemCluster(t)

	j := &recordingJoiner{}
	srv := NewServer(cache.Attach(fsm), follower)
	srv.Joiner = j
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	addr, _ := follower.LeaderWithID()
	wantLeader := string(addr)
	require.NotEmpty(t, wantLeader)
	require.Equal(t, raft.Leader, leader.State())

	for _, tc := range []struct{ path, body string }{
		{"/store", `{"type":"str","value":"foo"}`},
		{"/join", `{"id":"n3","addr":"127.0.0.1:7003"}`},
	} {
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
		assert.Equal(t, wantLeader, rec.Header().Get("X-Raft-Leader"), tc.path)
	}
	assert.Empty(t, j.id)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandler(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	_, err := c.Store(ctx, "str", "x")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Operations map[string]uint64 `json:"operations"`
		AvgLatency map[string]string `json:"avg_latency"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	// New flushes once; Store records input, counts, sets and records output.
	assert.Equal(t, uint64(1), body.Operations["flush"])
	assert.Equal(t, uint64(1), body.Operations["set"])
	assert.Equal(t, uint64(1), body.Operations["incr"])
	assert.Equal(t, uint64(2), body.Operations["rpush"])
	assert.Contains(t, body.AvgLatency, "get")
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
