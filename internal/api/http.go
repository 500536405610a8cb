package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/apex/log"
	"github.com/hashicorp/raft"
	"github.com/heysubinoy/pyazcache/internal/cache"
)

// Joiner adds members to a replicated backend.
type Joiner interface {
	Join(id, addr string) error
}

// Server wraps a cache.Cache and exposes HTTP endpoints for its operations.
// Raft and Joiner are nil unless the cache sits on a raft backend.
type Server struct {
	Cache  *cache.Cache
	Raft   *raft.Raft
	Joiner Joiner
}

// NewServer creates a new HTTP server with the given cache.
func NewServer(c *cache.Cache, raftNode *raft.Raft) *Server {
	return &Server{
		Cache: c,
		Raft:  raftNode,
	}
}

// RegisterRoutes registers all HTTP handlers on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/store", s.handleStore)
	mux.HandleFunc("/get", s.handleGet)
	mux.HandleFunc("/replay", s.handleReplay)
	mux.HandleFunc("/join", s.handleJoin)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// notLeader answers with 503 when this node cannot accept writes. It returns
// true when the request has been handled. The raft address of the leader goes
// in X-Raft-Leader; its HTTP address is not known here.
func (s *Server) notLeader(w http.ResponseWriter) bool {
	if s.Raft == nil || s.Raft.State() == raft.Leader {
		return false
	}

	leader, id := s.Raft.LeaderWithID()
	if leader == "" {
		http.Error(w, "Not leader and no leader known", http.StatusServiceUnavailable)
		return true
	}
	w.Header().Set("X-Raft-Leader", string(leader))
	http.Error(w, fmt.Sprintf("Not leader. Leader is %s.", id), http.StatusServiceUnavailable)
	return true
}

// StoreRequest is the body of POST /store.
// Type is one of "str", "bytes", "int" or "float"; bytes travel as base64.
type StoreRequest struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// decodeValue turns the request into the Go value Cache.Store expects.
func (req StoreRequest) decodeValue() (any, error) {
	if len(req.Value) == 0 {
		return nil, fmt.Errorf("missing value field")
	}
	if bytes.Equal(bytes.TrimSpace(req.Value), []byte("null")) {
		return nil, fmt.Errorf("value must not be null")
	}

	var (
		v   any
		err error
	)
	switch req.Type {
	case "", "str":
		var s string
		err = json.Unmarshal(req.Value, &s)
		v = s
	case "bytes":
		var b []byte
		err = json.Unmarshal(req.Value, &b)
		v = b
	case "int":
		var n int64
		err = json.Unmarshal(req.Value, &n)
		v = n
	case "float":
		var f float64
		err = json.Unmarshal(req.Value, &f)
		v = f
	default:
		return nil, fmt.Errorf("unknown type %q", req.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("value is not a valid %s: %w", req.Type, err)
	}
	return v, nil
}

// handleStore handles POST /store requests with JSON body.
// Expects: {"type": "str", "value": "foo"}
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.notLeader(w) {
		return
	}

	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	value, err := req.decodeValue()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, err := s.Cache.Store(r.Context(), value)
	if err != nil {
		log.WithError(err).Error("store failed")
		http.Error(w, "Failed to store value", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// handleGet handles GET /get?key=foo&as=str requests.
// as defaults to raw, which returns the stored bytes untouched.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch as := r.URL.Query().Get("as"); as {
	case "", "raw", "str":
		value, err := s.Cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).WithField("key", key).Error("get failed")
			http.Error(w, "Failed to get key", http.StatusInternalServerError)
			return
		}
		if value == nil {
			http.Error(w, "Key not found", http.StatusNotFound)
			return
		}
		if as == "str" {
			text, err := cache.DecodeString(value)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte(text))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(value)

	case "int":
		n, err := s.Cache.GetInt(ctx, key)
		if err != nil {
			http.Error(w, "Failed to get key", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"value": n})

	case "float":
		f, err := s.Cache.GetFloat(ctx, key)
		if err != nil {
			http.Error(w, "Failed to get key", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"value": f})

	default:
		http.Error(w, "Unknown decoding "+as, http.StatusBadRequest)
	}
}

// handleReplay handles GET /replay?method=Cache.store requests.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	method := r.URL.Query().Get("method")
	if method == "" {
		method = cache.StoreMethod
	}

	var buf bytes.Buffer
	if err := s.Cache.Replay(r.Context(), &buf, method); err != nil {
		log.WithError(err).WithField("method", method).Error("replay failed")
		http.Error(w, "Failed to read call history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleJoin handles POST /join requests with JSON body.
// Expects: {"id": "node2", "addr": "127.0.0.1:7002"}
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Joiner == nil {
		http.Error(w, "Backend is not replicated", http.StatusNotImplemented)
		return
	}
	if s.notLeader(w) {
		return
	}

	var req struct {
		ID   string `json:"id"`
		Addr string `json:"addr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.Addr == "" {
		http.Error(w, "Missing id or addr field", http.StatusBadRequest)
		return
	}

	if err := s.Joiner.Join(req.ID, req.Addr); err != nil {
		log.WithError(err).WithField("node", req.ID).Error("join failed")
		http.Error(w, "Failed to join node", http.StatusInternalServerError)
		return
	}
	log.WithFields(log.Fields{"node": req.ID, "addr": req.Addr}).Info("node joined")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
