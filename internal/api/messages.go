package api

// Wire messages of the pyazcache.Store gRPC service.

// GetRequest asks for the value stored under Key.
type GetRequest struct {
	Key string `json:"key"`
}

// GetResponse carries a value and whether the key existed.
type GetResponse struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// SetRequest stores Value under Key.
type SetRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// SetResponse acknowledges a Set.
type SetResponse struct {
	Success bool `json:"success"`
}

// IncrRequest increments the counter at Key.
type IncrRequest struct {
	Key string `json:"key"`
}

// RPushRequest appends Value to the list at Key.
type RPushRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// IntResponse carries the result of Incr and RPush.
type IntResponse struct {
	Value int64 `json:"value"`
}

// LRangeRequest reads the list at Key from Start to Stop inclusive.
type LRangeRequest struct {
	Key   string `json:"key"`
	Start int64  `json:"start"`
	Stop  int64  `json:"stop"`
}

// LRangeResponse carries the requested list elements.
type LRangeResponse struct {
	Values [][]byte `json:"values"`
}

// FlushAllRequest empties the store.
type FlushAllRequest struct{}

// FlushAllResponse acknowledges a FlushAll.
type FlushAllResponse struct {
	Success bool `json:"success"`
}
