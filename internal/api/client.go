package api

import (
	"context"
	"fmt"

	"github.com/heysubinoy/pyazcache/pkg/kv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// RemoteStore is a kv.Store that forwards every call to a GRPCServer.
type RemoteStore struct {
	conn *grpc.ClientConn
}

// Compile-time check to ensure RemoteStore implements kv.Store.
var _ kv.Store = (*RemoteStore)(nil)

// DialRemoteStore connects to the store service at addr.
// Extra options are appended after the defaults, so callers can swap the dialer.
func DialRemoteStore(addr string, opts ...grpc.DialOption) (*RemoteStore, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	}, opts...)

	// passthrough resolver for direct address connection
	conn, err := grpc.NewClient("passthrough:///"+addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store at %s: %w", addr, err)
	}
	return &RemoteStore{conn: conn}, nil
}

func (r *RemoteStore) invoke(ctx context.Context, method string, req, resp any) error {
	err := r.conn.Invoke(ctx, "/"+StoreServiceName+"/"+method, req, resp)
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", kv.ErrWrongType, st.Message())
	case codes.OutOfRange:
		return fmt.Errorf("%w: %s", kv.ErrNotInteger, st.Message())
	}
	return fmt.Errorf("remote %s: %w", method, err)
}

func (r *RemoteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var resp GetResponse
	if err := r.invoke(ctx, "Get", &GetRequest{Key: key}, &resp); err != nil {
		return nil, false, err
	}
	if !resp.Found {
		return nil, false, nil
	}
	if resp.Value == nil {
		resp.Value = []byte{}
	}
	return resp.Value, true, nil
}

func (r *RemoteStore) Set(ctx context.Context, key string, value []byte) error {
	var resp SetResponse
	return r.invoke(ctx, "Set", &SetRequest{Key: key, Value: value}, &resp)
}

func (r *RemoteStore) Incr(ctx context.Context, key string) (int64, error) {
	var resp IntResponse
	if err := r.invoke(ctx, "Incr", &IncrRequest{Key: key}, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

func (r *RemoteStore) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	var resp IntResponse
	if err := r.invoke(ctx, "RPush", &RPushRequest{Key: key, Value: value}, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

func (r *RemoteStore) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	var resp LRangeResponse
	if err := r.invoke(ctx, "LRange", &LRangeRequest{Key: key, Start: start, Stop: stop}, &resp); err != nil {
		return nil, err
	}
	if resp.Values == nil {
		resp.Values = [][]byte{}
	}
	return resp.Values, nil
}

func (r *RemoteStore) FlushAll(ctx context.Context) error {
	var resp FlushAllResponse
	return r.invoke(ctx, "FlushAll", &FlushAllRequest{}, &resp)
}

// Close tears down the client connection.
func (r *RemoteStore) Close() error {
	return r.conn.Close()
}
