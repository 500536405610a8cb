package api

import (
	"context"
	"errors"

	"github.com/heysubinoy/pyazcache/pkg/kv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StoreServiceName is the fully qualified gRPC service name.
const StoreServiceName = "pyazcache.Store"

// storeServer is the method set a registered store service must provide.
type storeServer interface {
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Set(context.Context, *SetRequest) (*SetResponse, error)
	Incr(context.Context, *IncrRequest) (*IntResponse, error)
	RPush(context.Context, *RPushRequest) (*IntResponse, error)
	LRange(context.Context, *LRangeRequest) (*LRangeResponse, error)
	FlushAll(context.Context, *FlushAllRequest) (*FlushAllResponse, error)
}

var storeServiceDesc = grpc.ServiceDesc{
	ServiceName: StoreServiceName,
	HandlerType: (*storeServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Get", storeServer.Get),
		unary("Set", storeServer.Set),
		unary("Incr", storeServer.Incr),
		unary("RPush", storeServer.RPush),
		unary("LRange", storeServer.LRange),
		unary("FlushAll", storeServer.FlushAll),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pyazcache/store",
}

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](name string, call func(storeServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + StoreServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(storeServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(storeServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterStoreServer registers the store service on s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv *GRPCServer) {
	s.RegisterService(&storeServiceDesc, srv)
}

// GRPCServer wraps a kv.Store and exposes its primitives over gRPC.
type GRPCServer struct {
	Store kv.Store
}

var _ storeServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC server with the given store.
func NewGRPCServer(store kv.Store) *GRPCServer {
	return &GRPCServer{
		Store: store,
	}
}

// Get retrieves a value by key.
func (s *GRPCServer) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	value, found, err := s.Store.Get(ctx, req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetResponse{
		Value: value,
		Found: found,
	}, nil
}

// Set stores a key-value pair.
func (s *GRPCServer) Set(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	if err := s.Store.Set(ctx, req.Key, req.Value); err != nil {
		return nil, toStatus(err)
	}

	return &SetResponse{
		Success: true,
	}, nil
}

// Incr increments a counter.
func (s *GRPCServer) Incr(ctx context.Context, req *IncrRequest) (*IntResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	n, err := s.Store.Incr(ctx, req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	return &IntResponse{Value: n}, nil
}

// RPush appends to a list.
func (s *GRPCServer) RPush(ctx context.Context, req *RPushRequest) (*IntResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	n, err := s.Store.RPush(ctx, req.Key, req.Value)
	if err != nil {
		return nil, toStatus(err)
	}
	return &IntResponse{Value: n}, nil
}

// LRange reads a slice of a list.
func (s *GRPCServer) LRange(ctx context.Context, req *LRangeRequest) (*LRangeResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	values, err := s.Store.LRange(ctx, req.Key, req.Start, req.Stop)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LRangeResponse{Values: values}, nil
}

// FlushAll empties the store.
func (s *GRPCServer) FlushAll(ctx context.Context, _ *FlushAllRequest) (*FlushAllResponse, error) {
	if err := s.Store.FlushAll(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &FlushAllResponse{Success: true}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, kv.ErrWrongType):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, kv.ErrNotInteger):
		return status.Error(codes.OutOfRange, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
