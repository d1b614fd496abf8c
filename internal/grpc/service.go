package grpc

import (
	"context"
	"encoding/json"

	"github.com/LeJamon/goCustody/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "custody.v1.Custody"

// CallMethod is the full method name of Call
const CallMethod = "/" + ServiceName + "/Call"

// CallRequest names a JSON-RPC method and its parameter object
type CallRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CallResponse holds the method result
type CallResponse struct {
	Result json.RawMessage `json:"result"`
}

// Executor runs an RPC method by name. *rpc.Server implements it.
type Executor interface {
	Execute(ctx *rpc.RpcContext, method string, params json.RawMessage) (interface{}, *rpc.RpcError)
}

// CustodyServer is the server API of the custody service
type CustodyServer interface {
	Call(ctx context.Context, req *CallRequest) (*CallResponse, error)
}

type custodyService struct {
	exec Executor
}

func (s *custodyService) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	if req.Method == "" {
		return nil, status.Error(codes.InvalidArgument, "missing method")
	}

	rctx := &rpc.RpcContext{Context: ctx}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		rctx.ClientIP = p.Addr.String()
	}

	result, rpcErr := s.exec.Execute(rctx, req.Method, req.Params)
	if rpcErr != nil {
		return nil, status.Errorf(statusCode(rpcErr), "%s: %s", rpcErr.ErrorString, rpcErr.Error())
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return &CallResponse{Result: body}, nil
}

// statusCode maps an RPC error onto the closest gRPC code
func statusCode(e *rpc.RpcError) codes.Code {
	switch e.Code {
	case rpc.RpcINVALID_PARAMS, rpc.RpcACT_MALFORMED, rpc.RpcINVALID_TX:
		return codes.InvalidArgument
	case rpc.RpcMETHOD_NOT_FOUND:
		return codes.Unimplemented
	case rpc.RpcACT_NOT_FOUND, rpc.RpcOBJECT_NOT_FOUND:
		return codes.NotFound
	case rpc.RpcNOT_ENABLED:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func callHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CallRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CustodyServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CallMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CustodyServer).Call(ctx, req.(*CallRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the custody service to grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CustodyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Call",
			Handler:    callHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "custody/v1/custody.json",
}

// Client calls the custody service over conn
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a new custody client
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call runs method with params and decodes the result into out, if out is
// not nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	req := &CallRequest{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return err
		}
		req.Params = raw
	}

	resp := new(CallResponse)
	if err := c.conn.Invoke(ctx, CallMethod, req, resp, grpc.CallContentSubtype(CodecName)); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}
