package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ChuLiYu/widgetsync/pkg/types"
)

// gRPC 服務 widgetsync.v1.Session
//
// 三個 unary 方法的請求與回應都是 google.protobuf.Struct，欄位與 HTTP 參數
// 相同，不需要另外產生 protobuf 程式碼。
const (
	sessionServiceName = "widgetsync.v1.Session"

	methodCreateClient = "/" + sessionServiceName + "/CreateClient"
	methodSynchronize  = "/" + sessionServiceName + "/Synchronize"
	methodKillClient   = "/" + sessionServiceName + "/KillClient"
)

// SessionServer is the server API of widgetsync.v1.Session.
type SessionServer interface {
	CreateClient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Synchronize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	KillClient(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(SessionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SessionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: sessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateClient",
			Handler:    unaryHandler(methodCreateClient, SessionServer.CreateClient),
		},
		{
			MethodName: "Synchronize",
			Handler:    unaryHandler(methodSynchronize, SessionServer.Synchronize),
		},
		{
			MethodName: "KillClient",
			Handler:    unaryHandler(methodKillClient, SessionServer.KillClient),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "widgetsync/v1/session.proto",
}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&sessionServiceDesc, srv)
}

// ============================================================================
// Server
// ============================================================================

// Server implements widgetsync.v1.Session on top of the dispatcher.
type Server struct {
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewServer creates a gRPC session service.
func NewServer(d *Dispatcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{dispatcher: d, log: log}
}

func (s *Server) CreateClient(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.dispatch(types.ActionCreate, req)
}

func (s *Server) Synchronize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.dispatch(types.ActionSynchronize, req)
}

func (s *Server) KillClient(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.dispatch(types.ActionKill, req)
}

func (s *Server) dispatch(action string, req *structpb.Struct) (*structpb.Struct, error) {
	params, err := structParams(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	params[types.KeyAction] = action

	result, err := s.dispatcher.Dispatch(params)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out, err := resultStruct(result)
	if err != nil {
		s.log.Error("Failed to encode response", "action", action, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// structParams flattens a Struct into string parameters. Non-string values
// (the events list) become JSON text.
func structParams(req *structpb.Struct) (map[string]string, error) {
	params := make(map[string]string, len(req.GetFields()))
	for k, v := range req.GetFields() {
		if sv, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			params[k] = sv.StringValue
			continue
		}
		data, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		params[k] = string(data)
	}
	return params, nil
}

// resultStruct converts a dispatcher result into a Struct through its JSON
// form. A bare bool becomes {"result": b}.
func resultStruct(result any) (*structpb.Struct, error) {
	if b, ok := result.(bool); ok {
		return structpb.NewStruct(map[string]interface{}{"result": b})
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// ============================================================================
// Client
// ============================================================================

// SessionClient is the client API of widgetsync.v1.Session.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionClient) CreateClient(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCreateClient, in, opts...)
}

func (c *SessionClient) Synchronize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSynchronize, in, opts...)
}

func (c *SessionClient) KillClient(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodKillClient, in, opts...)
}
