package server

import (
	"context"
	"errors"
	"math"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/xtding233/wheel-backend/internal/wheel"
)

// WheelServiceName is the full gRPC service name.
const WheelServiceName = "wheel.v1.WheelService"

// WheelServiceServer is the gRPC surface. Responses are generic structs
// carrying the same JSON shapes as the HTTP API.
type WheelServiceServer interface {
	GetWheel(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Spin(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Complete(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var wheelServiceDesc = grpc.ServiceDesc{
	ServiceName: WheelServiceName,
	HandlerType: (*WheelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetWheel", Handler: unaryHandler("GetWheel", newEmpty, WheelServiceServer.GetWheel)},
		{MethodName: "Spin", Handler: unaryHandler("Spin", newEmpty, WheelServiceServer.Spin)},
		{MethodName: "Complete", Handler: unaryHandler("Complete", newInt64, WheelServiceServer.Complete)},
		{MethodName: "GetState", Handler: unaryHandler("GetState", newEmpty, WheelServiceServer.GetState)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wheel/v1/wheel.proto",
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }

func newInt64() *wrapperspb.Int64Value { return new(wrapperspb.Int64Value) }

func fullMethod(name string) string { return "/" + WheelServiceName + "/" + name }

// RegisterWheelService registers srv on s.
func RegisterWheelService(s grpc.ServiceRegistrar, srv WheelServiceServer) {
	s.RegisterService(&wheelServiceDesc, srv)
}

func unaryHandler[Req proto.Message](
	method string,
	newReq func() Req,
	call func(WheelServiceServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WheelServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WheelServiceServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type grpcService struct {
	svc *Service
}

var _ WheelServiceServer = (*grpcService)(nil)

func (g *grpcService) GetWheel(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(g.svc.Wheel())
}

func (g *grpcService) Spin(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := g.svc.Spin()
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(out)
}

func (g *grpcService) Complete(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	idx := in.GetValue()
	if idx < math.MinInt32 || idx > math.MaxInt32 {
		return nil, status.Error(codes.InvalidArgument, "index out of range")
	}
	ann, err := g.svc.Complete(int(idx))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(ann)
}

func (g *grpcService) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(g.svc.State())
}

// toStruct goes through JSON so both transports share one wire shape.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return s, nil
}

func grpcError(err error) error {
	var rej *wheel.SpinRejected
	switch {
	case errors.As(err, &rej):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, wheel.ErrNotSpinning),
		errors.Is(err, wheel.ErrCompletionMismatch),
		errors.Is(err, wheel.ErrStaleSpin),
		errors.Is(err, ErrManualCompletion):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, wheel.ErrIndexOutOfRange):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func recoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if e := recover(); e != nil {
				log.Error("panic serving rpc",
					zap.String("method", info.FullMethod),
					zap.Any("panic", e),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// NewGRPCServer builds a gRPC server with the wheel and health services registered.
func NewGRPCServer(svc *Service, log *zap.Logger) (*grpc.Server, *health.Server) {
	if log == nil {
		log = zap.NewNop()
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(recoverUnary(log)))
	RegisterWheelService(s, &grpcService{svc: svc})

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(WheelServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return s, hs
}

// Client is a thin caller for WheelService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) GetWheel(ctx context.Context) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "GetWheel", &emptypb.Empty{})
}

func (c *Client) Spin(ctx context.Context) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "Spin", &emptypb.Empty{})
}

func (c *Client) Complete(ctx context.Context, index int) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "Complete", wrapperspb.Int64(int64(index)))
}

func (c *Client) GetState(ctx context.Context) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "GetState", &emptypb.Empty{})
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}
