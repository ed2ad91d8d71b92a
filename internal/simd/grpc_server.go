package simd

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

// TaskServiceName is the fully-qualified gRPC service name.
const TaskServiceName = "sbi.task.v1.TaskService"

// Requests and responses are google.protobuf.Struct values with the same
// fields as the HTTP JSON bodies.
type TaskServiceServer interface {
	SamplePrior(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SampleReferencePosterior(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TaskServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + TaskServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TaskServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TaskServiceDesc describes TaskService for grpc.Server.RegisterService.
var TaskServiceDesc = grpc.ServiceDesc{
	ServiceName: TaskServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler("SamplePrior", TaskServiceServer.SamplePrior),
		methodHandler("Simulate", TaskServiceServer.Simulate),
		methodHandler("SampleReferencePosterior", TaskServiceServer.SampleReferencePosterior),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sbi/task/v1/task.proto",
}

// RegisterTaskServiceServer registers srv and a health service reporting it as serving.
func RegisterTaskServiceServer(s *grpc.Server, srv TaskServiceServer) *health.Server {
	s.RegisterService(&TaskServiceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(TaskServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// RecoveryUnaryInterceptor turns a handler panic into an Internal error so
// one bad request cannot take the process down.
func RecoveryUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in gRPC handler",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()))
			resp, err = nil, status.Errorf(codes.Internal, "internal error in %s", info.FullMethod)
		}
	}()
	return handler(ctx, req)
}

// TaskGRPCServer implements TaskServiceServer on top of a Service.
type TaskGRPCServer struct {
	service *Service
}

func NewTaskGRPCServer(service *Service) *TaskGRPCServer {
	return &TaskGRPCServer{service: service}
}

func (s *TaskGRPCServer) SamplePrior(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PriorRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	resp, err := s.service.SamplePrior(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(resp)
}

func (s *TaskGRPCServer) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SimulateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	resp, err := s.service.Simulate(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(resp)
}

func (s *TaskGRPCServer) SampleReferencePosterior(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ReferenceRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	resp, err := s.service.SampleReference(ctx, req)
	if err != nil {
		logger.Debug("reference posterior request failed (gRPC)", "error", err)
		return nil, grpcError(err)
	}
	return toStruct(resp)
}

// fromStruct decodes a Struct into dst through its JSON form.
func fromStruct(in *structpb.Struct, dst any) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request: "+err.Error())
	}
	return nil
}

// toStruct encodes v into a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

// TaskServiceClient calls TaskService.
type TaskServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTaskServiceClient(cc grpc.ClientConnInterface) *TaskServiceClient {
	return &TaskServiceClient{cc: cc}
}

func (c *TaskServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+TaskServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) SamplePrior(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SamplePrior", in, opts...)
}

func (c *TaskServiceClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Simulate", in, opts...)
}

func (c *TaskServiceClient) SampleReferencePosterior(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SampleReferencePosterior", in, opts...)
}
