package simd

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestGRPCClient(t *testing.T, opts ServiceOptions) (*TaskServiceClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryUnaryInterceptor))
	RegisterTaskServiceServer(gs, NewTaskGRPCServer(newTestService(t, opts)))
	go func() {
		_ = gs.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
	})
	return NewTaskServiceClient(conn), conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return s
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCSamplePrior(t *testing.T) {
	client, _ := newTestGRPCClient(t, ServiceOptions{})

	resp, err := client.SamplePrior(testCtx(t), mustStruct(t, map[string]any{"num_samples": 4, "seed": 12}))
	if err != nil {
		t.Fatalf("SamplePrior error: %v", err)
	}
	samples := resp.Fields["samples"].GetListValue().GetValues()
	if len(samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(samples))
	}
	if got := resp.Fields["seed"].GetNumberValue(); got != 12 {
		t.Fatalf("expected seed 12, got %v", got)
	}
}

func TestGRPCSimulateBudget(t *testing.T) {
	client, _ := newTestGRPCClient(t, ServiceOptions{MaxSimulatorCalls: intp(1)})
	ctx := testCtx(t)
	req := mustStruct(t, map[string]any{"parameters": []any{[]any{0.0, 0.0}}})

	if _, err := client.Simulate(ctx, req); err != nil {
		t.Fatalf("Simulate error: %v", err)
	}
	_, err := client.Simulate(ctx, req)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestGRPCSampleReferencePosterior(t *testing.T) {
	client, _ := newTestGRPCClient(t, ServiceOptions{})

	resp, err := client.SampleReferencePosterior(testCtx(t), mustStruct(t, map[string]any{
		"num_samples":     8,
		"seed":            3,
		"num_observation": 1,
	}))
	if err != nil {
		t.Fatalf("SampleReferencePosterior error: %v", err)
	}
	if n := len(resp.Fields["samples"].GetListValue().GetValues()); n != 8 {
		t.Fatalf("expected 8 samples, got %d", n)
	}
	attempts := resp.Fields["attempts"].GetNumberValue()
	if rate := resp.Fields["acceptance_rate"].GetNumberValue(); rate != 8/attempts {
		t.Fatalf("acceptance rate %v != 8/%v", rate, attempts)
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	client, _ := newTestGRPCClient(t, ServiceOptions{})
	ctx := testCtx(t)

	tests := []struct {
		name string
		req  map[string]any
		want codes.Code
	}{
		{"both", map[string]any{"num_samples": 5, "num_observation": 1, "observation": []any{0.0, 0.0}}, codes.InvalidArgument},
		{"neither", map[string]any{"num_samples": 5}, codes.InvalidArgument},
		{"bad type", map[string]any{"num_samples": "five"}, codes.InvalidArgument},
		{"attempt cap", map[string]any{"num_samples": 5, "observation": []any{500.0, 500.0}, "max_attempts": 1000}, codes.FailedPrecondition},
		{"missing observation", map[string]any{"num_samples": 5, "num_observation": 7}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SampleReferencePosterior(ctx, mustStruct(t, tt.req))
			if status.Code(err) != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGRPCDeadline(t *testing.T) {
	client, _ := newTestGRPCClient(t, ServiceOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SampleReferencePosterior(ctx, mustStruct(t, map[string]any{
		"num_samples": 5,
		"observation": []any{500.0, 500.0},
	}))
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestGRPCHealth(t *testing.T) {
	_, conn := newTestGRPCClient(t, ServiceOptions{})

	resp, err := healthpb.NewHealthClient(conn).Check(testCtx(t), &healthpb.HealthCheckRequest{Service: TaskServiceName})
	if err != nil {
		t.Fatalf("health Check error: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.Status)
	}
}

func TestGRPCOversizedRequestIsInvalidArgument(t *testing.T) {
	client, _ := newTestGRPCClient(t, ServiceOptions{})
	ctx := testCtx(t)
	huge := float64(int64(1) << 62)

	_, err := client.SamplePrior(ctx, mustStruct(t, map[string]any{"num_samples": huge, "seed": 1}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("SamplePrior: expected InvalidArgument, got %v", err)
	}
	_, err = client.SampleReferencePosterior(ctx, mustStruct(t, map[string]any{
		"num_samples":  huge,
		"observation":  []any{0.0, 0.0},
		"max_attempts": 10,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("SampleReferencePosterior: expected InvalidArgument, got %v", err)
	}

	// The server keeps serving after rejecting the request.
	if _, err := client.SamplePrior(ctx, mustStruct(t, map[string]any{"num_samples": 2, "seed": 1})); err != nil {
		t.Fatalf("SamplePrior after oversized request: %v", err)
	}
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/" + TaskServiceName + "/SamplePrior"}
	resp, err := RecoveryUnaryInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	if resp != nil {
		t.Fatalf("expected nil response, got %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}

	resp, err = RecoveryUnaryInterceptor(context.Background(), "in", info, func(_ context.Context, req any) (any, error) {
		return req, nil
	})
	if err != nil || resp != "in" {
		t.Fatalf("expected passthrough, got %v, %v", resp, err)
	}
}
