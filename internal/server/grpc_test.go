package server

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/xtding233/wheel-backend/internal/wheel"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func dialBufconn(t *testing.T, svc *Service) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, hs := NewGRPCServer(svc, nopLogger())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		hs.Shutdown()
		srv.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCSpinLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewClient(dialBufconn(t, newTestService(t)))

	w, err := c.GetWheel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Fields["slice_angle"].GetNumberValue(); got != 45 {
		t.Fatalf("slice_angle=%v", got)
	}
	if got := len(w.Fields["slices"].GetListValue().GetValues()); got != 8 {
		t.Fatalf("slices=%d", got)
	}

	out, err := c.Spin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Fields["slice_index"].GetNumberValue(); got != 1 {
		t.Fatalf("slice_index=%v", got)
	}

	_, err = c.Spin(ctx)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("second spin err=%v", err)
	}

	st, err := c.GetState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Fields["spinning"].GetBoolValue() {
		t.Fatalf("state=%v", st)
	}

	ann, err := c.Complete(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := ann.Fields["payload"].GetStringValue(); got != "brush_3x" {
		t.Fatalf("payload=%q", got)
	}
	if _, err := c.Complete(ctx, 1); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("complete while idle err=%v", err)
	}
}

func TestGRPCCompleteOtherSliceRefused(t *testing.T) {
	ctx := context.Background()
	c := NewClient(dialBufconn(t, newTestService(t)))
	if _, err := c.Spin(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Complete(ctx, 5); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("err=%v", err)
	}
	st, err := c.GetState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Fields["spinning"].GetBoolValue() {
		t.Fatalf("refused completion must keep the spin")
	}
}

func TestGRPCCompleteAfterReload(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	c := NewClient(dialBufconn(t, svc))
	if _, err := c.Spin(ctx); err != nil {
		t.Fatal(err)
	}
	w := testWheel()
	w.Slices = []wheel.Slice{{Weight: 1, Payload: "only"}}
	svc.Apply(w)
	if _, err := c.Complete(ctx, 1); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("err=%v", err)
	}
}

func TestGRPCHealth(t *testing.T) {
	conn := dialBufconn(t, newTestService(t))
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: WheelServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status=%v", resp.GetStatus())
	}
}
