package health

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T) (*Server, *Client) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(nil)
	go srv.Serve(lis)
	t.Cleanup(srv.Shutdown)

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return srv, c
}

func check(t *testing.T, c *Client, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := c.Check(ctx, service)
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return st
}

func TestHealthStartsNotServing(t *testing.T) {
	_, c := startServer(t)
	if st := check(t, c, ServiceName); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %s", st)
	}
}

func TestHealthSetServing(t *testing.T) {
	srv, c := startServer(t)

	srv.SetServing(true)
	if st := check(t, c, ServiceName); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", st)
	}
	if st := check(t, c, ""); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall SERVING, got %s", st)
	}

	srv.SetServing(false)
	if st := check(t, c, ServiceName); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %s", st)
	}
}

func TestHealthUnknownService(t *testing.T) {
	_, c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Check(ctx, "nope.Service")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
