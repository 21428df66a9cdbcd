package grpcx

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestCheckHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	ctx := context.Background()
	srv.SetServing("booking", true)
	if err := CheckHealth(ctx, lis.Addr().String(), "booking", 2*time.Second); err != nil {
		t.Fatalf("expected serving, got %v", err)
	}

	srv.SetServing("booking", false)
	if err := CheckHealth(ctx, lis.Addr().String(), "booking", 2*time.Second); err == nil {
		t.Fatalf("expected not serving error")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatalf("request id not stored")
	}
	if NewRequestID() == NewRequestID() {
		t.Fatalf("expected unique ids")
	}
}
