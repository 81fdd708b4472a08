package handlers

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

func TestServer_RegisterHTTPGateway(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50061, 8091, logger)
	if err := s.RegisterHTTPGateway(NewHTTPHandler(nil, logger), metrics.New()); err != nil {
		t.Fatalf("RegisterHTTPGateway failed: %v", err)
	}
	if s.httpServer.Handler == nil {
		t.Error("expected httpServer.Handler to be set")
	}
	if s.httpServer.Addr != s.httpEndpoint {
		t.Errorf("expected httpServer.Addr %q, got %q", s.httpEndpoint, s.httpServer.Addr)
	}
}

func TestServer_StartStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50062, 8092, logger, grpc.Creds(insecure.NewCredentials()))

	s.RegisterGRPCHandler(NewResolutionHandler(&mockResolutionController{
		resolveFunc: func(_ context.Context, _ *controller.ResolveRequest) (*resolution.Result, error) {
			return &resolution.Result{}, nil
		},
	}, logger))
	if err := s.RegisterHTTPGateway(NewHTTPHandler(nil, logger), metrics.New()); err != nil {
		t.Fatalf("RegisterHTTPGateway failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	// Give the server a moment to start.
	time.Sleep(200 * time.Millisecond)

	conn, err := grpc.NewClient(
		"localhost"+s.grpcEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Errorf("failed to connect to gRPC server: %v", err)
	} else {
		conn.Close()
	}

	resp, err := http.Get("http://localhost" + s.httpEndpoint + "/metrics")
	if err != nil {
		t.Errorf("failed to reach HTTP server: %v", err)
	} else {
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected /metrics to answer 200, got %d", resp.StatusCode)
		}
	}

	s.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Server Start returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server to stop")
	}

	lis, err := net.Listen("tcp", s.grpcEndpoint)
	if err != nil {
		t.Errorf("expected to be able to listen on %q after shutdown, but got error: %v", s.grpcEndpoint, err)
	} else {
		lis.Close()
	}
}
