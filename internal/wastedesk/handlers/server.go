package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
)

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	return &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:       logger,
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
}

// RegisterGRPCHandler registers the gRPC handler for the ResolutionService.
func (s *Server) RegisterGRPCHandler(h *ResolutionHandler) {
	RegisterResolutionServiceServer(s.grpcServer, h)
}

// RegisterDocumentHandler registers the gRPC handler for the DocumentService.
func (s *Server) RegisterDocumentHandler(h *DocumentHandler) {
	RegisterDocumentServiceServer(s.grpcServer, h)
}

// NewGatewayMux builds the HTTP mux serving the JSON API and, when m is set, /metrics.
func NewGatewayMux(h *HTTPHandler, m *metrics.Metrics) (*runtime.ServeMux, error) {
	mux := runtime.NewServeMux()
	if err := h.Register(mux); err != nil {
		return nil, err
	}
	if m != nil {
		handler := m.Handler()
		err := mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			handler.ServeHTTP(w, r)
		})
		if err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// RegisterHTTPGateway mounts the JSON API on the HTTP server.
func (s *Server) RegisterHTTPGateway(h *HTTPHandler, m *metrics.Metrics) error {
	mux, err := NewGatewayMux(h, m)
	if err != nil {
		return err
	}
	s.httpServer.Handler = HTTPMiddleware(mux, s.logger)
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
