package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

// mockResolutionController is a simple mock implementation of ResolutionController.
type mockResolutionController struct {
	resolveFunc func(ctx context.Context, req *controller.ResolveRequest) (*resolution.Result, error)
}

func (m *mockResolutionController) Resolve(ctx context.Context, req *controller.ResolveRequest) (*resolution.Result, error) {
	return m.resolveFunc(ctx, req)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestResolutionHandler_Resolve(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("NilRequest", func(t *testing.T) {
		handler := NewResolutionHandler(&mockResolutionController{}, logger)
		_, err := handler.Resolve(context.Background(), nil)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("MalformedRequest", func(t *testing.T) {
		handler := NewResolutionHandler(&mockResolutionController{}, logger)
		_, err := handler.Resolve(context.Background(), mustStruct(t, map[string]any{"wasteTypeIds": "wt-seed-0"}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Success", func(t *testing.T) {
		var got *controller.ResolveRequest
		mockCtrl := &mockResolutionController{
			resolveFunc: func(_ context.Context, req *controller.ResolveRequest) (*resolution.Result, error) {
				got = req
				return &resolution.Result{
					Mode:            resolution.ModeBasicSystem,
					DisposerID:      req.EntityID,
					CommonReceivers: []string{"indaver", "attero"},
					Transfer: resolution.Transfer{
						Receiver: resolution.Auto("indaver"),
						ASN:      resolution.Auto("ASN-EM-GFT-001"),
					},
					Lines:  []resolution.Line{},
					Issues: []resolution.Issue{},
				}, nil
			},
		}
		handler := NewResolutionHandler(mockCtrl, logger)
		resp, err := handler.Resolve(context.Background(), mustStruct(t, map[string]any{
			"entityId":       "erasmus_mc",
			"servicePointId": "erasmus_waste_dock",
			"orderTypeId":    "aftransport",
			"wasteTypeIds":   []any{"wt-seed-0"},
			"transfer": map[string]any{
				"asn": map[string]any{"value": "MANUAL", "source": "manual"},
			},
		}))
		require.NoError(t, err)

		require.NotNil(t, got)
		assert.Equal(t, "erasmus_mc", got.EntityID)
		assert.Equal(t, []string{"wt-seed-0"}, got.WasteTypeIDs)
		assert.Equal(t, resolution.Manual("MANUAL"), got.Transfer.ASN)

		out := resp.AsMap()
		assert.Equal(t, "basic_system", out["mode"])
		assert.Equal(t, []any{"indaver", "attero"}, out["commonReceivers"])
		receiver := out["transfer"].(map[string]any)["receiver"].(map[string]any)
		assert.Equal(t, "indaver", receiver["value"])
		assert.Equal(t, "auto", receiver["source"])
	})
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fmt.Errorf("%w: entity nobody", e.ErrNotFound), codes.NotFound},
		{"validation", e.NewValidationError(map[string]string{"name": "Name is required"}), codes.InvalidArgument},
		{"inactive waste type", e.ErrInactiveWasteType, codes.InvalidArgument},
		{"referenced", fmt.Errorf("%w: %s", e.ErrReferenced, e.MsgReferenced), codes.FailedPrecondition},
		{
			"no collector with fields",
			fmt.Errorf("%w: %w", e.ErrNoCollector, e.NewValidationError(map[string]string{"disposer": e.MsgNoDefaultCollector})),
			codes.FailedPrecondition,
		},
		{
			"no common receiver with fields",
			fmt.Errorf("%w: %w", e.ErrNoCommonReceiver, e.NewValidationError(map[string]string{"receiver": e.MsgNoCommonReceiver})),
			codes.FailedPrecondition,
		},
		{"unknown", errors.New("disk full"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zap.ErrorLevel)
			err := mapServiceError(zap.New(core), tt.err)
			assert.Equal(t, tt.want, status.Code(err))
			if tt.want == codes.Internal {
				assert.Equal(t, "internal server error", status.Convert(err).Message(), "internal details stay in the log")
				assert.Equal(t, 1, recorded.FilterMessage("Internal server error").Len())
			} else {
				assert.Equal(t, 0, recorded.Len())
			}
		})
	}
}

func TestResolutionServiceOverGRPC(t *testing.T) {
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(logger, m)))
	RegisterResolutionServiceServer(srv, NewResolutionHandler(&mockResolutionController{
		resolveFunc: func(_ context.Context, req *controller.ResolveRequest) (*resolution.Result, error) {
			if req.EntityID == "nobody" {
				return nil, fmt.Errorf("%w: entity %q", e.ErrNotFound, req.EntityID)
			}
			return &resolution.Result{Mode: resolution.ModeRouteCollection, Issues: []resolution.Issue{}}, nil
		},
	}, logger))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := NewResolutionClient(conn)

	resp, err := client.Resolve(context.Background(), mustStruct(t, map[string]any{"entityId": "rotterdam_municipality"}))
	require.NoError(t, err)
	assert.Equal(t, "route_collection", resp.AsMap()["mode"])

	_, err = client.Resolve(context.Background(), mustStruct(t, map[string]any{"entityId": "nobody"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestUnaryInterceptor(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	interceptor := UnaryInterceptor(zap.New(core), nil)
	info := &grpc.UnaryServerInfo{FullMethod: ResolveMethod}

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.NotFound, status.Code(err))

	entries := recorded.FilterMessage("Handled request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "NotFound", entries[0].ContextMap()["code"])
	assert.Equal(t, ResolveMethod, entries[0].ContextMap()["method"])
}

type mockDocumentController struct {
	transportLetterFunc func(ctx context.Context, orderID string) ([]byte, error)
}

func (m *mockDocumentController) TransportLetter(ctx context.Context, orderID string) ([]byte, error) {
	return m.transportLetterFunc(ctx, orderID)
}

func TestDocumentServiceOverGRPC(t *testing.T) {
	logger := zaptest.NewLogger(t)
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(logger, nil)))
	RegisterDocumentServiceServer(srv, NewDocumentHandler(&mockDocumentController{
		transportLetterFunc: func(_ context.Context, orderID string) ([]byte, error) {
			if orderID != "ORD-000184" {
				return nil, fmt.Errorf("%w: order %s", e.ErrNotFound, orderID)
			}
			return []byte("%PDF-1.3"), nil
		},
	}, logger))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := NewDocumentClient(conn)

	body, err := client.TransportLetter(context.Background(), "ORD-000184")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", body.GetContentType())
	assert.Equal(t, []byte("%PDF-1.3"), body.GetData())

	_, err = client.TransportLetter(context.Background(), "ORD-999999")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.TransportLetter(context.Background(), "  ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
