package handlers

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ResolutionServiceName = "wastedesk.v1.ResolutionService"
	ResolveMethod         = "/" + ResolutionServiceName + "/Resolve"
)

// ResolutionServer is the server API of the ResolutionService. Messages are
// google.protobuf.Struct values carrying the JSON shape of the HTTP API.
type ResolutionServer interface {
	Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResolutionServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ResolveMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResolutionServer).Resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ResolutionServiceDesc describes the ResolutionService for grpc.Server.RegisterService.
var ResolutionServiceDesc = grpc.ServiceDesc{
	ServiceName: ResolutionServiceName,
	HandlerType: (*ResolutionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Resolve",
			Handler:    resolveHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wastedesk/v1/resolution.proto",
}

func RegisterResolutionServiceServer(s grpc.ServiceRegistrar, srv ResolutionServer) {
	s.RegisterService(&ResolutionServiceDesc, srv)
}

// ResolutionClient calls the ResolutionService.
type ResolutionClient struct {
	cc grpc.ClientConnInterface
}

func NewResolutionClient(cc grpc.ClientConnInterface) *ResolutionClient {
	return &ResolutionClient{cc: cc}
}

func (c *ResolutionClient) Resolve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ResolveMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolutionHandler provides the gRPC Resolve method, mapping requests to a
// ResolutionController.
type ResolutionHandler struct {
	service ResolutionController
	logger  *zap.Logger
}

// NewResolutionHandler constructs a new ResolutionHandler with the given service and logger.
func NewResolutionHandler(service ResolutionController, logger *zap.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// Resolve runs the agreement resolution for the order being composed.
func (h *ResolutionHandler) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := structToResolveRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := h.service.Resolve(ctx, req)
	if err != nil {
		return nil, mapServiceError(h.logger, err)
	}
	out, err := resultToStruct(res)
	if err != nil {
		return nil, mapServiceError(h.logger, err)
	}
	return out, nil
}
