package handlers

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	DocumentServiceName   = "wastedesk.v1.DocumentService"
	TransportLetterMethod = "/" + DocumentServiceName + "/TransportLetter"
)

// DocumentServer is the server API of the DocumentService. The request is the
// order id; the response carries the rendered PDF.
type DocumentServer interface {
	TransportLetter(ctx context.Context, req *wrapperspb.StringValue) (*httpbody.HttpBody, error)
}

func transportLetterHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServer).TransportLetter(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransportLetterMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServer).TransportLetter(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// DocumentServiceDesc describes the DocumentService for grpc.Server.RegisterService.
var DocumentServiceDesc = grpc.ServiceDesc{
	ServiceName: DocumentServiceName,
	HandlerType: (*DocumentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TransportLetter",
			Handler:    transportLetterHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wastedesk/v1/documents.proto",
}

func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServer) {
	s.RegisterService(&DocumentServiceDesc, srv)
}

// DocumentClient calls the DocumentService.
type DocumentClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentClient(cc grpc.ClientConnInterface) *DocumentClient {
	return &DocumentClient{cc: cc}
}

func (c *DocumentClient) TransportLetter(ctx context.Context, orderID string, opts ...grpc.CallOption) (*httpbody.HttpBody, error) {
	out := new(httpbody.HttpBody)
	if err := c.cc.Invoke(ctx, TransportLetterMethod, wrapperspb.String(orderID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DocumentHandler serves transport letters over gRPC.
type DocumentHandler struct {
	service DocumentController
	logger  *zap.Logger
}

func NewDocumentHandler(service DocumentController, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger.Named("grpc_document_handler"),
	}
}

// TransportLetter renders the transport letter of the order named by req.
func (h *DocumentHandler) TransportLetter(ctx context.Context, req *wrapperspb.StringValue) (*httpbody.HttpBody, error) {
	orderID := strings.TrimSpace(req.GetValue())
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order id is required")
	}
	pdf, err := h.service.TransportLetter(ctx, orderID)
	if err != nil {
		return nil, mapServiceError(h.logger, err)
	}
	return &httpbody.HttpBody{ContentType: contentTypePDF, Data: pdf}, nil
}
