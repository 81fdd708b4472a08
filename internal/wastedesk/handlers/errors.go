package handlers

import (
	"errors"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
)

// errorCode maps domain errors to gRPC codes. Blocking conditions are checked
// first: they are reported together with field messages and so also match
// ErrInvalidInput.
func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, e.ErrConfiguration),
		errors.Is(err, e.ErrNoCommonReceiver),
		errors.Is(err, e.ErrReferenced):
		return codes.FailedPrecondition
	case errors.Is(err, e.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, e.ErrInvalidInput):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// mapServiceError maps domain or repository errors to appropriate gRPC status codes.
func mapServiceError(logger *zap.Logger, err error) error {
	code := errorCode(err)
	if code == codes.Internal {
		logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
	return status.Error(code, err.Error())
}

// errorBody is the JSON error envelope of the HTTP API.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(mapServiceError(h.logger, err))
	h.writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), errorBody{
		Code:    st.Code().String(),
		Message: st.Message(),
		Fields:  e.Fields(err),
	})
}
