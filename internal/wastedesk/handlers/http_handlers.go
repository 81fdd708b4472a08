package handlers

import (
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HTTPHandler serves the JSON API under /v1 on a grpc-gateway ServeMux.
type HTTPHandler struct {
	service   AdminController
	logger    *zap.Logger
	marshaler runtime.Marshaler
}

// NewHTTPHandler constructs a new HTTPHandler with the given service and logger.
func NewHTTPHandler(service AdminController, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:   service,
		logger:    logger.Named("http_handler"),
		marshaler: &runtime.JSONBuiltin{},
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func (h *HTTPHandler) routes() []route {
	return []route{
		{http.MethodGet, "/v1/summary", h.summary},
		{http.MethodGet, "/v1/ewc-codes", h.ewcCodes},

		{http.MethodGet, "/v1/entities", h.listEntities},
		{http.MethodPost, "/v1/entities", h.createEntity},
		{http.MethodGet, "/v1/entities/{id}", h.getEntity},
		{http.MethodPut, "/v1/entities/{id}", h.updateEntity},
		{http.MethodDelete, "/v1/entities/{id}", h.deleteEntity},
		{http.MethodGet, "/v1/entities/{id}/service-points", h.servicePoints},

		{http.MethodGet, "/v1/waste-types", h.listWasteTypes},
		{http.MethodPost, "/v1/waste-types", h.createWasteType},
		{http.MethodGet, "/v1/waste-types/{id}", h.getWasteType},
		{http.MethodPut, "/v1/waste-types/{id}", h.updateWasteType},
		{http.MethodDelete, "/v1/waste-types/{id}", h.deleteWasteType},

		{http.MethodGet, "/v1/order-types", h.listOrderTypes},
		{http.MethodPost, "/v1/order-types", h.createOrderType},
		{http.MethodGet, "/v1/order-types/{id}", h.getOrderType},
		{http.MethodPut, "/v1/order-types/{id}", h.updateOrderType},
		{http.MethodDelete, "/v1/order-types/{id}", h.deleteOrderType},

		{http.MethodGet, "/v1/agreements", h.listAgreements},
		{http.MethodPost, "/v1/agreements", h.createAgreement},
		{http.MethodGet, "/v1/agreements/{id}", h.getAgreement},
		{http.MethodPatch, "/v1/agreements/{id}", h.updateAgreement},
		{http.MethodDelete, "/v1/agreements/{id}", h.deleteAgreement},
		{http.MethodPost, "/v1/agreements/{id}/waste-streams", h.addWasteStream},
		{http.MethodDelete, "/v1/agreements/{id}/waste-streams/{waste_type_id}", h.removeWasteStream},
		{http.MethodPost, "/v1/agreements/{id}/waste-streams/{waste_type_id}/destinations", h.addDestination},
		{http.MethodDelete, "/v1/agreements/{id}/waste-streams/{waste_type_id}/destinations/{destination_id}", h.removeDestination},
		{http.MethodPut, "/v1/agreements/{id}/waste-streams/{waste_type_id}/default", h.setDefaultDestination},

		{http.MethodPost, "/v1/resolve", h.resolve},

		{http.MethodGet, "/v1/orders", h.listOrders},
		{http.MethodPost, "/v1/orders", h.createOrder},
		{http.MethodGet, "/v1/orders/{id}", h.getOrder},
		{http.MethodPut, "/v1/orders/{id}/status", h.updateOrderStatus},
		{http.MethodDelete, "/v1/orders/{id}", h.deleteOrder},
		{http.MethodGet, "/v1/orders/{id}/letter", h.transportLetter},
		{http.MethodGet, "/v1/exports/orders", h.exportOrders},

		{http.MethodGet, "/v1/audit", h.listAudit},
	}
}

// Register adds every API route to mux.
func (h *HTTPHandler) Register(mux *runtime.ServeMux) error {
	for _, r := range h.routes() {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := h.marshaler.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.marshaler.ContentType(v))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (h *HTTPHandler) writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (h *HTTPHandler) decode(r *http.Request, v any) error {
	if err := h.marshaler.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

// respond writes v, or the mapped error when err is set.
func (h *HTTPHandler) respond(w http.ResponseWriter, code int, v any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, code, v)
}

func (h *HTTPHandler) noContent(w http.ResponseWriter, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) summary(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s, err := h.service.Summary(r.Context())
	h.respond(w, http.StatusOK, s, err)
}

func (h *HTTPHandler) ewcCodes(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	h.writeJSON(w, http.StatusOK, models.EWCCatalogue)
}

func (h *HTTPHandler) listEntities(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if role := r.URL.Query().Get("role"); role != "" {
		list, err := h.service.ListEntitiesByRole(r.Context(), models.EntityRole(role))
		h.respond(w, http.StatusOK, list, err)
		return
	}
	list, err := h.service.ListEntities(r.Context())
	h.respond(w, http.StatusOK, list, err)
}

func (h *HTTPHandler) createEntity(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.Entity
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateEntity(r.Context(), &in)
	h.respond(w, http.StatusCreated, created, err)
}

func (h *HTTPHandler) getEntity(w http.ResponseWriter, r *http.Request, params map[string]string) {
	en, err := h.service.GetEntity(r.Context(), params["id"])
	h.respond(w, http.StatusOK, en, err)
}

func (h *HTTPHandler) updateEntity(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var in models.Entity
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateEntity(r.Context(), params["id"], &in)
	h.respond(w, http.StatusOK, updated, err)
}

func (h *HTTPHandler) deleteEntity(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.noContent(w, h.service.DeleteEntity(r.Context(), params["id"]))
}

func (h *HTTPHandler) servicePoints(w http.ResponseWriter, r *http.Request, params map[string]string) {
	sps, err := h.service.ServicePointsOf(r.Context(), params["id"])
	h.respond(w, http.StatusOK, sps, err)
}

func (h *HTTPHandler) listWasteTypes(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	includeInactive, err := boolParam(r.URL.Query(), "include_inactive")
	if err != nil {
		h.writeError(w, err)
		return
	}
	list, err := h.service.ListWasteTypes(r.Context(), includeInactive)
	h.respond(w, http.StatusOK, list, err)
}

func (h *HTTPHandler) createWasteType(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.WasteType
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateWasteType(r.Context(), &in)
	h.respond(w, http.StatusCreated, created, err)
}

func (h *HTTPHandler) getWasteType(w http.ResponseWriter, r *http.Request, params map[string]string) {
	wt, err := h.service.GetWasteType(r.Context(), params["id"])
	h.respond(w, http.StatusOK, wt, err)
}

func (h *HTTPHandler) updateWasteType(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var in models.WasteType
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateWasteType(r.Context(), params["id"], &in)
	h.respond(w, http.StatusOK, updated, err)
}

func (h *HTTPHandler) deleteWasteType(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.noContent(w, h.service.DeleteWasteType(r.Context(), params["id"]))
}

func (h *HTTPHandler) listOrderTypes(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := h.service.ListOrderTypes(r.Context())
	h.respond(w, http.StatusOK, list, err)
}

func (h *HTTPHandler) createOrderType(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.OrderType
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateOrderType(r.Context(), &in)
	h.respond(w, http.StatusCreated, created, err)
}

func (h *HTTPHandler) getOrderType(w http.ResponseWriter, r *http.Request, params map[string]string) {
	ot, err := h.service.GetOrderType(r.Context(), params["id"])
	h.respond(w, http.StatusOK, ot, err)
}

func (h *HTTPHandler) updateOrderType(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var in models.OrderType
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateOrderType(r.Context(), params["id"], &in)
	h.respond(w, http.StatusOK, updated, err)
}

func (h *HTTPHandler) deleteOrderType(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.noContent(w, h.service.DeleteOrderType(r.Context(), params["id"]))
}

func (h *HTTPHandler) listAgreements(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := h.service.ListAgreements(r.Context())
	h.respond(w, http.StatusOK, list, err)
}

func (h *HTTPHandler) createAgreement(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.Agreement
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateAgreement(r.Context(), &in)
	h.respond(w, http.StatusCreated, created, err)
}

func (h *HTTPHandler) getAgreement(w http.ResponseWriter, r *http.Request, params map[string]string) {
	a, err := h.service.GetAgreement(r.Context(), params["id"])
	h.respond(w, http.StatusOK, a, err)
}

func (h *HTTPHandler) updateAgreement(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var patch agreementPatch
	if err := h.decode(r, &patch); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateAgreement(r.Context(), patch.toUpdate(params["id"]))
	h.respond(w, http.StatusOK, updated, err)
}

func (h *HTTPHandler) deleteAgreement(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.noContent(w, h.service.DeleteAgreement(r.Context(), params["id"]))
}

func (h *HTTPHandler) addWasteStream(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var ws models.WasteStream
	if err := h.decode(r, &ws); err != nil {
		h.writeError(w, err)
		return
	}
	a, err := h.service.AddWasteStream(r.Context(), params["id"], ws)
	h.respond(w, http.StatusOK, a, err)
}

func (h *HTTPHandler) removeWasteStream(w http.ResponseWriter, r *http.Request, params map[string]string) {
	a, err := h.service.RemoveWasteStream(r.Context(), params["id"], params["waste_type_id"])
	h.respond(w, http.StatusOK, a, err)
}

func (h *HTTPHandler) addDestination(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var d models.Destination
	if err := h.decode(r, &d); err != nil {
		h.writeError(w, err)
		return
	}
	a, err := h.service.AddDestination(r.Context(), params["id"], params["waste_type_id"], d)
	h.respond(w, http.StatusOK, a, err)
}

func (h *HTTPHandler) removeDestination(w http.ResponseWriter, r *http.Request, params map[string]string) {
	a, err := h.service.RemoveDestination(r.Context(), params["id"], params["waste_type_id"], params["destination_id"])
	h.respond(w, http.StatusOK, a, err)
}

func (h *HTTPHandler) setDefaultDestination(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var body struct {
		DestinationID string `json:"destinationId"`
	}
	if err := h.decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	a, err := h.service.SetDefaultDestination(r.Context(), params["id"], params["waste_type_id"], body.DestinationID)
	h.respond(w, http.StatusOK, a, err)
}

func (h *HTTPHandler) resolve(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req controller.ResolveRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.Resolve(r.Context(), &req)
	h.respond(w, http.StatusOK, res, err)
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := h.service.ListOrders(r.Context(), orderFilterFromQuery(r.URL.Query()))
	h.respond(w, http.StatusOK, list, err)
}

func (h *HTTPHandler) createOrder(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req controller.OrderRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), &req)
	h.respond(w, http.StatusCreated, order, err)
}

func (h *HTTPHandler) getOrder(w http.ResponseWriter, r *http.Request, params map[string]string) {
	order, err := h.service.GetOrder(r.Context(), params["id"])
	h.respond(w, http.StatusOK, order, err)
}

func (h *HTTPHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := h.decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	order, err := h.service.UpdateOrderStatus(r.Context(), params["id"], body.Status)
	h.respond(w, http.StatusOK, order, err)
}

func (h *HTTPHandler) deleteOrder(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.noContent(w, h.service.DeleteOrder(r.Context(), params["id"]))
}

func (h *HTTPHandler) transportLetter(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id := params["id"]
	data, err := h.service.TransportLetter(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeFile(w, contentTypePDF, "begeleidingsbrief-"+id+".pdf", data)
}

func (h *HTTPHandler) exportOrders(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	data, err := h.service.ExportOrders(r.Context(), orderFilterFromQuery(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeFile(w, contentTypeXLSX, "orders.xlsx", data)
}

func (h *HTTPHandler) listAudit(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	records, err := h.service.ListAudit(r.Context(), q.Get("resource_id"), limit)
	h.respond(w, http.StatusOK, records, err)
}
