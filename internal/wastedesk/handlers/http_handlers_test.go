package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

// newTestMux serves the API over a seeded SQLite file.
func newTestMux(t *testing.T) *runtime.ServeMux {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo, err := db.NewRepository(&db.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "wastedesk.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	fixtures, err := db.LoadFixtures()
	require.NoError(t, err)
	_, err = db.NewSeeder(repo, fixtures, logger).InitializeIfAbsent(context.Background())
	require.NoError(t, err)

	m := metrics.New()
	svc := controller.NewService(db.NewCollections(repo), events.NopProducer{}, m, logger)
	mux, err := NewGatewayMux(NewHTTPHandler(svc, logger), m)
	require.NoError(t, err)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHTTPReadEndpoints(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/v1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[models.Summary](t, rec)
	assert.Equal(t, 13, summary.Entities)
	assert.Equal(t, 1, summary.Orders)

	rec = do(t, mux, http.MethodGet, "/v1/entities?role=Transporter", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Entity](t, rec), 2)

	rec = do(t, mux, http.MethodGet, "/v1/entities/erasmus_mc/service-points", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.ServicePoint](t, rec), 2)

	rec = do(t, mux, http.MethodGet, "/v1/ewc-codes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.EWCCode](t, rec), len(models.EWCCatalogue))

	rec = do(t, mux, http.MethodGet, "/v1/entities/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", decodeBody[errorBody](t, rec).Code)

	rec = do(t, mux, http.MethodGet, "/v1/waste-types?include_inactive=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/v1/audit?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHTTPDeleteReferencedEntity(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodDelete, "/v1/entities/attero", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "FailedPrecondition", body.Code)
	assert.Contains(t, body.Message, e.MsgReferenced)

	rec = do(t, mux, http.MethodDelete, "/v1/entities/suez", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPResolveAndOrder(t *testing.T) {
	mux := newTestMux(t)
	const form = `{
		"entityId": "erasmus_mc",
		"servicePointId": "erasmus_waste_dock",
		"orderTypeId": "aftransport",
		"fulfillmentDate": "2025-03-05",
		"wasteTypeIds": ["wt-seed-0"]
	}`

	rec := do(t, mux, http.MethodPost, "/v1/resolve", form)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[resolution.Result](t, rec)
	assert.Equal(t, resolution.Auto("indaver"), res.Transfer.Receiver)
	assert.Equal(t, resolution.Auto("renewi"), res.Transfer.Transporter)

	rec = do(t, mux, http.MethodPost, "/v1/orders", form)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeBody[models.Order](t, rec)
	assert.Equal(t, "ORD-000185", order.ID)
	assert.Equal(t, "indaver", order.WasteLines[0].ReceiverID)

	rec = do(t, mux, http.MethodPut, "/v1/orders/ORD-000185/status", `{"status":"Draft"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OrderDraft, decodeBody[models.Order](t, rec).Status)

	rec = do(t, mux, http.MethodGet, "/v1/orders?status=Draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Order](t, rec), 1)

	rec = do(t, mux, http.MethodGet, "/v1/orders/ORD-000185/letter", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypePDF, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = do(t, mux, http.MethodGet, "/v1/exports/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "orders.xlsx")

	rec = do(t, mux, http.MethodDelete, "/v1/orders/ORD-000185", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, mux, http.MethodGet, "/v1/orders/ORD-000185", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPValidationErrors(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/v1/orders", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "InvalidArgument", body.Code)
	assert.Equal(t, "Entity is required", body.Fields["entityId"])
	assert.Equal(t, "Order Type is required", body.Fields["orderTypeId"])

	rec = do(t, mux, http.MethodPost, "/v1/entities", `{"name": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Message, "malformed request body")

	rec = do(t, mux, http.MethodPost, "/v1/orders", `{
		"entityId": "bouwcom",
		"orderTypeId": "inzamelaarsregeling",
		"fulfillmentDate": "2025-03-06",
		"wasteTypeIds": ["wt-seed-1"]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decodeBody[errorBody](t, rec)
	assert.Equal(t, "FailedPrecondition", body.Code, "no collector scheme agreement covers the selection")
	assert.Equal(t, e.MsgNoCommonReceiver, body.Fields["receiver"])
}

func TestHTTPAgreementAuthoring(t *testing.T) {
	mux := newTestMux(t)
	base := "/v1/agreements/agr-seed-bs-1"

	rec := do(t, mux, http.MethodPut, base+"/waste-streams/wt-seed-0/default", `{"destinationId":"dest-em-gft-attero"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	agreement := decodeBody[models.Agreement](t, rec)
	stream, ok := agreement.Stream("wt-seed-0")
	require.True(t, ok)
	assert.Equal(t, "dest-em-gft-attero", stream.DefaultDestinationID)

	rec = do(t, mux, http.MethodDelete, base+"/waste-streams/wt-seed-0/destinations/dest-em-gft-attero", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	agreement = decodeBody[models.Agreement](t, rec)
	stream, _ = agreement.Stream("wt-seed-0")
	assert.Equal(t, "dest-em-gft-indaver", stream.DefaultDestinationID, "the remaining destination becomes the default")

	rec = do(t, mux, http.MethodDelete, base+"/waste-streams/wt-seed-0/destinations/dest-em-gft-indaver", "")
	require.Equal(t, http.StatusBadRequest, rec.Code, "the last destination cannot be removed")

	rec = do(t, mux, http.MethodPatch, base, `{"validUntil":"2024-06-30"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody[errorBody](t, rec).Fields["validUntil"])

	rec = do(t, mux, http.MethodPatch, base, `{"validUntil":"2026-06-30"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2026-06-30", decodeBody[models.Agreement](t, rec).ValidUntil)

	rec = do(t, mux, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, mux, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
