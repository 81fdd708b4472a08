package controller

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

func scrapeMetrics(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func basicSystemOrder() *OrderRequest {
	return &OrderRequest{
		EntityID:        "erasmus_mc",
		ServicePointID:  "erasmus_waste_dock",
		OrderTypeID:     "aftransport",
		FulfillmentDate: "2025-03-05",
		WasteTypeIDs:    []string{"wt-seed-0"},
	}
}

func collectorSchemeOrder(wasteTypes ...string) *OrderRequest {
	return &OrderRequest{
		EntityID:        "bouwcom",
		OrderTypeID:     "inzamelaarsregeling",
		FulfillmentDate: "2025-03-06",
		WasteTypeIDs:    wasteTypes,
	}
}

func TestCreateOrderBasicSystem(t *testing.T) {
	env := newTestEnv(t, true)
	env.producer.expect(1)

	order, err := env.svc.CreateOrder(context.Background(), basicSystemOrder())
	require.NoError(t, err)

	assert.Equal(t, "ORD-000185", order.ID)
	assert.Equal(t, "Erasmus MC (Rotterdam) – Afvoer Basissystematiek – 05 Mar 2025", order.OrderName)
	assert.Equal(t, models.OrderSubmitted, order.Status)
	assert.Equal(t, "erasmus_waste_dock", order.ServicePointID)
	assert.Equal(t, "renewi", order.AgreementTransporterEntityID)
	assert.False(t, order.UseOutsourcedCarrier)
	require.Len(t, order.WasteLines, 1)
	assert.Equal(t, models.WasteLine{
		ID:               "wl-1",
		WasteTypeID:      "wt-seed-0",
		DisposerID:       "erasmus_mc",
		ReceiverID:       "indaver",
		ASN:              "ASN-EM-GFT-001",
		ProcessingMethod: models.Composting,
		SenderID:         "erasmus_mc",
		TransporterID:    "renewi",
	}, order.WasteLines[0])

	produced := env.producer.wait(t)
	require.Len(t, produced, 1)
	assert.Equal(t, events.OrderCreated, produced[0].Type)
	assert.Equal(t, "ORD-000185", produced[0].ResourceID)

	body := scrapeMetrics(t, env)
	assert.Contains(t, body, `wastedesk_orders_created_total{mode="basic_system"} 1`)
	assert.Contains(t, body, `wastedesk_resolution_total{mode="basic_system",outcome="resolved"} 1`)

	next, err := env.svc.CreateOrder(context.Background(), basicSystemOrder())
	require.NoError(t, err)
	assert.Equal(t, "ORD-000186", next.ID)
}

func TestCreateOrderManualValuesWin(t *testing.T) {
	env := newTestEnv(t, true)
	req := basicSystemOrder()
	req.OrderName = "  Weekly GFT  "
	req.Transfer = resolution.Transfer{
		Receiver: resolution.Manual("attero"),
		ASN:      resolution.Manual("MANUAL-ASN"),
	}
	req.UseOutsourcedCarrier = true
	req.OutsourcedCarrierEntityID = "reinis_nv"

	order, err := env.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Weekly GFT", order.OrderName)
	assert.Equal(t, "reinis_nv", order.OutsourcedCarrierEntityID)
	line := order.WasteLines[0]
	assert.Equal(t, "attero", line.ReceiverID)
	assert.Equal(t, "MANUAL-ASN", line.ASN)
	assert.Equal(t, models.Composting, line.ProcessingMethod, "unset fields still come from the destination")
}

func TestCreateOrderCollectorScheme(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_, err := env.svc.CreateAgreement(ctx, collectorSchemeAgreement())
	require.NoError(t, err)

	order, err := env.svc.CreateOrder(ctx, collectorSchemeOrder("wt-seed-1", "wt-seed-2"))
	require.NoError(t, err)

	assert.Equal(t, models.NoServicePoint, order.ServicePointID)
	require.Len(t, order.WasteLines, 2)
	for _, line := range order.WasteLines {
		assert.Equal(t, "reinis_nv", line.DisposerID, "the default collector is the disposer")
		assert.Equal(t, "bouwcom", line.SenderID, "the originating entity is the sender")
		assert.Equal(t, "avr", line.ReceiverID)
		assert.Equal(t, "reinis_nv", line.TransporterID)
	}
	assert.Equal(t, "ASN-CS-OPK", order.WasteLines[0].ASN)
	assert.Equal(t, "ASN-CS-PMD-1", order.WasteLines[1].ASN, "ASN is looked up per waste type")
}

func TestCreateOrderCollectorSchemeSenderIsOriginatingEntity(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_, err := env.svc.CreateAgreement(ctx, collectorSchemeAgreement())
	require.NoError(t, err)

	req := collectorSchemeOrder("wt-seed-1")
	req.Transfer.Sender = resolution.Manual("suez")
	order, err := env.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	require.Len(t, order.WasteLines, 1)
	assert.Equal(t, "bouwcom", order.WasteLines[0].SenderID)
}

func TestCreateOrderNoCommonReceiver(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_, err := env.svc.CreateAgreement(ctx, collectorSchemeAgreement())
	require.NoError(t, err)

	_, err = env.svc.CreateOrder(ctx, collectorSchemeOrder("wt-seed-0", "wt-seed-1"))
	require.ErrorIs(t, err, e.ErrNoCommonReceiver)
	require.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Equal(t, e.MsgNoCommonReceiver, e.Fields(err)["receiver"])

	orders, err := env.svc.ListOrders(ctx, models.OrderFilter{EntityID: "bouwcom"})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderWithoutDefaultCollector(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	_, err := env.svc.CreateAgreement(ctx, collectorSchemeAgreement())
	require.NoError(t, err)

	reinis, err := env.svc.GetEntity(ctx, "reinis_nv")
	require.NoError(t, err)
	reinis.IsDefaultInternalCollector = false
	_, err = env.svc.UpdateEntity(ctx, "reinis_nv", reinis)
	require.NoError(t, err)

	_, err = env.svc.CreateOrder(ctx, collectorSchemeOrder("wt-seed-1"))
	require.ErrorIs(t, err, e.ErrNoCollector)
	require.ErrorIs(t, err, e.ErrConfiguration)
	fields := e.Fields(err)
	assert.Equal(t, e.MsgNoDefaultCollector, fields["disposer"])
	assert.Equal(t, "Receiver is required", fields["receiver"])
}

func TestCreateOrderRouteCollection(t *testing.T) {
	env := newTestEnv(t, true)
	order, err := env.svc.CreateOrder(context.Background(), &OrderRequest{
		EntityID:        "rotterdam_municipality",
		OrderTypeID:     "route_inzameling",
		FulfillmentDate: "2025-04-01",
		WasteTypeIDs:    []string{"wt-seed-0", "wt-seed-3", "wt-seed-0"},
		// The transfer section is ignored for route collection.
		UseOutsourcedCarrier: true,
	})
	require.NoError(t, err)
	require.Len(t, order.WasteLines, 2)
	for _, line := range order.WasteLines {
		assert.Empty(t, line.DisposerID)
		assert.Empty(t, line.ReceiverID)
		assert.Empty(t, line.SenderID)
		assert.Empty(t, line.TransporterID)
	}
	assert.Empty(t, order.AgreementTransporterEntityID)
	assert.False(t, order.UseOutsourcedCarrier)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name       string
		req        *OrderRequest
		wantFields map[string]string
	}{
		{
			name: "everything missing",
			req:  &OrderRequest{},
			wantFields: map[string]string{
				"entityId":        "Entity is required",
				"orderTypeId":     "Order Type is required",
				"fulfillmentDate": "Fulfillment Date is required",
			},
		},
		{
			name: "waste type required",
			req: func() *OrderRequest {
				r := basicSystemOrder()
				r.WasteTypeIDs = nil
				return r
			}(),
			wantFields: map[string]string{"wasteType": "Waste Type is required"},
		},
		{
			name: "single selection",
			req: func() *OrderRequest {
				r := basicSystemOrder()
				r.WasteTypeIDs = []string{"wt-seed-0", "wt-seed-3"}
				return r
			}(),
			wantFields: map[string]string{"wasteType": "Only one waste type can be selected for this order type"},
		},
		{
			name: "outsourced carrier missing",
			req: func() *OrderRequest {
				r := basicSystemOrder()
				r.UseOutsourcedCarrier = true
				return r
			}(),
			wantFields: map[string]string{"outsourcedTransporter": "Outsourced transporter is required when toggle is enabled"},
		},
		{
			name: "bad date",
			req: func() *OrderRequest {
				r := basicSystemOrder()
				r.FulfillmentDate = "05-03-2025"
				return r
			}(),
			wantFields: map[string]string{"fulfillmentDate": "Fulfillment Date must be a date (YYYY-MM-DD)"},
		},
		{
			name: "manual receiver outside the common set",
			req: func() *OrderRequest {
				r := basicSystemOrder()
				r.Transfer.Receiver = resolution.Manual("suez")
				return r
			}(),
			wantFields: map[string]string{
				"receiver": "The selected receiver is not configured for all selected waste types under the current agreement.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			_, err := env.svc.CreateOrder(context.Background(), tt.req)
			require.ErrorIs(t, err, e.ErrInvalidInput)
			assert.NotErrorIs(t, err, e.ErrConfiguration)
			assert.Equal(t, tt.wantFields, e.Fields(err))
		})
	}
}

func TestCreateOrderForeignServicePoint(t *testing.T) {
	env := newTestEnv(t, true)
	req := basicSystemOrder()
	req.ServicePointID = "maasstad_service_yard"

	_, err := env.svc.CreateOrder(context.Background(), req)
	require.ErrorIs(t, err, e.ErrInvalidInput)
	fields := e.Fields(err)
	assert.Equal(t, "Service point does not belong to the entity", fields["servicePointId"])
	assert.Equal(t, e.MsgNoCommonReceiver, fields["receiver"], "no agreement covers that service point")
}

func TestCreateOrderRejectsInactiveWasteType(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	require.NoError(t, env.svc.DeleteWasteType(ctx, "wt-seed-0"))

	_, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Contains(t, e.Fields(err)["wasteType"], "inactive")
}

func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.NoError(t, err)

	all, err := env.svc.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, created.ID, all[0].ID, "newest first")

	byType, err := env.svc.ListOrders(ctx, models.OrderFilter{OrderTypeID: "route_inzameling"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "ORD-000184", byType[0].ID)

	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, "Cancelled")
	require.ErrorIs(t, err, e.ErrInvalidInput)

	draft, err := env.svc.UpdateOrderStatus(ctx, created.ID, models.OrderDraft)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDraft, draft.Status)
	assert.Equal(t, created.WasteLines, draft.WasteLines)

	drafts, err := env.svc.ListOrders(ctx, models.OrderFilter{Status: models.OrderDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	require.NoError(t, env.svc.DeleteOrder(ctx, created.ID))
	_, err = env.svc.GetOrder(ctx, created.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.ErrorIs(t, env.svc.DeleteOrder(ctx, created.ID), e.ErrNotFound)
	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, models.OrderDraft)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestOrderIDsAreNeverReused(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteOrder(ctx, first.ID))

	second, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.NoError(t, err)
	assert.Equal(t, "ORD-000185", first.ID)
	assert.Equal(t, "ORD-000186", second.ID)
}

func TestOrderLinesAreFrozen(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	order, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.NoError(t, err)

	_, err = env.svc.SetDefaultDestination(ctx, "agr-seed-bs-1", "wt-seed-0", "dest-em-gft-attero")
	require.NoError(t, err)

	stored, err := env.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "indaver", stored.WasteLines[0].ReceiverID)

	again, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.NoError(t, err)
	assert.Equal(t, "attero", again.WasteLines[0].ReceiverID)
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	res, err := env.svc.Resolve(ctx, &ResolveRequest{
		EntityID:       "erasmus_mc",
		ServicePointID: "erasmus_waste_dock",
		OrderTypeID:    "aftransport",
		WasteTypeIDs:   []string{"wt-seed-0", "wt-seed-3"},
	})
	require.NoError(t, err)
	assert.Equal(t, resolution.ModeBasicSystem, res.Mode)
	assert.Equal(t, "agr-seed-bs-1", res.AgreementID)
	assert.Equal(t, []string{"attero"}, res.CommonReceivers)
	assert.Equal(t, resolution.Auto("attero"), res.Transfer.Receiver)
	assert.Equal(t, resolution.Auto("ASN-EM-GFT-002"), res.Transfer.ASN)
	assert.Equal(t, resolution.Auto("renewi"), res.Transfer.Transporter)

	res, err = env.svc.Resolve(ctx, &ResolveRequest{
		EntityID:     "bouwcom",
		Mode:         resolution.ModeCollectorScheme,
		WasteTypeIDs: []string{"wt-seed-1"},
	})
	require.NoError(t, err, "blocking conditions are issues, not errors")
	assert.True(t, res.HasIssue(resolution.IssueNoCommonReceiver))
	assert.Equal(t, "reinis_nv", res.DisposerID)

	res, err = env.svc.Resolve(ctx, &ResolveRequest{EntityID: "rotterdam_municipality", OrderTypeID: "route_inzameling"})
	require.NoError(t, err)
	assert.Empty(t, res.Issues)

	body := scrapeMetrics(t, env)
	assert.Contains(t, body, `wastedesk_resolution_total{mode="basic_system",outcome="resolved"} 1`)
	assert.Contains(t, body, `wastedesk_resolution_total{mode="collector_scheme",outcome="no_common_receiver"} 1`)
	assert.Contains(t, body, `wastedesk_resolution_total{mode="route_collection",outcome="exempt"} 1`)
}

func TestResolveErrors(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	require.NoError(t, env.svc.DeleteWasteType(ctx, "wt-seed-3"))

	tests := []struct {
		name    string
		req     ResolveRequest
		wantErr error
	}{
		{"unknown entity", ResolveRequest{EntityID: "nobody"}, e.ErrNotFound},
		{"unknown order type", ResolveRequest{EntityID: "erasmus_mc", OrderTypeID: "nope"}, e.ErrNotFound},
		{"unknown mode", ResolveRequest{EntityID: "erasmus_mc", Mode: "weekly"}, e.ErrInvalidInput},
		{"unknown waste type", ResolveRequest{EntityID: "erasmus_mc", Mode: resolution.ModeBasicSystem, WasteTypeIDs: []string{"wt-x"}}, e.ErrNotFound},
		{"inactive waste type", ResolveRequest{EntityID: "erasmus_mc", Mode: resolution.ModeBasicSystem, WasteTypeIDs: []string{"wt-seed-3"}}, e.ErrInactiveWasteType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := env.svc.Resolve(ctx, &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrderDocuments(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	order, err := env.svc.CreateOrder(ctx, basicSystemOrder())
	require.NoError(t, err)

	letter, err := env.svc.TransportLetter(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(letter, []byte("%PDF-")))

	_, err = env.svc.TransportLetter(ctx, "ORD-999999")
	assert.ErrorIs(t, err, e.ErrNotFound)

	data, err := env.svc.ExportOrders(ctx, models.OrderFilter{EntityID: "erasmus_mc"})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, order.ID, rows[1][0])
}
