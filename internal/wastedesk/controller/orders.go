package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

const (
	orderIDPrefix   = "ORD-"
	orderNameLayout = "02 Jan 2006"
)

// OrderRequest is a submitted order form.
type OrderRequest struct {
	EntityID        string   `json:"entityId"`
	ServicePointID  string   `json:"servicePointId"`
	OrderTypeID     string   `json:"orderTypeId"`
	FulfillmentDate string   `json:"fulfillmentDate"`
	OrderName       string   `json:"orderName"`
	WasteTypeIDs    []string `json:"wasteTypeIds"`
	// Transfer holds the waste-transfer section as last shown to the user.
	// It is resolved again on submit; manual values are kept.
	Transfer                  resolution.Transfer `json:"transfer"`
	UseOutsourcedCarrier      bool                `json:"useOutsourcedCarrier"`
	OutsourcedCarrierEntityID string              `json:"outsourcedCarrierEntityId"`
	Note                      string              `json:"note"`
}

// highestOrderNumber returns the largest number among stored ORD- ids.
func highestOrderNumber(orders []models.Order) int {
	highest := 0
	for i := range orders {
		raw, ok := strings.CutPrefix(orders[i].ID, orderIDPrefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(raw); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

func formatOrderID(n int) string {
	return fmt.Sprintf("%s%06d", orderIDPrefix, n)
}

func uniqueStrings(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// lineValue prefers a manual transfer value over the per-waste-type lookup.
func lineValue(f resolution.Field, looked string) string {
	if f.IsManual() || looked == "" {
		return f.Value
	}
	return looked
}

// buildWasteLines freezes one line per waste type from the resolution result.
func buildWasteLines(res *resolution.Result, wasteTypeIDs []string, newID func(string) string) []models.WasteLine {
	lines := make([]models.WasteLine, 0, len(wasteTypeIDs))
	for _, wt := range wasteTypeIDs {
		line := models.WasteLine{ID: newID("wl-"), WasteTypeID: wt}
		if res != nil && res.Mode.RequiresTransfer() {
			t := res.Transfer
			line.DisposerID = t.Disposer.Value
			line.ReceiverID = t.Receiver.Value
			line.SenderID = t.Sender.Value
			line.TransporterID = t.Transporter.Value
			var lookedASN, lookedMethod string
			for _, l := range res.Lines {
				if l.WasteTypeID == wt {
					lookedASN, lookedMethod = l.ASN, string(l.ProcessingMethod)
					break
				}
			}
			line.ASN = lineValue(t.ASN, lookedASN)
			line.ProcessingMethod = models.ProcessingMethod(lineValue(t.ProcessingMethod, lookedMethod))
		}
		lines = append(lines, line)
	}
	return lines
}

// CreateOrder validates the form, resolves the transfer parties and stores
// the order with frozen waste lines. All validation failures are reported
// together. Configuration and empty-resolution failures additionally match
// ErrNoCollector and ErrNoCommonReceiver.
func (s *Service) CreateOrder(ctx context.Context, req *OrderRequest) (*models.Order, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}

	entity, ok := snap.entity(req.EntityID)
	switch {
	case req.EntityID == "":
		fields["entityId"] = "Entity is required"
	case !ok:
		fields["entityId"] = fmt.Sprintf("Entity %s does not exist", req.EntityID)
	}
	servicePoint := req.ServicePointID
	if servicePoint == "" {
		servicePoint = models.NoServicePoint
	}
	if entity != nil && servicePoint != models.NoServicePoint {
		if _, ok := entity.ServicePoint(servicePoint); !ok {
			fields["servicePointId"] = "Service point does not belong to the entity"
		}
	}

	orderType, ok := snap.orderType(req.OrderTypeID)
	switch {
	case req.OrderTypeID == "":
		fields["orderTypeId"] = "Order Type is required"
	case !ok:
		fields["orderTypeId"] = fmt.Sprintf("Order type %s does not exist", req.OrderTypeID)
	}

	fulfillment, dateErr := time.Parse(dateLayout, req.FulfillmentDate)
	switch {
	case req.FulfillmentDate == "":
		fields["fulfillmentDate"] = "Fulfillment Date is required"
	case dateErr != nil:
		fields["fulfillmentDate"] = "Fulfillment Date must be a date (YYYY-MM-DD)"
	}

	wasteTypes := uniqueStrings(req.WasteTypeIDs)
	for _, id := range wasteTypes {
		wt, ok := snap.wasteType(id)
		if !ok {
			fields["wasteType"] = fmt.Sprintf("Waste type %s does not exist", id)
		} else if !wt.IsActive() {
			fields["wasteType"] = fmt.Sprintf("Waste type %s is inactive", wt.Label())
		}
	}
	if orderType != nil {
		switch {
		case orderType.RequiresWasteType() && len(wasteTypes) == 0:
			fields["wasteType"] = "Waste Type is required"
		case orderType.WasteTypeSelection == models.SelectSingle && len(wasteTypes) > 1:
			fields["wasteType"] = "Only one waste type can be selected for this order type"
		case orderType.WasteTypeSelection == models.SelectNone && len(wasteTypes) > 0:
			fields["wasteType"] = "This order type does not take waste types"
		}
	}

	mode := resolution.ModeForOrderType(orderType)
	var res *resolution.Result
	if mode.RequiresTransfer() && entity != nil && len(wasteTypes) > 0 {
		r := resolution.Resolve(resolution.Snapshot{
			Entities:   snap.entities,
			Agreements: snap.agreements,
		}, resolution.Request{
			EntityID:       entity.ID,
			ServicePointID: servicePoint,
			WasteTypeIDs:   wasteTypes,
			Mode:           mode,
			Transfer:       req.Transfer,
		})
		res = &r
		s.metrics.ObserveResolution(string(mode), outcome(res))

		t := res.Transfer
		if mode == resolution.ModeCollectorScheme && !t.Disposer.IsSet() {
			fields["disposer"] = "Disposer is required"
		}
		if !t.Receiver.IsSet() {
			fields["receiver"] = "Receiver is required"
		}
		if !t.Sender.IsSet() {
			fields["sender"] = "Sender is required"
		}
		if !t.Transporter.IsSet() {
			fields["transporter"] = "Transporter is required"
		}
		if req.UseOutsourcedCarrier && req.OutsourcedCarrierEntityID == "" {
			fields["outsourcedTransporter"] = "Outsourced transporter is required when toggle is enabled"
		}
		for _, is := range res.Issues {
			fields[is.Field] = is.Message
		}
	}

	if verr := e.NewValidationError(fields); verr != nil {
		if res != nil {
			if cause := res.Err(); cause != nil && !errors.Is(cause, e.ErrInvalidInput) {
				return nil, fmt.Errorf("%w: %w", cause, verr)
			}
		}
		return nil, verr
	}

	now := s.now()
	order := models.Order{
		EntityID:        entity.ID,
		ServicePointID:  servicePoint,
		OrderTypeID:     orderType.ID,
		FulfillmentDate: req.FulfillmentDate,
		OrderName:       strings.TrimSpace(req.OrderName),
		Status:          models.OrderSubmitted,
		WasteLines:      buildWasteLines(res, wasteTypes, s.newID),
		Note:            req.Note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.OrderName == "" {
		order.OrderName = fmt.Sprintf("%s – %s – %s", entity.Name, orderType.Name, fulfillment.Format(orderNameLayout))
	}
	if res != nil {
		order.AgreementTransporterEntityID = res.Transfer.Transporter.Value
		order.UseOutsourcedCarrier = req.UseOutsourcedCarrier
		if req.UseOutsourcedCarrier {
			order.OutsourcedCarrierEntityID = req.OutsourcedCarrierEntityID
		}
	}

	_, err = s.store.Orders.Update(ctx, func(all []models.Order) ([]models.Order, error) {
		// Ids of deleted orders are never handed out again.
		n, err := s.store.OrderSeq.Next(ctx, highestOrderNumber(all))
		if err != nil {
			return nil, err
		}
		order.ID = formatOrderID(n)
		return append(all, order), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.metrics.ObserveOrderCreated(string(mode))
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("entity_id", order.EntityID),
		zap.String("mode", string(mode)),
		zap.Int("waste_lines", len(order.WasteLines)),
	)
	s.emit(events.OrderCreated, order.ID, order)
	return &order, nil
}

// ListOrders returns the orders passing filter, newest first.
func (s *Service) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	all, err := s.store.Orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	out := []models.Order{}
	for i := len(all) - 1; i >= 0; i-- {
		if filter.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	all, err := s.store.Orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", e.ErrNotFound, id)
}

// UpdateOrderStatus moves an order between Draft and Submitted. Waste lines are never touched.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if status != models.OrderDraft && status != models.OrderSubmitted {
		return nil, e.NewValidationError(map[string]string{"status": "Status must be Draft or Submitted"})
	}
	var updated models.Order
	_, err := s.store.Orders.Update(ctx, func(all []models.Order) ([]models.Order, error) {
		idx := slices.IndexFunc(all, func(x models.Order) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: order %s", e.ErrNotFound, id)
		}
		all[idx].Status = status
		all[idx].UpdatedAt = s.now()
		updated = all[idx]
		return all, nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	s.emit(events.OrderUpdated, id, updated)
	return &updated, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	var deleted models.Order
	_, err := s.store.Orders.Update(ctx, func(all []models.Order) ([]models.Order, error) {
		idx := slices.IndexFunc(all, func(x models.Order) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: order %s", e.ErrNotFound, id)
		}
		deleted = all[idx]
		return slices.Delete(all, idx, idx+1), nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}
	s.emit(events.OrderDeleted, id, deleted)
	return nil
}
