package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

const msgLMAMethodRequired = "LMA Reporting Method is required when Compliance Module is Netherlands – LMA"

func (s *Service) ListOrderTypes(ctx context.Context) ([]models.OrderType, error) {
	all, err := s.store.OrderTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list order types: %w", err)
	}
	return all, nil
}

func (s *Service) GetOrderType(ctx context.Context, id string) (*models.OrderType, error) {
	all, err := s.ListOrderTypes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: order type %s", e.ErrNotFound, id)
}

// prepareOrderType applies the form rules: the LMA method is required for
// nl_lma and cleared for every other compliance module.
func (s *Service) prepareOrderType(in *models.OrderType) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.WasteTypeSelection == "" {
		in.WasteTypeSelection = models.SelectNone
	}
	if in.ComplianceModule == "" {
		in.ComplianceModule = models.ComplianceNone
	}
	if in.ComplianceModule != models.ComplianceNLLMA {
		in.LMAReportingMethod = ""
	}

	fields := map[string]string{}
	if err := s.validateStruct(in, fields); err != nil {
		return err
	}
	if in.ComplianceModule == models.ComplianceNLLMA && in.LMAReportingMethod == "" {
		fields["lmaReportingMethod"] = msgLMAMethodRequired
	}
	return e.NewValidationError(fields)
}

func (s *Service) CreateOrderType(ctx context.Context, in *models.OrderType) (*models.OrderType, error) {
	ot := *in
	if err := s.prepareOrderType(&ot); err != nil {
		return nil, err
	}
	ot.ID = s.newID("ot-")
	_, err := s.store.OrderTypes.Update(ctx, func(all []models.OrderType) ([]models.OrderType, error) {
		return append(all, ot), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order type: %w", err)
	}
	s.emit(events.OrderTypeCreated, ot.ID, ot)
	return &ot, nil
}

func (s *Service) UpdateOrderType(ctx context.Context, id string, in *models.OrderType) (*models.OrderType, error) {
	ot := *in
	if err := s.prepareOrderType(&ot); err != nil {
		return nil, err
	}
	_, err := s.store.OrderTypes.Update(ctx, func(all []models.OrderType) ([]models.OrderType, error) {
		idx := slices.IndexFunc(all, func(x models.OrderType) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: order type %s", e.ErrNotFound, id)
		}
		ot.ID = id
		all[idx] = ot
		return all, nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order type: %w", err)
	}
	s.emit(events.OrderTypeUpdated, ot.ID, ot)
	return &ot, nil
}

func (s *Service) DeleteOrderType(ctx context.Context, id string) error {
	var deleted models.OrderType
	_, err := s.store.OrderTypes.Update(ctx, func(all []models.OrderType) ([]models.OrderType, error) {
		idx := slices.IndexFunc(all, func(x models.OrderType) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: order type %s", e.ErrNotFound, id)
		}
		deleted = all[idx]
		return slices.Delete(all, idx, idx+1), nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete order type: %w", err)
	}
	s.emit(events.OrderTypeDeleted, id, deleted)
	return nil
}
