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

// ListWasteTypes returns the waste types; soft-deleted ones only when includeInactive is set.
func (s *Service) ListWasteTypes(ctx context.Context, includeInactive bool) ([]models.WasteType, error) {
	all, err := s.store.WasteTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list waste types: %w", err)
	}
	if includeInactive {
		return all, nil
	}
	active := []models.WasteType{}
	for i := range all {
		if all[i].IsActive() {
			active = append(active, all[i])
		}
	}
	return active, nil
}

// GetWasteType returns a waste type by id, inactive ones included.
func (s *Service) GetWasteType(ctx context.Context, id string) (*models.WasteType, error) {
	all, err := s.ListWasteTypes(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: waste type %s", e.ErrNotFound, id)
}

func (s *Service) prepareWasteType(in *models.WasteType) error {
	in.Name = strings.TrimSpace(in.Name)
	in.EWCCode = strings.TrimSpace(in.EWCCode)
	fields := map[string]string{}
	if err := s.validateStruct(in, fields); err != nil {
		return err
	}
	// The flag is never taken from input.
	in.Hazardous = models.IsHazardousEWC(in.EWCCode)
	return e.NewValidationError(fields)
}

func (s *Service) CreateWasteType(ctx context.Context, in *models.WasteType) (*models.WasteType, error) {
	wt := *in
	if err := s.prepareWasteType(&wt); err != nil {
		return nil, err
	}
	wt.ID = s.newID("wt-")
	wt.Inactive = false
	wt.DeletedAt = nil

	_, err := s.store.WasteTypes.Update(ctx, func(all []models.WasteType) ([]models.WasteType, error) {
		return append(all, wt), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create waste type: %w", err)
	}
	s.emit(events.WasteTypeCreated, wt.ID, wt)
	return &wt, nil
}

// UpdateWasteType edits name, code and description. The soft-delete state is kept.
func (s *Service) UpdateWasteType(ctx context.Context, id string, in *models.WasteType) (*models.WasteType, error) {
	wt := *in
	if err := s.prepareWasteType(&wt); err != nil {
		return nil, err
	}
	_, err := s.store.WasteTypes.Update(ctx, func(all []models.WasteType) ([]models.WasteType, error) {
		idx := slices.IndexFunc(all, func(x models.WasteType) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: waste type %s", e.ErrNotFound, id)
		}
		wt.ID = id
		wt.Inactive = all[idx].Inactive
		wt.DeletedAt = all[idx].DeletedAt
		all[idx] = wt
		return all, nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update waste type: %w", err)
	}
	s.emit(events.WasteTypeUpdated, wt.ID, wt)
	return &wt, nil
}

// DeleteWasteType marks the waste type inactive. Agreements and orders that
// already reference it keep resolving; new ones reject it.
func (s *Service) DeleteWasteType(ctx context.Context, id string) error {
	var deleted models.WasteType
	_, err := s.store.WasteTypes.Update(ctx, func(all []models.WasteType) ([]models.WasteType, error) {
		idx := slices.IndexFunc(all, func(x models.WasteType) bool { return x.ID == id })
		if idx < 0 || !all[idx].IsActive() {
			return nil, fmt.Errorf("%w: waste type %s", e.ErrNotFound, id)
		}
		now := s.now()
		all[idx].Inactive = true
		all[idx].DeletedAt = &now
		deleted = all[idx]
		return all, nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete waste type: %w", err)
	}
	s.emit(events.WasteTypeDeleted, id, deleted)
	return nil
}
