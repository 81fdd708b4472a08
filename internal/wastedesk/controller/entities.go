package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

// phoneRegion is used to parse numbers written without a country code.
const phoneRegion = "NL"

// ListEntities returns every registered entity in insertion order.
func (s *Service) ListEntities(ctx context.Context) ([]models.Entity, error) {
	entities, err := s.store.Entities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// ListEntitiesByRole returns the entities holding role.
func (s *Service) ListEntitiesByRole(ctx context.Context, role models.EntityRole) ([]models.Entity, error) {
	entities, err := s.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Entity{}
	for i := range entities {
		if entities[i].HasRole(role) {
			out = append(out, entities[i])
		}
	}
	return out, nil
}

func (s *Service) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	entities, err := s.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entities {
		if entities[i].ID == id {
			return &entities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: entity %s", e.ErrNotFound, id)
}

// ServicePointsOf returns the service points of an entity, or an empty list
// when the entity is unknown.
func (s *Service) ServicePointsOf(ctx context.Context, entityID string) ([]models.ServicePoint, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return []models.ServicePoint{}, nil
		}
		return nil, err
	}
	if entity.ServicePoints == nil {
		return []models.ServicePoint{}, nil
	}
	return entity.ServicePoints, nil
}

// normalizeEntity prunes data the entity's roles do not allow: role configs
// for roles not held, the collector flag on non-transporters, an unneeded
// VIHB or eurovergunning, and service points lacking a name or city.
func (s *Service) normalizeEntity(in *models.Entity) {
	if !in.HasRole(models.RoleSender) {
		in.SenderConfig = nil
	}
	if !in.HasRole(models.RoleTransporter) {
		in.TransporterConfig = nil
		in.IsDefaultInternalCollector = false
	}
	if !in.HasRole(models.RoleReceiver) {
		in.ReceiverConfig = nil
	}
	if !in.RequiresVIHB() {
		in.VIHBNumber = ""
	}
	if tc := in.TransporterConfig; tc != nil && !tc.InternationalTransport {
		tc.Eurovergunning = ""
	}
	if rc := in.ReceiverConfig; rc != nil && rc.AllowedWasteTypeIDs == nil {
		rc.AllowedWasteTypeIDs = []string{}
	}

	points := make([]models.ServicePoint, 0, len(in.ServicePoints))
	for _, sp := range in.ServicePoints {
		if sp.Name == "" || sp.City == "" {
			continue
		}
		if sp.ID == "" {
			sp.ID = s.newID("sp-")
		}
		points = append(points, sp)
	}
	in.ServicePoints = points

	roles := make([]models.EntityRole, 0, len(in.Roles))
	for _, r := range in.Roles {
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	in.Roles = roles
}

func (s *Service) validateEntity(in *models.Entity) error {
	fields := map[string]string{}
	if err := s.validateStruct(in, fields); err != nil {
		return err
	}
	if len(in.Roles) == 0 {
		fields["roles"] = "Select at least one role"
	}
	if in.RequiresVIHB() && in.VIHBNumber == "" {
		fields["vihbNumber"] = "VIHB Number is required for transporters, traders and brokers"
	}
	if in.HasRole(models.RoleSender) && (in.SenderConfig == nil || len(in.SenderConfig.LegalRoles) == 0) {
		fields["senderConfig.legalRoles"] = "Select at least one legal role"
	}
	if in.HasRole(models.RoleTransporter) {
		if in.TransporterConfig == nil {
			fields["transporterConfig.fleetSource"] = "Fleet Source is required"
		} else if in.TransporterConfig.InternationalTransport && in.TransporterConfig.Eurovergunning == "" {
			fields["transporterConfig.eurovergunning"] = "Eurovergunning is required for international transport"
		}
	}
	if in.Phone != "" {
		num, err := phonenumbers.Parse(in.Phone, phoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			fields["phone"] = "Phone number is not valid"
		} else {
			in.Phone = phonenumbers.Format(num, phonenumbers.E164)
		}
	}
	return e.NewValidationError(fields)
}

// clearOtherCollectors keeps the default-collector flag on keepID only.
func clearOtherCollectors(entities []models.Entity, keepID string) {
	for i := range entities {
		if entities[i].ID != keepID {
			entities[i].IsDefaultInternalCollector = false
		}
	}
}

// CreateEntity registers a new entity. Setting the default-collector flag
// clears it on every other entity in the same write.
func (s *Service) CreateEntity(ctx context.Context, in *models.Entity) (*models.Entity, error) {
	entity := in.Clone()
	s.normalizeEntity(&entity)
	if err := s.validateEntity(&entity); err != nil {
		return nil, err
	}
	entity.ID = s.newID("ent-")
	entity.CreatedAt = s.now()

	_, err := s.store.Entities.Update(ctx, func(entities []models.Entity) ([]models.Entity, error) {
		if entity.IsDefaultInternalCollector {
			clearOtherCollectors(entities, entity.ID)
		}
		return append(entities, entity), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}
	s.emit(events.EntityCreated, entity.ID, entity)
	return &entity, nil
}

// UpdateEntity replaces the editable fields of an entity. ID and CreatedAt are kept.
func (s *Service) UpdateEntity(ctx context.Context, id string, in *models.Entity) (*models.Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: invalid entity ID", e.ErrInvalidInput)
	}
	entity := in.Clone()
	s.normalizeEntity(&entity)
	if err := s.validateEntity(&entity); err != nil {
		return nil, err
	}

	_, err := s.store.Entities.Update(ctx, func(entities []models.Entity) ([]models.Entity, error) {
		idx := slices.IndexFunc(entities, func(x models.Entity) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: entity %s", e.ErrNotFound, id)
		}
		entity.ID = id
		entity.CreatedAt = entities[idx].CreatedAt
		entities[idx] = entity
		if entity.IsDefaultInternalCollector {
			clearOtherCollectors(entities, id)
		}
		return entities, nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	s.emit(events.EntityUpdated, entity.ID, entity)
	return &entity, nil
}

// DeleteEntity removes an entity unless an agreement references it as
// disposer, sender, transporter or destination receiver.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	agreements, err := s.store.Agreements.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check entity references: %w", err)
	}
	for i := range agreements {
		if agreements[i].References(id) {
			s.logger.Info("Entity delete blocked by agreement",
				zap.String("entity_id", id),
				zap.String("agreement_id", agreements[i].ID),
			)
			return fmt.Errorf("%w: %s", e.ErrReferenced, e.MsgReferenced)
		}
	}

	var deleted models.Entity
	_, err = s.store.Entities.Update(ctx, func(entities []models.Entity) ([]models.Entity, error) {
		idx := slices.IndexFunc(entities, func(x models.Entity) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: entity %s", e.ErrNotFound, id)
		}
		deleted = entities[idx]
		return slices.Delete(entities, idx, idx+1), nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	s.emit(events.EntityDeleted, id, deleted)
	return nil
}
