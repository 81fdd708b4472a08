package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gartstein/wastedesk/internal/wastedesk/authoring"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

const dateLayout = "2006-01-02"

func validReportingSystem(rs models.ReportingSystem) bool {
	switch rs {
	case models.BasicSystem, models.CollectorScheme, models.RouteCollection, models.RouteInzameling:
		return true
	}
	return false
}

// checkParty validates a party reference: required, known and holding role.
func checkParty(snap *snapshot, fields map[string]string, key, label, id string, role models.EntityRole) *models.Entity {
	if id == "" {
		fields[key] = label + " is required"
		return nil
	}
	ent, ok := snap.entity(id)
	if !ok {
		fields[key] = fmt.Sprintf("%s %s does not exist", label, id)
		return nil
	}
	if !ent.HasRole(role) {
		fields[key] = fmt.Sprintf("%s must hold the %s role", ent.Name, role)
		return nil
	}
	return ent
}

// validateAgreement checks the header and streams of a. previous is the
// stored version on updates; its waste types stay usable even when they were
// deactivated since. The returned streams are normalised.
func validateAgreement(snap *snapshot, a *models.Agreement, previous *models.Agreement) ([]models.WasteStream, error) {
	fields := map[string]string{}

	disposer := checkParty(snap, fields, "disposerId", "Disposer", a.DisposerID, models.RoleDisposer)
	if disposer != nil && a.ServicePointID != "" && a.ServicePointID != models.NoServicePoint {
		if _, ok := disposer.ServicePoint(a.ServicePointID); !ok {
			fields["servicePointId"] = "Service point does not belong to the disposer"
		}
	}
	checkParty(snap, fields, "senderId", "Sender", a.SenderID, models.RoleSender)
	checkParty(snap, fields, "transporterId", "Transporter", a.TransporterID, models.RoleTransporter)

	switch {
	case a.ReportingSystem == "":
		fields["reportingSystem"] = "Reporting System is required"
	case !validReportingSystem(a.ReportingSystem):
		fields["reportingSystem"] = fmt.Sprintf("Unknown reporting system %q", a.ReportingSystem)
	}

	from, err := time.Parse(dateLayout, a.ValidFrom)
	switch {
	case a.ValidFrom == "":
		fields["validFrom"] = "Valid From is required"
	case err != nil:
		fields["validFrom"] = "Valid From must be a date (YYYY-MM-DD)"
	}
	if a.ValidUntil != "" {
		until, uerr := time.Parse(dateLayout, a.ValidUntil)
		if uerr != nil {
			fields["validUntil"] = "Valid Until must be a date (YYYY-MM-DD)"
		} else if err == nil && until.Before(from) {
			fields["validUntil"] = "Valid Until must not be before Valid From"
		}
	}

	if a.Status != models.AgreementActive && a.Status != models.AgreementInactive {
		fields["status"] = "Status must be Active or Inactive"
	}

	if len(a.WasteStreams) == 0 {
		fields["wasteStreams"] = "Please add at least one waste stream"
		return nil, e.NewValidationError(fields)
	}
	streams, err := authoring.ValidateStreams(a.WasteStreams)
	if err != nil {
		fields["wasteStreams"] = err.Error()
		return nil, e.NewValidationError(fields)
	}
	for i, ws := range streams {
		key := fmt.Sprintf("wasteStreams[%d]", i)
		wt, ok := snap.wasteType(ws.WasteTypeID)
		switch {
		case !ok:
			fields[key+".wasteTypeId"] = fmt.Sprintf("Waste type %s does not exist", ws.WasteTypeID)
		case !wt.IsActive() && (previous == nil || !previous.ReferencesWasteType(wt.ID)):
			fields[key+".wasteTypeId"] = fmt.Sprintf("Waste type %s is inactive", wt.Label())
		}
		for j, d := range ws.Destinations {
			checkParty(snap, fields, fmt.Sprintf("%s.destinations[%d].receiverId", key, j), "Receiver", d.ReceiverID, models.RoleReceiver)
		}
	}
	if err := e.NewValidationError(fields); err != nil {
		return nil, err
	}
	return streams, nil
}

func (s *Service) ListAgreements(ctx context.Context) ([]models.Agreement, error) {
	all, err := s.store.Agreements.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	return all, nil
}

func (s *Service) GetAgreement(ctx context.Context, id string) (*models.Agreement, error) {
	all, err := s.ListAgreements(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: agreement %s", e.ErrNotFound, id)
}

// CreateAgreement stores a new agreement. New agreements are always Active.
func (s *Service) CreateAgreement(ctx context.Context, in *models.Agreement) (*models.Agreement, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	agreement := *in
	agreement.Status = models.AgreementActive
	streams, err := validateAgreement(snap, &agreement, nil)
	if err != nil {
		return nil, err
	}
	agreement.WasteStreams = streams
	agreement.ID = s.newID("agr-")
	agreement.CreatedAt = s.now()

	_, err = s.store.Agreements.Update(ctx, func(all []models.Agreement) ([]models.Agreement, error) {
		return append(all, agreement), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agreement: %w", err)
	}
	s.emit(events.AgreementCreated, agreement.ID, agreement)
	return &agreement, nil
}

// UpdateAgreement applies a partial update and revalidates the whole agreement.
func (s *Service) UpdateAgreement(ctx context.Context, update *models.AgreementUpdate) (*models.Agreement, error) {
	if update.ID == "" {
		return nil, fmt.Errorf("%w: invalid agreement ID", e.ErrInvalidInput)
	}
	return s.mutateAgreement(ctx, update.ID, func(a *models.Agreement) error {
		update.Apply(a)
		return nil
	})
}

// mutateAgreement runs fn on a copy of the stored agreement, validates the
// result and writes it back in one collection update.
func (s *Service) mutateAgreement(ctx context.Context, id string, fn func(a *models.Agreement) error) (*models.Agreement, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var updated models.Agreement
	_, err = s.store.Agreements.Update(ctx, func(all []models.Agreement) ([]models.Agreement, error) {
		idx := slices.IndexFunc(all, func(x models.Agreement) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: agreement %s", e.ErrNotFound, id)
		}
		previous := all[idx]
		updated = previous
		updated.WasteStreams = slices.Clone(previous.WasteStreams)
		if err := fn(&updated); err != nil {
			return nil, err
		}
		streams, err := validateAgreement(snap, &updated, &previous)
		if err != nil {
			return nil, err
		}
		updated.WasteStreams = streams
		updated.ID = previous.ID
		updated.CreatedAt = previous.CreatedAt
		all[idx] = updated
		return all, nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update agreement: %w", err)
	}
	s.emit(events.AgreementUpdated, updated.ID, updated)
	return &updated, nil
}

func (s *Service) DeleteAgreement(ctx context.Context, id string) error {
	var deleted models.Agreement
	_, err := s.store.Agreements.Update(ctx, func(all []models.Agreement) ([]models.Agreement, error) {
		idx := slices.IndexFunc(all, func(x models.Agreement) bool { return x.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: agreement %s", e.ErrNotFound, id)
		}
		deleted = all[idx]
		return slices.Delete(all, idx, idx+1), nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete agreement: %w", err)
	}
	s.emit(events.AgreementDeleted, id, deleted)
	return nil
}

// AddWasteStream appends a stream to a stored agreement.
func (s *Service) AddWasteStream(ctx context.Context, agreementID string, ws models.WasteStream) (*models.Agreement, error) {
	return s.mutateAgreement(ctx, agreementID, func(a *models.Agreement) error {
		streams, err := authoring.AddStream(a.WasteStreams, ws)
		if err != nil {
			return err
		}
		a.WasteStreams = streams
		return nil
	})
}

// RemoveWasteStream drops a stream. The last stream of an agreement cannot be removed.
func (s *Service) RemoveWasteStream(ctx context.Context, agreementID, wasteTypeID string) (*models.Agreement, error) {
	return s.mutateAgreement(ctx, agreementID, func(a *models.Agreement) error {
		streams, err := authoring.RemoveStream(a.WasteStreams, wasteTypeID)
		if err != nil {
			return err
		}
		a.WasteStreams = streams
		return nil
	})
}

func (s *Service) AddDestination(ctx context.Context, agreementID, wasteTypeID string, d models.Destination) (*models.Agreement, error) {
	return s.mutateAgreement(ctx, agreementID, func(a *models.Agreement) error {
		streams, err := authoring.AddDestination(a.WasteStreams, wasteTypeID, d)
		if err != nil {
			return err
		}
		a.WasteStreams = streams
		return nil
	})
}

func (s *Service) RemoveDestination(ctx context.Context, agreementID, wasteTypeID, destinationID string) (*models.Agreement, error) {
	return s.mutateAgreement(ctx, agreementID, func(a *models.Agreement) error {
		streams, err := authoring.RemoveDestination(a.WasteStreams, wasteTypeID, destinationID)
		if err != nil {
			return err
		}
		a.WasteStreams = streams
		return nil
	})
}

func (s *Service) SetDefaultDestination(ctx context.Context, agreementID, wasteTypeID, destinationID string) (*models.Agreement, error) {
	return s.mutateAgreement(ctx, agreementID, func(a *models.Agreement) error {
		streams, err := authoring.SetDefaultDestination(a.WasteStreams, wasteTypeID, destinationID)
		if err != nil {
			return err
		}
		a.WasteStreams = streams
		return nil
	})
}
