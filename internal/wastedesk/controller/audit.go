package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
)

// AuditHandler returns an event handler appending every event to the audit log.
func (s *Service) AuditHandler() events.Handler {
	return func(ctx context.Context, ev events.Event) error {
		record := db.AuditRecord{
			ID:         ev.ID,
			EventType:  string(ev.Type),
			ResourceID: ev.ResourceID,
			OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339Nano),
			Payload:    string(ev.Payload),
		}
		_, err := s.store.AuditLog.Update(ctx, func(all []db.AuditRecord) ([]db.AuditRecord, error) {
			for i := range all {
				if all[i].ID == record.ID {
					// Redelivered by the broker.
					return all, nil
				}
			}
			return append(all, record), nil
		})
		if err != nil {
			return fmt.Errorf("failed to append audit record: %w", err)
		}
		return nil
	}
}

// ListAudit returns the newest audit records first. limit <= 0 returns all.
func (s *Service) ListAudit(ctx context.Context, resourceID string, limit int) ([]db.AuditRecord, error) {
	all, err := s.store.AuditLog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	out := []db.AuditRecord{}
	for i := len(all) - 1; i >= 0; i-- {
		if resourceID != "" && all[i].ResourceID != resourceID {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
