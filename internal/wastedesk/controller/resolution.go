package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

// ResolveRequest is the state of an order being composed. The mode comes
// from the order type when OrderTypeID is set, from Mode otherwise.
type ResolveRequest struct {
	EntityID       string              `json:"entityId"`
	ServicePointID string              `json:"servicePointId"`
	OrderTypeID    string              `json:"orderTypeId"`
	Mode           resolution.Mode     `json:"mode"`
	WasteTypeIDs   []string            `json:"wasteTypeIds"`
	Transfer       resolution.Transfer `json:"transfer"`
}

func outcome(res *resolution.Result) string {
	switch {
	case !res.Mode.RequiresTransfer():
		return metrics.OutcomeExempt
	case res.HasIssue(resolution.IssueNoDefaultCollector):
		return metrics.OutcomeNoCollector
	case res.HasIssue(resolution.IssueNoCommonReceiver):
		return metrics.OutcomeNoCommonReceiver
	case !res.Transfer.Receiver.IsSet():
		return metrics.OutcomeNeedsChoice
	default:
		return metrics.OutcomeResolved
	}
}

// Resolve runs the resolution engine over the current entities and
// agreements. Blocking conditions are reported as issues on the result, not
// as errors; errors are reserved for unknown references and storage failures.
func (s *Service) Resolve(ctx context.Context, req *ResolveRequest) (*resolution.Result, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.entity(req.EntityID); !ok {
		return nil, fmt.Errorf("%w: entity %q", e.ErrNotFound, req.EntityID)
	}

	mode := req.Mode
	if req.OrderTypeID != "" {
		ot, ok := snap.orderType(req.OrderTypeID)
		if !ok {
			return nil, fmt.Errorf("%w: order type %q", e.ErrNotFound, req.OrderTypeID)
		}
		mode = resolution.ModeForOrderType(ot)
	}
	switch mode {
	case resolution.ModeNone, resolution.ModeBasicSystem, resolution.ModeCollectorScheme, resolution.ModeRouteCollection:
	case "":
		mode = resolution.ModeNone
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", e.ErrInvalidInput, mode)
	}

	for _, id := range req.WasteTypeIDs {
		wt, ok := snap.wasteType(id)
		if !ok {
			return nil, fmt.Errorf("%w: waste type %q", e.ErrNotFound, id)
		}
		if !wt.IsActive() {
			return nil, fmt.Errorf("%w: %s", e.ErrInactiveWasteType, wt.Label())
		}
	}

	res := resolution.Resolve(resolution.Snapshot{
		Entities:   snap.entities,
		Agreements: snap.agreements,
	}, resolution.Request{
		EntityID:       req.EntityID,
		ServicePointID: req.ServicePointID,
		WasteTypeIDs:   req.WasteTypeIDs,
		Mode:           mode,
		Transfer:       req.Transfer,
	})

	result := outcome(&res)
	s.metrics.ObserveResolution(string(mode), result)
	s.logger.Debug("Resolved transfer",
		zap.String("entity_id", req.EntityID),
		zap.String("mode", string(mode)),
		zap.String("outcome", result),
		zap.String("agreement_id", res.AgreementID),
		zap.Strings("common_receivers", res.CommonReceivers),
	)
	return &res, nil
}
