package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

// agreementPatch is the body of a partial agreement update. Absent fields are left unchanged.
type agreementPatch struct {
	DisposerID      *string                 `json:"disposerId"`
	ServicePointID  *string                 `json:"servicePointId"`
	ReportingSystem *models.ReportingSystem `json:"reportingSystem"`
	ValidFrom       *string                 `json:"validFrom"`
	ValidUntil      *string                 `json:"validUntil"`
	SenderID        *string                 `json:"senderId"`
	TransporterID   *string                 `json:"transporterId"`
	Status          *models.AgreementStatus `json:"status"`
	WasteStreams    *[]models.WasteStream   `json:"wasteStreams"`
}

func (p *agreementPatch) toUpdate(id string) *models.AgreementUpdate {
	return &models.AgreementUpdate{
		ID:              id,
		DisposerID:      p.DisposerID,
		ServicePointID:  p.ServicePointID,
		ReportingSystem: p.ReportingSystem,
		ValidFrom:       p.ValidFrom,
		ValidUntil:      p.ValidUntil,
		SenderID:        p.SenderID,
		TransporterID:   p.TransporterID,
		Status:          p.Status,
		WasteStreams:    p.WasteStreams,
	}
}

// orderFilterFromQuery reads entity_id, order_type_id and status.
func orderFilterFromQuery(q url.Values) models.OrderFilter {
	return models.OrderFilter{
		EntityID:    q.Get("entity_id"),
		OrderTypeID: q.Get("order_type_id"),
		Status:      models.OrderStatus(q.Get("status")),
	}
}

func boolParam(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", e.ErrInvalidInput, key)
	}
	return v, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", e.ErrInvalidInput, key)
	}
	return v, nil
}

// structToResolveRequest decodes a ResolutionService request. The struct
// carries the same JSON shape as the HTTP resolve body.
func structToResolveRequest(in *structpb.Struct) (*controller.ResolveRequest, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: resolve request required", e.ErrInvalidInput)
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	var req controller.ResolveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return &req, nil
}

func resultToStruct(res *resolution.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return structpb.NewStruct(m)
}
