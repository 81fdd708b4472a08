// Package controller implements the core business logic (service layer)
// of the waste administration: entity registry, waste type and order type
// catalogs, agreements, order assembly and the resolution entry point. Each
// write goes through one collection update and triggers a domain event.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	"github.com/gartstein/wastedesk/internal/wastedesk/documents"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

type EventProducer interface {
	Produce(eventType events.EventType, resourceID string, payload any)
}

// Service provides methods to manage the administration via collection
// updates and event production.
type Service struct {
	store    *db.Collections
	producer EventProducer
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	letters  *documents.PDFGenerator
	exports  *documents.ExcelGenerator

	now   func() time.Time
	newID func(prefix string) string
}

// NewService constructs a Service over the document collections. m may be nil.
func NewService(store *db.Collections, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		producer: producer,
		metrics:  m,
		validate: newValidator(),
		logger:   logger.Named("wastedesk_service"),
		letters:  documents.NewPDFGenerator(),
		exports:  documents.NewExcelGenerator(),
		now:      func() time.Time { return time.Now().UTC() },
		newID: func(prefix string) string {
			return prefix + uuid.NewString()
		},
	}
}

// SetProducer replaces the event producer. It must be called before the
// service handles requests.
func (s *Service) SetProducer(p EventProducer) {
	s.producer = p
}

func (s *Service) emit(eventType events.EventType, resourceID string, payload any) {
	go func() {
		s.producer.Produce(eventType, resourceID, payload)
	}()
}

// snapshot is a consistent-enough read of the collections used by
// validation and resolution. Each list is read under the collection lock.
type snapshot struct {
	entities   []models.Entity
	wasteTypes []models.WasteType
	agreements []models.Agreement
	orderTypes []models.OrderType
}

func (s *Service) loadSnapshot(ctx context.Context) (*snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	if snap.entities, err = s.store.Entities.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	if snap.agreements, err = s.store.Agreements.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to load agreements: %w", err)
	}
	if snap.wasteTypes, err = s.store.WasteTypes.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to load waste types: %w", err)
	}
	if snap.orderTypes, err = s.store.OrderTypes.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to load order types: %w", err)
	}
	return &snap, nil
}

func (s *snapshot) entity(id string) (*models.Entity, bool) {
	for i := range s.entities {
		if s.entities[i].ID == id {
			return &s.entities[i], true
		}
	}
	return nil, false
}

func (s *snapshot) wasteType(id string) (*models.WasteType, bool) {
	for i := range s.wasteTypes {
		if s.wasteTypes[i].ID == id {
			return &s.wasteTypes[i], true
		}
	}
	return nil, false
}

func (s *snapshot) orderType(id string) (*models.OrderType, bool) {
	for i := range s.orderTypes {
		if s.orderTypes[i].ID == id {
			return &s.orderTypes[i], true
		}
	}
	return nil, false
}

// Summary returns the dashboard counters. Inactive waste types are not counted.
func (s *Service) Summary(ctx context.Context) (*models.Summary, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.Orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	summary := &models.Summary{
		Entities:   len(snap.entities),
		Agreements: len(snap.agreements),
		OrderTypes: len(snap.orderTypes),
		Orders:     len(orders),
	}
	for i := range snap.wasteTypes {
		if snap.wasteTypes[i].IsActive() {
			summary.WasteTypes++
		}
	}
	return summary, nil
}
