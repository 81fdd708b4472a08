// Package handlers provides the gRPC Resolution and Document services and the HTTP JSON API
// of the waste administration, bridging the transport layer and the service
// layer and translating domain errors to status codes.
package handlers

import (
	"context"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
	"github.com/gartstein/wastedesk/internal/wastedesk/resolution"
)

// ResolutionController is the part of the service layer exposed over gRPC.
type ResolutionController interface {
	Resolve(ctx context.Context, req *controller.ResolveRequest) (*resolution.Result, error)
}

// DocumentController renders order documents.
type DocumentController interface {
	TransportLetter(ctx context.Context, orderID string) ([]byte, error)
}

// AdminController defines the business logic interface the HTTP handlers invoke.
type AdminController interface {
	ResolutionController
	DocumentController

	Summary(ctx context.Context) (*models.Summary, error)

	ListEntities(ctx context.Context) ([]models.Entity, error)
	ListEntitiesByRole(ctx context.Context, role models.EntityRole) ([]models.Entity, error)
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	ServicePointsOf(ctx context.Context, entityID string) ([]models.ServicePoint, error)
	CreateEntity(ctx context.Context, in *models.Entity) (*models.Entity, error)
	UpdateEntity(ctx context.Context, id string, in *models.Entity) (*models.Entity, error)
	DeleteEntity(ctx context.Context, id string) error

	ListWasteTypes(ctx context.Context, includeInactive bool) ([]models.WasteType, error)
	GetWasteType(ctx context.Context, id string) (*models.WasteType, error)
	CreateWasteType(ctx context.Context, in *models.WasteType) (*models.WasteType, error)
	UpdateWasteType(ctx context.Context, id string, in *models.WasteType) (*models.WasteType, error)
	DeleteWasteType(ctx context.Context, id string) error

	ListOrderTypes(ctx context.Context) ([]models.OrderType, error)
	GetOrderType(ctx context.Context, id string) (*models.OrderType, error)
	CreateOrderType(ctx context.Context, in *models.OrderType) (*models.OrderType, error)
	UpdateOrderType(ctx context.Context, id string, in *models.OrderType) (*models.OrderType, error)
	DeleteOrderType(ctx context.Context, id string) error

	ListAgreements(ctx context.Context) ([]models.Agreement, error)
	GetAgreement(ctx context.Context, id string) (*models.Agreement, error)
	CreateAgreement(ctx context.Context, in *models.Agreement) (*models.Agreement, error)
	UpdateAgreement(ctx context.Context, update *models.AgreementUpdate) (*models.Agreement, error)
	DeleteAgreement(ctx context.Context, id string) error
	AddWasteStream(ctx context.Context, agreementID string, ws models.WasteStream) (*models.Agreement, error)
	RemoveWasteStream(ctx context.Context, agreementID, wasteTypeID string) (*models.Agreement, error)
	AddDestination(ctx context.Context, agreementID, wasteTypeID string, d models.Destination) (*models.Agreement, error)
	RemoveDestination(ctx context.Context, agreementID, wasteTypeID, destinationID string) (*models.Agreement, error)
	SetDefaultDestination(ctx context.Context, agreementID, wasteTypeID, destinationID string) (*models.Agreement, error)

	CreateOrder(ctx context.Context, req *controller.OrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ExportOrders(ctx context.Context, filter models.OrderFilter) ([]byte, error)

	ListAudit(ctx context.Context, resourceID string, limit int) ([]db.AuditRecord, error)
}

var _ AdminController = (*controller.Service)(nil)
