package models

import "time"

// NoServicePoint is stored when an order is placed without a service point.
const NoServicePoint = "no_service_point"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "Draft"
	OrderSubmitted OrderStatus = "Submitted"
)

// WasteLine is a frozen snapshot of the parties resolved for one waste type.
// It is never recomputed from the agreement after the order is created.
type WasteLine struct {
	ID               string           `json:"id"`
	WasteTypeID      string           `json:"wasteTypeId"`
	DisposerID       string           `json:"disposerId"`
	ReceiverID       string           `json:"receiverId"`
	ASN              string           `json:"asn"`
	ProcessingMethod ProcessingMethod `json:"processingMethod"`
	SenderID         string           `json:"senderId"`
	TransporterID    string           `json:"transporterId"`
}

// Order is a collection order.
type Order struct {
	// ID is a sequential identifier such as ORD-000184.
	ID string `json:"id"`
	// EntityID is the originating entity.
	EntityID string `json:"entityId"`
	// ServicePointID is NoServicePoint when none was selected.
	ServicePointID  string      `json:"servicePointId"`
	OrderTypeID     string      `json:"orderTypeId"`
	FulfillmentDate string      `json:"fulfillmentDate"`
	OrderName       string      `json:"orderName"`
	Status          OrderStatus `json:"status"`
	WasteLines      []WasteLine `json:"wasteLines"`
	// AgreementTransporterEntityID is the transporter named by the agreement.
	AgreementTransporterEntityID string `json:"agreementTransporterEntityId"`
	// UseOutsourcedCarrier is set when the physical transport is subcontracted.
	UseOutsourcedCarrier      bool      `json:"useOutsourcedCarrier"`
	OutsourcedCarrierEntityID string    `json:"outsourcedCarrierEntityId,omitempty"`
	Note                      string    `json:"note,omitempty"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// OrderFilter narrows order listings. Empty fields match everything.
type OrderFilter struct {
	EntityID    string
	OrderTypeID string
	Status      OrderStatus
}

// Match reports whether o passes the filter.
func (f OrderFilter) Match(o *Order) bool {
	if f.EntityID != "" && o.EntityID != f.EntityID {
		return false
	}
	if f.OrderTypeID != "" && o.OrderTypeID != f.OrderTypeID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

// Summary holds the dashboard counters.
type Summary struct {
	Entities   int `json:"entities"`
	WasteTypes int `json:"wasteTypes"`
	Agreements int `json:"agreements"`
	OrderTypes int `json:"orderTypes"`
	Orders     int `json:"orders"`
}
