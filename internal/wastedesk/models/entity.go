// Package models defines the core domain models of the waste administration:
// entities and their regulatory roles, waste types, agreements, order types
// and orders. JSON tags match the persisted document shape.
package models

import (
	"slices"
	"time"
)

// EntityRole is a regulatory role an entity can hold. An entity may hold several.
type EntityRole string

const (
	RoleSender      EntityRole = "Sender"
	RoleDisposer    EntityRole = "Disposer"
	RoleTransporter EntityRole = "Transporter"
	RoleReceiver    EntityRole = "Receiver"
)

// EntityType classifies the commercial relation with an entity.
type EntityType string

const (
	Customer       EntityType = "Customer"
	Supplier       EntityType = "Supplier"
	Partner        EntityType = "Partner"
	InternalBranch EntityType = "Internal Branch"
)

// SenderLegalRole is the legal capacity in which a sender acts on a Begeleidingsbrief.
type SenderLegalRole string

const (
	Ontdoener   SenderLegalRole = "Ontdoener"
	Ontvanger   SenderLegalRole = "Ontvanger"
	Handelaar   SenderLegalRole = "Handelaar"
	Bemiddelaar SenderLegalRole = "Bemiddelaar"
)

// FleetSource tells whether a transporter drives its own fleet.
type FleetSource string

const (
	FleetInternal FleetSource = "Internal"
	FleetExternal FleetSource = "External"
)

// LegalCapability is a transporter's registered capability.
type LegalCapability string

const (
	Inzamelaars LegalCapability = "Inzamelaars"
	Vervoerder  LegalCapability = "Vervoerder"
)

// FacilityType describes a receiver's installation.
type FacilityType string

const (
	Processor       FacilityType = "Processor"
	TransferStation FacilityType = "Transfer Station"
	SortingFacility FacilityType = "Sorting Facility"
	Storage         FacilityType = "Storage"
)

// ServicePoint is a pickup location owned by an entity.
type ServicePoint struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
}

// SenderConfig is kept only while the entity holds the Sender role.
type SenderConfig struct {
	LegalRoles []SenderLegalRole `json:"legalRoles" validate:"min=1,dive,oneof=Ontdoener Ontvanger Handelaar Bemiddelaar"`
}

// TransporterConfig is kept only while the entity holds the Transporter role.
type TransporterConfig struct {
	FleetSource            FleetSource       `json:"fleetSource" validate:"required,oneof=Internal External"`
	LegalCapabilities      []LegalCapability `json:"legalCapabilities" validate:"dive,oneof=Inzamelaars Vervoerder"`
	InternationalTransport bool              `json:"internationalTransport"`
	Eurovergunning         string            `json:"eurovergunning,omitempty"`
}

// ReceiverConfig is kept only while the entity holds the Receiver role.
type ReceiverConfig struct {
	LMAReportingObligated bool         `json:"lmaReportingObligated"`
	ProcessorNumber       string       `json:"processorNumber,omitempty"`
	AllowedWasteTypeIDs   []string     `json:"allowedWasteTypeIds"`
	FacilityType          FacilityType `json:"facilityType,omitempty" validate:"omitempty,oneof=Processor 'Transfer Station' 'Sorting Facility' Storage"`
}

// Entity defines the domain model for a company registered in the system.
type Entity struct {
	// ID is the unique identifier of the entity.
	ID string `json:"id"`
	// Name is the company name.
	Name string `json:"name" validate:"required"`
	// EntityType is the commercial classification.
	EntityType EntityType `json:"entityType" validate:"required,oneof=Customer Supplier Partner 'Internal Branch'"`
	// IsDefaultInternalCollector marks the entity used as Disposer under the
	// Collector Scheme. At most one entity holds it at any time.
	IsDefaultInternalCollector bool `json:"isDefaultInternalCollector"`

	Street      string `json:"street" validate:"required"`
	HouseNumber string `json:"houseNumber" validate:"required"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city" validate:"required"`
	Country     string `json:"country"`
	// Phone is stored in E.164 when it parses as a valid number.
	Phone string `json:"phone,omitempty"`

	// KVKNumber is the Chamber of Commerce registration.
	KVKNumber string `json:"kvkNumber" validate:"required"`
	// VIHBNumber is required for transporters, traders and brokers.
	VIHBNumber string `json:"vihbNumber,omitempty"`

	// Roles lists the regulatory roles held by the entity.
	Roles             []EntityRole       `json:"roles" validate:"dive,oneof=Sender Disposer Transporter Receiver"`
	SenderConfig      *SenderConfig      `json:"senderConfig,omitempty"`
	TransporterConfig *TransporterConfig `json:"transporterConfig,omitempty"`
	ReceiverConfig    *ReceiverConfig    `json:"receiverConfig,omitempty"`

	// ServicePoints are the pickup locations scoped to this entity.
	ServicePoints []ServicePoint `json:"servicePoints"`
	// CreatedAt records when the entity was registered.
	CreatedAt time.Time `json:"createdAt"`
}

// HasRole reports whether the entity holds role.
func (e *Entity) HasRole(role EntityRole) bool {
	return slices.Contains(e.Roles, role)
}

// RequiresVIHB reports whether a VIHB number is mandatory: for transporters,
// and for senders acting as Handelaar or Bemiddelaar.
func (e *Entity) RequiresVIHB() bool {
	if e.HasRole(RoleTransporter) {
		return true
	}
	if !e.HasRole(RoleSender) || e.SenderConfig == nil {
		return false
	}
	return slices.Contains(e.SenderConfig.LegalRoles, Handelaar) ||
		slices.Contains(e.SenderConfig.LegalRoles, Bemiddelaar)
}

// Clone returns a deep copy of e, role configs and slices included.
func (e *Entity) Clone() Entity {
	c := *e
	c.Roles = slices.Clone(e.Roles)
	c.ServicePoints = slices.Clone(e.ServicePoints)
	if e.SenderConfig != nil {
		sc := *e.SenderConfig
		sc.LegalRoles = slices.Clone(sc.LegalRoles)
		c.SenderConfig = &sc
	}
	if e.TransporterConfig != nil {
		tc := *e.TransporterConfig
		tc.LegalCapabilities = slices.Clone(tc.LegalCapabilities)
		c.TransporterConfig = &tc
	}
	if e.ReceiverConfig != nil {
		rc := *e.ReceiverConfig
		rc.AllowedWasteTypeIDs = slices.Clone(rc.AllowedWasteTypeIDs)
		c.ReceiverConfig = &rc
	}
	return c
}

// ServicePoint looks up one of the entity's service points.
func (e *Entity) ServicePoint(id string) (ServicePoint, bool) {
	for _, sp := range e.ServicePoints {
		if sp.ID == id {
			return sp, true
		}
	}
	return ServicePoint{}, false
}

// Address renders the street address on one line.
func (e *Entity) Address() string {
	line := e.Street
	if e.HouseNumber != "" {
		line += " " + e.HouseNumber
	}
	if e.PostalCode != "" || e.City != "" {
		line += ", " + e.PostalCode
		if e.City != "" {
			if e.PostalCode != "" {
				line += " "
			}
			line += e.City
		}
	}
	return line
}
