package models

import "time"

// ReportingSystem is the LMA reporting methodology an agreement is registered under.
type ReportingSystem string

const (
	BasicSystem     ReportingSystem = "Basic System"
	CollectorScheme ReportingSystem = "Collector Scheme"
	RouteCollection ReportingSystem = "Route Collection"
	// RouteInzameling is the legacy Dutch spelling of RouteCollection.
	RouteInzameling ReportingSystem = "Route Inzameling"
)

// Canonical folds legacy spellings onto their current value.
func (r ReportingSystem) Canonical() ReportingSystem {
	if r == RouteInzameling {
		return RouteCollection
	}
	return r
}

// AgreementStatus tells whether an agreement takes part in resolution.
type AgreementStatus string

const (
	AgreementActive   AgreementStatus = "Active"
	AgreementInactive AgreementStatus = "Inactive"
)

// ProcessingMethod is how a receiver treats a waste stream.
type ProcessingMethod string

const (
	MaterialRecovery  ProcessingMethod = "Material Recovery"
	EnergyRecovery    ProcessingMethod = "Energy Recovery"
	Composting        ProcessingMethod = "Composting"
	SecureDisposal    ProcessingMethod = "Secure Disposal"
	ChemicalTreatment ProcessingMethod = "Chemical Treatment"
)

// ProcessingMethods is the fixed vocabulary of processing methods.
var ProcessingMethods = []ProcessingMethod{
	MaterialRecovery,
	EnergyRecovery,
	Composting,
	SecureDisposal,
	ChemicalTreatment,
}

// IsValid reports whether m belongs to the vocabulary.
func (m ProcessingMethod) IsValid() bool {
	for _, known := range ProcessingMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Destination is one receiver a waste stream may be delivered to.
type Destination struct {
	ID               string           `json:"id"`
	ReceiverID       string           `json:"receiverId"`
	ASN              string           `json:"asn"`
	ProcessingMethod ProcessingMethod `json:"processingMethod"`
}

// WasteStream binds a waste type to its receiver destinations within an agreement.
type WasteStream struct {
	WasteTypeID          string        `json:"wasteTypeId"`
	Destinations         []Destination `json:"destinations"`
	DefaultDestinationID string        `json:"defaultDestinationId"`
}

// Destination looks up a destination of the stream by id.
func (s *WasteStream) Destination(id string) (Destination, bool) {
	for _, d := range s.Destinations {
		if d.ID == id {
			return d, true
		}
	}
	return Destination{}, false
}

// DefaultDestination returns the destination marked default, if it is part of the stream.
func (s *WasteStream) DefaultDestination() (Destination, bool) {
	return s.Destination(s.DefaultDestinationID)
}

// Agreement is a commercial waste-flow agreement for one disposer.
type Agreement struct {
	ID              string          `json:"id"`
	DisposerID      string          `json:"disposerId"`
	ServicePointID  string          `json:"servicePointId"`
	ReportingSystem ReportingSystem `json:"reportingSystem"`
	// ValidFrom and ValidUntil are calendar dates; an empty ValidUntil is open-ended.
	ValidFrom     string          `json:"validFrom"`
	ValidUntil    string          `json:"validUntil"`
	SenderID      string          `json:"senderId"`
	TransporterID string          `json:"transporterId"`
	Status        AgreementStatus `json:"status"`
	WasteStreams  []WasteStream   `json:"wasteStreams"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Stream returns the waste stream for wasteTypeID.
func (a *Agreement) Stream(wasteTypeID string) (WasteStream, bool) {
	for _, ws := range a.WasteStreams {
		if ws.WasteTypeID == wasteTypeID {
			return ws, true
		}
	}
	return WasteStream{}, false
}

// References reports whether entityID appears as disposer, sender,
// transporter or destination receiver of the agreement.
func (a *Agreement) References(entityID string) bool {
	if a.DisposerID == entityID || a.SenderID == entityID || a.TransporterID == entityID {
		return true
	}
	for _, ws := range a.WasteStreams {
		for _, d := range ws.Destinations {
			if d.ReceiverID == entityID {
				return true
			}
		}
	}
	return false
}

// ReferencesWasteType reports whether the agreement carries a stream for wasteTypeID.
func (a *Agreement) ReferencesWasteType(wasteTypeID string) bool {
	_, ok := a.Stream(wasteTypeID)
	return ok
}

// AgreementUpdate represents the fields that can be updated on an Agreement.
// Pointer types are used to allow partial updates.
type AgreementUpdate struct {
	ID              string
	DisposerID      *string
	ServicePointID  *string
	ReportingSystem *ReportingSystem
	ValidFrom       *string
	ValidUntil      *string
	SenderID        *string
	TransporterID   *string
	Status          *AgreementStatus
	WasteStreams    *[]WasteStream
}

// Apply merges the set fields of u into a.
func (u *AgreementUpdate) Apply(a *Agreement) {
	if u.DisposerID != nil {
		a.DisposerID = *u.DisposerID
	}
	if u.ServicePointID != nil {
		a.ServicePointID = *u.ServicePointID
	}
	if u.ReportingSystem != nil {
		a.ReportingSystem = *u.ReportingSystem
	}
	if u.ValidFrom != nil {
		a.ValidFrom = *u.ValidFrom
	}
	if u.ValidUntil != nil {
		a.ValidUntil = *u.ValidUntil
	}
	if u.SenderID != nil {
		a.SenderID = *u.SenderID
	}
	if u.TransporterID != nil {
		a.TransporterID = *u.TransporterID
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.WasteStreams != nil {
		a.WasteStreams = *u.WasteStreams
	}
}
