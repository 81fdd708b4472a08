package models

// WasteTypeSelection governs how many waste types an order of a type carries.
type WasteTypeSelection string

const (
	SelectNone     WasteTypeSelection = "none"
	SelectSingle   WasteTypeSelection = "single"
	SelectMultiple WasteTypeSelection = "multiple"
)

// ComplianceModule selects the regulatory regime applied to orders of a type.
type ComplianceModule string

const (
	ComplianceNone   ComplianceModule = "none"
	ComplianceNLLMA  ComplianceModule = "nl_lma"
	ComplianceGlobal ComplianceModule = "global"
)

// LMAReportingMethod is the reporting method of an nl_lma order type.
type LMAReportingMethod string

const (
	LMABasicSystem      LMAReportingMethod = "basic_system"
	LMACollectorsSchema LMAReportingMethod = "collectors_schema"
	LMARouteCollection  LMAReportingMethod = "route_collection"
)

// DisplayName returns the label shown to back-office staff.
func (m LMAReportingMethod) DisplayName() string {
	switch m {
	case LMABasicSystem:
		return "Basic System (Basissystematiek)"
	case LMACollectorsSchema:
		return "Collectors Schema (Inzamelaarsregeling)"
	case LMARouteCollection:
		return "Route Collection (Route-inzameling)"
	case "":
		return "-"
	default:
		return string(m)
	}
}

// OrderType is an order template.
type OrderType struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name" validate:"required"`
	Description        string             `json:"description,omitempty"`
	WasteTypeSelection WasteTypeSelection `json:"wasteTypeSelection" validate:"required,oneof=none single multiple"`
	ComplianceModule   ComplianceModule   `json:"complianceModule" validate:"required,oneof=none nl_lma global"`
	// LMAReportingMethod is set iff ComplianceModule is nl_lma.
	LMAReportingMethod LMAReportingMethod `json:"lmaReportingMethod,omitempty" validate:"omitempty,oneof=basic_system collectors_schema route_collection"`
}

// RequiresWasteType reports whether orders of this type must select waste types.
func (t *OrderType) RequiresWasteType() bool {
	return t.WasteTypeSelection == SelectSingle || t.WasteTypeSelection == SelectMultiple
}
