// Package resolution resolves the regulatory parties of a waste transfer from
// the agreements of a disposer: matching agreements, the receivers common to
// every selected waste type, the default receiver, the sender and transporter,
// and the ASN of the chosen destination.
//
// Everything here is a pure function of an in-memory snapshot. Calling the
// engine twice with the same snapshot and request yields the same result.
package resolution

import "github.com/gartstein/wastedesk/internal/wastedesk/models"

// Mode is the reporting-system mode a resolution runs under.
type Mode string

const (
	ModeNone            Mode = "none"
	ModeBasicSystem     Mode = "basic_system"
	ModeCollectorScheme Mode = "collector_scheme"
	ModeRouteCollection Mode = "route_collection"
)

// ModeFor derives the mode from an order type's LMA reporting method.
func ModeFor(method models.LMAReportingMethod) Mode {
	switch method {
	case models.LMABasicSystem:
		return ModeBasicSystem
	case models.LMACollectorsSchema:
		return ModeCollectorScheme
	case models.LMARouteCollection:
		return ModeRouteCollection
	default:
		return ModeNone
	}
}

// ModeForOrderType returns ModeNone for order types outside the nl_lma module.
func ModeForOrderType(ot *models.OrderType) Mode {
	if ot == nil || ot.ComplianceModule != models.ComplianceNLLMA {
		return ModeNone
	}
	return ModeFor(ot.LMAReportingMethod)
}

// RequiresTransfer reports whether orders in this mode carry a waste-transfer
// section (disposer, receiver, sender, transporter).
func (m Mode) RequiresTransfer() bool {
	return m == ModeBasicSystem || m == ModeCollectorScheme
}

// Matches reports whether an agreement registered under rs takes part in
// resolution for this mode.
func (m Mode) Matches(rs models.ReportingSystem) bool {
	switch m {
	case ModeBasicSystem:
		return rs.Canonical() == models.BasicSystem
	case ModeCollectorScheme:
		return rs.Canonical() == models.CollectorScheme
	default:
		return false
	}
}

// ReportingSystem is the agreement reporting system a mode resolves against.
func (m Mode) ReportingSystem() models.ReportingSystem {
	switch m {
	case ModeBasicSystem:
		return models.BasicSystem
	case ModeCollectorScheme:
		return models.CollectorScheme
	case ModeRouteCollection:
		return models.RouteCollection
	default:
		return ""
	}
}
