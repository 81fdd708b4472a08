package models

import (
	"strings"
	"time"
)

// WasteType is a waste classification referenced by agreements and orders.
// Deleting a waste type only marks it inactive so historical records keep resolving.
type WasteType struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	EWCCode     string `json:"ewcCode" validate:"required"`
	Hazardous   bool   `json:"hazardous"`
	Description string `json:"description"`
	// Inactive is set by a soft delete.
	Inactive  bool       `json:"inactive,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// IsActive reports whether the waste type may be used in new agreements and orders.
func (w *WasteType) IsActive() bool {
	return !w.Inactive
}

// Label renders "name – ewc code".
func (w *WasteType) Label() string {
	return w.Name + " – " + w.EWCCode
}

// EWCCode is an entry of the European Waste Catalogue.
type EWCCode struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Hazardous bool   `json:"hazardous"`
}

// EWCCatalogue lists the codes offered when defining waste types.
var EWCCatalogue = []EWCCode{
	{Code: "18 01 03*", Name: "Infectious Medical Waste", Hazardous: true},
	{Code: "18 01 09", Name: "Pharmaceutical Waste"},
	{Code: "20 03 01", Name: "Mixed Municipal Waste"},
	{Code: "20 01 08", Name: "Biodegradable Kitchen/Garden Waste"},
	{Code: "15 01 02", Name: "Plastic Packaging"},
	{Code: "15 01 06", Name: "Mixed Packaging"},
	{Code: "20 01 01", Name: "Paper and Cardboard"},
	{Code: "20 03 07", Name: "Bulky Waste"},
	{Code: "17 09 04", Name: "Construction & Demolition Waste"},
	{Code: "17 05 03*", Name: "Contaminated Soil", Hazardous: true},
	{Code: "16 05 06*", Name: "Laboratory Chemicals", Hazardous: true},
	{Code: "16 02 14", Name: "Discarded Electronic Equipment"},
	{Code: "17 06 05*", Name: "Construction Materials Containing Asbestos", Hazardous: true},
	{Code: "13 02 05*", Name: "Mineral-Based Engine Oils", Hazardous: true},
	{Code: "15 01 10*", Name: "Packaging Containing Hazardous Residues", Hazardous: true},
}

// LookupEWC finds a catalogue entry by code.
func LookupEWC(code string) (EWCCode, bool) {
	code = strings.TrimSpace(code)
	for _, c := range EWCCatalogue {
		if c.Code == code {
			return c, true
		}
	}
	return EWCCode{}, false
}

// IsHazardousEWC derives the hazardous flag of a code. Codes missing from the
// catalogue fall back to the EWC convention of a trailing asterisk.
func IsHazardousEWC(code string) bool {
	if c, ok := LookupEWC(code); ok {
		return c.Hazardous
	}
	return strings.HasSuffix(strings.TrimSpace(code), "*")
}
