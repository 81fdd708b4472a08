// Package documents renders orders into printable and exportable files:
// the Begeleidingsbrief (waste transport letter) PDF and the orders workbook.
package documents

import (
	"strings"
	"time"

	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

const (
	dateLayout    = "2006-01-02"
	displayLayout = "02-01-2006"
	emptyValue    = "-"
)

// Lookup resolves the ids stored on orders to display records.
type Lookup struct {
	Entities   map[string]models.Entity
	WasteTypes map[string]models.WasteType
	OrderTypes map[string]models.OrderType
}

// NewLookup indexes the given records by id.
func NewLookup(entities []models.Entity, wasteTypes []models.WasteType, orderTypes []models.OrderType) Lookup {
	l := Lookup{
		Entities:   make(map[string]models.Entity, len(entities)),
		WasteTypes: make(map[string]models.WasteType, len(wasteTypes)),
		OrderTypes: make(map[string]models.OrderType, len(orderTypes)),
	}
	for _, en := range entities {
		l.Entities[en.ID] = en
	}
	for _, wt := range wasteTypes {
		l.WasteTypes[wt.ID] = wt
	}
	for _, ot := range orderTypes {
		l.OrderTypes[ot.ID] = ot
	}
	return l
}

// EntityName falls back to the id for entities deleted since the order was placed.
func (l Lookup) EntityName(id string) string {
	if id == "" {
		return emptyValue
	}
	if en, ok := l.Entities[id]; ok {
		return en.Name
	}
	return id
}

func (l Lookup) WasteTypeLabel(id string) string {
	if wt, ok := l.WasteTypes[id]; ok {
		return wt.Label()
	}
	return safeValue(id)
}

func (l Lookup) OrderTypeName(id string) string {
	if ot, ok := l.OrderTypes[id]; ok {
		return ot.Name
	}
	return safeValue(id)
}

// ServicePointName renders the service point of an order, or "-" when none was selected.
func (l Lookup) ServicePointName(entityID, servicePointID string) string {
	if servicePointID == "" || servicePointID == models.NoServicePoint {
		return emptyValue
	}
	en, ok := l.Entities[entityID]
	if !ok {
		return servicePointID
	}
	sp, ok := en.ServicePoint(servicePointID)
	if !ok {
		return servicePointID
	}
	return sp.Name + ", " + sp.City
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return emptyValue
	}
	return value
}

func formatDate(value string) string {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return safeValue(value)
	}
	return t.Format(displayLayout)
}
