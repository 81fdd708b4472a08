// Package authoring enforces the waste-stream invariants of an agreement while
// it is being edited: one stream per waste type, at least one complete
// destination per stream, and a default destination that always belongs to
// its stream.
package authoring

import (
	"fmt"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
	"github.com/google/uuid"
)

// NewDestinationID returns a fresh destination id.
func NewDestinationID() string {
	return "dest-" + uuid.NewString()
}

func cloneStreams(streams []models.WasteStream) []models.WasteStream {
	out := make([]models.WasteStream, len(streams))
	for i, ws := range streams {
		out[i] = ws
		out[i].Destinations = append([]models.Destination(nil), ws.Destinations...)
	}
	return out
}

func indexOf(streams []models.WasteStream, wasteTypeID string) int {
	for i, ws := range streams {
		if ws.WasteTypeID == wasteTypeID {
			return i
		}
	}
	return -1
}

func checkDestination(d models.Destination) error {
	if d.ReceiverID == "" || !d.ProcessingMethod.IsValid() {
		return fmt.Errorf("%w (destination %q)", e.ErrIncompleteDestination, d.ID)
	}
	return nil
}

// NormalizeStream validates one stream and fills what can be derived: missing
// destination ids, and the default of a single-destination stream.
func NormalizeStream(ws models.WasteStream) (models.WasteStream, error) {
	if ws.WasteTypeID == "" {
		return ws, fmt.Errorf("%w: waste type is required", e.ErrInvalidInput)
	}
	if len(ws.Destinations) == 0 {
		return ws, e.ErrLastDestination
	}
	ws.Destinations = append([]models.Destination(nil), ws.Destinations...)
	seen := make(map[string]bool, len(ws.Destinations))
	for i := range ws.Destinations {
		if ws.Destinations[i].ID == "" {
			ws.Destinations[i].ID = NewDestinationID()
		}
		if seen[ws.Destinations[i].ID] {
			return ws, fmt.Errorf("%w: duplicate destination id %q", e.ErrInvalidInput, ws.Destinations[i].ID)
		}
		seen[ws.Destinations[i].ID] = true
		if err := checkDestination(ws.Destinations[i]); err != nil {
			return ws, err
		}
	}
	if len(ws.Destinations) == 1 {
		ws.DefaultDestinationID = ws.Destinations[0].ID
		return ws, nil
	}
	if _, ok := ws.DefaultDestination(); !ok {
		return ws, e.ErrDefaultRequired
	}
	return ws, nil
}

// ValidateStreams checks the stream list of an agreement and returns a normalised copy.
func ValidateStreams(streams []models.WasteStream) ([]models.WasteStream, error) {
	out := make([]models.WasteStream, 0, len(streams))
	for _, ws := range streams {
		if indexOf(out, ws.WasteTypeID) >= 0 {
			return nil, fmt.Errorf("%w (%s)", e.ErrDuplicateWasteType, ws.WasteTypeID)
		}
		normalized, err := NormalizeStream(ws)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

// AddStream appends ws unless its waste type is already present.
func AddStream(streams []models.WasteStream, ws models.WasteStream) ([]models.WasteStream, error) {
	if indexOf(streams, ws.WasteTypeID) >= 0 {
		return nil, fmt.Errorf("%w (%s)", e.ErrDuplicateWasteType, ws.WasteTypeID)
	}
	normalized, err := NormalizeStream(ws)
	if err != nil {
		return nil, err
	}
	return append(cloneStreams(streams), normalized), nil
}

// RemoveStream drops the stream of wasteTypeID with all its destinations.
func RemoveStream(streams []models.WasteStream, wasteTypeID string) ([]models.WasteStream, error) {
	i := indexOf(streams, wasteTypeID)
	if i < 0 {
		return nil, fmt.Errorf("%w: waste stream %s", e.ErrNotFound, wasteTypeID)
	}
	out := cloneStreams(streams)
	return append(out[:i], out[i+1:]...), nil
}

// AddDestination appends a complete destination to an existing stream.
func AddDestination(streams []models.WasteStream, wasteTypeID string, d models.Destination) ([]models.WasteStream, error) {
	i := indexOf(streams, wasteTypeID)
	if i < 0 {
		return nil, fmt.Errorf("%w: waste stream %s", e.ErrNotFound, wasteTypeID)
	}
	if d.ID == "" {
		d.ID = NewDestinationID()
	}
	if err := checkDestination(d); err != nil {
		return nil, err
	}
	out := cloneStreams(streams)
	if _, exists := out[i].Destination(d.ID); exists {
		return nil, fmt.Errorf("%w: duplicate destination id %q", e.ErrInvalidInput, d.ID)
	}
	out[i].Destinations = append(out[i].Destinations, d)
	if _, ok := out[i].DefaultDestination(); !ok {
		out[i].DefaultDestinationID = out[i].Destinations[0].ID
	}
	return out, nil
}

// RemoveDestination removes one destination. The last destination of a stream
// cannot be removed; removing the default promotes the first remaining one.
func RemoveDestination(streams []models.WasteStream, wasteTypeID, destinationID string) ([]models.WasteStream, error) {
	i := indexOf(streams, wasteTypeID)
	if i < 0 {
		return nil, fmt.Errorf("%w: waste stream %s", e.ErrNotFound, wasteTypeID)
	}
	if _, ok := streams[i].Destination(destinationID); !ok {
		return nil, fmt.Errorf("%w %q", e.ErrUnknownDestination, destinationID)
	}
	if len(streams[i].Destinations) == 1 {
		return nil, e.ErrLastDestination
	}

	out := cloneStreams(streams)
	ws := &out[i]
	kept := ws.Destinations[:0]
	for _, d := range ws.Destinations {
		if d.ID != destinationID {
			kept = append(kept, d)
		}
	}
	ws.Destinations = kept
	if ws.DefaultDestinationID == destinationID {
		ws.DefaultDestinationID = ws.Destinations[0].ID
	}
	return out, nil
}

// SetDefaultDestination marks destinationID as the stream's default.
func SetDefaultDestination(streams []models.WasteStream, wasteTypeID, destinationID string) ([]models.WasteStream, error) {
	i := indexOf(streams, wasteTypeID)
	if i < 0 {
		return nil, fmt.Errorf("%w: waste stream %s", e.ErrNotFound, wasteTypeID)
	}
	if _, ok := streams[i].Destination(destinationID); !ok {
		return nil, fmt.Errorf("%w %q", e.ErrUnknownDestination, destinationID)
	}
	out := cloneStreams(streams)
	out[i].DefaultDestinationID = destinationID
	return out, nil
}
