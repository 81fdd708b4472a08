package errors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// User-facing messages of the blocking resolution and integrity failures.
const (
	MsgReferenced         = "Cannot delete this entity because it is referenced in one or more Waste Stream Agreements."
	MsgNoDefaultCollector = "No Default Internal Collector is configured. Please mark one Transporter entity as Default Internal Collector."
	MsgNoCommonReceiver   = "No receiver is configured for all selected waste types under the current agreement."
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	// ErrReferenced blocks deleting an entity still used by an agreement.
	ErrReferenced = fmt.Errorf("entity is referenced")
	// ErrConfiguration reports reference data that makes resolution impossible.
	ErrConfiguration = fmt.Errorf("configuration error")
	// ErrNoCollector is the Collector Scheme variant of ErrConfiguration.
	ErrNoCollector = fmt.Errorf("%w: no default internal collector", ErrConfiguration)
	// ErrNoCommonReceiver is returned when no receiver serves every selected waste type.
	ErrNoCommonReceiver = fmt.Errorf("no common receiver")

	ErrDuplicateWasteType    = fmt.Errorf("%w: waste type already present in agreement", ErrInvalidInput)
	ErrLastDestination       = fmt.Errorf("%w: a waste stream needs at least one destination", ErrInvalidInput)
	ErrIncompleteDestination = fmt.Errorf("%w: destination requires receiver and processing method", ErrInvalidInput)
	ErrDefaultRequired       = fmt.Errorf("%w: exactly one default destination is required", ErrInvalidInput)
	ErrUnknownDestination    = fmt.Errorf("%w: unknown destination", ErrInvalidInput)
	ErrInactiveWasteType     = fmt.Errorf("%w: waste type is inactive", ErrInvalidInput)
)

// ValidationError carries per-field messages keyed by field name.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns nil when fields is empty.
func NewValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func (v *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(v.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Fields extracts the field messages of a ValidationError wrapped in err.
func Fields(err error) map[string]string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Fields
	}
	return nil
}
