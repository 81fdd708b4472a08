package controller

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldLabels maps JSON field names to the labels shown next to form inputs.
var fieldLabels = map[string]string{
	"name":               "Name",
	"entityType":         "Entity Type",
	"street":             "Street",
	"houseNumber":        "House Number",
	"city":               "City",
	"kvkNumber":          "KVK Number",
	"vihbNumber":         "VIHB Number",
	"roles":              "Roles",
	"legalRoles":         "Legal Roles",
	"fleetSource":        "Fleet Source",
	"legalCapabilities":  "Legal Capabilities",
	"facilityType":       "Facility Type",
	"ewcCode":            "EWC Code",
	"wasteTypeSelection": "Waste Type Selection",
	"complianceModule":   "Compliance Module",
	"lmaReportingMethod": "LMA Reporting Method",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// fieldKey drops the root struct name from a validator namespace, so
// "Entity.senderConfig.legalRoles" becomes "senderConfig.legalRoles".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required", "required_if":
		return label + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	case "min":
		return fmt.Sprintf("Select at least %s %s", fe.Param(), strings.ToLower(label))
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// validateStruct runs the struct tags of v and adds every failure to fields.
func (s *Service) validateStruct(v any, fields map[string]string) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate: %w", err)
	}
	for _, fe := range verrs {
		key := fieldKey(fe)
		if _, exists := fields[key]; !exists {
			fields[key] = fieldMessage(fe)
		}
	}
	return nil
}
