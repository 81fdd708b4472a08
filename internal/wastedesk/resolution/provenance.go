package resolution

// Source records who set a field value.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

// Field is a transfer value tagged with its provenance.
type Field struct {
	Value  string `json:"value"`
	Source Source `json:"source,omitempty"`
}

// Auto returns an engine-filled field.
func Auto(v string) Field {
	if v == "" {
		return Field{}
	}
	return Field{Value: v, Source: SourceAuto}
}

// Manual returns a user-set field.
func Manual(v string) Field {
	if v == "" {
		return Field{}
	}
	return Field{Value: v, Source: SourceManual}
}

// IsSet reports whether the field holds a value.
func (f Field) IsSet() bool {
	return f.Value != ""
}

// IsManual reports whether a user set the value.
func (f Field) IsManual() bool {
	return f.Source == SourceManual && f.Value != ""
}

// Fill proposes v. Manual values are kept; empty and auto values are replaced.
func (f Field) Fill(v string) Field {
	if f.IsManual() {
		return f
	}
	return Auto(v)
}

// Transfer holds the waste-transfer section of an order being composed.
type Transfer struct {
	Disposer         Field `json:"disposer"`
	Receiver         Field `json:"receiver"`
	Sender           Field `json:"sender"`
	Transporter      Field `json:"transporter"`
	ASN              Field `json:"asn"`
	ProcessingMethod Field `json:"processingMethod"`
}
