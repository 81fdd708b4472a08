package resolution

import (
	"fmt"
	"slices"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

// Selection identifies what is being resolved: a disposer, its optional
// service point and the selected waste types under one mode.
type Selection struct {
	DisposerID     string
	ServicePointID string
	WasteTypeIDs   []string
	Mode           Mode
}

// WasteTypeReceivers is the receiver set of one waste type across the matched agreements.
type WasteTypeReceivers struct {
	WasteTypeID     string   `json:"wasteTypeId"`
	Receivers       []string `json:"receivers"`
	DefaultReceiver string   `json:"defaultReceiver,omitempty"`
}

// Aggregate is the outcome of intersecting the receiver sets of a selection.
type Aggregate struct {
	PerWasteType    []WasteTypeReceivers
	CommonReceivers []string
	// DefaultReceiver is set only when every waste type recorded the same default.
	DefaultReceiver string
	// Agreement is the first matched agreement carrying a stream for a selected
	// waste type. It supplies the sender and transporter.
	Agreement *models.Agreement
}

func servicePointMatches(mode Mode, selected, agreementServicePoint string) bool {
	if mode == ModeCollectorScheme {
		return true
	}
	return selected == "" || selected == models.NoServicePoint || selected == agreementServicePoint
}

// MatchAgreements returns, in store order, the active agreements of the
// selection's disposer registered under the selection's mode.
func MatchAgreements(agreements []models.Agreement, sel Selection) []models.Agreement {
	if sel.DisposerID == "" {
		return nil
	}
	var matched []models.Agreement
	for _, a := range agreements {
		if a.DisposerID != sel.DisposerID || a.Status != models.AgreementActive {
			continue
		}
		if !sel.Mode.Matches(a.ReportingSystem) {
			continue
		}
		if !servicePointMatches(sel.Mode, sel.ServicePointID, a.ServicePointID) {
			continue
		}
		matched = append(matched, a)
	}
	return matched
}

// receiversFor collects the receivers of wasteTypeID in insertion order, the
// default of the first stream that has one, and the first agreement with a stream.
func receiversFor(matched []models.Agreement, wasteTypeID string) (WasteTypeReceivers, *models.Agreement) {
	out := WasteTypeReceivers{WasteTypeID: wasteTypeID, Receivers: []string{}}
	var first *models.Agreement
	seen := make(map[string]bool)
	for i := range matched {
		for _, ws := range matched[i].WasteStreams {
			if ws.WasteTypeID != wasteTypeID {
				continue
			}
			if first == nil {
				first = &matched[i]
			}
			for _, d := range ws.Destinations {
				if !seen[d.ReceiverID] {
					seen[d.ReceiverID] = true
					out.Receivers = append(out.Receivers, d.ReceiverID)
				}
			}
			if out.DefaultReceiver == "" {
				if d, ok := ws.DefaultDestination(); ok {
					out.DefaultReceiver = d.ReceiverID
				}
			}
		}
	}
	return out, first
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// CommonReceivers computes the per-waste-type receiver sets, their
// intersection folded left from the first waste type, and the shared default.
func CommonReceivers(agreements []models.Agreement, sel Selection) Aggregate {
	agg := Aggregate{CommonReceivers: []string{}}
	wasteTypes := uniqueIDs(sel.WasteTypeIDs)
	if sel.DisposerID == "" || len(wasteTypes) == 0 {
		return agg
	}

	matched := MatchAgreements(agreements, sel)
	for _, wt := range wasteTypes {
		set, first := receiversFor(matched, wt)
		if agg.Agreement == nil && first != nil {
			agg.Agreement = first
		}
		agg.PerWasteType = append(agg.PerWasteType, set)
	}

	agg.CommonReceivers = append(agg.CommonReceivers, agg.PerWasteType[0].Receivers...)
	for _, set := range agg.PerWasteType[1:] {
		agg.CommonReceivers = slices.DeleteFunc(agg.CommonReceivers, func(r string) bool {
			return !slices.Contains(set.Receivers, r)
		})
	}

	def := agg.PerWasteType[0].DefaultReceiver
	for _, set := range agg.PerWasteType {
		if set.DefaultReceiver == "" || set.DefaultReceiver != def {
			def = ""
			break
		}
	}
	agg.DefaultReceiver = def
	return agg
}

// LookupDestination finds the destination delivering wasteTypeID to
// receiverID within the agreements matching sel.
func LookupDestination(agreements []models.Agreement, sel Selection, wasteTypeID, receiverID string) (models.Destination, *models.Agreement, bool) {
	if wasteTypeID == "" || receiverID == "" {
		return models.Destination{}, nil, false
	}
	matched := MatchAgreements(agreements, sel)
	for i := range matched {
		ws, ok := matched[i].Stream(wasteTypeID)
		if !ok {
			continue
		}
		for _, d := range ws.Destinations {
			if d.ReceiverID == receiverID {
				return d, &matched[i], true
			}
		}
	}
	return models.Destination{}, nil, false
}

// DefaultInternalCollector returns the flagged transporter acting as disposer
// under the Collector Scheme.
func DefaultInternalCollector(entities []models.Entity) (*models.Entity, bool) {
	for i := range entities {
		if entities[i].IsDefaultInternalCollector && entities[i].HasRole(models.RoleTransporter) {
			return &entities[i], true
		}
	}
	return nil, false
}

// Snapshot is the reference data a resolution reads.
type Snapshot struct {
	Entities   []models.Entity
	Agreements []models.Agreement
}

// Request describes the order being composed.
type Request struct {
	// EntityID is the originating entity of the order.
	EntityID       string
	ServicePointID string
	WasteTypeIDs   []string
	Mode           Mode
	// Transfer carries the current field values and their provenance.
	Transfer Transfer
}

// Issue codes.
const (
	IssueNoDefaultCollector = "no_default_collector"
	IssueNoCommonReceiver   = "no_common_receiver"
	IssueReceiverNotCommon  = "receiver_not_common"
)

// Issue is a user-facing problem found while resolving. Issues block order submission.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Line is the destination resolved for one waste type and the chosen receiver.
type Line struct {
	WasteTypeID      string                  `json:"wasteTypeId"`
	ReceiverID       string                  `json:"receiverId"`
	ASN              string                  `json:"asn"`
	ProcessingMethod models.ProcessingMethod `json:"processingMethod"`
	AgreementID      string                  `json:"agreementId,omitempty"`
}

// Result is the outcome of a resolution.
type Result struct {
	Mode            Mode                 `json:"mode"`
	DisposerID      string               `json:"disposerId"`
	AgreementID     string               `json:"agreementId,omitempty"`
	PerWasteType    []WasteTypeReceivers `json:"perWasteType"`
	CommonReceivers []string             `json:"commonReceivers"`
	DefaultReceiver string               `json:"defaultReceiver,omitempty"`
	Transfer        Transfer             `json:"transfer"`
	Lines           []Line               `json:"lines"`
	Issues          []Issue              `json:"issues"`
}

// HasIssue reports whether the result carries an issue with code.
func (r *Result) HasIssue(code string) bool {
	for _, is := range r.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// Err returns the most severe blocking failure, or nil.
func (r *Result) Err() error {
	switch {
	case r.HasIssue(IssueNoDefaultCollector):
		return e.ErrNoCollector
	case r.HasIssue(IssueNoCommonReceiver):
		return e.ErrNoCommonReceiver
	case r.HasIssue(IssueReceiverNotCommon):
		return fmt.Errorf("%w: receiver %s does not serve every selected waste type", e.ErrInvalidInput, r.Transfer.Receiver.Value)
	default:
		return nil
	}
}

func clearAuto(f Field) Field {
	return f.Fill("")
}

// Resolve runs the full resolution for req against snap and returns the
// transfer with every auto-fillable field refreshed. Manually set fields are
// never overwritten, except the fields a mode fixes: the Basic System
// disposer and the Collector Scheme sender are always the originating entity.
func Resolve(snap Snapshot, req Request) Result {
	res := Result{
		Mode:            req.Mode,
		CommonReceivers: []string{},
		Lines:           []Line{},
		Issues:          []Issue{},
	}
	if !req.Mode.RequiresTransfer() {
		return res
	}

	t := req.Transfer
	switch req.Mode {
	case ModeBasicSystem:
		t.Disposer = Auto(req.EntityID)
	case ModeCollectorScheme:
		t.Sender = Auto(req.EntityID)
		if collector, ok := DefaultInternalCollector(snap.Entities); ok {
			t.Disposer = t.Disposer.Fill(collector.ID)
		} else {
			t.Disposer = clearAuto(t.Disposer)
			res.Issues = append(res.Issues, Issue{
				Field:   "disposer",
				Code:    IssueNoDefaultCollector,
				Message: e.MsgNoDefaultCollector,
			})
		}
	}
	res.DisposerID = t.Disposer.Value

	wasteTypes := uniqueIDs(req.WasteTypeIDs)
	if res.DisposerID == "" || len(wasteTypes) == 0 {
		t.Receiver = clearAuto(t.Receiver)
		t.ASN = clearAuto(t.ASN)
		t.ProcessingMethod = clearAuto(t.ProcessingMethod)
		t.Transporter = clearAuto(t.Transporter)
		if req.Mode == ModeBasicSystem {
			t.Sender = clearAuto(t.Sender)
		}
		res.Transfer = t
		return res
	}

	sel := Selection{
		DisposerID:     res.DisposerID,
		ServicePointID: req.ServicePointID,
		WasteTypeIDs:   wasteTypes,
		Mode:           req.Mode,
	}
	agg := CommonReceivers(snap.Agreements, sel)
	res.PerWasteType = agg.PerWasteType
	res.CommonReceivers = agg.CommonReceivers
	res.DefaultReceiver = agg.DefaultReceiver

	var senderID, transporterID string
	if agg.Agreement != nil {
		res.AgreementID = agg.Agreement.ID
		senderID = agg.Agreement.SenderID
		transporterID = agg.Agreement.TransporterID
	}
	t.Transporter = t.Transporter.Fill(transporterID)
	if req.Mode == ModeBasicSystem {
		t.Sender = t.Sender.Fill(senderID)
	}

	switch {
	case len(agg.CommonReceivers) == 0:
		t.Receiver = clearAuto(t.Receiver)
		res.Issues = append(res.Issues, Issue{
			Field:   "receiver",
			Code:    IssueNoCommonReceiver,
			Message: e.MsgNoCommonReceiver,
		})
	case len(agg.CommonReceivers) == 1:
		t.Receiver = t.Receiver.Fill(agg.CommonReceivers[0])
	default:
		t.Receiver = t.Receiver.Fill(agg.DefaultReceiver)
	}
	if t.Receiver.IsManual() && len(agg.CommonReceivers) > 0 && !slices.Contains(agg.CommonReceivers, t.Receiver.Value) {
		res.Issues = append(res.Issues, Issue{
			Field:   "receiver",
			Code:    IssueReceiverNotCommon,
			Message: "The selected receiver is not configured for all selected waste types under the current agreement.",
		})
	}

	if d, _, ok := LookupDestination(snap.Agreements, sel, wasteTypes[0], t.Receiver.Value); ok {
		t.ASN = t.ASN.Fill(d.ASN)
		t.ProcessingMethod = t.ProcessingMethod.Fill(string(d.ProcessingMethod))
	} else {
		t.ASN = clearAuto(t.ASN)
		t.ProcessingMethod = clearAuto(t.ProcessingMethod)
	}

	if t.Receiver.IsSet() {
		for _, wt := range wasteTypes {
			line := Line{WasteTypeID: wt, ReceiverID: t.Receiver.Value}
			if d, a, ok := LookupDestination(snap.Agreements, sel, wt, t.Receiver.Value); ok {
				line.ASN = d.ASN
				line.ProcessingMethod = d.ProcessingMethod
				line.AgreementID = a.ID
			}
			res.Lines = append(res.Lines, line)
		}
	}

	res.Transfer = t
	return res
}
