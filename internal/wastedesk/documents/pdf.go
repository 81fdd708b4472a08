package documents

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

// Party is one block of the transport letter.
type Party struct {
	Title   string
	Name    string
	Address string
	VIHB    string
}

// LetterLine is one waste line as printed.
type LetterLine struct {
	WasteType        string
	Receiver         string
	ASN              string
	ProcessingMethod string
}

// Letter is the content of a Begeleidingsbrief, resolved from an order.
type Letter struct {
	OrderID         string
	OrderName       string
	OrderType       string
	FulfillmentDate string
	ServicePoint    string
	Parties         []Party
	Lines           []LetterLine
	Carrier         string
	Note            string
}

func (l Lookup) party(title, id string) Party {
	p := Party{Title: title, Name: l.EntityName(id), Address: emptyValue, VIHB: emptyValue}
	if en, ok := l.Entities[id]; ok {
		p.Address = safeValue(en.Address())
		p.VIHB = safeValue(en.VIHBNumber)
	}
	return p
}

// NewLetter lays out order for printing. The parties are taken from the
// first waste line; every line of an order shares them.
func NewLetter(order *models.Order, lookup Lookup) Letter {
	letter := Letter{
		OrderID:         order.ID,
		OrderName:       order.OrderName,
		OrderType:       lookup.OrderTypeName(order.OrderTypeID),
		FulfillmentDate: formatDate(order.FulfillmentDate),
		ServicePoint:    lookup.ServicePointName(order.EntityID, order.ServicePointID),
		Carrier:         lookup.EntityName(order.AgreementTransporterEntityID),
		Note:            order.Note,
	}
	if order.UseOutsourcedCarrier {
		letter.Carrier = fmt.Sprintf("%s (uitbesteed)", lookup.EntityName(order.OutsourcedCarrierEntityID))
	}

	var first models.WasteLine
	if len(order.WasteLines) > 0 {
		first = order.WasteLines[0]
	}
	if first.DisposerID == "" {
		letter.Parties = []Party{lookup.party("Opdrachtgever", order.EntityID)}
	} else {
		letter.Parties = []Party{
			lookup.party("Ontdoener", first.DisposerID),
			lookup.party("Afzender", first.SenderID),
			lookup.party("Vervoerder", first.TransporterID),
			lookup.party("Ontvanger", first.ReceiverID),
		}
	}

	for _, line := range order.WasteLines {
		letter.Lines = append(letter.Lines, LetterLine{
			WasteType:        lookup.WasteTypeLabel(line.WasteTypeID),
			Receiver:         lookup.EntityName(line.ReceiverID),
			ASN:              safeValue(line.ASN),
			ProcessingMethod: safeValue(string(line.ProcessingMethod)),
		})
	}
	return letter
}

// PDFGenerator renders transport letters.
type PDFGenerator struct {
	fontName string
	now      func() time.Time
}

func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{fontName: "Helvetica", now: time.Now}
}

// Generate renders letter as an A4 PDF.
func (g *PDFGenerator) Generate(letter Letter) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	// Core fonts are cp1252; entity names carry accents and en dashes.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "Begeleidingsbrief", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Order %s, %s", letter.OrderID, letter.OrderName)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.keyValue(pdf, tr, "Ordertype", letter.OrderType)
	g.keyValue(pdf, tr, "Uitvoeringsdatum", letter.FulfillmentDate)
	g.keyValue(pdf, tr, "Locatie", letter.ServicePoint)
	g.keyValue(pdf, tr, "Vervoer", letter.Carrier)
	pdf.Ln(4)

	for _, p := range letter.Parties {
		g.partyBlock(pdf, tr, p)
		pdf.Ln(2)
	}

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Afvalstoffen", "", 1, "L", false, 0, "")
	headers := []string{"Afvalstof", "Ontvanger", "Afvalstroomnummer", "Verwerkingsmethode"}
	widths := []float64{60, 40, 40, 40}
	g.tableRow(pdf, tr, headers, widths, true)
	for _, line := range letter.Lines {
		g.tableRow(pdf, tr, []string{line.WasteType, line.Receiver, line.ASN, line.ProcessingMethod}, widths, false)
	}

	if letter.Note != "" {
		pdf.Ln(4)
		pdf.SetFont(g.fontName, "B", 11)
		pdf.CellFormat(0, 6, "Opmerking", "", 1, "L", false, 0, "")
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 5, tr(letter.Note), "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, "Handtekening afzender: ______________________", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Handtekening vervoerder: ____________________", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 8)
	pdf.CellFormat(0, 6, "Gegenereerd op "+g.now().Format("02-01-2006 15:04"), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render transport letter: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *PDFGenerator) keyValue(pdf *gofpdf.Fpdf, tr func(string) string, key, value string) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.CellFormat(45, 6, key, "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
}

func (g *PDFGenerator) partyBlock(pdf *gofpdf.Fpdf, tr func(string) string, p Party) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, p.Title, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	for _, line := range []string{p.Name, p.Address, "VIHB: " + p.VIHB} {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func (g *PDFGenerator) tableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 9)
	for i, col := range cols {
		pdf.CellFormat(widths[i], 7, tr(col), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}
