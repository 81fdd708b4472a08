package documents

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

const (
	ordersSheet = "Orders"
	linesSheet  = "Waste lines"
)

var (
	orderHeaders = []string{"Order", "Name", "Entity", "Service point", "Order type", "Fulfillment date", "Status", "Waste lines", "Transporter", "Outsourced carrier"}
	lineHeaders  = []string{"Order", "Waste type", "Disposer", "Sender", "Receiver", "Transporter", "ASN", "Processing method"}
)

// ExcelGenerator exports orders to a workbook with an orders sheet and a
// waste lines sheet.
type ExcelGenerator struct{}

func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

func (g *ExcelGenerator) Generate(orders []models.Order, lookup Lookup) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}
	if _, err := file.NewSheet(linesSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	if err := writeRow(file, ordersSheet, 1, toCells(orderHeaders)); err != nil {
		return nil, err
	}
	if err := writeRow(file, linesSheet, 1, toCells(lineHeaders)); err != nil {
		return nil, err
	}

	lineRow := 2
	for i := range orders {
		o := &orders[i]
		carrier := emptyValue
		if o.UseOutsourcedCarrier {
			carrier = lookup.EntityName(o.OutsourcedCarrierEntityID)
		}
		err := writeRow(file, ordersSheet, i+2, []any{
			o.ID,
			o.OrderName,
			lookup.EntityName(o.EntityID),
			lookup.ServicePointName(o.EntityID, o.ServicePointID),
			lookup.OrderTypeName(o.OrderTypeID),
			o.FulfillmentDate,
			string(o.Status),
			len(o.WasteLines),
			lookup.EntityName(o.AgreementTransporterEntityID),
			carrier,
		})
		if err != nil {
			return nil, err
		}
		for _, line := range o.WasteLines {
			err := writeRow(file, linesSheet, lineRow, []any{
				o.ID,
				lookup.WasteTypeLabel(line.WasteTypeID),
				lookup.EntityName(line.DisposerID),
				lookup.EntityName(line.SenderID),
				lookup.EntityName(line.ReceiverID),
				lookup.EntityName(line.TransporterID),
				safeValue(line.ASN),
				safeValue(string(line.ProcessingMethod)),
			})
			if err != nil {
				return nil, err
			}
			lineRow++
		}
	}

	_ = file.SetColWidth(ordersSheet, "A", "A", 14)
	_ = file.SetColWidth(ordersSheet, "B", "B", 48)
	_ = file.SetColWidth(ordersSheet, "C", "E", 28)
	_ = file.SetColWidth(ordersSheet, "F", "J", 18)
	_ = file.SetColWidth(linesSheet, "A", "A", 14)
	_ = file.SetColWidth(linesSheet, "B", "H", 26)
	if err := file.SetPanes(ordersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(file *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
