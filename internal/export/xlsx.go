// Package export writes ledger expenses to spreadsheet files.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ycf/billing-portal/internal/model"
)

// SheetName is the worksheet holding the exported rows.
const SheetName = "Expenses"

// Header is the first row of the sheet.
var Header = []any{"Date", "Category", "Amount", "Payment Type", "Description", "Attachment", "ReferenceID"}

// FileName names an export for the window [from, to]; open bounds read "all" and "today".
func FileName(from, to model.Date) string {
	start, end := from.String(), to.String()
	if start == "" {
		start = "all"
	}
	if end == "" {
		end = "today"
	}
	return fmt.Sprintf("Expenses-%s_to_%s.xlsx", start, end)
}

// WriteXLSX writes records as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, records []model.ExpenseRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	for i, r := range records {
		attachment := ""
		if r.Attachment != nil {
			attachment = r.Attachment.Filename
		}
		row := []any{
			r.Date.String(),
			r.Category,
			r.Amount.Float(),
			r.PaymentType,
			r.Description,
			attachment,
			r.ReferenceID,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}
