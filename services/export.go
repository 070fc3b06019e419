package services

import (
	"context"
	"fmt"
	"io"

	"agencyops/backend/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transactions"

var exportHeaders = []string{
	"Date", "Type", "Category", "Status", "Amount", "Currency",
	"EGP", "SAR", "AED", "USD", "EUR",
	"Project", "Client", "Employee", "Payment Method", "Reference", "Description", "Added By",
}

// Export writes every transaction matching f as an XLSX workbook to w,
// newest first. Paging fields of f are ignored.
func (l *Ledger) Export(ctx context.Context, f models.TransactionFilter, w io.Writer) (int, error) {
	where, args := transactionWhere(f)
	views, err := l.queryViews(ctx, transactionViewQuery+where+" ORDER BY t.date DESC, t.created_at DESC", args...)
	if err != nil {
		return 0, err
	}

	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(exportSheet)
	if err != nil {
		return 0, fmt.Errorf("error creating sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return 0, fmt.Errorf("error removing default sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(exportSheet, cell, h); err != nil {
			return 0, fmt.Errorf("error writing header: %w", err)
		}
	}

	for i, v := range views {
		row := []any{
			v.Date.Format("2006-01-02"),
			string(v.Type),
			string(v.Category),
			string(v.Status),
			v.Amount,
			string(v.Currency),
		}
		for _, c := range models.Currencies {
			if value, ok := v.AmountConverted.Get(c); ok {
				row = append(row, value)
			} else {
				row = append(row, "")
			}
		}
		row = append(row, refName(v.Project), refName(v.Client), refName(v.Employee),
			string(v.PaymentMethod), v.Reference, v.Description, refName(v.AddedByUser))

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := file.SetSheetRow(exportSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	file.SetColWidth(exportSheet, "A", "A", 12)
	file.SetColWidth(exportSheet, "L", "N", 20)
	file.SetColWidth(exportSheet, "Q", "Q", 40)

	if err := file.Write(w); err != nil {
		return 0, fmt.Errorf("error writing workbook: %w", err)
	}
	return len(views), nil
}

func refName(r *models.Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}
