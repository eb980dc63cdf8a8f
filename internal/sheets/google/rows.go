package google

import (
	"fmt"
	"strings"

	"billed/internal/core"
)

// billRow lays a bill out as id, date, email, type, name, amount, vat, pct,
// status, commentary, file name, file url.
func billRow(b core.Bill) []any {
	status, err := core.FormatStatus(b.Status)
	if err != nil {
		status = string(b.Status)
	}
	vat := b.VAT
	if d, err := core.ParseVAT(b.VAT); err == nil {
		vat = d.StringFixed(2)
	}
	return []any{
		b.ID,
		b.Date,
		b.Email,
		b.Type,
		b.Name,
		b.Amount,
		vat,
		b.Pct,
		status,
		b.Commentary,
		core.Deref(b.FileName),
		core.Deref(b.FileURL),
	}
}

// findRow returns the 1-based row whose first cell is id, or 0.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}
