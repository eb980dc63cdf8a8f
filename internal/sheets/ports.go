package sheets

import (
	"context"

	"billed/internal/core"
)

// Ports for outbound adapters.
type (
	// BillMirror keeps a spreadsheet copy of stored bills for accounting.
	BillMirror interface {
		// UpsertBill writes the bill's row, replacing the row with the same
		// id when there is one, and returns the written range.
		UpsertBill(ctx context.Context, b core.Bill) (rowRef string, err error)
	}
)
