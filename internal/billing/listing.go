package billing

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
	"billed/internal/view"
)

var ErrMissingProofURL = errors.New("preview trigger has no proof url")

// FormattedBill is a stored bill with its display date and status label.
// Date and Status fall back to the raw values when they cannot be formatted.
type FormattedBill struct {
	Bill   core.Bill `json:"bill"`
	Date   string    `json:"date"`
	Status string    `json:"status"`
}

// Listing drives the bills page.
type Listing struct {
	bills    store.BillStore
	preview  view.PreviewPort
	navigate Navigator
	opts     options
}

func NewListing(bills store.BillStore, preview view.PreviewPort, navigate Navigator, opts ...Option) *Listing {
	return &Listing{
		bills:    bills,
		preview:  preview,
		navigate: navigate,
		opts:     newOptions(log.ComponentListing, opts),
	}
}

// GetBills lists the session's bills, most recent first. Store errors are
// returned as is; formatting never drops a bill.
func (l *Listing) GetBills(ctx context.Context) ([]FormattedBill, error) {
	if l.bills == nil {
		return nil, nil
	}
	raw, err := l.bills.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	sorted := slices.Clone(raw)
	core.SortAntiChrono(sorted)

	out := make([]FormattedBill, 0, len(sorted))
	for _, b := range sorted {
		date, err := core.FormatDate(b.Date)
		if err != nil {
			l.opts.logger.DebugContext(ctx, "Keeping raw date", log.FieldBillID, b.ID, log.FieldError, err)
			date = b.Date
		}
		status, err := core.FormatStatus(b.Status)
		if err != nil {
			l.opts.logger.DebugContext(ctx, "Keeping raw status", log.FieldBillID, b.ID, log.FieldError, err)
			status = string(b.Status)
		}
		out = append(out, FormattedBill{Bill: b, Date: date, Status: status})
	}

	l.opts.logger.DebugContext(ctx, "Bills listed", log.FieldCount, len(out))
	return out, nil
}

// OnPreviewIconClicked shows the proof referenced by trigger in the modal,
// at half the modal width.
func (l *Listing) OnPreviewIconClicked(trigger view.Trigger) error {
	url, ok := trigger.Attr(view.AttrBillURL)
	if !ok || url == "" {
		return ErrMissingProofURL
	}
	l.preview.RenderProof(url, l.preview.ModalWidth()/2)
	l.preview.ShowModal()
	return nil
}

// OnNewBillButtonClicked opens the submission page.
func (l *Listing) OnNewBillButtonClicked() {
	l.navigate.to(PathNewBill)
}
