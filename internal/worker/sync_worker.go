package worker

import (
	"context"
	"errors"
	"fmt"

	"billed/internal/amqp"
	"billed/internal/log"
	"billed/internal/sheets"
	"billed/internal/store"
)

// SyncWorker mirrors submitted bills into the accounting spreadsheet.
type SyncWorker struct {
	repo   store.Repository
	mirror sheets.BillMirror
	logger *log.Logger
}

func NewSyncWorker(repo store.Repository, mirror sheets.BillMirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		repo:   repo,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleBillSubmitted loads the bill named by msg and writes its row. A bill
// that no longer exists is acknowledged and skipped; other failures are
// returned so the message is requeued.
func (w *SyncWorker) HandleBillSubmitted(ctx context.Context, msg *amqp.BillSubmittedMessage) error {
	w.logger.InfoContext(ctx, "Processing bill submitted message",
		log.FieldBillID, msg.BillID,
		log.FieldEmail, msg.Email)

	bill, err := w.repo.Get(ctx, msg.BillID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.WarnContext(ctx, "Bill vanished before sync, skipping", log.FieldBillID, msg.BillID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get bill from storage: %w", err)
	}

	ref, err := w.mirror.UpsertBill(ctx, bill)
	if err != nil {
		return fmt.Errorf("upsert bill to sheets: %w", err)
	}

	fields := log.NewFields().WithBill(bill).WithOperation(log.OpAppend)
	fields[log.FieldSheetsRef] = ref
	w.logger.InfoContext(ctx, "Successfully synced bill", fields.ToSlice()...)
	return nil
}
