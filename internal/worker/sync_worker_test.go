package worker

import (
	"context"
	"errors"
	"testing"

	"billed/internal/amqp"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store/memory"
)

type fakeMirror struct {
	rows []core.Bill
	err  error
}

func (f *fakeMirror) UpsertBill(_ context.Context, b core.Bill) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, b)
	return "2024 Notes de frais!A2:L2", nil
}

func TestHandleBillSubmitted(t *testing.T) {
	bill := core.Bill{ID: "k1", Email: "a@test.tld", Amount: 50, Status: core.StatusPending}
	repo := memory.New(bill)

	tests := []struct {
		name     string
		id       string
		mirror   *fakeMirror
		wantErr  bool
		wantRows int
	}{
		{name: "mirrors the stored bill", id: "k1", mirror: &fakeMirror{}, wantRows: 1},
		{name: "skips unknown bill", id: "gone", mirror: &fakeMirror{}},
		{name: "requeues on sheets failure", id: "k1", mirror: &fakeMirror{err: errors.New("quota")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSyncWorker(repo, tt.mirror, log.Discard())
			err := w.HandleBillSubmitted(context.Background(), &amqp.BillSubmittedMessage{BillID: tt.id})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.mirror.rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d", len(tt.mirror.rows), tt.wantRows)
			}
			if tt.wantRows > 0 && tt.mirror.rows[0].Amount != 50 {
				t.Fatalf("unexpected row %+v", tt.mirror.rows[0])
			}
		})
	}
}
