package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"billed/internal/core"
	"billed/internal/store"
)

// Runs only when POSTGRES_TEST_URL points at a disposable database.
func TestStoreRoundTrip(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()

	s, err := NewBillStore(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(ctx, `TRUNCATE bills`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	b := core.Bill{ID: "pg-1", Email: "a@test.tld", Pct: 20, Status: core.StatusPending}
	if err := s.Insert(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, b); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	b.Amount = 12
	b.FileURL = core.StringPtr("/files/pg-1.png")
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, "pg-1")
	if err != nil || got.Amount != 12 || core.Deref(got.FileURL) != "/files/pg-1.png" || got.FileName != nil {
		t.Fatalf("unexpected bill %+v err=%v", got, err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, err := s.List(ctx, "other@test.tld")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %+v err=%v", list, err)
	}
}
