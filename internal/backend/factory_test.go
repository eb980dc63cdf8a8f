package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"billed/internal/config"
	"billed/internal/core"
	"billed/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	got, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "x.db" {
		t.Fatalf("FromAppConfig() = %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryWithSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "bills.json")
	data := `[{"id":"47qAXb6fIm2zOKkLzMro","email":"a@a","type":"Hôtel et logement","name":"encore","amount":400,"date":"2004-04-04","vat":"80","pct":20,"commentary":"séminaire billed","fileUrl":"https://test.storage.tld/preview-facture-free-201801-pdf-1.jpg","fileName":"preview-facture-free-201801-pdf-1.jpg","status":"pending"}]`
	if err := os.WriteFile(seed, []byte(data), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	res, err := NewFactory(log.Discard()).Create(context.Background(), Config{Type: MemoryBackend, SeedFile: seed})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Close()

	if err := res.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	bills, err := res.Repository.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(bills) != 1 || bills[0].Status != core.StatusPending {
		t.Fatalf("List() = %+v", bills)
	}
}

func TestCreateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billed.db")

	res, err := NewFactory(nil).Create(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() { _ = res.Close() })

	ctx := context.Background()
	if err := res.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	bill := core.Bill{ID: "k1", Email: "a@a", Status: core.StatusPending}
	if err := res.Repository.Insert(ctx, bill); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := res.Repository.Get(ctx, "k1")
	if err != nil || got.Email != "a@a" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}

func TestResultCloseNil(t *testing.T) {
	var r *Result
	if err := r.Close(); err != nil {
		t.Fatalf("Close() on nil = %v", err)
	}
}
