package backend

import (
	"context"
	"fmt"

	"billed/internal/log"
	"billed/internal/storage"
	"billed/internal/storage/postgres"
	"billed/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLite(config)
	case PostgresBackend:
		return f.createPostgres(ctx, config)
	case MemoryBackend:
		return f.createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Repository: repo,
		Ping:       repo.Ping,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgres(ctx context.Context, config Config) (*Result, error) {
	st, err := postgres.NewBillStore(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &Result{
		Repository: st,
		Ping:       st.Ping,
		Cleanup: func() error {
			st.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createMemory(config Config) (*Result, error) {
	var st *memory.Store
	if config.SeedFile != "" {
		st = memory.NewFromFile(config.SeedFile)
	} else {
		st = memory.New()
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &Result{
		Repository: st,
		Ping:       func(context.Context) error { return nil },
	}, nil
}
