package backend

import (
	"context"
	"fmt"

	"gastos/internal/log"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/storage"
	"gastos/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.GoogleSpreadsheetID != "" {
		cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleCategoriesSheet, f.logger)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		result.CategorySource = cli
		f.logger.InfoContext(ctx, "Google Sheets category source enabled",
			"spreadsheet_id", config.GoogleSpreadsheetID)
	}

	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	var store *memory.Store
	if config.CategoriesFile != "" {
		store = memory.NewFromFile(config.CategoriesFile)
	} else {
		store = memory.New(memory.DefaultCategories())
	}

	f.logger.Info("Initialized memory backend", "categories_file", config.CategoriesFile)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}
}
