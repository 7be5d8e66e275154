// Package ports declares the storage contracts the engines and the expense
// service consume. Adapters live in internal/storage and internal/sheets.
package ports

import (
	"context"
	"time"

	"gastos/internal/core"
)

// TransactionFilter narrows a history query. Zero values mean "no bound".
type TransactionFilter struct {
	Category string
	Since    time.Time
	Until    time.Time
}

// Ports for outbound adapters.
type (
	// CategoryReader lists the category directory ordered by name.
	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// UserConfigReader returns a user's budget configuration, creating it
	// with defaults on first access.
	UserConfigReader interface {
		GetUserConfig(ctx context.Context, userID string) (core.UserBudgetConfig, error)
	}

	UserConfigWriter interface {
		UpdateUserConfig(ctx context.Context, cfg core.UserBudgetConfig) error
	}

	TransactionReader interface {
		QueryTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]core.Transaction, error)
	}

	// TransactionWriter stores a transaction. Saving a transaction whose
	// MessageID and MessageSeq were already stored for the user returns the
	// stored one instead of inserting again.
	TransactionWriter interface {
		SaveTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	// MessageTransactionReader lists what was already stored for a chat
	// message, ordered by sequence.
	MessageTransactionReader interface {
		MessageTransactions(ctx context.Context, userID, messageID string) ([]core.Transaction, error)
	}

	// KeywordCandidateWriter is append-only; losing a record is acceptable.
	KeywordCandidateWriter interface {
		RecordKeywordCandidate(ctx context.Context, c core.KeywordCandidate) error
	}

	KeywordCandidateReader interface {
		ListKeywordCandidates(ctx context.Context, category string) ([]core.KeywordCandidateSummary, error)
	}

	// CategoryKeywordUpdater mutates the live keyword set. Callers must
	// invalidate any cached directory afterwards.
	CategoryKeywordUpdater interface {
		UpdateCategoryKeywords(ctx context.Context, name string, keywords []string) error
		PromoteKeyword(ctx context.Context, category, token string) error
	}

	// CategorySyncer upserts categories from an external source, replacing
	// their keywords, and reports how many were written.
	CategorySyncer interface {
		SyncCategories(ctx context.Context, categories []core.Category) (int, error)
	}
)

// Store is the full storage surface implemented by the sqlite and memory backends.
type Store interface {
	CategoryReader
	UserConfigReader
	UserConfigWriter
	TransactionReader
	TransactionWriter
	MessageTransactionReader
	KeywordCandidateWriter
	KeywordCandidateReader
	CategoryKeywordUpdater
	CategorySyncer
	Close() error
}
