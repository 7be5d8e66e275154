package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// dsn adds the pragmas every connection needs.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dsn(dbPath))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("Schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListCategories implements ports.CategoryReader
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategoryKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var categories []core.Category
	for _, row := range rows {
		if len(categories) == 0 || categories[len(categories)-1].Name != row.Category {
			categories = append(categories, core.Category{Name: row.Category})
		}
		if row.Keyword.Valid {
			last := &categories[len(categories)-1]
			last.Keywords = append(last.Keywords, row.Keyword.String)
		}
	}
	return categories, nil
}

// GetUserConfig implements ports.UserConfigReader, creating defaults lazily.
func (r *SQLiteRepository) GetUserConfig(ctx context.Context, userID string) (core.UserBudgetConfig, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserBudgetConfig{}, core.ErrEmptyUser
	}

	row, err := r.queries.GetUserConfig(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		now := r.now().UnixMilli()
		defaults := toUserConfigRow(core.DefaultUserConfig(userID), now)
		if err := r.queries.InsertUserConfig(ctx, defaults); err != nil {
			return core.UserBudgetConfig{}, fmt.Errorf("create default user config: %w", err)
		}
		r.logger.InfoContext(ctx, "Default budget config created", log.FieldUserID, userID)
		row, err = r.queries.GetUserConfig(ctx, userID)
	}
	if err != nil {
		return core.UserBudgetConfig{}, fmt.Errorf("get user config: %w", err)
	}
	return fromUserConfigRow(row)
}

// UpdateUserConfig implements ports.UserConfigWriter
func (r *SQLiteRepository) UpdateUserConfig(ctx context.Context, cfg core.UserBudgetConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.AlertThresholds) == 0 {
		cfg.AlertThresholds = core.DefaultUserConfig(cfg.UserID).AlertThresholds
	}
	if err := r.queries.UpsertUserConfig(ctx, toUserConfigRow(cfg, r.now().UnixMilli())); err != nil {
		return fmt.Errorf("update user config: %w", err)
	}
	return nil
}

// QueryTransactions implements ports.TransactionReader
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, userID string, filter ports.TransactionFilter) ([]core.Transaction, error) {
	params := ListTransactionsParams{
		UserID:   userID,
		Category: filter.Category,
		Since:    0,
		Until:    math.MaxInt64,
	}
	if !filter.Since.IsZero() {
		params.Since = filter.Since.UnixMilli()
	}
	if !filter.Until.IsZero() {
		params.Until = filter.Until.UnixMilli()
	}

	rows, err := r.queries.ListTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	return fromTransactionRows(rows), nil
}

// MessageTransactions implements ports.MessageTransactionReader
func (r *SQLiteRepository) MessageTransactions(ctx context.Context, userID, messageID string) ([]core.Transaction, error) {
	if messageID == "" {
		return nil, nil
	}
	rows, err := r.queries.ListMessageTransactions(ctx, userID, messageID)
	if err != nil {
		return nil, fmt.Errorf("query message transactions: %w", err)
	}
	return fromTransactionRows(rows), nil
}

// SaveTransaction implements ports.TransactionWriter
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	exists, err := r.queries.CategoryExists(ctx, tx.Category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrUnknownCategory, tx.Category)
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = r.now()
	}

	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:      tx.UserID,
		AmountCents: core.ToCents(tx.Amount),
		Description: tx.Description,
		Category:    tx.Category,
		Source:      tx.Source,
		OccurredAt:  tx.Timestamp.UnixMilli(),
		MessageID:   tx.MessageID,
		MessageSeq:  int64(tx.MessageSeq),
	})
	if errors.Is(err, sql.ErrNoRows) && tx.MessageID != "" {
		return r.storedMessageTransaction(ctx, tx)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID = id

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		log.FieldUserID, tx.UserID,
		log.FieldDescription, tx.Description,
		log.FieldAmount, tx.Amount,
		log.FieldCategory, tx.Category)
	return tx, nil
}

// storedMessageTransaction returns the row that already holds tx's message
// segment.
func (r *SQLiteRepository) storedMessageTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	stored, err := r.MessageTransactions(ctx, tx.UserID, tx.MessageID)
	if err != nil {
		return core.Transaction{}, err
	}
	for _, s := range stored {
		if s.MessageSeq == tx.MessageSeq {
			r.logger.DebugContext(ctx, "Transaction already stored for message",
				"id", s.ID,
				log.FieldUserID, s.UserID,
				log.FieldMessageID, s.MessageID)
			return s, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("create transaction: message %s segment %d ignored but not found", tx.MessageID, tx.MessageSeq)
}

func fromTransactionRows(rows []Transaction) []core.Transaction {
	txs := make([]core.Transaction, len(rows))
	for i, row := range rows {
		txs[i] = core.Transaction{
			ID:          row.ID,
			UserID:      row.UserID,
			Amount:      core.FromCents(row.AmountCents),
			Description: row.Description,
			Category:    row.Category,
			Source:      row.Source,
			Timestamp:   time.UnixMilli(row.OccurredAt).UTC(),
			MessageID:   row.MessageID,
			MessageSeq:  int(row.MessageSeq),
		}
	}
	return txs
}

// RecordKeywordCandidate implements ports.KeywordCandidateWriter
func (r *SQLiteRepository) RecordKeywordCandidate(ctx context.Context, c core.KeywordCandidate) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = r.now()
	}
	err := r.queries.CreateKeywordCandidate(ctx, CreateKeywordCandidateParams{
		UserID:     c.UserID,
		Category:   c.Category,
		Token:      c.Token,
		Frequency:  int64(c.Frequency),
		ObservedAt: c.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("record keyword candidate: %w", err)
	}
	return nil
}

// ListKeywordCandidates implements ports.KeywordCandidateReader. An empty
// category lists every category.
func (r *SQLiteRepository) ListKeywordCandidates(ctx context.Context, category string) ([]core.KeywordCandidateSummary, error) {
	rows, err := r.queries.ListKeywordCandidates(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list keyword candidates: %w", err)
	}
	out := make([]core.KeywordCandidateSummary, len(rows))
	for i, row := range rows {
		out[i] = core.KeywordCandidateSummary{
			Category:     row.Category,
			Token:        row.Token,
			MaxFrequency: int(row.MaxFrequency),
			Observations: int(row.Observations),
			Users:        int(row.Users),
			LastSeen:     time.UnixMilli(row.LastSeen).UTC(),
		}
	}
	return out, nil
}

// UpdateCategoryKeywords replaces a category's keyword list.
func (r *SQLiteRepository) UpdateCategoryKeywords(ctx context.Context, name string, keywords []string) error {
	if name == core.OtherCategory {
		return core.ErrReservedCategory
	}
	normalized, err := core.NormalizeKeywords(keywords)
	if err != nil {
		return err
	}

	return r.inTx(ctx, func(q *Queries) error {
		exists, err := q.CategoryExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", core.ErrUnknownCategory, name)
		}
		return replaceKeywords(ctx, q, name, normalized)
	})
}

// PromoteKeyword appends token to a category's keywords. Promoting an
// existing keyword is a no-op.
func (r *SQLiteRepository) PromoteKeyword(ctx context.Context, category, token string) error {
	if category == core.OtherCategory {
		return core.ErrReservedCategory
	}
	normalized, err := core.NormalizeKeywords([]string{token})
	if err != nil {
		return err
	}

	return r.inTx(ctx, func(q *Queries) error {
		exists, err := q.CategoryExists(ctx, category)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", core.ErrUnknownCategory, category)
		}
		pos, err := q.NextKeywordPosition(ctx, category)
		if err != nil {
			return fmt.Errorf("next keyword position: %w", err)
		}
		inserted, err := q.InsertCategoryKeyword(ctx, InsertCategoryKeywordParams{
			Category: category,
			Keyword:  normalized[0],
			Position: pos,
		})
		if err != nil {
			return fmt.Errorf("insert keyword: %w", err)
		}
		if inserted > 0 {
			r.logger.InfoContext(ctx, "Keyword promoted",
				log.FieldCategory, category,
				log.FieldToken, normalized[0])
		}
		return nil
	})
}

// SyncCategories upserts categories from an external directory, replacing
// each one's keywords. The fallback category is created but its keywords are
// never set. It returns how many categories were written.
func (r *SQLiteRepository) SyncCategories(ctx context.Context, categories []core.Category) (int, error) {
	synced := 0
	err := r.inTx(ctx, func(q *Queries) error {
		now := r.now().UnixMilli()
		for _, c := range categories {
			name := strings.ToLower(strings.TrimSpace(c.Name))
			if name == "" {
				continue
			}
			if err := q.CreateCategory(ctx, name, now); err != nil {
				return fmt.Errorf("create category %s: %w", name, err)
			}
			if name == core.OtherCategory {
				continue
			}
			keywords, err := core.NormalizeKeywords(c.Keywords)
			if err != nil {
				r.logger.WarnContext(ctx, "Skipping category with invalid keywords",
					log.FieldCategory, name,
					log.FieldError, err)
				continue
			}
			if err := replaceKeywords(ctx, q, name, keywords); err != nil {
				return err
			}
			synced++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "Categories synced", log.FieldCount, synced)
	return synced, nil
}

func replaceKeywords(ctx context.Context, q *Queries, category string, keywords []string) error {
	if err := q.DeleteCategoryKeywords(ctx, category); err != nil {
		return fmt.Errorf("delete keywords: %w", err)
	}
	for i, kw := range keywords {
		if _, err := q.InsertCategoryKeyword(ctx, InsertCategoryKeywordParams{
			Category: category,
			Keyword:  kw,
			Position: int64(i),
		}); err != nil {
			return fmt.Errorf("insert keyword %s: %w", kw, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func toUserConfigRow(cfg core.UserBudgetConfig, now int64) UserConfig {
	thresholds := make([]string, len(cfg.AlertThresholds))
	for i, t := range cfg.AlertThresholds {
		thresholds[i] = strconv.Itoa(t)
	}
	return UserConfig{
		UserID:            cfg.UserID,
		DailyLimitCents:   core.ToCents(cfg.DailyLimit),
		WeeklyLimitCents:  core.ToCents(cfg.WeeklyLimit),
		MonthlyLimitCents: core.ToCents(cfg.MonthlyLimit),
		AlertThresholds:   strings.Join(thresholds, ","),
		Timezone:          cfg.Timezone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func fromUserConfigRow(row UserConfig) (core.UserBudgetConfig, error) {
	cfg := core.UserBudgetConfig{
		UserID:       row.UserID,
		DailyLimit:   core.FromCents(row.DailyLimitCents),
		WeeklyLimit:  core.FromCents(row.WeeklyLimitCents),
		MonthlyLimit: core.FromCents(row.MonthlyLimitCents),
		Timezone:     row.Timezone,
	}
	for _, part := range strings.Split(row.AlertThresholds, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := strconv.Atoi(part)
		if err != nil {
			return core.UserBudgetConfig{}, fmt.Errorf("parse alert thresholds %q: %w", row.AlertThresholds, err)
		}
		cfg.AlertThresholds = append(cfg.AlertThresholds, t)
	}
	return cfg, nil
}
