package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type CategoryKeywordRow struct {
	Category string
	Keyword  sql.NullString
}

type UserConfig struct {
	UserID            string
	DailyLimitCents   int64
	WeeklyLimitCents  int64
	MonthlyLimitCents int64
	AlertThresholds   string
	Timezone          string
	CreatedAt         int64
	UpdatedAt         int64
}

type Transaction struct {
	ID          int64
	UserID      string
	AmountCents int64
	Description string
	Category    string
	Source      string
	OccurredAt  int64
	MessageID   string
	MessageSeq  int64
}

type KeywordCandidateRow struct {
	Category     string
	Token        string
	MaxFrequency int64
	Observations int64
	Users        int64
	LastSeen     int64
}

const listCategoryKeywords = `
SELECT c.name, k.keyword
FROM categories c
LEFT JOIN category_keywords k ON k.category = c.name
ORDER BY c.name, k.position
`

func (q *Queries) ListCategoryKeywords(ctx context.Context) ([]CategoryKeywordRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryKeywords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryKeywordRow
	for rows.Next() {
		var i CategoryKeywordRow
		if err := rows.Scan(&i.Category, &i.Keyword); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const categoryExists = `SELECT EXISTS(SELECT 1 FROM categories WHERE name = ?)`

func (q *Queries) CategoryExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, categoryExists, name).Scan(&exists)
	return exists, err
}

const createCategory = `INSERT OR IGNORE INTO categories (name, created_at) VALUES (?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, name string, createdAt int64) error {
	_, err := q.db.ExecContext(ctx, createCategory, name, createdAt)
	return err
}

const deleteCategoryKeywords = `DELETE FROM category_keywords WHERE category = ?`

func (q *Queries) DeleteCategoryKeywords(ctx context.Context, category string) error {
	_, err := q.db.ExecContext(ctx, deleteCategoryKeywords, category)
	return err
}

const insertCategoryKeyword = `
INSERT OR IGNORE INTO category_keywords (category, keyword, position) VALUES (?, ?, ?)
`

type InsertCategoryKeywordParams struct {
	Category string
	Keyword  string
	Position int64
}

func (q *Queries) InsertCategoryKeyword(ctx context.Context, arg InsertCategoryKeywordParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertCategoryKeyword, arg.Category, arg.Keyword, arg.Position)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const nextKeywordPosition = `
SELECT COALESCE(MAX(position), -1) + 1 FROM category_keywords WHERE category = ?
`

func (q *Queries) NextKeywordPosition(ctx context.Context, category string) (int64, error) {
	var pos int64
	err := q.db.QueryRowContext(ctx, nextKeywordPosition, category).Scan(&pos)
	return pos, err
}

const getUserConfig = `
SELECT user_id, daily_limit_cents, weekly_limit_cents, monthly_limit_cents,
       alert_thresholds, timezone, created_at, updated_at
FROM user_configs
WHERE user_id = ?
`

func (q *Queries) GetUserConfig(ctx context.Context, userID string) (UserConfig, error) {
	row := q.db.QueryRowContext(ctx, getUserConfig, userID)
	var i UserConfig
	err := row.Scan(
		&i.UserID,
		&i.DailyLimitCents,
		&i.WeeklyLimitCents,
		&i.MonthlyLimitCents,
		&i.AlertThresholds,
		&i.Timezone,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertUserConfig = `
INSERT OR IGNORE INTO user_configs (
    user_id, daily_limit_cents, weekly_limit_cents, monthly_limit_cents,
    alert_thresholds, timezone, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertUserConfig(ctx context.Context, arg UserConfig) error {
	_, err := q.db.ExecContext(ctx, insertUserConfig,
		arg.UserID,
		arg.DailyLimitCents,
		arg.WeeklyLimitCents,
		arg.MonthlyLimitCents,
		arg.AlertThresholds,
		arg.Timezone,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const upsertUserConfig = `
INSERT INTO user_configs (
    user_id, daily_limit_cents, weekly_limit_cents, monthly_limit_cents,
    alert_thresholds, timezone, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    daily_limit_cents = excluded.daily_limit_cents,
    weekly_limit_cents = excluded.weekly_limit_cents,
    monthly_limit_cents = excluded.monthly_limit_cents,
    alert_thresholds = excluded.alert_thresholds,
    timezone = excluded.timezone,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertUserConfig(ctx context.Context, arg UserConfig) error {
	_, err := q.db.ExecContext(ctx, upsertUserConfig,
		arg.UserID,
		arg.DailyLimitCents,
		arg.WeeklyLimitCents,
		arg.MonthlyLimitCents,
		arg.AlertThresholds,
		arg.Timezone,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

// createTransaction ignores a row that repeats (user_id, message_id,
// message_seq); the caller then gets sql.ErrNoRows.
const createTransaction = `
INSERT OR IGNORE INTO transactions (user_id, amount_cents, description, category, source, occurred_at, message_id, message_seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateTransactionParams struct {
	UserID      string
	AmountCents int64
	Description string
	Category    string
	Source      string
	OccurredAt  int64
	MessageID   string
	MessageSeq  int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID,
		arg.AmountCents,
		arg.Description,
		arg.Category,
		arg.Source,
		arg.OccurredAt,
		arg.MessageID,
		arg.MessageSeq,
	).Scan(&id)
	return id, err
}

const listMessageTransactions = `
SELECT id, user_id, amount_cents, description, category, source, occurred_at, message_id, message_seq
FROM transactions
WHERE user_id = ? AND message_id = ?
ORDER BY message_seq
`

func (q *Queries) ListMessageTransactions(ctx context.Context, userID, messageID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listMessageTransactions, userID, messageID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactions = `
SELECT id, user_id, amount_cents, description, category, source, occurred_at, message_id, message_seq
FROM transactions
WHERE user_id = ?
  AND (? = '' OR category = ?)
  AND occurred_at >= ?
  AND occurred_at <= ?
ORDER BY occurred_at, id
`

type ListTransactionsParams struct {
	UserID   string
	Category string
	Since    int64
	Until    int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.UserID,
		arg.Category,
		arg.Category,
		arg.Since,
		arg.Until,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.AmountCents,
			&i.Description,
			&i.Category,
			&i.Source,
			&i.OccurredAt,
			&i.MessageID,
			&i.MessageSeq,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createKeywordCandidate = `
INSERT INTO keyword_candidates (user_id, category, token, frequency, observed_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateKeywordCandidateParams struct {
	UserID     string
	Category   string
	Token      string
	Frequency  int64
	ObservedAt int64
}

func (q *Queries) CreateKeywordCandidate(ctx context.Context, arg CreateKeywordCandidateParams) error {
	_, err := q.db.ExecContext(ctx, createKeywordCandidate,
		arg.UserID,
		arg.Category,
		arg.Token,
		arg.Frequency,
		arg.ObservedAt,
	)
	return err
}

const listKeywordCandidates = `
SELECT category, token, MAX(frequency), COUNT(*), COUNT(DISTINCT user_id), MAX(observed_at)
FROM keyword_candidates
WHERE (? = '' OR category = ?)
GROUP BY category, token
ORDER BY category, token
`

func (q *Queries) ListKeywordCandidates(ctx context.Context, category string) ([]KeywordCandidateRow, error) {
	rows, err := q.db.QueryContext(ctx, listKeywordCandidates, category, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []KeywordCandidateRow
	for rows.Next() {
		var i KeywordCandidateRow
		if err := rows.Scan(
			&i.Category,
			&i.Token,
			&i.MaxFrequency,
			&i.Observations,
			&i.Users,
			&i.LastSeen,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
