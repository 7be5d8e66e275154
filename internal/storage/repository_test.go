package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
	"gastos/internal/storage/memory"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "gastos.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestListCategoriesSeeded(t *testing.T) {
	repo := newTestRepo(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"comida", "compras", "educacion", "entretenimiento", "hogar", "other", "salud", "servicios", "transporte"}, names)
	assert.Equal(t, []string{"comida", "tacos", "tortas"}, categories[0].Keywords[:3])
	assert.Empty(t, categories[5].Keywords)
}

func TestRunMigrationsReportsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")

	version, err := RunMigrations(dsn(path))
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)

	version, err = RunMigrations(dsn(path))
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")
	repo, err := NewSQLiteRepository(path, log.Discard())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, log.Discard())
	require.NoError(t, err)
	defer repo.Close()

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 9)
}

func TestGetUserConfigCreatesDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cfg, err := repo.GetUserConfig(ctx, "5215512345678")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultUserConfig("5215512345678"), cfg)

	cfg.DailyLimit = 250.5
	cfg.AlertThresholds = []int{50, 80, 95}
	require.NoError(t, repo.UpdateUserConfig(ctx, cfg))

	got, err := repo.GetUserConfig(ctx, "5215512345678")
	require.NoError(t, err)
	assert.Equal(t, 250.5, got.DailyLimit)
	assert.Equal(t, []int{50, 80, 95}, got.AlertThresholds)

	_, err = repo.GetUserConfig(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyUser)

	cfg.WeeklyLimit = 0
	assert.ErrorIs(t, repo.UpdateUserConfig(ctx, cfg), core.ErrInvalidLimit)
}

func TestSaveAndQueryTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, c := range []string{"comida", "transporte", "comida"} {
		saved, err := repo.SaveTransaction(ctx, core.Transaction{
			UserID:      "u1",
			Amount:      10.5 * float64(i+1),
			Description: "Tacos",
			Category:    c,
			Source:      "whatsapp",
			Timestamp:   base.Add(-time.Duration(i) * 24 * time.Hour),
		})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
	}
	_, err := repo.SaveTransaction(ctx, core.Transaction{UserID: "u2", Amount: 5, Description: "Pan", Category: "comida", Timestamp: base})
	require.NoError(t, err)

	all, err := repo.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 31.5, all[0].Amount) // oldest first
	assert.True(t, all[2].Timestamp.Equal(base))

	food, err := repo.QueryTransactions(ctx, "u1", ports.TransactionFilter{Category: "comida"})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	recent, err := repo.QueryTransactions(ctx, "u1", ports.TransactionFilter{Since: base.Add(-36 * time.Hour), Until: base})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestSaveTransactionValidates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SaveTransaction(ctx, core.Transaction{UserID: "u1", Amount: 10, Description: "x", Category: "viajes"})
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	_, err = repo.SaveTransaction(ctx, core.Transaction{UserID: "u1", Amount: 0, Description: "x", Category: "comida"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	saved, err := repo.SaveTransaction(ctx, core.Transaction{UserID: "u1", Amount: 10, Description: "x", Category: core.OtherCategory})
	require.NoError(t, err)
	assert.False(t, saved.Timestamp.IsZero())
}

func TestSaveTransactionMessageSegmentOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tx := core.Transaction{UserID: "u1", Amount: 30, Description: "Tacos", Category: "comida", Timestamp: at, MessageID: "m1"}

	first, err := repo.SaveTransaction(ctx, tx)
	require.NoError(t, err)
	again, err := repo.SaveTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	tx.MessageSeq = 1
	tx.Amount = 20
	second, err := repo.SaveTransaction(ctx, tx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// another user may reuse the message id
	_, err = repo.SaveTransaction(ctx, core.Transaction{UserID: "u2", Amount: 5, Description: "Pan", Category: "comida", Timestamp: at, MessageID: "m1"})
	require.NoError(t, err)

	stored, err := repo.MessageTransactions(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].MessageSeq)
	assert.Equal(t, 30.0, stored[0].Amount)
	assert.Equal(t, 1, stored[1].MessageSeq)

	all, err := repo.QueryTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// transactions without a message id are never deduplicated
	plain := core.Transaction{UserID: "u3", Amount: 10, Description: "x", Category: "comida", Timestamp: at}
	_, err = repo.SaveTransaction(ctx, plain)
	require.NoError(t, err)
	_, err = repo.SaveTransaction(ctx, plain)
	require.NoError(t, err)
	all, err = repo.QueryTransactions(ctx, "u3", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := repo.MessageTransactions(ctx, "u3", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestKeywordCandidates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, c := range []core.KeywordCandidate{
		{UserID: "u1", Category: "comida", Token: "pastor", Frequency: 3, Timestamp: now.Add(-time.Hour)},
		{UserID: "u1", Category: "comida", Token: "pastor", Frequency: 4, Timestamp: now},
		{UserID: "u2", Category: "comida", Token: "pastor", Frequency: 3, Timestamp: now},
		{UserID: "u1", Category: "transporte", Token: "didi", Frequency: 5, Timestamp: now},
	} {
		require.NoError(t, repo.RecordKeywordCandidate(ctx, c))
	}

	all, err := repo.ListKeywordCandidates(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	food, err := repo.ListKeywordCandidates(ctx, "comida")
	require.NoError(t, err)
	require.Len(t, food, 1)
	assert.Equal(t, "pastor", food[0].Token)
	assert.Equal(t, 4, food[0].MaxFrequency)
	assert.Equal(t, 3, food[0].Observations)
	assert.Equal(t, 2, food[0].Users)
	assert.True(t, food[0].LastSeen.Equal(now))
}

func TestKeywordUpdates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpdateCategoryKeywords(ctx, "salud", []string{"Farmacia", "doctor", "farmacia"}))
	require.NoError(t, repo.PromoteKeyword(ctx, "salud", "Aspirinas"))
	require.NoError(t, repo.PromoteKeyword(ctx, "salud", "doctor"))

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	for _, c := range categories {
		if c.Name == "salud" {
			assert.Equal(t, []string{"farmacia", "doctor", "aspirinas"}, c.Keywords)
		}
	}

	assert.ErrorIs(t, repo.PromoteKeyword(ctx, "viajes", "hotel"), core.ErrUnknownCategory)
	assert.ErrorIs(t, repo.PromoteKeyword(ctx, core.OtherCategory, "hotel"), core.ErrReservedCategory)
	assert.ErrorIs(t, repo.UpdateCategoryKeywords(ctx, "salud", []string{" "}), core.ErrEmptyKeyword)
}

func TestSyncCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.SyncCategories(ctx, []core.Category{
		{Name: "Viajes", Keywords: []string{"hotel", "vuelo"}},
		{Name: "comida", Keywords: []string{"tacos"}},
		{Name: "other", Keywords: []string{"ignored"}},
		{Name: "", Keywords: []string{"x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	byName := make(map[string][]string)
	for _, c := range categories {
		byName[c.Name] = c.Keywords
	}
	assert.Equal(t, []string{"hotel", "vuelo"}, byName["viajes"])
	assert.Equal(t, []string{"tacos"}, byName["comida"])
	assert.Empty(t, byName["other"])
}

func TestSeedMatchesMemoryDefaults(t *testing.T) {
	repo := newTestRepo(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	want := memory.DefaultCategories()
	require.Len(t, categories, len(want))
	for i := range want {
		assert.Equal(t, want[i].Name, categories[i].Name)
		assert.Equal(t, len(want[i].Keywords), len(categories[i].Keywords), want[i].Name)
		for j := range want[i].Keywords {
			assert.Equal(t, want[i].Keywords[j], categories[i].Keywords[j])
		}
	}
}
