package categorizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu         sync.Mutex
	categories []core.Category
	listErr    error
	listCalls  int
	txs        []core.Transaction
	queryErr   error
	queryPanic bool
	queryBlock bool
	candidates []core.KeywordCandidate
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Category(nil), f.categories...), nil
}

func (f *fakeStore) QueryTransactions(ctx context.Context, userID string, filter ports.TransactionFilter) ([]core.Transaction, error) {
	f.mu.Lock()
	block := f.queryBlock
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryPanic {
		panic("boom")
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.UserID != userID {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		if !filter.Since.IsZero() && tx.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && tx.Timestamp.After(filter.Until) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeStore) RecordKeywordCandidate(ctx context.Context, c core.KeywordCandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakeStore) addTx(userID, description, category string, age time.Duration) {
	f.txs = append(f.txs, core.Transaction{
		UserID:      userID,
		Amount:      50,
		Description: description,
		Category:    category,
		Timestamp:   testNow.Add(-age),
	})
}

func directoryFixture() []core.Category {
	return []core.Category{
		{Name: "comida", Keywords: []string{"tacos", "hamburguesa", "restaurante"}},
		{Name: "entretenimiento", Keywords: []string{"cine", "netflix"}},
		{Name: "other"},
		{Name: "transporte", Keywords: []string{"gasolina", "taxi"}},
	}
}

func newEngine(store *fakeStore, opts ...Option) *Engine {
	base := []Option{
		WithHistory(store),
		WithCandidateWriter(store),
		WithClock(func() time.Time { return testNow }),
		WithLogger(log.Discard()),
	}
	return New(store, append(base, opts...)...)
}

func TestCategorizeBrandDominates(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	e := newEngine(store)

	assert.Equal(t, "comida", e.Categorize(context.Background(), "mcdonalds hamburguesa", ""))
	assert.Equal(t, "comida", e.Categorize(context.Background(), "McDonald's", ""))
}

func TestCategorizeKeywords(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	e := newEngine(store)

	tests := []struct {
		description string
		want        string
	}{
		{"Gasolina", "transporte"},
		{"tacos al pastor", "comida"},
		{"boletos de cine", "entretenimiento"},
		{"Taxi al aeropuerto", "transporte"},
		{"algo raro", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Categorize(context.Background(), tt.description, ""))
		})
	}
}

func TestCategorizeIsTotal(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	e := newEngine(store)

	for _, in := range []string{"", "   ", "!!!", "$$$ 123"} {
		assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), in, ""), "input %q", in)
	}
}

func TestCategorizeTieBreaksAlphabetically(t *testing.T) {
	store := &fakeStore{categories: []core.Category{
		{Name: "beta", Keywords: []string{"pan"}},
		{Name: "alpha", Keywords: []string{"pan"}},
	}}
	e := newEngine(store, WithDictionaries(Dictionaries{}))

	for i := 0; i < 10; i++ {
		assert.Equal(t, "alpha", e.Categorize(context.Background(), "pan dulce", ""))
	}
}

func TestCategorizeMinimumScore(t *testing.T) {
	store := &fakeStore{categories: []core.Category{
		{Name: "comida", Keywords: []string{"panaderia"}},
	}}
	e := newEngine(store, WithDictionaries(Dictionaries{}))

	// only a partial overlap: score 2 does not exceed the minimum
	assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), "pan", ""))
}

func TestCategorizeFallbackNeverCompetes(t *testing.T) {
	store := &fakeStore{categories: []core.Category{
		{Name: "other", Keywords: []string{"pan"}},
	}}
	e := newEngine(store, WithDictionaries(Dictionaries{}))

	assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), "pan", ""))
}

func TestCategorizeStorageFailure(t *testing.T) {
	t.Run("directory", func(t *testing.T) {
		store := &fakeStore{listErr: errors.New("db down")}
		e := newEngine(store)
		assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), "tacos", "u1"))
	})

	t.Run("history", func(t *testing.T) {
		store := &fakeStore{categories: directoryFixture(), queryErr: errors.New("timeout")}
		e := newEngine(store)
		assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), "tacos", "u1"))
		// without a user the history is not consulted
		assert.Equal(t, "comida", e.Categorize(context.Background(), "tacos", ""))
	})

	t.Run("history timeout", func(t *testing.T) {
		store := &fakeStore{categories: directoryFixture(), queryBlock: true}
		e := newEngine(store, WithStorageTimeout(50*time.Millisecond))

		start := time.Now()
		assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), "tacos", "u1"))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("panic", func(t *testing.T) {
		store := &fakeStore{categories: directoryFixture(), queryPanic: true}
		e := newEngine(store)
		assert.NotPanics(t, func() {
			assert.Equal(t, core.OtherCategory, e.Categorize(context.Background(), "tacos", "u1"))
		})
	})
}

func TestDirectoryCache(t *testing.T) {
	now := testNow
	store := &fakeStore{categories: directoryFixture()}
	e := New(store,
		WithClock(func() time.Time { return now }),
		WithLogger(log.Discard()),
	)
	ctx := context.Background()

	e.Categorize(ctx, "tacos", "")
	e.Categorize(ctx, "taxi", "")
	assert.Equal(t, 1, store.listCalls)

	// keyword update becomes visible right after invalidation
	store.categories = append(store.categories, core.Category{Name: "salud", Keywords: []string{"farmacia"}})
	assert.Equal(t, core.OtherCategory, e.Categorize(ctx, "aspirinas", ""))
	store.categories[len(store.categories)-1].Keywords = append(store.categories[len(store.categories)-1].Keywords, "aspirinas")
	e.Invalidate()
	assert.Equal(t, "salud", e.Categorize(ctx, "aspirinas", ""))
	assert.Equal(t, 2, store.listCalls)

	now = now.Add(DefaultCacheTTL)
	e.Categorize(ctx, "tacos", "")
	assert.Equal(t, 3, store.listCalls)
}

func TestDirectoryCacheConcurrent(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	e := newEngine(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "comida", e.Categorize(context.Background(), "tacos", ""))
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, store.listCalls, 20)
	assert.GreaterOrEqual(t, store.listCalls, 1)
}

func TestCategorizeUserHistory(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	for i := 0; i < 3; i++ {
		store.addTx("u1", "cafe del barrio", "entretenimiento", 24*time.Hour)
	}
	store.addTx("u1", "cafe del barrio", "transporte", 100*24*time.Hour) // outside the window
	e := newEngine(store)
	ctx := context.Background()

	assert.Equal(t, core.OtherCategory, e.Categorize(ctx, "cafe del barrio", ""))
	assert.Equal(t, "entretenimiento", e.Categorize(ctx, "cafe del barrio", "u1"))
	assert.Equal(t, core.OtherCategory, e.Categorize(ctx, "cafe del barrio", "u2"))
}

func TestHistoryScoreCapped(t *testing.T) {
	desc := map[string]struct{}{"cafe": {}, "barrio": {}}
	entries := []historyEntry{{description: "cafe barrio", tokens: desc, frequency: 30}}
	assert.Equal(t, historyCap, historyScore(desc, entries))

	dissimilar := []historyEntry{{tokens: map[string]struct{}{"cafe": {}, "centro": {}, "norte": {}}, frequency: 30}}
	assert.Zero(t, historyScore(desc, dissimilar))
}

func TestGroupHistoryKeepsTopDescriptions(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 25; i++ {
		txs = append(txs, core.Transaction{Description: string(rune('a'+i)) + "zz", Category: "comida"})
	}
	txs = append(txs, core.Transaction{Description: "Tacos!", Category: "comida"})
	txs = append(txs, core.Transaction{Description: "tacos", Category: "comida"})

	grouped := groupHistory(txs)
	require.Len(t, grouped["comida"], historyTop)
	assert.Equal(t, "tacos", grouped["comida"][0].description)
	assert.Equal(t, 2, grouped["comida"][0].frequency)
}

func TestLearningRecordsFrequentTokens(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	for i := 0; i < 3; i++ {
		store.addTx("u1", "Tacos al pastor", "comida", time.Duration(i+1)*24*time.Hour)
	}
	store.addTx("u1", "tacos de suadero", "comida", 2*24*time.Hour)
	store.addTx("u1", "tacos de suadero", "comida", 40*24*time.Hour) // outside 30 days
	e := newEngine(store)

	got := e.Categorize(context.Background(), "tacos al pastor con suadero", "u1")
	require.Equal(t, "comida", got)

	require.Len(t, store.candidates, 1)
	c := store.candidates[0]
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "comida", c.Category)
	assert.Equal(t, "pastor", c.Token)
	assert.Equal(t, 3, c.Frequency)
	assert.Equal(t, testNow, c.Timestamp)
}

func TestLearningSkippedWithoutUser(t *testing.T) {
	store := &fakeStore{categories: directoryFixture()}
	for i := 0; i < 5; i++ {
		store.addTx("u1", "tacos al pastor", "comida", time.Hour)
	}
	e := newEngine(store)

	e.Categorize(context.Background(), "tacos al pastor", "")
	assert.Empty(t, store.candidates)
}

func TestCandidateTokens(t *testing.T) {
	got := candidateTokens("tacos al pastor pastor con", []string{"tacos"})
	assert.Equal(t, []string{"con", "pastor"}, got)
}

func TestLoadDictionaries(t *testing.T) {
	d, err := LoadDictionaries([]byte("brands:\n  comida: [\"McDonald's\", Starbucks]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mcdonald s", "starbucks"}, d.Brands["comida"])

	_, err = LoadDictionaries([]byte("brands: ["))
	assert.Error(t, err)

	def := defaultDictionaries()
	assert.Contains(t, def.Brands["comida"], "mcdonalds")
}
