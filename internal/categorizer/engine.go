// Package categorizer maps an expense description to a category label by
// weighted rule scoring over a cached category directory.
//
// Categorize never fails: any storage error or internal fault degrades to the
// fallback category "other".
package categorizer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
	"gastos/internal/textnorm"
)

const (
	directoryKey = "directory"

	DefaultCacheTTL       = 5 * time.Minute
	DefaultStorageTimeout = 3 * time.Second

	historyWindow = 90 * 24 * time.Hour
)

// Engine is safe for concurrent use.
type Engine struct {
	categories ports.CategoryReader
	history    ports.TransactionReader
	candidates ports.KeywordCandidateWriter

	cache      *cache.LRUCache[[]entry]
	cacheTTL   time.Duration
	group      singleflight.Group
	generation atomic.Uint64

	dict    Dictionaries
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistory enables user-history similarity scoring and keyword learning.
func WithHistory(r ports.TransactionReader) Option {
	return func(e *Engine) { e.history = r }
}

// WithCandidateWriter sets where learned keyword candidates are recorded.
func WithCandidateWriter(w ports.KeywordCandidateWriter) Option {
	return func(e *Engine) { e.candidates = w }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.cacheTTL = ttl }
}

func WithDictionaries(d Dictionaries) Option {
	return func(e *Engine) { e.dict = d }
}

func WithStorageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent(log.ComponentCategorizer) }
}

// New creates an engine reading the category directory from categories.
func New(categories ports.CategoryReader, opts ...Option) *Engine {
	e := &Engine{
		categories: categories,
		cacheTTL:   DefaultCacheTTL,
		dict:       defaultDictionaries(),
		timeout:    DefaultStorageTimeout,
		now:        time.Now,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentCategorizer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = cache.NewLRUCache[[]entry](1, e.cacheTTL, cache.WithClock(e.now))
	return e
}

// Cache exposes the directory cache so it can be registered for cleanup.
func (e *Engine) Cache() cache.Cleaner {
	return e.cache
}

// Categorize returns the best category for description, or "other".
// userID may be empty, in which case history scoring and learning are skipped.
func (e *Engine) Categorize(ctx context.Context, description, userID string) (category string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "Categorization panicked, using fallback",
				log.FieldOperation, log.OpCategorize,
				log.FieldUserID, userID,
				log.FieldError, fmt.Sprint(r))
			category = core.OtherCategory
		}
	}()

	normalized := textnorm.Description(description)
	if normalized == "" {
		return core.OtherCategory
	}

	directory, err := e.directory(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Category directory unavailable, using fallback",
			log.FieldOperation, log.OpCategorize,
			log.FieldUserID, userID,
			log.FieldError, err)
		return core.OtherCategory
	}

	var history map[string][]historyEntry
	if userID != "" && e.history != nil {
		history, err = e.userHistory(ctx, userID)
		if err != nil {
			e.logger.WarnContext(ctx, "User history unavailable, using fallback",
				log.FieldOperation, log.OpCategorize,
				log.FieldUserID, userID,
				log.FieldError, err)
			return core.OtherCategory
		}
	}

	scores := scoreAll(normalized, directory, &e.dict, history)
	category, score := selectCategory(directory, scores)

	e.logger.DebugContext(ctx, "Description categorized",
		log.FieldUserID, userID,
		log.FieldDescription, normalized,
		log.FieldCategory, category,
		log.FieldScore, score)

	if category != core.OtherCategory && userID != "" {
		e.learn(ctx, userID, category, normalized, directory)
	}
	return category
}

// Invalidate drops the cached directory. Call it after any keyword update.
func (e *Engine) Invalidate() {
	e.generation.Add(1)
	e.group.Forget(directoryKey)
	e.cache.Delete(directoryKey)
	e.logger.Debug("Category directory invalidated", log.FieldOperation, log.OpInvalidate)
}

// directory is a read-through over the TTL cache. Concurrent misses share a
// single storage read.
func (e *Engine) directory(ctx context.Context) ([]entry, error) {
	if d, ok := e.cache.Get(directoryKey); ok {
		return d, nil
	}

	v, err, _ := e.group.Do(directoryKey, func() (any, error) {
		gen := e.generation.Load()

		sctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		categories, err := e.categories.ListCategories(sctx)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		d := buildDirectory(categories)
		// An invalidation during the read means this result may be stale.
		if e.generation.Load() == gen {
			e.cache.Set(directoryKey, d)
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entry), nil
}

func (e *Engine) userHistory(ctx context.Context, userID string) (map[string][]historyEntry, error) {
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	now := e.now()
	txs, err := e.history.QueryTransactions(sctx, userID, ports.TransactionFilter{
		Since: now.Add(-historyWindow),
		Until: now,
	})
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return groupHistory(txs), nil
}
