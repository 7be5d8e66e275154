package services

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
)

type (
	// CategoryStore is the storage surface category maintenance needs.
	CategoryStore interface {
		ports.CategoryReader
		ports.KeywordCandidateReader
		ports.CategoryKeywordUpdater
		ports.CategorySyncer
	}

	// CacheInvalidator drops a cached category directory.
	CacheInvalidator interface {
		Invalidate()
	}

	// KeywordEventPublisher tells other processes that keywords changed.
	KeywordEventPublisher interface {
		PublishCategoryKeywordsUpdated(ctx context.Context, category string, keywords []string) error
	}
)

// CategoryService applies operator-driven changes to the category directory
// and makes sure every cached copy is dropped afterwards.
type CategoryService struct {
	store       CategoryStore
	source      ports.CategoryReader
	invalidator CacheInvalidator
	events      KeywordEventPublisher
	logger      *log.Logger
}

// CategoryOption configures a CategoryService.
type CategoryOption func(*CategoryService)

// WithCategorySource sets the external directory Sync copies from.
func WithCategorySource(src ports.CategoryReader) CategoryOption {
	return func(s *CategoryService) { s.source = src }
}

// WithInvalidator drops the local categorizer cache after each change.
func WithInvalidator(inv CacheInvalidator) CategoryOption {
	return func(s *CategoryService) { s.invalidator = inv }
}

// WithKeywordEvents announces changes to other processes.
func WithKeywordEvents(p KeywordEventPublisher) CategoryOption {
	return func(s *CategoryService) { s.events = p }
}

// WithCategoryLogger sets the service logger.
func WithCategoryLogger(l *log.Logger) CategoryOption {
	return func(s *CategoryService) { s.logger = l.WithComponent(log.ComponentCategorizer) }
}

func NewCategoryService(store CategoryStore, opts ...CategoryOption) *CategoryService {
	s := &CategoryService{
		store:  store,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentCategorizer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current directory.
func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// Candidates returns the learned keyword candidates for category, or for
// every category when it is empty.
func (s *CategoryService) Candidates(ctx context.Context, category string) ([]core.KeywordCandidateSummary, error) {
	return s.store.ListKeywordCandidates(ctx, category)
}

// Promote adds token to category's keywords.
func (s *CategoryService) Promote(ctx context.Context, category, token string) error {
	if err := s.store.PromoteKeyword(ctx, category, token); err != nil {
		return fmt.Errorf("promote keyword: %w", err)
	}
	s.changed(ctx, category, nil)
	return nil
}

// SetKeywords replaces category's keywords.
func (s *CategoryService) SetKeywords(ctx context.Context, category string, keywords []string) error {
	if err := s.store.UpdateCategoryKeywords(ctx, category, keywords); err != nil {
		return fmt.Errorf("update keywords: %w", err)
	}
	s.changed(ctx, category, keywords)
	return nil
}

// Sync copies the external directory into the store.
func (s *CategoryService) Sync(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("sync categories: no category source configured")
	}
	categories, err := s.source.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("load categories: %w", err)
	}
	n, err := s.store.SyncCategories(ctx, categories)
	if err != nil {
		return 0, fmt.Errorf("store categories: %w", err)
	}
	s.logger.InfoContext(ctx, "Categories synced", log.FieldCount, n)
	s.changed(ctx, "", nil)
	return n, nil
}

func (s *CategoryService) changed(ctx context.Context, category string, keywords []string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
	if s.events == nil {
		return
	}
	if err := s.events.PublishCategoryKeywordsUpdated(ctx, category, keywords); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish keyword update",
			log.FieldOperation, log.OpPublish,
			log.FieldCategory, category,
			log.FieldError, err)
	}
}
