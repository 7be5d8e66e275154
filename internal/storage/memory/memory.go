// Package memory is a process-local implementation of the storage contracts,
// used by the CLI, tests and single-process deployments without SQLite.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"gastos/internal/core"
	"gastos/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu         sync.Mutex
	categories map[string][]string
	configs    map[string]core.UserBudgetConfig
	items      []core.Transaction
	candidates []core.KeywordCandidate
	nextID     int64
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for lazy defaults and missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store seeded with categories. The fallback category is
// always present.
func New(categories []core.Category, opts ...Option) *Store {
	s := &Store{
		categories: map[string][]string{core.OtherCategory: nil},
		configs:    make(map[string]core.UserBudgetConfig),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range categories {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		keywords, err := core.NormalizeKeywords(c.Keywords)
		if err != nil || name == core.OtherCategory {
			keywords = nil
		}
		s.categories[name] = keywords
	}
	return s
}

// NewFromFile seeds categories from a YAML file:
//
//	categories:
//	  - name: comida
//	    keywords: [tacos, pizza]
//
// A missing, empty or unreadable file falls back to DefaultCategories.
func NewFromFile(path string, opts ...Option) *Store {
	categories := readCategories(path)
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return New(categories, opts...)
}

// ListCategories returns categories ordered by name.
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.categories))
	for name := range s.categories {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]core.Category, len(names))
	for i, name := range names {
		out[i] = core.Category{Name: name, Keywords: append([]string(nil), s.categories[name]...)}
	}
	return out, nil
}

// GetUserConfig returns the user's config, creating defaults on first access.
func (s *Store) GetUserConfig(_ context.Context, userID string) (core.UserBudgetConfig, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserBudgetConfig{}, core.ErrEmptyUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[userID]
	if !ok {
		cfg = core.DefaultUserConfig(userID)
		s.configs[userID] = cfg
	}
	cfg.AlertThresholds = append([]int(nil), cfg.AlertThresholds...)
	return cfg, nil
}

func (s *Store) UpdateUserConfig(_ context.Context, cfg core.UserBudgetConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.AlertThresholds) == 0 {
		cfg.AlertThresholds = core.DefaultUserConfig(cfg.UserID).AlertThresholds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.AlertThresholds = append([]int(nil), cfg.AlertThresholds...)
	s.configs[cfg.UserID] = cfg
	return nil
}

// QueryTransactions returns the user's transactions matching filter, oldest first.
func (s *Store) QueryTransactions(_ context.Context, userID string, filter ports.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.items {
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
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// SaveTransaction stores the transaction and assigns it an id. A repeated
// message segment returns the stored transaction.
func (s *Store) SaveTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[tx.Category]; !ok {
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrUnknownCategory, tx.Category)
	}
	if tx.MessageID != "" {
		for _, stored := range s.items {
			if stored.UserID == tx.UserID && stored.MessageID == tx.MessageID && stored.MessageSeq == tx.MessageSeq {
				return stored, nil
			}
		}
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = s.now()
	}
	s.nextID++
	tx.ID = s.nextID
	s.items = append(s.items, tx)
	return tx, nil
}

// MessageTransactions returns what was stored for messageID, by sequence.
func (s *Store) MessageTransactions(_ context.Context, userID, messageID string) ([]core.Transaction, error) {
	if messageID == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.items {
		if tx.UserID == userID && tx.MessageID == messageID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MessageSeq < out[j].MessageSeq })
	return out, nil
}

func (s *Store) RecordKeywordCandidate(_ context.Context, c core.KeywordCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	s.candidates = append(s.candidates, c)
	return nil
}

// ListKeywordCandidates aggregates the audit log per category and token.
func (s *Store) ListKeywordCandidates(_ context.Context, category string) ([]core.KeywordCandidateSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ category, token string }
	byKey := make(map[key]*core.KeywordCandidateSummary)
	users := make(map[key]map[string]struct{})
	for _, c := range s.candidates {
		if category != "" && c.Category != category {
			continue
		}
		k := key{c.Category, c.Token}
		sum, ok := byKey[k]
		if !ok {
			sum = &core.KeywordCandidateSummary{Category: c.Category, Token: c.Token}
			byKey[k] = sum
			users[k] = make(map[string]struct{})
		}
		sum.Observations++
		if c.Frequency > sum.MaxFrequency {
			sum.MaxFrequency = c.Frequency
		}
		if c.Timestamp.After(sum.LastSeen) {
			sum.LastSeen = c.Timestamp
		}
		users[k][c.UserID] = struct{}{}
		sum.Users = len(users[k])
	}

	out := make([]core.KeywordCandidateSummary, 0, len(byKey))
	for _, sum := range byKey {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Token < out[j].Token
	})
	return out, nil
}

func (s *Store) UpdateCategoryKeywords(_ context.Context, name string, keywords []string) error {
	if name == core.OtherCategory {
		return core.ErrReservedCategory
	}
	normalized, err := core.NormalizeKeywords(keywords)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[name]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownCategory, name)
	}
	s.categories[name] = normalized
	return nil
}

func (s *Store) PromoteKeyword(_ context.Context, category, token string) error {
	if category == core.OtherCategory {
		return core.ErrReservedCategory
	}
	normalized, err := core.NormalizeKeywords([]string{token})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keywords, ok := s.categories[category]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownCategory, category)
	}
	for _, kw := range keywords {
		if kw == normalized[0] {
			return nil
		}
	}
	s.categories[category] = append(keywords, normalized[0])
	return nil
}

// SyncCategories upserts categories and replaces their keywords.
func (s *Store) SyncCategories(_ context.Context, categories []core.Category) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	synced := 0
	for _, c := range categories {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		if name == core.OtherCategory {
			if _, ok := s.categories[name]; !ok {
				s.categories[name] = nil
			}
			continue
		}
		keywords, err := core.NormalizeKeywords(c.Keywords)
		if err != nil {
			continue
		}
		s.categories[name] = keywords
		synced++
	}
	return synced, nil
}

func (s *Store) Close() error { return nil }

type categoriesFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

func readCategories(path string) []core.Category {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil
	}

	out := make([]core.Category, 0, len(file.Categories))
	for _, c := range file.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		cat := core.Category{Name: name}
		for _, kw := range c.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				cat.Keywords = append(cat.Keywords, kw)
			}
		}
		out = append(out, cat)
	}
	return out
}
