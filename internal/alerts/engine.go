// Package alerts evaluates budget, category anomaly and spending pattern
// detectors for a candidate expense.
//
// Evaluation is best effort: a failing detector contributes nothing and a
// failed configuration lookup yields no alerts. Alerts whose scope key fired
// for the same user within the suppression window are dropped.
package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
)

const DefaultStorageTimeout = 3 * time.Second

// request is the input shared by every detector.
type request struct {
	userID   string
	amount   float64
	category string
	cfg      core.UserBudgetConfig
	now      time.Time
}

type detector struct {
	name string
	run  func(ctx context.Context, r request) ([]core.Alert, error)
}

// Engine is safe for concurrent use. Its only mutable state is the suppressor.
type Engine struct {
	configs    ports.UserConfigReader
	history    ports.TransactionReader
	suppressor *Suppressor
	window     time.Duration
	timeout    time.Duration
	now        func() time.Time
	logger     *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSuppressionWindow sets how long a fired scope key stays muted.
func WithSuppressionWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// WithSuppressor replaces the in-memory suppressor, e.g. with a shared one.
func WithSuppressor(s *Suppressor) Option {
	return func(e *Engine) { e.suppressor = s }
}

func WithStorageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent(log.ComponentAlerts) }
}

// New creates an alert engine over the given storage contracts.
func New(configs ports.UserConfigReader, history ports.TransactionReader, opts ...Option) *Engine {
	e := &Engine{
		configs: configs,
		history: history,
		window:  DefaultSuppressionWindow,
		timeout: DefaultStorageTimeout,
		now:     time.Now,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentAlerts),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.suppressor == nil {
		e.suppressor = NewSuppressor(e.window, e.now)
	}
	return e
}

// Suppressor exposes the suppression state.
func (e *Engine) Suppressor() *Suppressor {
	return e.suppressor
}

// Evaluate runs every detector for a candidate expense and returns the
// alerts that survive suppression, highest priority first. category may be
// empty, in which case the category detector is skipped.
func (e *Engine) Evaluate(ctx context.Context, userID string, amount float64, category string) []core.Alert {
	now := e.now()
	if pruned := e.suppressor.Prune(); pruned > 0 {
		e.logger.DebugContext(ctx, "Suppression entries pruned", log.FieldCount, pruned)
	}

	cfg, err := e.userConfig(ctx, userID)
	if err != nil {
		e.logger.WarnContext(ctx, "Alert evaluation skipped",
			log.FieldOperation, log.OpEvaluate,
			log.FieldUserID, userID,
			log.FieldError, err)
		return []core.Alert{}
	}

	req := request{userID: userID, amount: amount, category: category, cfg: cfg, now: now}
	detectors := e.detectors()
	results := make([][]core.Alert, len(detectors))

	var g errgroup.Group
	for i, d := range detectors {
		i, d := i, d
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			alerts, err := d.run(dctx, req)
			if err != nil {
				e.logger.WarnContext(ctx, "Detector failed",
					log.FieldOperation, log.OpEvaluate,
					log.FieldUserID, userID,
					log.FieldDetector, d.name,
					log.FieldError, err)
				return nil
			}
			results[i] = alerts
			return nil
		})
	}
	_ = g.Wait() // detectors never return errors

	var candidates []core.Alert
	for _, r := range results {
		candidates = append(candidates, r...)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	out := make([]core.Alert, 0, len(candidates))
	for _, a := range candidates {
		if !e.suppressor.Allow(userID, a.ScopeKey) {
			e.logger.DebugContext(ctx, "Alert suppressed",
				log.FieldUserID, userID,
				log.FieldScopeKey, a.ScopeKey)
			continue
		}
		out = append(out, a)
	}

	if len(out) > 0 {
		e.logger.InfoContext(ctx, "Alerts raised",
			log.FieldUserID, userID,
			log.FieldAmount, amount,
			log.FieldCategory, category,
			log.FieldCount, len(out))
	}
	return out
}

func (e *Engine) detectors() []detector {
	return []detector{
		{name: "budget", run: e.detectBudget},
		{name: "category", run: e.detectCategory},
		{name: "pattern", run: e.detectPattern},
	}
}

func (e *Engine) userConfig(ctx context.Context, userID string) (core.UserBudgetConfig, error) {
	if userID == "" {
		return core.UserBudgetConfig{}, core.ErrEmptyUser
	}
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cfg, err := e.configs.GetUserConfig(cctx, userID)
	if err != nil {
		return core.UserBudgetConfig{}, fmt.Errorf("get user config: %w", err)
	}
	return cfg, nil
}

func (e *Engine) query(ctx context.Context, userID, category string, window time.Duration, now time.Time) ([]core.Transaction, error) {
	txs, err := e.history.QueryTransactions(ctx, userID, ports.TransactionFilter{
		Category: category,
		Since:    now.Add(-window),
		Until:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return txs, nil
}

func sum(txs []core.Transaction) float64 {
	total := 0.0
	for _, tx := range txs {
		total += tx.Amount
	}
	return total
}
