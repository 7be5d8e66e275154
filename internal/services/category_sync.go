package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gastos/internal/log"
)

// CategorySyncConfig holds configuration for the category sync processor
type CategorySyncConfig struct {
	// PollInterval is how often the external directory is copied (default: 1h)
	PollInterval time.Duration
}

// DefaultCategorySyncConfig returns sensible defaults
func DefaultCategorySyncConfig() CategorySyncConfig {
	return CategorySyncConfig{PollInterval: time.Hour}
}

// Syncer copies an external category directory into local storage.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// CategorySyncProcessor periodically refreshes the category directory from
// its external source.
type CategorySyncProcessor struct {
	syncer Syncer
	config CategorySyncConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewCategorySyncProcessor(syncer Syncer, config CategorySyncConfig, logger *log.Logger) *CategorySyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultCategorySyncConfig().PollInterval
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CategorySyncProcessor{
		syncer: syncer,
		config: config,
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

// Start syncs once immediately and then on every tick. Returns an error if
// already running.
func (p *CategorySyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("category sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Category sync processor started",
		"poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *CategorySyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Category sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Category sync processor stop timed out")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *CategorySyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop exits on Stop or when ctx ends. Either way the processor is marked
// stopped before done is closed.
func (p *CategorySyncProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		if p.doneCh == done {
			p.running = false
		}
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.syncOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncOnce(ctx)
		}
	}
}

func (p *CategorySyncProcessor) syncOnce(ctx context.Context) {
	start := time.Now()
	n, err := p.syncer.Sync(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Category sync failed", log.FieldError, err)
		return
	}
	p.logger.DebugContext(ctx, "Category sync finished",
		log.FieldCount, n,
		log.FieldDuration, time.Since(start).Milliseconds())
}
