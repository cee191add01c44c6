package medquote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/medquote/allocator"
	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/plugin"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/store"
)

// Defaults for training mode.
const (
	DefaultTrainingLimit     = 50
	DefaultTrainingRetention = 7 * 24 * time.Hour
)

// Engine is the quote allocation and commission engine.
type Engine struct {
	store     store.Store
	plugins   *plugin.Registry
	logger    *slog.Logger
	allocator *allocator.Allocator
	clock     func() time.Time

	// Allocation
	allocConfig  allocator.Config
	drawer       allocator.Drawer
	quoteTTL     time.Duration
	visibleCount int
	visibleStep  int

	// Ledger
	policy        commission.Policy
	recoupRetries int
	locks         keyedMutex

	// Invoicing
	closedWeeksOnly bool

	// Training mode
	trainingLimit     int
	trainingRetention time.Duration

	skipMigrate bool

	// Background workers
	expirySweep     time.Duration
	invoiceInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// New creates a new Engine backed by s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		clock:             time.Now,
		allocConfig:       allocator.DefaultConfig(),
		quoteTTL:          quote.DefaultTTL,
		visibleCount:      quote.DefaultVisibleCount,
		visibleStep:       quote.DefaultVisibleStep,
		policy:            commission.DefaultPolicy(),
		recoupRetries:     5,
		trainingLimit:     DefaultTrainingLimit,
		trainingRetention: DefaultTrainingRetention,
		stopChan:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.allocator = allocator.New(e.allocConfig, e.drawer)
	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithAllocatorConfig replaces the pricing and partition parameters.
func WithAllocatorConfig(cfg allocator.Config) Option {
	return func(e *Engine) { e.allocConfig = cfg }
}

// WithDrawer sets the response simulator. The default is a clock-seeded
// allocator.RandomDrawer.
func WithDrawer(d allocator.Drawer) Option {
	return func(e *Engine) { e.drawer = d }
}

// WithQuoteTTL sets how long a request stays open.
func WithQuoteTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.quoteTTL = ttl }
}

// WithVisibility sets the initial visible count and the show-more step.
func WithVisibility(initial, step int) Option {
	return func(e *Engine) {
		e.visibleCount = initial
		e.visibleStep = step
	}
}

// WithCommissionPolicy replaces the commission schedule.
func WithCommissionPolicy(p commission.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithRecoupRetries bounds how often RecordCompletion retries after losing
// a concurrent balance update.
func WithRecoupRetries(n int) Option {
	return func(e *Engine) { e.recoupRetries = max(n, 1) }
}

// WithClosedWeeksOnly restricts invoice generation to weeks that have ended.
func WithClosedWeeksOnly() Option {
	return func(e *Engine) { e.closedWeeksOnly = true }
}

// WithTraining sets the per-requester training request cap and how long
// training data is kept before PurgeTraining removes it.
func WithTraining(limit int, retention time.Duration) Option {
	return func(e *Engine) {
		e.trainingLimit = limit
		e.trainingRetention = retention
	}
}

// WithExpirySweep enables a background sweep that expires stale open
// requests every interval. Reads expire lazily regardless.
func WithExpirySweep(interval time.Duration) Option {
	return func(e *Engine) { e.expirySweep = interval }
}

// WithInvoiceSchedule enables periodic invoice generation. Scheduled runs
// only bill closed weeks, whatever WithClosedWeeksOnly says.
func WithInvoiceSchedule(interval time.Duration) Option {
	return func(e *Engine) { e.invoiceInterval = interval }
}

// WithoutMigrate makes Start skip store migrations.
func WithoutMigrate() Option {
	return func(e *Engine) { e.skipMigrate = true }
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Policy returns the commission schedule in effect.
func (e *Engine) Policy() commission.Policy { return e.policy }

// Start migrates the store and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	if e.expirySweep > 0 {
		e.wg.Add(1)
		go e.runEvery(ctx, "expiry sweep", e.expirySweep, func(ctx context.Context) error {
			_, err := e.ExpireDue(ctx)
			return err
		})
	}
	if e.invoiceInterval > 0 {
		e.wg.Add(1)
		go e.runEvery(ctx, "invoice generation", e.invoiceInterval, func(ctx context.Context) error {
			_, err := e.generateInvoices(ctx, true)
			return err
		})
	}

	e.logger.Info("medquote started",
		"quote_ttl", e.quoteTTL,
		"expiry_sweep", e.expirySweep,
		"invoice_interval", e.invoiceInterval,
		"closed_weeks_only", e.closedWeeksOnly,
	)
	return nil
}

// Stop waits for workers and background plugin calls, then closes the store.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
	e.plugins.Wait()

	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// runEvery calls fn on every tick until Stop or ctx cancellation.
func (e *Engine) runEvery(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				e.logger.Error("background "+name+" failed", "error", err)
			}
		}
	}
}

func (e *Engine) now() time.Time { return e.clock().UTC() }

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
