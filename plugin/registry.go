package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry holds registered plugins and dispatches events to them.
// Hook implementations are cached per type at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	onInit               []OnInit
	onShutdown           []OnShutdown
	onProviderRegistered []OnProviderRegistered
	onQuoteReady         []OnQuoteReady
	onQuoteSelected      []OnQuoteSelected
	onQuoteExpired       []OnQuoteExpired
	onQuoteCancelled     []OnQuoteCancelled
	onBookingConfirmed   []OnBookingConfirmed
	onCommissionRecorded []OnCommissionRecorded
	onInvoiceIssued      []OnInvoiceIssued
	onInvoicePaid        []OnInvoicePaid
	onInvoiceRun         []OnInvoiceRun
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)

	var hooks []string

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnProviderRegistered); ok {
		r.onProviderRegistered = append(r.onProviderRegistered, v)
		hooks = append(hooks, "OnProviderRegistered")
	}
	if v, ok := p.(OnQuoteReady); ok {
		r.onQuoteReady = append(r.onQuoteReady, v)
		hooks = append(hooks, "OnQuoteReady")
	}
	if v, ok := p.(OnQuoteSelected); ok {
		r.onQuoteSelected = append(r.onQuoteSelected, v)
		hooks = append(hooks, "OnQuoteSelected")
	}
	if v, ok := p.(OnQuoteExpired); ok {
		r.onQuoteExpired = append(r.onQuoteExpired, v)
		hooks = append(hooks, "OnQuoteExpired")
	}
	if v, ok := p.(OnQuoteCancelled); ok {
		r.onQuoteCancelled = append(r.onQuoteCancelled, v)
		hooks = append(hooks, "OnQuoteCancelled")
	}
	if v, ok := p.(OnBookingConfirmed); ok {
		r.onBookingConfirmed = append(r.onBookingConfirmed, v)
		hooks = append(hooks, "OnBookingConfirmed")
	}
	if v, ok := p.(OnCommissionRecorded); ok {
		r.onCommissionRecorded = append(r.onCommissionRecorded, v)
		hooks = append(hooks, "OnCommissionRecorded")
	}
	if v, ok := p.(OnInvoiceIssued); ok {
		r.onInvoiceIssued = append(r.onInvoiceIssued, v)
		hooks = append(hooks, "OnInvoiceIssued")
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
		hooks = append(hooks, "OnInvoicePaid")
	}
	if v, ok := p.(OnInvoiceRun); ok {
		r.onInvoiceRun = append(r.onInvoiceRun, v)
		hooks = append(hooks, "OnInvoiceRun")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)
	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// emit calls fn for each hook in turn. Failures are logged and never
// returned; the engine's result does not depend on its plugins. Async
// plugins are started in the background and not waited for.
func emit[T Plugin](r *Registry, ctx context.Context, hook string, hooks []T, fn func(context.Context, T) error) {
	for _, p := range hooks {
		if a, ok := any(p).(Async); ok && a.RunAsync() {
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
				defer cancel()
				r.report(hook, p.Name(), fn(dctx, p))
			}()
			continue
		}
		r.report(hook, p.Name(), r.callWithTimeout(ctx, p.Name(), func() error { return fn(ctx, p) }))
	}
}

func (r *Registry) report(hook, name string, err error) {
	if err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", name,
			"error", err,
		)
	}
}

// Wait blocks until every background hook call has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(r, ctx, "OnInit", snapshot(r, &r.onInit), func(ctx context.Context, p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(r, ctx, "OnShutdown", snapshot(r, &r.onShutdown), func(ctx context.Context, p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitProviderRegistered emits a provider registered event.
func (r *Registry) EmitProviderRegistered(ctx context.Context, pr *provider.Provider) {
	emit(r, ctx, "OnProviderRegistered", snapshot(r, &r.onProviderRegistered), func(ctx context.Context, p OnProviderRegistered) error {
		return p.OnProviderRegistered(ctx, pr)
	})
}

// EmitQuoteReady emits a quote ready event.
func (r *Registry) EmitQuoteReady(ctx context.Context, req *quote.Request) {
	emit(r, ctx, "OnQuoteReady", snapshot(r, &r.onQuoteReady), func(ctx context.Context, p OnQuoteReady) error {
		return p.OnQuoteReady(ctx, req)
	})
}

// EmitQuoteSelected emits a quote selected event.
func (r *Registry) EmitQuoteSelected(ctx context.Context, req *quote.Request, q *quote.ProviderQuote) {
	emit(r, ctx, "OnQuoteSelected", snapshot(r, &r.onQuoteSelected), func(ctx context.Context, p OnQuoteSelected) error {
		return p.OnQuoteSelected(ctx, req, q)
	})
}

// EmitQuoteExpired emits a quote expired event.
func (r *Registry) EmitQuoteExpired(ctx context.Context, req *quote.Request) {
	emit(r, ctx, "OnQuoteExpired", snapshot(r, &r.onQuoteExpired), func(ctx context.Context, p OnQuoteExpired) error {
		return p.OnQuoteExpired(ctx, req)
	})
}

// EmitQuoteCancelled emits a quote cancelled event.
func (r *Registry) EmitQuoteCancelled(ctx context.Context, req *quote.Request, notify bool) {
	emit(r, ctx, "OnQuoteCancelled", snapshot(r, &r.onQuoteCancelled), func(ctx context.Context, p OnQuoteCancelled) error {
		return p.OnQuoteCancelled(ctx, req, notify)
	})
}

// EmitBookingConfirmed emits a booking confirmed event.
func (r *Registry) EmitBookingConfirmed(ctx context.Context, req *quote.Request) {
	emit(r, ctx, "OnBookingConfirmed", snapshot(r, &r.onBookingConfirmed), func(ctx context.Context, p OnBookingConfirmed) error {
		return p.OnBookingConfirmed(ctx, req)
	})
}

// EmitCommissionRecorded emits a commission recorded event.
func (r *Registry) EmitCommissionRecorded(ctx context.Context, e *commission.Entry) {
	emit(r, ctx, "OnCommissionRecorded", snapshot(r, &r.onCommissionRecorded), func(ctx context.Context, p OnCommissionRecorded) error {
		return p.OnCommissionRecorded(ctx, e)
	})
}

// EmitInvoiceIssued emits an invoice issued event.
func (r *Registry) EmitInvoiceIssued(ctx context.Context, inv *invoice.Invoice) {
	emit(r, ctx, "OnInvoiceIssued", snapshot(r, &r.onInvoiceIssued), func(ctx context.Context, p OnInvoiceIssued) error {
		return p.OnInvoiceIssued(ctx, inv)
	})
}

// EmitInvoicePaid emits an invoice paid event.
func (r *Registry) EmitInvoicePaid(ctx context.Context, inv *invoice.Invoice) {
	emit(r, ctx, "OnInvoicePaid", snapshot(r, &r.onInvoicePaid), func(ctx context.Context, p OnInvoicePaid) error {
		return p.OnInvoicePaid(ctx, inv)
	})
}

// EmitInvoiceRun emits the summary of an invoice generation run.
func (r *Registry) EmitInvoiceRun(ctx context.Context, issued int, elapsed time.Duration) {
	emit(r, ctx, "OnInvoiceRun", snapshot(r, &r.onInvoiceRun), func(ctx context.Context, p OnInvoiceRun) error {
		return p.OnInvoiceRun(ctx, issued, elapsed)
	})
}

// callWithTimeout runs fn but stops waiting after the registry timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
