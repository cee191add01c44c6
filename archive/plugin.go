package archive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path"

	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin          = (*Plugin)(nil)
	_ plugin.Async           = (*Plugin)(nil)
	_ plugin.OnInvoiceIssued = (*Plugin)(nil)
	_ plugin.OnInvoicePaid   = (*Plugin)(nil)
)

// Plugin archives invoice artifacts when invoices are issued or paid.
type Plugin struct {
	sink   Sink
	remit  invoice.Remittance
	logger *slog.Logger
}

// Option configures the archive Plugin.
type Option func(*Plugin)

// WithRemittance sets the payee details printed on documents.
func WithRemittance(r invoice.Remittance) Option {
	return func(p *Plugin) { p.remit = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

// New creates an archive plugin writing to sink.
func New(sink Sink, opts ...Option) *Plugin {
	p := &Plugin{
		sink:   sink,
		remit:  invoice.DefaultRemittance,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "invoice-archive" }

// RunAsync implements plugin.Async. Uploads never hold up invoice generation.
func (p *Plugin) RunAsync() bool { return true }

// OnInvoiceIssued implements plugin.OnInvoiceIssued.
func (p *Plugin) OnInvoiceIssued(ctx context.Context, inv *invoice.Invoice) error {
	return p.Archive(ctx, inv)
}

// OnInvoicePaid implements plugin.OnInvoicePaid. The document is rewritten
// so the archived copy shows the paid status.
func (p *Plugin) OnInvoicePaid(ctx context.Context, inv *invoice.Invoice) error {
	return p.putDocument(ctx, inv)
}

// Archive writes both artifacts for inv. Both are attempted even when the
// first fails.
func (p *Plugin) Archive(ctx context.Context, inv *invoice.Invoice) error {
	var csvBuf bytes.Buffer
	err := invoice.WriteLineItems(&csvBuf, inv)
	if err == nil {
		err = p.sink.Put(ctx, Key(inv, "csv"), invoice.ContentTypeCSV, &csvBuf)
	}
	err = errors.Join(err, p.putDocument(ctx, inv))
	if err != nil {
		p.logger.Warn("invoice archive failed",
			"invoice_id", inv.ID.String(),
			"provider_id", inv.ProviderID.String(),
			"error", err,
		)
		return err
	}

	p.logger.Debug("invoice archived",
		"invoice_id", inv.ID.String(),
		"week", inv.Week.String(),
	)
	return nil
}

func (p *Plugin) putDocument(ctx context.Context, inv *invoice.Invoice) error {
	var htmlBuf bytes.Buffer
	if err := invoice.Document(inv, p.remit).Render(ctx, &htmlBuf); err != nil {
		return err
	}
	return p.sink.Put(ctx, Key(inv, "html"), invoice.ContentTypeHTML, &htmlBuf)
}

// Key returns the object key for an artifact of inv:
// "<provider>/<week>/<number>.<ext>".
func Key(inv *invoice.Invoice, ext string) string {
	return path.Join(inv.ProviderID.String(), inv.Week.String(), invoice.Filename(inv, ext))
}
