// Package medquote is the quote allocation and commission engine behind a
// medical air-transport booking site.
//
// It is a library, not a service: import it, give it a store, and call the
// engine from your own handlers. It covers three jobs:
//
//   - Fan a transport request out to eligible providers and rank the
//     quotes fairly, so reliable responders are shown first
//   - Charge a tiered commission on every completed booking while tracking
//     each provider's recoup balance
//   - Consolidate the week's commissions into one invoice per provider
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/medquote"
//	    "github.com/xraph/medquote/store/memory"
//	)
//
//	engine := medquote.New(memory.New())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Quote Lifecycle
//
// A request moves Open -> Selected -> Booked, or ends Expired (24 hours
// after creation) or Cancelled. Allocation runs once:
//
//	view, err := engine.Allocate(ctx, medquote.Submission{
//	    RequesterRef: "family-123",
//	    Origin:       "KMIA",
//	    Destination:  "KBOS",
//	    Equipment:    []provider.Equipment{provider.EquipmentVentilator},
//	    Urgency:      quote.UrgencyCritical,
//	})
//
//	view, err = engine.Select(ctx, view.RequestID, view.Quotes[0].ID)
//	req, err := engine.Confirm(ctx, view.RequestID, medquote.Confirmation{ConsentAt: time.Now()})
//
// Only one Select can win per request. Expiry is applied lazily on every
// read, so no background job is required.
//
// # Commission
//
// A provider pays 4% per booking, 1% of which counts toward a recoup
// balance. Once 25,000 USD has been recouped the rate becomes 5%:
//
//	res, err := engine.CompleteBooking(ctx, req.ID)
//	if res.Duplicate {
//	    // already recorded
//	}
//
// # Invoices
//
// GenerateInvoices bills each (provider, week) exactly once. Weeks run
// Sunday through Saturday. Invoices export as CSV (invoice.WriteLineItems)
// or as an HTML document (invoice.Document).
//
// # Configuration
//
// The config package loads settings from YAML and MEDQUOTE_* environment
// variables and converts them to engine options:
//
//	cfg, err := config.Load("medquote.yaml")
//	engine := medquote.New(store, cfg.EngineOptions()...)
//
// Forge applications can use the extension package instead.
//
// # Plugins
//
// Plugins observe engine events by implementing hook interfaces from the
// plugin package. See audit_hook, observability, notify and archive.
package medquote
