package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the medquote store.
var Migrations = migrate.NewGroup("medquote")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_medquote_providers",
			Version: "20250201000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS medquote_providers (
    id                        TEXT PRIMARY KEY,
    name                      TEXT NOT NULL DEFAULT '',
    base_price_cents          INTEGER NOT NULL DEFAULT 0,
    base_price_currency       TEXT NOT NULL DEFAULT 'usd',
    capabilities              TEXT NOT NULL DEFAULT '[]',
    response_rate_30d         REAL NOT NULL DEFAULT 0,
    total_bookings            INTEGER NOT NULL DEFAULT 0,
    days_since_join           INTEGER NOT NULL DEFAULT 0,
    is_priority_partner       INTEGER NOT NULL DEFAULT 0,
    ground_transport_included INTEGER NOT NULL DEFAULT 0,
    created_at                DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at                DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_medquote_providers_priority ON medquote_providers (is_priority_partner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS medquote_providers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_medquote_requests",
			Version: "20250201000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS medquote_requests (
    id                   TEXT PRIMARY KEY,
    requester_ref        TEXT NOT NULL DEFAULT '',
    origin               TEXT NOT NULL DEFAULT '',
    destination          TEXT NOT NULL DEFAULT '',
    equipment            TEXT NOT NULL DEFAULT '[]',
    urgency              TEXT NOT NULL DEFAULT 'standard',
    international        INTEGER NOT NULL DEFAULT 0,
    subscriber           INTEGER NOT NULL DEFAULT 0,
    training             INTEGER NOT NULL DEFAULT 0,
    state                TEXT NOT NULL DEFAULT 'open',
    expires_at           DATETIME NOT NULL,
    visible_count        INTEGER NOT NULL DEFAULT 0,
    selected_quote_id    TEXT NOT NULL DEFAULT '',
    selected_provider_id TEXT NOT NULL DEFAULT '',
    selected_at          DATETIME,
    booking_id           TEXT NOT NULL DEFAULT '',
    deposit_ref          TEXT NOT NULL DEFAULT '',
    consent_at           DATETIME,
    booked_at            DATETIME,
    cancelled_at         DATETIME,
    cancel_note          TEXT NOT NULL DEFAULT '',
    quotes               TEXT NOT NULL DEFAULT '[]',
    created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_medquote_requests_requester ON medquote_requests (requester_ref, created_at);
CREATE INDEX IF NOT EXISTS idx_medquote_requests_open_expiry ON medquote_requests (expires_at) WHERE state = 'open';
CREATE INDEX IF NOT EXISTS idx_medquote_requests_training ON medquote_requests (requester_ref) WHERE training = 1;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS medquote_requests`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_medquote_entries",
			Version: "20250201000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS medquote_entries (
    id                       TEXT PRIMARY KEY,
    booking_id               TEXT NOT NULL,
    provider_id              TEXT NOT NULL,
    kind                     TEXT NOT NULL DEFAULT 'booking',
    currency                 TEXT NOT NULL DEFAULT 'usd',
    base_amount_cents        INTEGER NOT NULL DEFAULT 0,
    effective_rate           INTEGER NOT NULL DEFAULT 0,
    commission_cents         INTEGER NOT NULL DEFAULT 0,
    recoup_applied_cents     INTEGER NOT NULL DEFAULT 0,
    recoup_total_after_cents INTEGER NOT NULL DEFAULT 0,
    seq                      INTEGER NOT NULL DEFAULT 0,
    is_dummy                 INTEGER NOT NULL DEFAULT 0,
    invoice_week             TEXT NOT NULL,
    completed_at             DATETIME NOT NULL,
    created_at               DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at               DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_medquote_entries_booking ON medquote_entries (booking_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_medquote_entries_seq ON medquote_entries (provider_id, seq) WHERE seq > 0;
CREATE INDEX IF NOT EXISTS idx_medquote_entries_week ON medquote_entries (provider_id, invoice_week);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS medquote_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_medquote_invoices",
			Version: "20250201000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS medquote_invoices (
    id             TEXT PRIMARY KEY,
    number         TEXT NOT NULL DEFAULT '',
    provider_id    TEXT NOT NULL,
    provider_name  TEXT NOT NULL DEFAULT '',
    invoice_week   TEXT NOT NULL,
    lines          TEXT NOT NULL DEFAULT '[]',
    total_cents    INTEGER NOT NULL DEFAULT 0,
    total_currency TEXT NOT NULL DEFAULT 'usd',
    status         TEXT NOT NULL DEFAULT 'issued',
    issued_at      DATETIME NOT NULL,
    due_at         DATETIME NOT NULL,
    paid_at        DATETIME,
    remittance_ref TEXT NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_medquote_invoices_provider_week ON medquote_invoices (provider_id, invoice_week);
CREATE INDEX IF NOT EXISTS idx_medquote_invoices_status ON medquote_invoices (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS medquote_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "add_medquote_invoices_payment_method",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `ALTER TABLE medquote_invoices ADD COLUMN payment_method TEXT NOT NULL DEFAULT ''`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `ALTER TABLE medquote_invoices DROP COLUMN payment_method`)
				return err
			},
		},
	)
}
