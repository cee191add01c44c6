package postgres

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
    base_price_cents          BIGINT NOT NULL DEFAULT 0,
    base_price_currency       TEXT NOT NULL DEFAULT 'usd',
    capabilities              JSONB NOT NULL DEFAULT '[]',
    response_rate_30d         DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_bookings            BIGINT NOT NULL DEFAULT 0,
    days_since_join           INT NOT NULL DEFAULT 0,
    is_priority_partner       BOOLEAN NOT NULL DEFAULT FALSE,
    ground_transport_included BOOLEAN NOT NULL DEFAULT FALSE,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    equipment            JSONB NOT NULL DEFAULT '[]',
    urgency              TEXT NOT NULL DEFAULT 'standard',
    international        BOOLEAN NOT NULL DEFAULT FALSE,
    subscriber           BOOLEAN NOT NULL DEFAULT FALSE,
    training             BOOLEAN NOT NULL DEFAULT FALSE,
    state                TEXT NOT NULL DEFAULT 'open',
    expires_at           TIMESTAMPTZ NOT NULL,
    visible_count        INT NOT NULL DEFAULT 0,
    selected_quote_id    TEXT NOT NULL DEFAULT '',
    selected_provider_id TEXT NOT NULL DEFAULT '',
    selected_at          TIMESTAMPTZ,
    booking_id           TEXT NOT NULL DEFAULT '',
    deposit_ref          TEXT NOT NULL DEFAULT '',
    consent_at           TIMESTAMPTZ,
    booked_at            TIMESTAMPTZ,
    cancelled_at         TIMESTAMPTZ,
    cancel_note          TEXT NOT NULL DEFAULT '',
    quotes               JSONB NOT NULL DEFAULT '[]',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_medquote_requests_requester ON medquote_requests (requester_ref, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_medquote_requests_open_expiry ON medquote_requests (expires_at) WHERE state = 'open';
CREATE INDEX IF NOT EXISTS idx_medquote_requests_training ON medquote_requests (requester_ref) WHERE training;
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
    base_amount_cents        BIGINT NOT NULL DEFAULT 0,
    effective_rate           BIGINT NOT NULL DEFAULT 0,
    commission_cents         BIGINT NOT NULL DEFAULT 0,
    recoup_applied_cents     BIGINT NOT NULL DEFAULT 0,
    recoup_total_after_cents BIGINT NOT NULL DEFAULT 0,
    seq                      BIGINT NOT NULL DEFAULT 0,
    is_dummy                 BOOLEAN NOT NULL DEFAULT FALSE,
    invoice_week             TEXT NOT NULL,
    completed_at             TIMESTAMPTZ NOT NULL,
    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    lines          JSONB NOT NULL DEFAULT '[]',
    total_cents    BIGINT NOT NULL DEFAULT 0,
    total_currency TEXT NOT NULL DEFAULT 'usd',
    status         TEXT NOT NULL DEFAULT 'issued',
    issued_at      TIMESTAMPTZ NOT NULL,
    due_at         TIMESTAMPTZ NOT NULL,
    paid_at        TIMESTAMPTZ,
    remittance_ref TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
				_, err := exec.Exec(ctx, `ALTER TABLE medquote_invoices ADD COLUMN IF NOT EXISTS payment_method TEXT NOT NULL DEFAULT ''`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `ALTER TABLE medquote_invoices DROP COLUMN IF EXISTS payment_method`)
				return err
			},
		},
	)
}
