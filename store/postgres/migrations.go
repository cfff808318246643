package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migration is one forward-only schema step. Versions sort lexically.
type migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations is the ordered schema history of the store.
var Migrations = []migration{
	{
		Name:    "create_salesdoc_estimates",
		Version: "20240101000001",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_estimates (
    id             TEXT PRIMARY KEY,
    number         TEXT NOT NULL UNIQUE,
    contact_id     TEXT NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'draft',
    line_items     JSONB NOT NULL DEFAULT '[]',
    subtotal       BIGINT NOT NULL DEFAULT 0,
    tax            BIGINT NOT NULL DEFAULT 0,
    discount       BIGINT NOT NULL DEFAULT 0,
    total          BIGINT NOT NULL DEFAULT 0,
    valid_until    TIMESTAMPTZ,
    terms          TEXT NOT NULL DEFAULT '',
    notes          TEXT NOT NULL DEFAULT '',
    customer_notes TEXT NOT NULL DEFAULT '',
    sent_at        TIMESTAMPTZ,
    viewed_at      TIMESTAMPTZ,
    approved_at    TIMESTAMPTZ,
    rejected_at    TIMESTAMPTZ,
    converted_at   TIMESTAMPTZ,
    cancelled_at   TIMESTAMPTZ,
    created_by     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version        BIGINT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_salesdoc_estimates_contact ON salesdoc_estimates (contact_id, status);
`,
	},
	{
		Name:    "create_salesdoc_contracts",
		Version: "20240101000002",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_contracts (
    id                 TEXT PRIMARY KEY,
    number             TEXT NOT NULL UNIQUE,
    contact_id         TEXT NOT NULL,
    estimate_id        TEXT REFERENCES salesdoc_estimates (id),
    title              TEXT NOT NULL DEFAULT '',
    description        TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL DEFAULT 'draft',
    line_items         JSONB NOT NULL DEFAULT '[]',
    subtotal           BIGINT NOT NULL DEFAULT 0,
    tax                BIGINT NOT NULL DEFAULT 0,
    discount           BIGINT NOT NULL DEFAULT 0,
    total              BIGINT NOT NULL DEFAULT 0,
    start_date         TIMESTAMPTZ,
    end_date           TIMESTAMPTZ,
    payment_terms      TEXT NOT NULL DEFAULT '',
    payment_schedule   JSONB NOT NULL DEFAULT '[]',
    body               TEXT NOT NULL DEFAULT '',
    customer_signature TEXT NOT NULL DEFAULT '',
    customer_signed_at TIMESTAMPTZ,
    company_signature  TEXT NOT NULL DEFAULT '',
    company_signed_at  TIMESTAMPTZ,
    sent_at            TIMESTAMPTZ,
    viewed_at          TIMESTAMPTZ,
    signed_at          TIMESTAMPTZ,
    cancelled_at       TIMESTAMPTZ,
    created_by         TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version            BIGINT NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_salesdoc_contracts_estimate ON salesdoc_contracts (estimate_id) WHERE estimate_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_salesdoc_contracts_contact ON salesdoc_contracts (contact_id, status);
`,
	},
	{
		Name:    "create_salesdoc_invoices",
		Version: "20240101000003",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_invoices (
    id            TEXT PRIMARY KEY,
    number        TEXT NOT NULL UNIQUE,
    contact_id    TEXT NOT NULL,
    contract_id   TEXT REFERENCES salesdoc_contracts (id),
    installment   INT,
    title         TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'draft',
    line_items    JSONB NOT NULL DEFAULT '[]',
    subtotal      BIGINT NOT NULL DEFAULT 0,
    tax           BIGINT NOT NULL DEFAULT 0,
    discount      BIGINT NOT NULL DEFAULT 0,
    total         BIGINT NOT NULL DEFAULT 0,
    due_date      TIMESTAMPTZ,
    payment_terms TEXT NOT NULL DEFAULT '',
    notes         TEXT NOT NULL DEFAULT '',
    sent_at       TIMESTAMPTZ,
    viewed_at     TIMESTAMPTZ,
    paid_at       TIMESTAMPTZ,
    cancelled_at  TIMESTAMPTZ,
    created_by    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version       BIGINT NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_salesdoc_invoices_installment ON salesdoc_invoices (contract_id, installment)
    WHERE installment IS NOT NULL AND status <> 'cancelled';
CREATE INDEX IF NOT EXISTS idx_salesdoc_invoices_contact ON salesdoc_invoices (contact_id, status);
CREATE INDEX IF NOT EXISTS idx_salesdoc_invoices_contract ON salesdoc_invoices (contract_id);
CREATE INDEX IF NOT EXISTS idx_salesdoc_invoices_due ON salesdoc_invoices (due_date) WHERE due_date IS NOT NULL;
`,
	},
	{
		Name:    "create_salesdoc_payments",
		Version: "20240101000004",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_payments (
    seq         BIGINT GENERATED ALWAYS AS IDENTITY,
    id          TEXT PRIMARY KEY,
    invoice_id  TEXT NOT NULL REFERENCES salesdoc_invoices (id),
    contact_id  TEXT NOT NULL DEFAULT '',
    amount      BIGINT NOT NULL,
    method      TEXT NOT NULL,
    reference   TEXT NOT NULL DEFAULT '',
    notes       TEXT NOT NULL DEFAULT '',
    reverses    TEXT UNIQUE REFERENCES salesdoc_payments (id),
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    recorded_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_salesdoc_payments_invoice ON salesdoc_payments (invoice_id, seq);
`,
	},
	{
		Name:    "create_salesdoc_audit",
		Version: "20240101000005",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_audit (
    seq         BIGINT GENERATED ALWAYS AS IDENTITY,
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    operation   TEXT NOT NULL,
    actor_id    TEXT NOT NULL DEFAULT '',
    actor_role  TEXT NOT NULL DEFAULT '',
    from_status TEXT NOT NULL DEFAULT '',
    to_status   TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_salesdoc_audit_document ON salesdoc_audit (document_id, seq);
`,
	},
	{
		Name:    "create_salesdoc_sequences",
		Version: "20240101000006",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_sequences (
    key   TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);
`,
	},
}

// migrate applies every migration not yet recorded in salesdoc_migrations.
// Each step runs in its own transaction together with its bookkeeping row.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS salesdoc_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT version FROM salesdoc_migrations`)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range Migrations {
		if done[m.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO salesdoc_migrations (version, name) VALUES ($1, $2)`,
				m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		s.logger.Info("applied migration", "name", m.Name, "version", m.Version)
	}
	return nil
}
