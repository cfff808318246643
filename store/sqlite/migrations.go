package sqlite

import (
	"context"
	"database/sql"
	"fmt"
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
    line_items     TEXT NOT NULL DEFAULT '[]',
    subtotal       INTEGER NOT NULL DEFAULT 0,
    tax            INTEGER NOT NULL DEFAULT 0,
    discount       INTEGER NOT NULL DEFAULT 0,
    total          INTEGER NOT NULL DEFAULT 0,
    valid_until    TIMESTAMP,
    terms          TEXT NOT NULL DEFAULT '',
    notes          TEXT NOT NULL DEFAULT '',
    customer_notes TEXT NOT NULL DEFAULT '',
    sent_at        TIMESTAMP,
    viewed_at      TIMESTAMP,
    approved_at    TIMESTAMP,
    rejected_at    TIMESTAMP,
    converted_at   TIMESTAMP,
    cancelled_at   TIMESTAMP,
    created_by     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    version        INTEGER NOT NULL DEFAULT 1
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
    line_items         TEXT NOT NULL DEFAULT '[]',
    subtotal           INTEGER NOT NULL DEFAULT 0,
    tax                INTEGER NOT NULL DEFAULT 0,
    discount           INTEGER NOT NULL DEFAULT 0,
    total              INTEGER NOT NULL DEFAULT 0,
    start_date         TIMESTAMP,
    end_date           TIMESTAMP,
    payment_terms      TEXT NOT NULL DEFAULT '',
    payment_schedule   TEXT NOT NULL DEFAULT '[]',
    body               TEXT NOT NULL DEFAULT '',
    customer_signature TEXT NOT NULL DEFAULT '',
    customer_signed_at TIMESTAMP,
    company_signature  TEXT NOT NULL DEFAULT '',
    company_signed_at  TIMESTAMP,
    sent_at            TIMESTAMP,
    viewed_at          TIMESTAMP,
    signed_at          TIMESTAMP,
    cancelled_at       TIMESTAMP,
    created_by         TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    version            INTEGER NOT NULL DEFAULT 1
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
    installment   INTEGER,
    title         TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'draft',
    line_items    TEXT NOT NULL DEFAULT '[]',
    subtotal      INTEGER NOT NULL DEFAULT 0,
    tax           INTEGER NOT NULL DEFAULT 0,
    discount      INTEGER NOT NULL DEFAULT 0,
    total         INTEGER NOT NULL DEFAULT 0,
    due_date      TIMESTAMP,
    payment_terms TEXT NOT NULL DEFAULT '',
    notes         TEXT NOT NULL DEFAULT '',
    sent_at       TIMESTAMP,
    viewed_at     TIMESTAMP,
    paid_at       TIMESTAMP,
    cancelled_at  TIMESTAMP,
    created_by    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    version       INTEGER NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_salesdoc_invoices_installment ON salesdoc_invoices (contract_id, installment)
    WHERE installment IS NOT NULL AND status <> 'cancelled';
CREATE INDEX IF NOT EXISTS idx_salesdoc_invoices_contact ON salesdoc_invoices (contact_id, status);
CREATE INDEX IF NOT EXISTS idx_salesdoc_invoices_contract ON salesdoc_invoices (contract_id);
CREATE INDEX IF NOT EXISTS idx_salesdoc_invoices_due ON salesdoc_invoices (due_date);
`,
	},
	{
		Name:    "create_salesdoc_payments",
		Version: "20240101000004",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_payments (
    id          TEXT PRIMARY KEY,
    invoice_id  TEXT NOT NULL REFERENCES salesdoc_invoices (id),
    contact_id  TEXT NOT NULL DEFAULT '',
    amount      INTEGER NOT NULL,
    method      TEXT NOT NULL,
    reference   TEXT NOT NULL DEFAULT '',
    notes       TEXT NOT NULL DEFAULT '',
    reverses    TEXT UNIQUE REFERENCES salesdoc_payments (id),
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    recorded_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_salesdoc_payments_invoice ON salesdoc_payments (invoice_id);
`,
	},
	{
		Name:    "create_salesdoc_audit",
		Version: "20240101000005",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_audit (
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    operation   TEXT NOT NULL,
    actor_id    TEXT NOT NULL DEFAULT '',
    actor_role  TEXT NOT NULL DEFAULT '',
    from_status TEXT NOT NULL DEFAULT '',
    to_status   TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_salesdoc_audit_document ON salesdoc_audit (document_id);
`,
	},
	{
		Name:    "create_salesdoc_sequences",
		Version: "20240101000006",
		Up: `
CREATE TABLE IF NOT EXISTS salesdoc_sequences (
    key   TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS salesdoc_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	done := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM salesdoc_migrations`)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("list applied migrations: %w", err)
		}
		done[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}

	for _, m := range Migrations {
		if done[m.Version] {
			continue
		}
		err := s.tx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO salesdoc_migrations (version, name) VALUES (?, ?)`,
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
