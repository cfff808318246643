// Package sqlite implements store.Store on SQLite through mattn/go-sqlite3.
// The database runs in WAL mode behind a single connection, so writes are
// serialised and every transaction sees the latest committed state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/store/internal/sqlrow"
)

const (
	tableEstimates = "salesdoc_estimates"
	tableContracts = "salesdoc_contracts"
	tableInvoices  = "salesdoc_invoices"
	tablePayments  = "salesdoc_payments"
	tableAudit     = "salesdoc_audit"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates or opens the database at path and applies the required
// pragmas. Migrate must still be called before use.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("salesdoc/sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("salesdoc/sqlite: connect %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("salesdoc/sqlite: %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("salesdoc/sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ==================== Estimate Store ====================

func (s *Store) CreateEstimate(ctx context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	return wrap("create estimate", s.tx(ctx, func(tx *sql.Tx) error {
		return insertEstimate(ctx, tx, e, entry)
	}))
}

func insertEstimate(ctx context.Context, q querier, e *estimate.Estimate, entry *audit.Entry) error {
	stored := e.Clone()
	stored.Version = 1
	row, err := sqlrow.FromEstimate(stored)
	if err != nil {
		return err
	}
	if err := insert(ctx, q, tableEstimates, sqlrow.EstimateColumns, row.Values()); err != nil {
		return err
	}
	if err := insertAudit(ctx, q, entry); err != nil {
		return err
	}
	e.Version = 1
	return nil
}

func (s *Store) GetEstimate(ctx context.Context, estID id.EstimateID) (*estimate.Estimate, error) {
	var row sqlrow.Estimate
	err := s.db.QueryRowContext(ctx, selectSQL(tableEstimates, sqlrow.EstimateColumns)+" WHERE id = ?", estID.String()).
		Scan(row.Targets()...)
	if err != nil {
		return nil, wrap("get estimate", err)
	}
	return row.Decode()
}

func (s *Store) ListEstimates(ctx context.Context, opts estimate.ListOpts) ([]*estimate.Estimate, error) {
	var w where
	w.eq("contact_id", opts.ContactID)
	w.eq("status", string(opts.Status))

	rows, err := s.db.QueryContext(ctx, selectSQL(tableEstimates, sqlrow.EstimateColumns)+w.sql()+" ORDER BY id"+page(opts.Limit, opts.Offset), w.args...)
	if err != nil {
		return nil, wrap("list estimates", err)
	}
	defer rows.Close()

	var out []*estimate.Estimate
	for rows.Next() {
		var row sqlrow.Estimate
		if err := rows.Scan(row.Targets()...); err != nil {
			return nil, wrap("list estimates", err)
		}
		e, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, wrap("list estimates", rows.Err())
}

func (s *Store) UpdateEstimate(ctx context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	return wrap("update estimate", s.tx(ctx, func(tx *sql.Tx) error {
		return updateEstimate(ctx, tx, e, entry)
	}))
}

func updateEstimate(ctx context.Context, q querier, e *estimate.Estimate, entry *audit.Entry) error {
	next := e.Clone()
	next.Version++
	row, err := sqlrow.FromEstimate(next)
	if err != nil {
		return err
	}
	if err := update(ctx, q, tableEstimates, sqlrow.EstimateColumns, row.Values(), e.Version); err != nil {
		return err
	}
	if err := insertAudit(ctx, q, entry); err != nil {
		return err
	}
	e.Version = next.Version
	return nil
}

// ==================== Contract Store ====================

func (s *Store) CreateContract(ctx context.Context, c *contract.Contract, entry *audit.Entry) error {
	return wrap("create contract", s.tx(ctx, func(tx *sql.Tx) error {
		return insertContract(ctx, tx, c, entry)
	}))
}

func insertContract(ctx context.Context, q querier, c *contract.Contract, entry *audit.Entry) error {
	stored := c.Clone()
	stored.Version = 1
	row, err := sqlrow.FromContract(stored)
	if err != nil {
		return err
	}
	if err := insert(ctx, q, tableContracts, sqlrow.ContractColumns, row.Values()); err != nil {
		return err
	}
	if err := insertAudit(ctx, q, entry); err != nil {
		return err
	}
	c.Version = 1
	return nil
}

func (s *Store) GetContract(ctx context.Context, ctrID id.ContractID) (*contract.Contract, error) {
	var row sqlrow.Contract
	err := s.db.QueryRowContext(ctx, selectSQL(tableContracts, sqlrow.ContractColumns)+" WHERE id = ?", ctrID.String()).
		Scan(row.Targets()...)
	if err != nil {
		return nil, wrap("get contract", err)
	}
	return row.Decode()
}

func (s *Store) ListContracts(ctx context.Context, opts contract.ListOpts) ([]*contract.Contract, error) {
	var w where
	w.eq("contact_id", opts.ContactID)
	w.eq("estimate_id", opts.EstimateID.String())
	w.eq("status", string(opts.Status))

	rows, err := s.db.QueryContext(ctx, selectSQL(tableContracts, sqlrow.ContractColumns)+w.sql()+" ORDER BY id"+page(opts.Limit, opts.Offset), w.args...)
	if err != nil {
		return nil, wrap("list contracts", err)
	}
	defer rows.Close()

	var out []*contract.Contract
	for rows.Next() {
		var row sqlrow.Contract
		if err := rows.Scan(row.Targets()...); err != nil {
			return nil, wrap("list contracts", err)
		}
		c, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, wrap("list contracts", rows.Err())
}

func (s *Store) UpdateContract(ctx context.Context, c *contract.Contract, entry *audit.Entry) error {
	return wrap("update contract", s.tx(ctx, func(tx *sql.Tx) error {
		next := c.Clone()
		next.Version++
		row, err := sqlrow.FromContract(next)
		if err != nil {
			return err
		}
		if err := update(ctx, tx, tableContracts, sqlrow.ContractColumns, row.Values(), c.Version); err != nil {
			return err
		}
		if err := insertAudit(ctx, tx, entry); err != nil {
			return err
		}
		c.Version = next.Version
		return nil
	}))
}

// ConvertEstimate implements store.Store.
func (s *Store) ConvertEstimate(ctx context.Context, est *estimate.Estimate, c *contract.Contract, entries ...*audit.Entry) error {
	version := est.Version
	err := s.tx(ctx, func(tx *sql.Tx) error {
		if err := updateEstimate(ctx, tx, est, nil); err != nil {
			return err
		}
		if err := insertContract(ctx, tx, c, nil); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := insertAudit(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		est.Version = version
		c.Version = 0
	}
	return wrap("convert estimate", err)
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	return wrap("create invoice", s.tx(ctx, func(tx *sql.Tx) error {
		stored := inv.Clone()
		stored.Version = 1
		row, err := sqlrow.FromInvoice(stored)
		if err != nil {
			return err
		}
		if err := insert(ctx, tx, tableInvoices, sqlrow.InvoiceColumns, row.Values()); err != nil {
			return err
		}
		if err := insertAudit(ctx, tx, entry); err != nil {
			return err
		}
		inv.Version = 1
		return nil
	}))
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var row sqlrow.Invoice
	err := s.db.QueryRowContext(ctx, selectSQL(tableInvoices, sqlrow.InvoiceColumns)+" WHERE id = ?", invID.String()).
		Scan(row.Targets()...)
	if err != nil {
		return nil, wrap("get invoice", err)
	}
	return row.Decode()
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var w where
	w.eq("contact_id", opts.ContactID)
	w.eq("contract_id", opts.ContractID.String())
	w.eq("status", string(opts.Status))
	if opts.DueBefore != nil {
		w.add("due_date IS NOT NULL AND due_date < ?", opts.DueBefore.UTC())
	}

	rows, err := s.db.QueryContext(ctx, selectSQL(tableInvoices, sqlrow.InvoiceColumns)+w.sql()+" ORDER BY id"+page(opts.Limit, opts.Offset), w.args...)
	if err != nil {
		return nil, wrap("list invoices", err)
	}
	defer rows.Close()

	var out []*invoice.Invoice
	for rows.Next() {
		var row sqlrow.Invoice
		if err := rows.Scan(row.Targets()...); err != nil {
			return nil, wrap("list invoices", err)
		}
		inv, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, wrap("list invoices", rows.Err())
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	return wrap("update invoice", s.tx(ctx, func(tx *sql.Tx) error {
		return updateInvoice(ctx, tx, inv, entry)
	}))
}

func updateInvoice(ctx context.Context, q querier, inv *invoice.Invoice, entry *audit.Entry) error {
	next := inv.Clone()
	next.Version++
	row, err := sqlrow.FromInvoice(next)
	if err != nil {
		return err
	}
	if err := update(ctx, q, tableInvoices, sqlrow.InvoiceColumns, row.Values(), inv.Version); err != nil {
		return err
	}
	if err := insertAudit(ctx, q, entry); err != nil {
		return err
	}
	inv.Version = next.Version
	return nil
}

// ==================== Payment Store ====================

// AppendPayment implements store.Store.
func (s *Store) AppendPayment(ctx context.Context, inv *invoice.Invoice, p *payment.Payment, entry *audit.Entry) error {
	version := inv.Version
	err := s.tx(ctx, func(tx *sql.Tx) error {
		if err := updateInvoice(ctx, tx, inv, entry); err != nil {
			return err
		}
		return insert(ctx, tx, tablePayments, sqlrow.PaymentColumns, sqlrow.FromPayment(p).Values())
	})
	if err != nil {
		inv.Version = version
	}
	return wrap("append payment", err)
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	var row sqlrow.Payment
	err := s.db.QueryRowContext(ctx, selectSQL(tablePayments, sqlrow.PaymentColumns)+" WHERE id = ?", payID.String()).
		Scan(row.Targets()...)
	if err != nil {
		return nil, wrap("get payment", err)
	}
	return row.Decode()
}

func (s *Store) ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL(tablePayments, sqlrow.PaymentColumns)+" WHERE invoice_id = ? ORDER BY rowid", invID.String())
	if err != nil {
		return nil, wrap("list payments", err)
	}
	defer rows.Close()

	out := []*payment.Payment{}
	for rows.Next() {
		var row sqlrow.Payment
		if err := rows.Scan(row.Targets()...); err != nil {
			return nil, wrap("list payments", err)
		}
		p, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, wrap("list payments", rows.Err())
}

// ==================== Audit & sequences ====================

func (s *Store) ListAudit(ctx context.Context, documentID id.ID) ([]*audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL(tableAudit, sqlrow.AuditColumns)+" WHERE document_id = ? ORDER BY rowid", documentID.String())
	if err != nil {
		return nil, wrap("list audit", err)
	}
	defer rows.Close()

	out := []*audit.Entry{}
	for rows.Next() {
		var row sqlrow.Audit
		if err := rows.Scan(row.Targets()...); err != nil {
			return nil, wrap("list audit", err)
		}
		e, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, wrap("list audit", rows.Err())
}

func insertAudit(ctx context.Context, q querier, entry *audit.Entry) error {
	if entry == nil {
		return nil
	}
	return insert(ctx, q, tableAudit, sqlrow.AuditColumns, sqlrow.FromAudit(entry).Values())
}

// NextSequence implements store.Store.
func (s *Store) NextSequence(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO salesdoc_sequences (key, value) VALUES (?, 1)
ON CONFLICT (key) DO UPDATE SET value = value + 1
RETURNING value`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("salesdoc/sqlite: next sequence %s: %w", key, err)
	}
	return n, nil
}

// ==================== helpers ====================

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insert(ctx context.Context, q querier, table string, cols []string, values []any) error {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
	_, err := q.ExecContext(ctx, query, utcArgs(values)...)
	return err
}

// update writes values (new version last) where the stored version still
// equals expected.
func update(ctx context.Context, q querier, table string, cols []string, values []any, expected int64) error {
	sets := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		sets = append(sets, col+" = ?")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND version = ?", table, strings.Join(sets, ", "))

	args := append(utcArgs(values[1:]), values[0], expected)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}

	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", values[0]).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return salesdoc.ErrNotFound
	}
	return salesdoc.ErrVersionConflict
}

// utcArgs normalises timestamps so that stored text compares in time order.
func utcArgs(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case time.Time:
			out[i] = t.UTC()
		case *time.Time:
			if t != nil {
				out[i] = t.UTC()
			} else {
				out[i] = nil
			}
		default:
			out[i] = v
		}
	}
	return out
}

func selectSQL(table string, cols []string) string {
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + table
}

func page(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	default:
		return ""
	}
}

type where struct {
	clauses []string
	args    []any
}

func (w *where) eq(col, value string) {
	if value == "" {
		return
	}
	w.add(col+" = ?", value)
}

func (w *where) add(clause string, arg any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, arg)
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// wrap maps driver errors onto the engine's sentinels.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, salesdoc.ErrNotFound) || errors.Is(err, salesdoc.ErrVersionConflict) || errors.Is(err, salesdoc.ErrAlreadyExists) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return salesdoc.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %s", salesdoc.ErrAlreadyExists, sqliteErr.Error())
	}
	return fmt.Errorf("salesdoc/sqlite: %s: %w", op, err)
}
