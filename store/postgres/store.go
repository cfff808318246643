// Package postgres implements store.Store on PostgreSQL through a pgx
// connection pool. Multi-record operations run in one transaction and
// updates are version-checked in the WHERE clause.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New connects to dsn and returns a store. The caller owns Close.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("salesdoc/postgres: connect: %w", err)
	}
	return NewFromPool(pool, opts...), nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pool returns the underlying pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("salesdoc/postgres: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ==================== Estimate Store ====================

func (s *Store) CreateEstimate(ctx context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	return s.tx(ctx, "create estimate", func(tx pgx.Tx) error {
		return insertEstimate(ctx, tx, e, entry)
	})
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
	err := s.pool.QueryRow(ctx, selectSQL(tableEstimates, sqlrow.EstimateColumns)+" WHERE id = $1", estID.String()).
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

	rows, err := s.pool.Query(ctx, selectSQL(tableEstimates, sqlrow.EstimateColumns)+w.sql()+" ORDER BY id"+page(opts.Limit, opts.Offset), w.args...)
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
	return s.tx(ctx, "update estimate", func(tx pgx.Tx) error {
		return updateEstimate(ctx, tx, e, entry)
	})
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
	return s.tx(ctx, "create contract", func(tx pgx.Tx) error {
		return insertContract(ctx, tx, c, entry)
	})
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
	err := s.pool.QueryRow(ctx, selectSQL(tableContracts, sqlrow.ContractColumns)+" WHERE id = $1", ctrID.String()).
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

	rows, err := s.pool.Query(ctx, selectSQL(tableContracts, sqlrow.ContractColumns)+w.sql()+" ORDER BY id"+page(opts.Limit, opts.Offset), w.args...)
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
	return s.tx(ctx, "update contract", func(tx pgx.Tx) error {
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
	})
}

// ConvertEstimate implements store.Store.
func (s *Store) ConvertEstimate(ctx context.Context, est *estimate.Estimate, c *contract.Contract, entries ...*audit.Entry) error {
	version := est.Version
	err := s.tx(ctx, "convert estimate", func(tx pgx.Tx) error {
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
		// The transaction rolled back; the caller's copies must too.
		est.Version = version
		c.Version = 0
	}
	return err
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	return s.tx(ctx, "create invoice", func(tx pgx.Tx) error {
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
	})
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var row sqlrow.Invoice
	err := s.pool.QueryRow(ctx, selectSQL(tableInvoices, sqlrow.InvoiceColumns)+" WHERE id = $1", invID.String()).
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
		w.add("due_date < ?", *opts.DueBefore)
	}

	rows, err := s.pool.Query(ctx, selectSQL(tableInvoices, sqlrow.InvoiceColumns)+w.sql()+" ORDER BY id"+page(opts.Limit, opts.Offset), w.args...)
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
	return s.tx(ctx, "update invoice", func(tx pgx.Tx) error {
		return updateInvoice(ctx, tx, inv, entry)
	})
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
	err := s.tx(ctx, "append payment", func(tx pgx.Tx) error {
		if err := updateInvoice(ctx, tx, inv, entry); err != nil {
			return err
		}
		return insert(ctx, tx, tablePayments, sqlrow.PaymentColumns, sqlrow.FromPayment(p).Values())
	})
	if err != nil {
		inv.Version = version
	}
	return err
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	var row sqlrow.Payment
	err := s.pool.QueryRow(ctx, selectSQL(tablePayments, sqlrow.PaymentColumns)+" WHERE id = $1", payID.String()).
		Scan(row.Targets()...)
	if err != nil {
		return nil, wrap("get payment", err)
	}
	return row.Decode()
}

func (s *Store) ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	rows, err := s.pool.Query(ctx, selectSQL(tablePayments, sqlrow.PaymentColumns)+" WHERE invoice_id = $1 ORDER BY seq", invID.String())
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
	rows, err := s.pool.Query(ctx, selectSQL(tableAudit, sqlrow.AuditColumns)+" WHERE document_id = $1 ORDER BY seq", documentID.String())
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
	err := s.pool.QueryRow(ctx, `
INSERT INTO salesdoc_sequences (key, value) VALUES ($1, 1)
ON CONFLICT (key) DO UPDATE SET value = salesdoc_sequences.value + 1
RETURNING value`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("salesdoc/postgres: next sequence %s: %w", key, err)
	}
	return n, nil
}

// ==================== helpers ====================

func (s *Store) tx(ctx context.Context, op string, fn func(pgx.Tx) error) error {
	if err := pgx.BeginFunc(ctx, s.pool, fn); err != nil {
		return wrap(op, err)
	}
	return nil
}

func insert(ctx context.Context, q querier, table string, cols []string, values []any) error {
	_, err := q.Exec(ctx, insertSQL(table, cols), values...)
	return err
}

// update writes values (new version last) where the stored version still
// equals expected.
func update(ctx context.Context, q querier, table string, cols []string, values []any, expected int64) error {
	sets := make([]string, 0, len(cols)-1)
	for i := 1; i < len(cols); i++ {
		sets = append(sets, fmt.Sprintf("%s = $%d", cols[i], i+1))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND version = $%d",
		table, strings.Join(sets, ", "), len(cols)+1)

	tag, err := q.Exec(ctx, query, append(values, expected)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", values[0]).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return salesdoc.ErrNotFound
	}
	return salesdoc.ErrVersionConflict
}

func selectSQL(table string, cols []string) string {
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + table
}

func insertSQL(table string, cols []string) string {
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

// where accumulates AND-ed filters with numbered placeholders.
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

// add appends clause, replacing its single ? with the next placeholder.
func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1))
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
	if errors.Is(err, pgx.ErrNoRows) {
		return salesdoc.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", salesdoc.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("salesdoc/postgres: %s: %w", op, err)
}
