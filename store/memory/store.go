// Package memory is an in-process store for tests and single-node
// development. A single mutex serialises writes, which makes every
// multi-record operation trivially atomic.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	estimates map[string]*estimate.Estimate
	contracts map[string]*contract.Contract
	invoices  map[string]*invoice.Invoice
	payments  map[string]*payment.Payment
	// payments per invoice, in append order
	ledger   map[string][]string
	audit    map[string][]*audit.Entry
	counters map[string]int64

	closed bool
}

func New() *Store {
	return &Store{
		estimates: make(map[string]*estimate.Estimate),
		contracts: make(map[string]*contract.Contract),
		invoices:  make(map[string]*invoice.Invoice),
		payments:  make(map[string]*payment.Payment),
		ledger:    make(map[string][]string),
		audit:     make(map[string][]*audit.Entry),
		counters:  make(map[string]int64),
	}
}

// ──────────────────────────────────────────────────
// Estimates
// ──────────────────────────────────────────────────

func (s *Store) CreateEstimate(_ context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.estimates[e.ID.String()]; exists {
		return salesdoc.ErrAlreadyExists
	}
	e.Version = 1
	s.estimates[e.ID.String()] = e.Clone()
	s.appendAudit(entry)
	return nil
}

func (s *Store) GetEstimate(_ context.Context, estID id.EstimateID) (*estimate.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.estimates[estID.String()]; ok {
		return e.Clone(), nil
	}
	return nil, salesdoc.ErrNotFound
}

func (s *Store) ListEstimates(_ context.Context, opts estimate.ListOpts) ([]*estimate.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*estimate.Estimate
	for _, e := range s.estimates {
		if opts.ContactID != "" && e.ContactID != opts.ContactID {
			continue
		}
		if opts.Status != "" && e.Status != opts.Status {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return page(out, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateEstimate(_ context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEstimate(e); err != nil {
		return err
	}
	e.Version++
	s.estimates[e.ID.String()] = e.Clone()
	s.appendAudit(entry)
	return nil
}

func (s *Store) checkEstimate(e *estimate.Estimate) error {
	cur, ok := s.estimates[e.ID.String()]
	if !ok {
		return salesdoc.ErrNotFound
	}
	if cur.Version != e.Version {
		return salesdoc.ErrVersionConflict
	}
	return nil
}

// ──────────────────────────────────────────────────
// Contracts
// ──────────────────────────────────────────────────

func (s *Store) CreateContract(_ context.Context, c *contract.Contract, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertContract(c); err != nil {
		return err
	}
	s.appendAudit(entry)
	return nil
}

func (s *Store) insertContract(c *contract.Contract) error {
	if _, exists := s.contracts[c.ID.String()]; exists {
		return salesdoc.ErrAlreadyExists
	}
	if !c.EstimateID.IsNil() {
		for _, other := range s.contracts {
			if other.EstimateID.String() == c.EstimateID.String() {
				return salesdoc.ErrAlreadyExists
			}
		}
	}
	c.Version = 1
	s.contracts[c.ID.String()] = c.Clone()
	return nil
}

func (s *Store) GetContract(_ context.Context, ctrID id.ContractID) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.contracts[ctrID.String()]; ok {
		return c.Clone(), nil
	}
	return nil, salesdoc.ErrNotFound
}

func (s *Store) ListContracts(_ context.Context, opts contract.ListOpts) ([]*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contract.Contract
	for _, c := range s.contracts {
		if opts.ContactID != "" && c.ContactID != opts.ContactID {
			continue
		}
		if !opts.EstimateID.IsNil() && c.EstimateID.String() != opts.EstimateID.String() {
			continue
		}
		if opts.Status != "" && c.Status != opts.Status {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return page(out, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateContract(_ context.Context, c *contract.Contract, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.contracts[c.ID.String()]
	if !ok {
		return salesdoc.ErrNotFound
	}
	if cur.Version != c.Version {
		return salesdoc.ErrVersionConflict
	}
	c.Version++
	s.contracts[c.ID.String()] = c.Clone()
	s.appendAudit(entry)
	return nil
}

// ConvertEstimate implements store.Store.
func (s *Store) ConvertEstimate(_ context.Context, est *estimate.Estimate, c *contract.Contract, entries ...*audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEstimate(est); err != nil {
		return err
	}
	if err := s.insertContract(c); err != nil {
		return err
	}
	est.Version++
	s.estimates[est.ID.String()] = est.Clone()
	for _, entry := range entries {
		s.appendAudit(entry)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID.String()]; exists {
		return salesdoc.ErrAlreadyExists
	}
	if inv.Installment != nil {
		key := installmentKey(inv)
		for _, other := range s.invoices {
			if other.Installment != nil && other.Status != invoice.StatusCancelled && installmentKey(other) == key {
				return salesdoc.ErrAlreadyExists
			}
		}
	}
	inv.Version = 1
	s.invoices[inv.ID.String()] = storedInvoice(inv)
	s.appendAudit(entry)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invID.String()]; ok {
		return inv.Clone(), nil
	}
	return nil, salesdoc.ErrNotFound
}

func (s *Store) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*invoice.Invoice
	for _, inv := range s.invoices {
		if opts.ContactID != "" && inv.ContactID != opts.ContactID {
			continue
		}
		if !opts.ContractID.IsNil() && inv.ContractID.String() != opts.ContractID.String() {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		if opts.DueBefore != nil && (inv.DueDate == nil || !inv.DueDate.Before(*opts.DueBefore)) {
			continue
		}
		out = append(out, inv.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return page(out, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInvoice(inv); err != nil {
		return err
	}
	inv.Version++
	s.invoices[inv.ID.String()] = storedInvoice(inv)
	s.appendAudit(entry)
	return nil
}

func (s *Store) checkInvoice(inv *invoice.Invoice) error {
	cur, ok := s.invoices[inv.ID.String()]
	if !ok {
		return salesdoc.ErrNotFound
	}
	if cur.Version != inv.Version {
		return salesdoc.ErrVersionConflict
	}
	return nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

// AppendPayment implements store.Store.
func (s *Store) AppendPayment(_ context.Context, inv *invoice.Invoice, p *payment.Payment, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInvoice(inv); err != nil {
		return err
	}
	if _, exists := s.payments[p.ID.String()]; exists {
		return salesdoc.ErrAlreadyExists
	}

	cp := *p
	s.payments[p.ID.String()] = &cp
	s.ledger[inv.ID.String()] = append(s.ledger[inv.ID.String()], p.ID.String())

	inv.Version++
	s.invoices[inv.ID.String()] = storedInvoice(inv)
	s.appendAudit(entry)
	return nil
}

func (s *Store) GetPayment(_ context.Context, payID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[payID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, salesdoc.ErrNotFound
}

func (s *Store) ListPayments(_ context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.ledger[invID.String()]
	out := make([]*payment.Payment, 0, len(ids))
	for _, pid := range ids {
		cp := *s.payments[pid]
		out = append(out, &cp)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Audit & counters
// ──────────────────────────────────────────────────

func (s *Store) ListAudit(_ context.Context, documentID id.ID) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.audit[documentID.String()]
	out := make([]*audit.Entry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) appendAudit(entry *audit.Entry) {
	if entry == nil {
		return
	}
	cp := *entry
	key := entry.DocumentID.String()
	s.audit[key] = append(s.audit[key], &cp)
}

// NextSequence implements store.Store.
func (s *Store) NextSequence(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, salesdoc.ErrStoreClosed
	}
	s.counters[key]++
	return s.counters[key], nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return salesdoc.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// storedInvoice drops the read-time projection before persisting.
func storedInvoice(inv *invoice.Invoice) *invoice.Invoice {
	c := inv.Clone()
	c.AmountPaid = types.Zero()
	c.AmountDue = types.Zero()
	c.Overdue = false
	return c
}

func installmentKey(inv *invoice.Invoice) string {
	return inv.ContractID.String() + "#" + strconv.Itoa(*inv.Installment)
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
