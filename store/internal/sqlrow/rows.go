// Package sqlrow maps documents to the flat rows shared by the SQL stores.
// Scalars get their own column so they can be filtered and indexed; line
// items and payment schedules are stored as JSON.
package sqlrow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/types"
)

// Column lists. The first column is always the primary key and, for
// versioned documents, the last is version.
var (
	EstimateColumns = []string{
		"id", "number", "contact_id", "title", "description", "status",
		"line_items", "subtotal", "tax", "discount", "total",
		"valid_until", "terms", "notes", "customer_notes",
		"sent_at", "viewed_at", "approved_at", "rejected_at", "converted_at", "cancelled_at",
		"created_by", "created_at", "updated_at", "version",
	}
	ContractColumns = []string{
		"id", "number", "contact_id", "estimate_id", "title", "description", "status",
		"line_items", "subtotal", "tax", "discount", "total",
		"start_date", "end_date", "payment_terms", "payment_schedule", "body",
		"customer_signature", "customer_signed_at", "company_signature", "company_signed_at",
		"sent_at", "viewed_at", "signed_at", "cancelled_at",
		"created_by", "created_at", "updated_at", "version",
	}
	InvoiceColumns = []string{
		"id", "number", "contact_id", "contract_id", "installment", "title", "status",
		"line_items", "subtotal", "tax", "discount", "total",
		"due_date", "payment_terms", "notes",
		"sent_at", "viewed_at", "paid_at", "cancelled_at",
		"created_by", "created_at", "updated_at", "version",
	}
	PaymentColumns = []string{
		"id", "invoice_id", "contact_id", "amount", "method", "reference", "notes",
		"reverses", "recorded_at", "recorded_by",
	}
	AuditColumns = []string{
		"id", "document_id", "operation", "actor_id", "actor_role",
		"from_status", "to_status", "detail", "at",
	}
)

// ==================== Estimate ====================

type Estimate struct {
	ID, Number, ContactID, Title, Description, Status string
	LineItems                                         []byte
	Subtotal, Tax, Discount, Total                    int64
	ValidUntil                                        *time.Time
	Terms, Notes, CustomerNotes                       string
	SentAt, ViewedAt, ApprovedAt                      *time.Time
	RejectedAt, ConvertedAt, CancelledAt              *time.Time
	CreatedBy                                         string
	CreatedAt, UpdatedAt                              time.Time
	Version                                           int64
}

func FromEstimate(e *estimate.Estimate) (*Estimate, error) {
	items, err := json.Marshal(e.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	return &Estimate{
		ID: e.ID.String(), Number: e.Number, ContactID: e.ContactID,
		Title: e.Title, Description: e.Description, Status: string(e.Status),
		LineItems: items,
		Subtotal:  e.Subtotal.Amount, Tax: e.Tax.Amount, Discount: e.Discount.Amount, Total: e.Total.Amount,
		ValidUntil: e.ValidUntil,
		Terms:      e.Terms, Notes: e.Notes, CustomerNotes: e.CustomerNotes,
		SentAt: e.SentAt, ViewedAt: e.ViewedAt, ApprovedAt: e.ApprovedAt,
		RejectedAt: e.RejectedAt, ConvertedAt: e.ConvertedAt, CancelledAt: e.CancelledAt,
		CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
		Version: e.Version,
	}, nil
}

// Values returns the column values in EstimateColumns order.
func (r *Estimate) Values() []any {
	return []any{
		r.ID, r.Number, r.ContactID, r.Title, r.Description, r.Status,
		r.LineItems, r.Subtotal, r.Tax, r.Discount, r.Total,
		r.ValidUntil, r.Terms, r.Notes, r.CustomerNotes,
		r.SentAt, r.ViewedAt, r.ApprovedAt, r.RejectedAt, r.ConvertedAt, r.CancelledAt,
		r.CreatedBy, r.CreatedAt, r.UpdatedAt, r.Version,
	}
}

// Targets returns scan destinations in EstimateColumns order.
func (r *Estimate) Targets() []any {
	return []any{
		&r.ID, &r.Number, &r.ContactID, &r.Title, &r.Description, &r.Status,
		&r.LineItems, &r.Subtotal, &r.Tax, &r.Discount, &r.Total,
		&r.ValidUntil, &r.Terms, &r.Notes, &r.CustomerNotes,
		&r.SentAt, &r.ViewedAt, &r.ApprovedAt, &r.RejectedAt, &r.ConvertedAt, &r.CancelledAt,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	}
}

func (r *Estimate) Decode() (*estimate.Estimate, error) {
	estID, err := id.ParseEstimateID(r.ID)
	if err != nil {
		return nil, err
	}
	var items lineitem.Items
	if err := decodeJSON(r.LineItems, &items); err != nil {
		return nil, fmt.Errorf("decode line items of %s: %w", r.ID, err)
	}
	return &estimate.Estimate{
		Entity:      entity(r.CreatedAt, r.UpdatedAt, r.Version),
		ID:          estID,
		Number:      r.Number,
		ContactID:   r.ContactID,
		Title:       r.Title,
		Description: r.Description,
		Status:      estimate.Status(r.Status),
		LineItems:   items,
		Totals:      totals(r.Subtotal, r.Tax, r.Discount, r.Total),
		ValidUntil:  utc(r.ValidUntil),
		Terms:       r.Terms, Notes: r.Notes, CustomerNotes: r.CustomerNotes,
		SentAt: utc(r.SentAt), ViewedAt: utc(r.ViewedAt), ApprovedAt: utc(r.ApprovedAt),
		RejectedAt: utc(r.RejectedAt), ConvertedAt: utc(r.ConvertedAt), CancelledAt: utc(r.CancelledAt),
		CreatedBy: r.CreatedBy,
	}, nil
}

// ==================== Contract ====================

type Contract struct {
	ID, Number, ContactID                  string
	EstimateID                             *string
	Title, Description, Status             string
	LineItems                              []byte
	Subtotal, Tax, Discount, Total         int64
	StartDate, EndDate                     *time.Time
	PaymentTerms                           string
	PaymentSchedule                        []byte
	Body                                   string
	CustomerSignature                      string
	CustomerSignedAt                       *time.Time
	CompanySignature                       string
	CompanySignedAt                        *time.Time
	SentAt, ViewedAt, SignedAt, CancelledAt *time.Time
	CreatedBy                              string
	CreatedAt, UpdatedAt                   time.Time
	Version                                int64
}

func FromContract(c *contract.Contract) (*Contract, error) {
	items, err := json.Marshal(c.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	// Installment status is derived on read; keep the stored copy neutral.
	schedule := make([]contract.Installment, len(c.PaymentSchedule))
	for i, in := range c.PaymentSchedule {
		in.Status = ""
		schedule[i] = in
	}
	sched, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("encode payment schedule: %w", err)
	}
	return &Contract{
		ID: c.ID.String(), Number: c.Number, ContactID: c.ContactID,
		EstimateID: optionalID(c.EstimateID),
		Title:      c.Title, Description: c.Description, Status: string(c.Status),
		LineItems: items,
		Subtotal:  c.Subtotal.Amount, Tax: c.Tax.Amount, Discount: c.Discount.Amount, Total: c.Total.Amount,
		StartDate: c.StartDate, EndDate: c.EndDate,
		PaymentTerms: c.PaymentTerms, PaymentSchedule: sched, Body: c.Body,
		CustomerSignature: c.CustomerSignature, CustomerSignedAt: c.CustomerSignedAt,
		CompanySignature: c.CompanySignature, CompanySignedAt: c.CompanySignedAt,
		SentAt: c.SentAt, ViewedAt: c.ViewedAt, SignedAt: c.SignedAt, CancelledAt: c.CancelledAt,
		CreatedBy: c.CreatedBy, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
		Version: c.Version,
	}, nil
}

func (r *Contract) Values() []any {
	return []any{
		r.ID, r.Number, r.ContactID, r.EstimateID, r.Title, r.Description, r.Status,
		r.LineItems, r.Subtotal, r.Tax, r.Discount, r.Total,
		r.StartDate, r.EndDate, r.PaymentTerms, r.PaymentSchedule, r.Body,
		r.CustomerSignature, r.CustomerSignedAt, r.CompanySignature, r.CompanySignedAt,
		r.SentAt, r.ViewedAt, r.SignedAt, r.CancelledAt,
		r.CreatedBy, r.CreatedAt, r.UpdatedAt, r.Version,
	}
}

func (r *Contract) Targets() []any {
	return []any{
		&r.ID, &r.Number, &r.ContactID, &r.EstimateID, &r.Title, &r.Description, &r.Status,
		&r.LineItems, &r.Subtotal, &r.Tax, &r.Discount, &r.Total,
		&r.StartDate, &r.EndDate, &r.PaymentTerms, &r.PaymentSchedule, &r.Body,
		&r.CustomerSignature, &r.CustomerSignedAt, &r.CompanySignature, &r.CompanySignedAt,
		&r.SentAt, &r.ViewedAt, &r.SignedAt, &r.CancelledAt,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	}
}

func (r *Contract) Decode() (*contract.Contract, error) {
	ctrID, err := id.ParseContractID(r.ID)
	if err != nil {
		return nil, err
	}
	estID, err := parseOptional(r.EstimateID)
	if err != nil {
		return nil, err
	}
	var items lineitem.Items
	if err := decodeJSON(r.LineItems, &items); err != nil {
		return nil, fmt.Errorf("decode line items of %s: %w", r.ID, err)
	}
	var schedule []contract.Installment
	if err := decodeJSON(r.PaymentSchedule, &schedule); err != nil {
		return nil, fmt.Errorf("decode payment schedule of %s: %w", r.ID, err)
	}
	if len(schedule) == 0 {
		schedule = nil
	}
	for i := range schedule {
		schedule[i].DueDate = utc(schedule[i].DueDate)
	}
	return &contract.Contract{
		Entity:      entity(r.CreatedAt, r.UpdatedAt, r.Version),
		ID:          ctrID,
		Number:      r.Number,
		ContactID:   r.ContactID,
		EstimateID:  estID,
		Title:       r.Title,
		Description: r.Description,
		Status:      contract.Status(r.Status),
		LineItems:   items,
		Totals:      totals(r.Subtotal, r.Tax, r.Discount, r.Total),
		StartDate:   utc(r.StartDate),
		EndDate:     utc(r.EndDate),

		PaymentTerms:    r.PaymentTerms,
		PaymentSchedule: schedule,
		Body:            r.Body,

		CustomerSignature: r.CustomerSignature,
		CustomerSignedAt:  utc(r.CustomerSignedAt),
		CompanySignature:  r.CompanySignature,
		CompanySignedAt:   utc(r.CompanySignedAt),

		SentAt: utc(r.SentAt), ViewedAt: utc(r.ViewedAt), SignedAt: utc(r.SignedAt), CancelledAt: utc(r.CancelledAt),
		CreatedBy: r.CreatedBy,
	}, nil
}

// ==================== Invoice ====================

type Invoice struct {
	ID, Number, ContactID            string
	ContractID                       *string
	Installment                      *int64
	Title, Status                    string
	LineItems                        []byte
	Subtotal, Tax, Discount, Total   int64
	DueDate                          *time.Time
	PaymentTerms, Notes              string
	SentAt, ViewedAt, PaidAt         *time.Time
	CancelledAt                      *time.Time
	CreatedBy                        string
	CreatedAt, UpdatedAt             time.Time
	Version                          int64
}

// FromInvoice drops the read-time balance projection; only the stored
// fields are mapped.
func FromInvoice(inv *invoice.Invoice) (*Invoice, error) {
	items, err := json.Marshal(inv.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	var installment *int64
	if inv.Installment != nil {
		n := int64(*inv.Installment)
		installment = &n
	}
	return &Invoice{
		ID: inv.ID.String(), Number: inv.Number, ContactID: inv.ContactID,
		ContractID:  optionalID(inv.ContractID),
		Installment: installment,
		Title:       inv.Title, Status: string(inv.Status),
		LineItems: items,
		Subtotal:  inv.Subtotal.Amount, Tax: inv.Tax.Amount, Discount: inv.Discount.Amount, Total: inv.Total.Amount,
		DueDate:      inv.DueDate,
		PaymentTerms: inv.PaymentTerms, Notes: inv.Notes,
		SentAt: inv.SentAt, ViewedAt: inv.ViewedAt, PaidAt: inv.PaidAt, CancelledAt: inv.CancelledAt,
		CreatedBy: inv.CreatedBy, CreatedAt: inv.CreatedAt, UpdatedAt: inv.UpdatedAt,
		Version: inv.Version,
	}, nil
}

func (r *Invoice) Values() []any {
	return []any{
		r.ID, r.Number, r.ContactID, r.ContractID, r.Installment, r.Title, r.Status,
		r.LineItems, r.Subtotal, r.Tax, r.Discount, r.Total,
		r.DueDate, r.PaymentTerms, r.Notes,
		r.SentAt, r.ViewedAt, r.PaidAt, r.CancelledAt,
		r.CreatedBy, r.CreatedAt, r.UpdatedAt, r.Version,
	}
}

func (r *Invoice) Targets() []any {
	return []any{
		&r.ID, &r.Number, &r.ContactID, &r.ContractID, &r.Installment, &r.Title, &r.Status,
		&r.LineItems, &r.Subtotal, &r.Tax, &r.Discount, &r.Total,
		&r.DueDate, &r.PaymentTerms, &r.Notes,
		&r.SentAt, &r.ViewedAt, &r.PaidAt, &r.CancelledAt,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	}
}

func (r *Invoice) Decode() (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(r.ID)
	if err != nil {
		return nil, err
	}
	ctrID, err := parseOptional(r.ContractID)
	if err != nil {
		return nil, err
	}
	var items lineitem.Items
	if err := decodeJSON(r.LineItems, &items); err != nil {
		return nil, fmt.Errorf("decode line items of %s: %w", r.ID, err)
	}
	var installment *int
	if r.Installment != nil {
		n := int(*r.Installment)
		installment = &n
	}
	return &invoice.Invoice{
		Entity:       entity(r.CreatedAt, r.UpdatedAt, r.Version),
		ID:           invID,
		Number:       r.Number,
		ContactID:    r.ContactID,
		ContractID:   ctrID,
		Installment:  installment,
		Title:        r.Title,
		Status:       invoice.Status(r.Status),
		LineItems:    items,
		Totals:       totals(r.Subtotal, r.Tax, r.Discount, r.Total),
		DueDate:      utc(r.DueDate),
		PaymentTerms: r.PaymentTerms,
		Notes:        r.Notes,
		SentAt:       utc(r.SentAt),
		ViewedAt:     utc(r.ViewedAt),
		PaidAt:       utc(r.PaidAt),
		CancelledAt:  utc(r.CancelledAt),
		CreatedBy:    r.CreatedBy,
	}, nil
}

// ==================== Payment ====================

type Payment struct {
	ID, InvoiceID, ContactID string
	Amount                   int64
	Method, Reference, Notes string
	Reverses                 *string
	RecordedAt               time.Time
	RecordedBy               string
}

func FromPayment(p *payment.Payment) *Payment {
	return &Payment{
		ID: p.ID.String(), InvoiceID: p.InvoiceID.String(), ContactID: p.ContactID,
		Amount: p.Amount.Amount, Method: string(p.Method), Reference: p.Reference, Notes: p.Notes,
		Reverses:   optionalID(p.Reverses),
		RecordedAt: p.RecordedAt, RecordedBy: p.RecordedBy,
	}
}

func (r *Payment) Values() []any {
	return []any{
		r.ID, r.InvoiceID, r.ContactID, r.Amount, r.Method, r.Reference, r.Notes,
		r.Reverses, r.RecordedAt, r.RecordedBy,
	}
}

func (r *Payment) Targets() []any {
	return []any{
		&r.ID, &r.InvoiceID, &r.ContactID, &r.Amount, &r.Method, &r.Reference, &r.Notes,
		&r.Reverses, &r.RecordedAt, &r.RecordedBy,
	}
}

func (r *Payment) Decode() (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(r.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(r.InvoiceID)
	if err != nil {
		return nil, err
	}
	reverses, err := parseOptional(r.Reverses)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		ID:         payID,
		InvoiceID:  invID,
		ContactID:  r.ContactID,
		Amount:     types.Cents(r.Amount),
		Method:     payment.Method(r.Method),
		Reference:  r.Reference,
		Notes:      r.Notes,
		Reverses:   reverses,
		RecordedAt: r.RecordedAt.UTC(),
		RecordedBy: r.RecordedBy,
	}, nil
}

// ==================== Audit ====================

type Audit struct {
	ID, DocumentID, Operation, ActorID, ActorRole string
	From, To, Detail                              string
	At                                            time.Time
}

func FromAudit(e *audit.Entry) *Audit {
	return &Audit{
		ID: e.ID.String(), DocumentID: e.DocumentID.String(), Operation: e.Operation,
		ActorID: e.ActorID, ActorRole: e.ActorRole,
		From: e.From, To: e.To, Detail: e.Detail, At: e.At,
	}
}

func (r *Audit) Values() []any {
	return []any{r.ID, r.DocumentID, r.Operation, r.ActorID, r.ActorRole, r.From, r.To, r.Detail, r.At}
}

func (r *Audit) Targets() []any {
	return []any{&r.ID, &r.DocumentID, &r.Operation, &r.ActorID, &r.ActorRole, &r.From, &r.To, &r.Detail, &r.At}
}

func (r *Audit) Decode() (*audit.Entry, error) {
	audID, err := id.ParseWithPrefix(r.ID, id.PrefixAudit)
	if err != nil {
		return nil, err
	}
	docID, err := id.Parse(r.DocumentID)
	if err != nil {
		return nil, err
	}
	return &audit.Entry{
		ID:         audID,
		DocumentID: docID,
		Operation:  r.Operation,
		ActorID:    r.ActorID,
		ActorRole:  r.ActorRole,
		From:       r.From,
		To:         r.To,
		Detail:     r.Detail,
		At:         r.At.UTC(),
	}, nil
}

// ==================== helpers ====================

// InstallmentKey is the uniqueness key of an installment invoice.
func InstallmentKey(inv *invoice.Invoice) string {
	if inv.Installment == nil || inv.ContractID.IsNil() {
		return ""
	}
	return fmt.Sprintf("%s#%d", inv.ContractID.String(), *inv.Installment)
}

func entity(created, updated time.Time, version int64) types.Entity {
	return types.Entity{CreatedAt: created.UTC(), UpdatedAt: updated.UTC(), Version: version}
}

func totals(subtotal, tax, discount, total int64) lineitem.Totals {
	return lineitem.Totals{
		Subtotal: types.Cents(subtotal),
		Tax:      types.Cents(tax),
		Discount: types.Cents(discount),
		Total:    types.Cents(total),
	}
}

func optionalID(v id.ID) *string {
	if v.IsNil() {
		return nil
	}
	s := v.String()
	return &s
}

func parseOptional(s *string) (id.ID, error) {
	if s == nil || *s == "" {
		return id.Nil, nil
	}
	return id.Parse(*s)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
