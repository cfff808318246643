package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store/internal/sqlrow"
	"github.com/xraph/salesdoc/types"
)

// ==================== Shared models ====================

type lineItemModel struct {
	ID          string `bson:"id"`
	Description string `bson:"description"`
	Quantity    string `bson:"quantity"`
	Unit        string `bson:"unit,omitempty"`
	UnitPrice   int64  `bson:"unit_price"`
	Total       int64  `bson:"total"`
}

type totalsModel struct {
	Subtotal int64 `bson:"subtotal"`
	Tax      int64 `bson:"tax"`
	Discount int64 `bson:"discount"`
	Total    int64 `bson:"total"`
}

func toLineItems(items lineitem.Items) []lineItemModel {
	out := make([]lineItemModel, len(items))
	for i, li := range items {
		out[i] = lineItemModel{
			ID:          li.ID.String(),
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			Unit:        li.Unit,
			UnitPrice:   li.UnitPrice.Amount,
			Total:       li.Total.Amount,
		}
	}
	return out
}

func fromLineItems(models []lineItemModel) (lineitem.Items, error) {
	if len(models) == 0 {
		return nil, nil
	}
	out := make(lineitem.Items, len(models))
	for i, m := range models {
		liID, err := id.ParseWithPrefix(m.ID, id.PrefixLineItem)
		if err != nil {
			return nil, err
		}
		qty, err := types.NewQuantity(m.Quantity)
		if err != nil {
			return nil, fmt.Errorf("line item %s: %w", m.ID, err)
		}
		out[i] = lineitem.LineItem{
			ID:          liID,
			Description: m.Description,
			Quantity:    qty,
			Unit:        m.Unit,
			UnitPrice:   types.Cents(m.UnitPrice),
			Total:       types.Cents(m.Total),
		}
	}
	return out, nil
}

func toTotals(t lineitem.Totals) totalsModel {
	return totalsModel{Subtotal: t.Subtotal.Amount, Tax: t.Tax.Amount, Discount: t.Discount.Amount, Total: t.Total.Amount}
}

func (m totalsModel) totals() lineitem.Totals {
	return lineitem.Totals{
		Subtotal: types.Cents(m.Subtotal),
		Tax:      types.Cents(m.Tax),
		Discount: types.Cents(m.Discount),
		Total:    types.Cents(m.Total),
	}
}

// ==================== Estimate models ====================

type estimateModel struct {
	ID            string          `bson:"_id"`
	Number        string          `bson:"number"`
	ContactID     string          `bson:"contact_id"`
	Title         string          `bson:"title"`
	Description   string          `bson:"description,omitempty"`
	Status        string          `bson:"status"`
	LineItems     []lineItemModel `bson:"line_items"`
	Totals        totalsModel     `bson:"totals"`
	ValidUntil    *time.Time      `bson:"valid_until,omitempty"`
	Terms         string          `bson:"terms,omitempty"`
	Notes         string          `bson:"notes,omitempty"`
	CustomerNotes string          `bson:"customer_notes,omitempty"`
	SentAt        *time.Time      `bson:"sent_at,omitempty"`
	ViewedAt      *time.Time      `bson:"viewed_at,omitempty"`
	ApprovedAt    *time.Time      `bson:"approved_at,omitempty"`
	RejectedAt    *time.Time      `bson:"rejected_at,omitempty"`
	ConvertedAt   *time.Time      `bson:"converted_at,omitempty"`
	CancelledAt   *time.Time      `bson:"cancelled_at,omitempty"`
	CreatedBy     string          `bson:"created_by"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`
	Version       int64           `bson:"version"`
}

func toEstimateModel(e *estimate.Estimate) *estimateModel {
	return &estimateModel{
		ID:            e.ID.String(),
		Number:        e.Number,
		ContactID:     e.ContactID,
		Title:         e.Title,
		Description:   e.Description,
		Status:        string(e.Status),
		LineItems:     toLineItems(e.LineItems),
		Totals:        toTotals(e.Totals),
		ValidUntil:    e.ValidUntil,
		Terms:         e.Terms,
		Notes:         e.Notes,
		CustomerNotes: e.CustomerNotes,
		SentAt:        e.SentAt,
		ViewedAt:      e.ViewedAt,
		ApprovedAt:    e.ApprovedAt,
		RejectedAt:    e.RejectedAt,
		ConvertedAt:   e.ConvertedAt,
		CancelledAt:   e.CancelledAt,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		Version:       e.Version,
	}
}

func fromEstimateModel(m *estimateModel) (*estimate.Estimate, error) {
	estID, err := id.ParseEstimateID(m.ID)
	if err != nil {
		return nil, err
	}
	items, err := fromLineItems(m.LineItems)
	if err != nil {
		return nil, err
	}
	return &estimate.Estimate{
		Entity:        entity(m.CreatedAt, m.UpdatedAt, m.Version),
		ID:            estID,
		Number:        m.Number,
		ContactID:     m.ContactID,
		Title:         m.Title,
		Description:   m.Description,
		Status:        estimate.Status(m.Status),
		LineItems:     items,
		Totals:        m.Totals.totals(),
		ValidUntil:    utc(m.ValidUntil),
		Terms:         m.Terms,
		Notes:         m.Notes,
		CustomerNotes: m.CustomerNotes,
		SentAt:        utc(m.SentAt),
		ViewedAt:      utc(m.ViewedAt),
		ApprovedAt:    utc(m.ApprovedAt),
		RejectedAt:    utc(m.RejectedAt),
		ConvertedAt:   utc(m.ConvertedAt),
		CancelledAt:   utc(m.CancelledAt),
		CreatedBy:     m.CreatedBy,
	}, nil
}

// ==================== Contract models ====================

type installmentModel struct {
	Description string     `bson:"description"`
	Amount      int64      `bson:"amount"`
	DueDate     *time.Time `bson:"due_date,omitempty"`
}

type contractModel struct {
	ID                string             `bson:"_id"`
	Number            string             `bson:"number"`
	ContactID         string             `bson:"contact_id"`
	EstimateID        string             `bson:"estimate_id,omitempty"`
	Title             string             `bson:"title"`
	Description       string             `bson:"description,omitempty"`
	Status            string             `bson:"status"`
	LineItems         []lineItemModel    `bson:"line_items"`
	Totals            totalsModel        `bson:"totals"`
	StartDate         *time.Time         `bson:"start_date,omitempty"`
	EndDate           *time.Time         `bson:"end_date,omitempty"`
	PaymentTerms      string             `bson:"payment_terms,omitempty"`
	PaymentSchedule   []installmentModel `bson:"payment_schedule,omitempty"`
	Body              string             `bson:"body,omitempty"`
	CustomerSignature string             `bson:"customer_signature,omitempty"`
	CustomerSignedAt  *time.Time         `bson:"customer_signed_at,omitempty"`
	CompanySignature  string             `bson:"company_signature,omitempty"`
	CompanySignedAt   *time.Time         `bson:"company_signed_at,omitempty"`
	SentAt            *time.Time         `bson:"sent_at,omitempty"`
	ViewedAt          *time.Time         `bson:"viewed_at,omitempty"`
	SignedAt          *time.Time         `bson:"signed_at,omitempty"`
	CancelledAt       *time.Time         `bson:"cancelled_at,omitempty"`
	CreatedBy         string             `bson:"created_by"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
	Version           int64              `bson:"version"`
}

func toContractModel(c *contract.Contract) *contractModel {
	var schedule []installmentModel
	for _, in := range c.PaymentSchedule {
		schedule = append(schedule, installmentModel{Description: in.Description, Amount: in.Amount.Amount, DueDate: in.DueDate})
	}
	return &contractModel{
		ID:                c.ID.String(),
		Number:            c.Number,
		ContactID:         c.ContactID,
		EstimateID:        c.EstimateID.String(),
		Title:             c.Title,
		Description:       c.Description,
		Status:            string(c.Status),
		LineItems:         toLineItems(c.LineItems),
		Totals:            toTotals(c.Totals),
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		PaymentTerms:      c.PaymentTerms,
		PaymentSchedule:   schedule,
		Body:              c.Body,
		CustomerSignature: c.CustomerSignature,
		CustomerSignedAt:  c.CustomerSignedAt,
		CompanySignature:  c.CompanySignature,
		CompanySignedAt:   c.CompanySignedAt,
		SentAt:            c.SentAt,
		ViewedAt:          c.ViewedAt,
		SignedAt:          c.SignedAt,
		CancelledAt:       c.CancelledAt,
		CreatedBy:         c.CreatedBy,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Version:           c.Version,
	}
}

func fromContractModel(m *contractModel) (*contract.Contract, error) {
	ctrID, err := id.ParseContractID(m.ID)
	if err != nil {
		return nil, err
	}
	var estID id.ID
	if m.EstimateID != "" {
		if estID, err = id.ParseEstimateID(m.EstimateID); err != nil {
			return nil, err
		}
	}
	items, err := fromLineItems(m.LineItems)
	if err != nil {
		return nil, err
	}
	var schedule []contract.Installment
	for _, in := range m.PaymentSchedule {
		schedule = append(schedule, contract.Installment{
			Description: in.Description,
			Amount:      types.Cents(in.Amount),
			DueDate:     utc(in.DueDate),
		})
	}
	return &contract.Contract{
		Entity:            entity(m.CreatedAt, m.UpdatedAt, m.Version),
		ID:                ctrID,
		Number:            m.Number,
		ContactID:         m.ContactID,
		EstimateID:        estID,
		Title:             m.Title,
		Description:       m.Description,
		Status:            contract.Status(m.Status),
		LineItems:         items,
		Totals:            m.Totals.totals(),
		StartDate:         utc(m.StartDate),
		EndDate:           utc(m.EndDate),
		PaymentTerms:      m.PaymentTerms,
		PaymentSchedule:   schedule,
		Body:              m.Body,
		CustomerSignature: m.CustomerSignature,
		CustomerSignedAt:  utc(m.CustomerSignedAt),
		CompanySignature:  m.CompanySignature,
		CompanySignedAt:   utc(m.CompanySignedAt),
		SentAt:            utc(m.SentAt),
		ViewedAt:          utc(m.ViewedAt),
		SignedAt:          utc(m.SignedAt),
		CancelledAt:       utc(m.CancelledAt),
		CreatedBy:         m.CreatedBy,
	}, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	ID           string          `bson:"_id"`
	Number       string          `bson:"number"`
	ContactID    string          `bson:"contact_id"`
	ContractID   string          `bson:"contract_id,omitempty"`
	Installment  *int            `bson:"installment,omitempty"`
	Title        string          `bson:"title"`
	Status       string          `bson:"status"`
	LineItems    []lineItemModel `bson:"line_items"`
	Totals       totalsModel     `bson:"totals"`
	DueDate      *time.Time      `bson:"due_date,omitempty"`
	PaymentTerms string          `bson:"payment_terms,omitempty"`
	Notes        string          `bson:"notes,omitempty"`
	SentAt       *time.Time      `bson:"sent_at,omitempty"`
	ViewedAt     *time.Time      `bson:"viewed_at,omitempty"`
	PaidAt       *time.Time      `bson:"paid_at,omitempty"`
	CancelledAt  *time.Time      `bson:"cancelled_at,omitempty"`
	CreatedBy    string          `bson:"created_by"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
	Version      int64           `bson:"version"`

	// InstallmentKey is set only while the invoice holds its installment;
	// a unique partial index on it enforces one live invoice per entry.
	InstallmentKey string `bson:"installment_key,omitempty"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	m := &invoiceModel{
		ID:           inv.ID.String(),
		Number:       inv.Number,
		ContactID:    inv.ContactID,
		ContractID:   inv.ContractID.String(),
		Installment:  inv.Installment,
		Title:        inv.Title,
		Status:       string(inv.Status),
		LineItems:    toLineItems(inv.LineItems),
		Totals:       toTotals(inv.Totals),
		DueDate:      inv.DueDate,
		PaymentTerms: inv.PaymentTerms,
		Notes:        inv.Notes,
		SentAt:       inv.SentAt,
		ViewedAt:     inv.ViewedAt,
		PaidAt:       inv.PaidAt,
		CancelledAt:  inv.CancelledAt,
		CreatedBy:    inv.CreatedBy,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Version:      inv.Version,
	}
	if inv.Status != invoice.StatusCancelled {
		m.InstallmentKey = sqlrow.InstallmentKey(inv)
	}
	return m
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	var ctrID id.ID
	if m.ContractID != "" {
		if ctrID, err = id.ParseContractID(m.ContractID); err != nil {
			return nil, err
		}
	}
	items, err := fromLineItems(m.LineItems)
	if err != nil {
		return nil, err
	}
	return &invoice.Invoice{
		Entity:       entity(m.CreatedAt, m.UpdatedAt, m.Version),
		ID:           invID,
		Number:       m.Number,
		ContactID:    m.ContactID,
		ContractID:   ctrID,
		Installment:  m.Installment,
		Title:        m.Title,
		Status:       invoice.Status(m.Status),
		LineItems:    items,
		Totals:       m.Totals.totals(),
		DueDate:      utc(m.DueDate),
		PaymentTerms: m.PaymentTerms,
		Notes:        m.Notes,
		SentAt:       utc(m.SentAt),
		ViewedAt:     utc(m.ViewedAt),
		PaidAt:       utc(m.PaidAt),
		CancelledAt:  utc(m.CancelledAt),
		CreatedBy:    m.CreatedBy,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	ID         string    `bson:"_id"`
	InvoiceID  string    `bson:"invoice_id"`
	ContactID  string    `bson:"contact_id"`
	Amount     int64     `bson:"amount"`
	Method     string    `bson:"method"`
	Reference  string    `bson:"reference,omitempty"`
	Notes      string    `bson:"notes,omitempty"`
	Reverses   string    `bson:"reverses,omitempty"`
	RecordedAt time.Time `bson:"recorded_at"`
	RecordedBy string    `bson:"recorded_by"`
	// Seq orders entries within an invoice; it is the invoice version the
	// entry was appended at.
	Seq int64 `bson:"seq"`
}

func toPaymentModel(p *payment.Payment, seq int64) *paymentModel {
	return &paymentModel{
		ID:         p.ID.String(),
		InvoiceID:  p.InvoiceID.String(),
		ContactID:  p.ContactID,
		Amount:     p.Amount.Amount,
		Method:     string(p.Method),
		Reference:  p.Reference,
		Notes:      p.Notes,
		Reverses:   p.Reverses.String(),
		RecordedAt: p.RecordedAt,
		RecordedBy: p.RecordedBy,
		Seq:        seq,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(m.InvoiceID)
	if err != nil {
		return nil, err
	}
	var reverses id.ID
	if m.Reverses != "" {
		if reverses, err = id.ParsePaymentID(m.Reverses); err != nil {
			return nil, err
		}
	}
	return &payment.Payment{
		ID:         payID,
		InvoiceID:  invID,
		ContactID:  m.ContactID,
		Amount:     types.Cents(m.Amount),
		Method:     payment.Method(m.Method),
		Reference:  m.Reference,
		Notes:      m.Notes,
		Reverses:   reverses,
		RecordedAt: m.RecordedAt.UTC(),
		RecordedBy: m.RecordedBy,
	}, nil
}

// ==================== Audit models ====================

type auditModel struct {
	ID         string    `bson:"_id"`
	DocumentID string    `bson:"document_id"`
	Operation  string    `bson:"operation"`
	ActorID    string    `bson:"actor_id"`
	ActorRole  string    `bson:"actor_role"`
	From       string    `bson:"from,omitempty"`
	To         string    `bson:"to,omitempty"`
	Detail     string    `bson:"detail,omitempty"`
	At         time.Time `bson:"at"`
}

func toAuditModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:         e.ID.String(),
		DocumentID: e.DocumentID.String(),
		Operation:  e.Operation,
		ActorID:    e.ActorID,
		ActorRole:  e.ActorRole,
		From:       e.From,
		To:         e.To,
		Detail:     e.Detail,
		At:         e.At,
	}
}

func fromAuditModel(m *auditModel) (*audit.Entry, error) {
	audID, err := id.ParseWithPrefix(m.ID, id.PrefixAudit)
	if err != nil {
		return nil, err
	}
	docID, err := id.Parse(m.DocumentID)
	if err != nil {
		return nil, err
	}
	return &audit.Entry{
		ID:         audID,
		DocumentID: docID,
		Operation:  m.Operation,
		ActorID:    m.ActorID,
		ActorRole:  m.ActorRole,
		From:       m.From,
		To:         m.To,
		Detail:     m.Detail,
		At:         m.At.UTC(),
	}, nil
}

type sequenceModel struct {
	Key   string `bson:"_id"`
	Value int64  `bson:"value"`
}

func entity(created, updated time.Time, version int64) types.Entity {
	return types.Entity{CreatedAt: created.UTC(), UpdatedAt: updated.UTC(), Version: version}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
