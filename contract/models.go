// Package contract models the signed agreement that follows an approved
// estimate and precedes invoicing.
package contract

import (
	"time"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/types"
)

// Status is the lifecycle state of a contract.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusSigned    Status = "signed"
	StatusCancelled Status = "cancelled"
)

// Party identifies a signatory.
type Party string

const (
	PartyCustomer Party = "customer"
	PartyCompany  Party = "company"
)

// Contract is an agreement awaiting both signatures. A contract with exactly
// one signature stays in sent or viewed; there is no partially-signed state.
type Contract struct {
	types.Entity
	ID          id.ContractID `json:"id"`
	Number      string        `json:"number"`
	ContactID   string        `json:"contact_id"`
	EstimateID  id.EstimateID `json:"estimate_id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      Status        `json:"status"`

	LineItems lineitem.Items `json:"line_items"`
	lineitem.Totals

	StartDate       *time.Time    `json:"start_date,omitempty"`
	EndDate         *time.Time    `json:"end_date,omitempty"`
	PaymentTerms    string        `json:"payment_terms,omitempty"`
	PaymentSchedule []Installment `json:"payment_schedule,omitempty"`
	Body            string        `json:"contract_body,omitempty"`

	CustomerSignature string     `json:"customer_signature,omitempty"`
	CustomerSignedAt  *time.Time `json:"customer_signed_at,omitempty"`
	CompanySignature  string     `json:"company_signature,omitempty"`
	CompanySignedAt   *time.Time `json:"company_signed_at,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
}

// Amount is the contract value.
func (c *Contract) Amount() types.Money { return c.Total }

// Clone returns a deep copy.
func (c *Contract) Clone() *Contract {
	out := *c
	out.LineItems = c.LineItems.Clone()
	out.StartDate = cloneTime(c.StartDate)
	out.EndDate = cloneTime(c.EndDate)
	out.CustomerSignedAt = cloneTime(c.CustomerSignedAt)
	out.CompanySignedAt = cloneTime(c.CompanySignedAt)
	out.SentAt = cloneTime(c.SentAt)
	out.ViewedAt = cloneTime(c.ViewedAt)
	out.SignedAt = cloneTime(c.SignedAt)
	out.CancelledAt = cloneTime(c.CancelledAt)
	if c.PaymentSchedule != nil {
		out.PaymentSchedule = make([]Installment, len(c.PaymentSchedule))
		for i, in := range c.PaymentSchedule {
			in.DueDate = cloneTime(in.DueDate)
			out.PaymentSchedule[i] = in
		}
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
