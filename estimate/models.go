// Package estimate models a priced proposal sent to a customer for approval.
package estimate

import (
	"time"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/types"
)

// Status is the lifecycle state of an estimate.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
	StatusCancelled Status = "cancelled"
)

// Estimate is a proposal. It is edited only while in draft.
type Estimate struct {
	types.Entity
	ID          id.EstimateID  `json:"id"`
	Number      string         `json:"number"`
	ContactID   string         `json:"contact_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      Status         `json:"status"`
	LineItems   lineitem.Items `json:"line_items"`
	lineitem.Totals

	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	Terms         string     `json:"terms_and_conditions,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CustomerNotes string     `json:"customer_notes,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
}

// Clone returns a deep copy.
func (e *Estimate) Clone() *Estimate {
	c := *e
	c.LineItems = e.LineItems.Clone()
	c.ValidUntil = cloneTime(e.ValidUntil)
	c.SentAt = cloneTime(e.SentAt)
	c.ViewedAt = cloneTime(e.ViewedAt)
	c.ApprovedAt = cloneTime(e.ApprovedAt)
	c.RejectedAt = cloneTime(e.RejectedAt)
	c.ConvertedAt = cloneTime(e.ConvertedAt)
	c.CancelledAt = cloneTime(e.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
