// Package id defines TypeID-based identifiers for sales documents and the
// records hanging off them.
//
// The prefix names the entity ("est_01h2xcejqtf2nbrexx3vqjhp41"), which lets a
// caller hand the engine any document id and have it routed to the right
// state machine without a separate type tag.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants.
const (
	PrefixEstimate Prefix = "est" // Estimate
	PrefixContract Prefix = "ctr" // Contract
	PrefixInvoice  Prefix = "inv" // Invoice
	PrefixLineItem Prefix = "li"  // Line item on any document
	PrefixPayment  Prefix = "pay" // Payment ledger entry
	PrefixAudit    Prefix = "aud" // Audit entry
)

// ID wraps a TypeID. The zero value is Nil.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string of any prefix.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks that it carries the expected prefix.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// ──────────────────────────────────────────────────
// Typed aliases
// ──────────────────────────────────────────────────

// EstimateID identifies an estimate (prefix: "est").
type EstimateID = ID

// ContractID identifies a contract (prefix: "ctr").
type ContractID = ID

// InvoiceID identifies an invoice (prefix: "inv").
type InvoiceID = ID

// LineItemID identifies a line item (prefix: "li").
type LineItemID = ID

// PaymentID identifies a payment (prefix: "pay").
type PaymentID = ID

// AuditID identifies an audit entry (prefix: "aud").
type AuditID = ID

// NewEstimateID generates a new estimate ID.
func NewEstimateID() ID { return New(PrefixEstimate) }

// NewContractID generates a new contract ID.
func NewContractID() ID { return New(PrefixContract) }

// NewInvoiceID generates a new invoice ID.
func NewInvoiceID() ID { return New(PrefixInvoice) }

// NewLineItemID generates a new line item ID.
func NewLineItemID() ID { return New(PrefixLineItem) }

// NewPaymentID generates a new payment ID.
func NewPaymentID() ID { return New(PrefixPayment) }

// NewAuditID generates a new audit entry ID.
func NewAuditID() ID { return New(PrefixAudit) }

// ParseEstimateID parses a string and validates the "est" prefix.
func ParseEstimateID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEstimate) }

// ParseContractID parses a string and validates the "ctr" prefix.
func ParseContractID(s string) (ID, error) { return ParseWithPrefix(s, PrefixContract) }

// ParseInvoiceID parses a string and validates the "inv" prefix.
func ParseInvoiceID(s string) (ID, error) { return ParseWithPrefix(s, PrefixInvoice) }

// ParsePaymentID parses a string and validates the "pay" prefix.
func ParsePaymentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPayment) }

// ParseDocumentID parses an estimate, contract or invoice id.
func ParseDocumentID(s string) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if !parsed.IsDocument() {
		return Nil, fmt.Errorf("id: %q is not a document id", s)
	}
	return parsed, nil
}

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// IsDocument reports whether the ID names an estimate, contract or invoice.
func (i ID) IsDocument() bool {
	switch i.Prefix() {
	case PrefixEstimate, PrefixContract, PrefixInvoice:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil stores NULL so optional lineage
// columns stay empty.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
