package salesdoc

import (
	"errors"

	"github.com/xraph/salesdoc/fsm"
	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Lifecycle errors
	ErrInvalidTransition   = fsm.ErrInvalidTransition
	ErrNotConvertible      = errors.New("salesdoc: document is not convertible")
	ErrAlreadyConverted    = errors.New("salesdoc: estimate already converted")
	ErrAlreadyInvoiced     = errors.New("salesdoc: installment already invoiced")
	ErrOverpaymentRejected = errors.New("salesdoc: payment exceeds amount due")
	ErrInvalidAmount       = errors.New("salesdoc: payment amount must be positive")
	ErrAlreadyReversed     = errors.New("salesdoc: payment already reversed")

	// Access errors
	ErrUnauthorized = errors.New("salesdoc: unauthorized")
	ErrNotFound     = errors.New("salesdoc: not found")

	// Numbering errors
	ErrNumberingBackendUnavailable = numbering.ErrUnavailable

	// Store errors
	ErrAlreadyExists   = errors.New("salesdoc: already exists")
	ErrVersionConflict = errors.New("salesdoc: version conflict")
	ErrConflict        = ErrVersionConflict // returned once conflict retries are exhausted
	ErrStoreClosed     = errors.New("salesdoc: store is closed")

	// Input errors
	ErrInvalidInput = types.ErrInvalidInput
)

// ValidationError represents a validation failure with details.
type ValidationError = types.ValidationError

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRecoverable returns true if the caller should reload the document and
// may try again.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrAlreadyConverted) ||
		errors.Is(err, ErrOverpaymentRejected) ||
		errors.Is(err, ErrVersionConflict)
}

// Kind returns the taxonomy label for err, suitable for UIs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrAlreadyConverted):
		return "AlreadyConverted"
	case errors.Is(err, ErrAlreadyInvoiced):
		return "AlreadyInvoiced"
	case errors.Is(err, ErrOverpaymentRejected):
		return "OverpaymentRejected"
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrAlreadyReversed):
		return "AlreadyReversed"
	case errors.Is(err, ErrNotConvertible):
		return "NotConvertible"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrNumberingBackendUnavailable):
		return "NumberingBackendUnavailable"
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrAlreadyExists):
		return "Conflict"
	case errors.Is(err, ErrStoreClosed):
		return "Unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	default:
		return "Internal"
	}
}

// StaleDocumentMessage is what customers see when their view of a document
// is out of date.
const StaleDocumentMessage = "this document was just updated, please refresh"

// StaleKind is the label customers see in place of the races that
// CustomerMessage collapses.
const StaleKind = "Stale"

// CustomerKind is Kind as shown to customers.
func CustomerKind(err error) string {
	switch k := Kind(err); k {
	case "InvalidTransition", "AlreadyConverted", "Conflict":
		return StaleKind
	default:
		return k
	}
}

// CustomerMessage returns the message shown to customers for err. Races the
// customer cannot act on are collapsed into StaleDocumentMessage.
func CustomerMessage(err error) string {
	switch Kind(err) {
	case "InvalidTransition", "AlreadyConverted", "Conflict":
		return StaleDocumentMessage
	case "OverpaymentRejected":
		return "the payment is larger than the amount due"
	case "NotFound", "Unauthorized":
		return "document not found"
	case "InvalidInput", "InvalidAmount":
		return err.Error()
	default:
		return "something went wrong, please try again later"
	}
}
