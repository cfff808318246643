package audithook

// Action constants for audit events. Transition actions are
// "<document kind>.<operation>".
const (
	// Estimate actions
	ActionEstimateCreated   = "estimate.created"
	ActionEstimateEdited    = "estimate.edit"
	ActionEstimateSent      = "estimate.send"
	ActionEstimateViewed    = "estimate.view"
	ActionEstimateApproved  = "estimate.approve"
	ActionEstimateRejected  = "estimate.reject"
	ActionEstimateConverted = "estimate.convert"
	ActionEstimateCancelled = "estimate.cancel"

	// Contract actions
	ActionContractCreated   = "contract.created"
	ActionContractEdited    = "contract.edit"
	ActionContractSent      = "contract.send"
	ActionContractViewed    = "contract.view"
	ActionContractSigned    = "contract.sign"
	ActionContractInvoiced  = "contract.invoiced"
	ActionContractCancelled = "contract.cancel"

	// Invoice actions
	ActionInvoiceCreated         = "invoice.created"
	ActionInvoiceEdited          = "invoice.edit"
	ActionInvoiceSent            = "invoice.send"
	ActionInvoiceViewed          = "invoice.view"
	ActionInvoicePaymentApplied  = "invoice.record_payment"
	ActionInvoicePaymentReversed = "invoice.reverse_payment"
	ActionInvoiceCancelled       = "invoice.cancel"

	// Payment actions
	ActionPaymentRecorded = "payment.recorded"
	ActionPaymentReversed = "payment.reversed"

	// Failures
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceEstimate = "estimate"
	ResourceContract = "contract"
	ResourceInvoice  = "invoice"
	ResourcePayment  = "payment"
)

// Category constants for audit events.
const (
	CategorySales   = "sales"
	CategoryPayment = "payment"
	CategoryAccess  = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
