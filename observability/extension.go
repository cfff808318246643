// Package observability provides a metrics extension for salesdoc that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/salesdoc/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnDocumentCreated   = (*MetricsExtension)(nil)
	_ plugin.OnStatusChanged     = (*MetricsExtension)(nil)
	_ plugin.OnDocumentConverted = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded   = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a salesdoc plugin to track document throughput.
type MetricsExtension struct {
	factory MetricFactory

	// Document metrics
	EstimateCreated Counter
	ContractCreated Counter
	InvoiceCreated  Counter
	DocumentTotal   Histogram

	// Estimate outcomes
	EstimateApproved  Counter
	EstimateRejected  Counter
	EstimateConverted Counter

	// Contract outcomes
	ContractSigned   Counter
	ContractInvoiced Counter

	// Invoice outcomes
	InvoiceSent      Counter
	InvoicePaid      Counter
	DocumentCanceled Counter

	// Payment metrics
	PaymentsRecorded Counter
	PaymentsReversed Counter
	PaymentAmount    Histogram

	// Error metrics
	OperationFailures Counter
	ConflictFailures  Counter
	NumberingFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		EstimateCreated: factory.Counter("salesdoc.estimate.created"),
		ContractCreated: factory.Counter("salesdoc.contract.created"),
		InvoiceCreated:  factory.Counter("salesdoc.invoice.created"),
		DocumentTotal:   factory.Histogram("salesdoc.document.total_amount"),

		EstimateApproved:  factory.Counter("salesdoc.estimate.approved"),
		EstimateRejected:  factory.Counter("salesdoc.estimate.rejected"),
		EstimateConverted: factory.Counter("salesdoc.estimate.converted"),

		ContractSigned:   factory.Counter("salesdoc.contract.signed"),
		ContractInvoiced: factory.Counter("salesdoc.contract.invoiced"),

		InvoiceSent:      factory.Counter("salesdoc.invoice.sent"),
		InvoicePaid:      factory.Counter("salesdoc.invoice.paid"),
		DocumentCanceled: factory.Counter("salesdoc.document.cancelled"),

		PaymentsRecorded: factory.Counter("salesdoc.payment.recorded"),
		PaymentsReversed: factory.Counter("salesdoc.payment.reversed"),
		PaymentAmount:    factory.Histogram("salesdoc.payment.amount"),

		OperationFailures: factory.Counter("salesdoc.operation.failures"),
		ConflictFailures:  factory.Counter("salesdoc.operation.conflicts"),
		NumberingFailures: factory.Counter("salesdoc.numbering.failures"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ──────────────────────────────────────────────────
// Document hooks
// ──────────────────────────────────────────────────

// OnDocumentCreated implements plugin.OnDocumentCreated.
func (m *MetricsExtension) OnDocumentCreated(_ context.Context, doc plugin.Document) error {
	switch doc.Kind {
	case "estimate":
		m.EstimateCreated.Inc()
	case "contract":
		m.ContractCreated.Inc()
	case "invoice":
		m.InvoiceCreated.Inc()
	}
	m.DocumentTotal.Observe(doc.Total.Decimal().InexactFloat64())
	return nil
}

// OnStatusChanged implements plugin.OnStatusChanged. Same-state
// transitions (edits, partial signatures) are not counted.
func (m *MetricsExtension) OnStatusChanged(_ context.Context, t plugin.Transition) error {
	if t.From == t.To {
		return nil
	}

	switch {
	case t.To == "cancelled":
		m.DocumentCanceled.Inc()
	case t.Document.Kind == "estimate" && t.To == "approved":
		m.EstimateApproved.Inc()
	case t.Document.Kind == "estimate" && t.To == "rejected":
		m.EstimateRejected.Inc()
	case t.Document.Kind == "estimate" && t.To == "converted":
		m.EstimateConverted.Inc()
	case t.Document.Kind == "contract" && t.To == "signed":
		m.ContractSigned.Inc()
	case t.Document.Kind == "invoice" && t.To == "sent" && t.From == "draft":
		m.InvoiceSent.Inc()
	case t.Document.Kind == "invoice" && t.To == "paid":
		m.InvoicePaid.Inc()
	}
	return nil
}

// OnDocumentConverted implements plugin.OnDocumentConverted.
func (m *MetricsExtension) OnDocumentConverted(_ context.Context, c plugin.Conversion) error {
	if c.Source.Kind == "contract" {
		m.ContractInvoiced.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, p plugin.PaymentEvent) error {
	if p.Reversal {
		m.PaymentsReversed.Inc()
		return nil
	}
	m.PaymentsRecorded.Inc()
	m.PaymentAmount.Observe(p.Amount.Decimal().InexactFloat64())
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, f plugin.Failure) error {
	m.OperationFailures.Inc()
	switch f.Kind {
	case "Conflict":
		m.ConflictFailures.Inc()
	case "NumberingBackendUnavailable":
		m.NumberingFailures.Inc()
	}
	return nil
}
