// Package audithook bridges salesdoc lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time. The store keeps its own per-document history; this hook feeds an
// organisation-wide trail.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/salesdoc/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnDocumentCreated   = (*Extension)(nil)
	_ plugin.OnStatusChanged     = (*Extension)(nil)
	_ plugin.OnDocumentConverted = (*Extension)(nil)
	_ plugin.OnPaymentRecorded   = (*Extension)(nil)
	_ plugin.OnOperationFailed   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Document hooks
// ──────────────────────────────────────────────────

// OnDocumentCreated implements plugin.OnDocumentCreated.
func (e *Extension) OnDocumentCreated(ctx context.Context, doc plugin.Document) error {
	return e.record(ctx, doc.Kind+".created", SeverityInfo, OutcomeSuccess,
		doc.Kind, doc.ID, "", CategorySales, nil,
		"number", doc.Number,
		"contact_id", doc.ContactID,
		"total", doc.Total.String(),
	)
}

// OnStatusChanged implements plugin.OnStatusChanged.
func (e *Extension) OnStatusChanged(ctx context.Context, t plugin.Transition) error {
	severity := SeverityInfo
	if t.To == "cancelled" || t.To == "rejected" {
		severity = SeverityWarning
	}
	return e.record(ctx, t.Document.Kind+"."+t.Operation, severity, OutcomeSuccess,
		t.Document.Kind, t.Document.ID, t.ActorID, CategorySales, nil,
		"number", t.Document.Number,
		"from", t.From,
		"to", t.To,
		"actor_role", t.ActorRole,
	)
}

// OnDocumentConverted implements plugin.OnDocumentConverted. Estimate
// conversions are already reported as the "estimate.convert" transition,
// so only contract invoicing is recorded here.
func (e *Extension) OnDocumentConverted(ctx context.Context, c plugin.Conversion) error {
	if c.Source.Kind != ResourceContract {
		return nil
	}
	return e.record(ctx, ActionContractInvoiced, SeverityInfo, OutcomeSuccess,
		ResourceContract, c.Source.ID, c.ActorID, CategorySales, nil,
		"invoice_id", c.Target.ID,
		"invoice_number", c.Target.Number,
		"total", c.Target.Total.String(),
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, p plugin.PaymentEvent) error {
	action, severity := ActionPaymentRecorded, SeverityInfo
	if p.Reversal {
		action, severity = ActionPaymentReversed, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourcePayment, p.PaymentID, p.ActorID, CategoryPayment, nil,
		"invoice_id", p.InvoiceID,
		"amount", p.Amount.String(),
		"method", p.Method,
		"paid", p.Paid.String(),
		"due", p.Due.String(),
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed. Not-found and
// validation failures are noise and are skipped.
func (e *Extension) OnOperationFailed(ctx context.Context, f plugin.Failure) error {
	switch f.Kind {
	case "NotFound", "InvalidInput":
		return nil
	}

	severity := SeverityWarning
	category := CategorySales
	switch f.Kind {
	case "Unauthorized":
		category = CategoryAccess
	case "OverpaymentRejected", "InvalidAmount", "AlreadyReversed":
		category = CategoryPayment
	case "NumberingBackendUnavailable", "Internal":
		severity = SeverityError
	}
	return e.record(ctx, ActionOperationFailed, severity, OutcomeFailure,
		resourceOf(f.DocumentID), f.DocumentID, f.ActorID, category, f.Err,
		"operation", f.Operation,
		"kind", f.Kind,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// resourceOf maps an id prefix onto a resource name.
func resourceOf(docID string) string {
	if len(docID) < 4 {
		return ""
	}
	switch docID[:4] {
	case "est_":
		return ResourceEstimate
	case "ctr_":
		return ResourceContract
	case "inv_":
		return ResourceInvoice
	case "pay_":
		return ResourcePayment
	}
	return ""
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, actorID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		ActorID:    actorID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
