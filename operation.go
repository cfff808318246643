package salesdoc

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/plugin"
	"github.com/xraph/salesdoc/types"
)

// Document kinds reported to plugins.
const (
	DocumentEstimate = "estimate"
	DocumentContract = "contract"
	DocumentInvoice  = "invoice"
)

// errUnchanged short-circuits a mutation that turned out to be a no-op.
var errUnchanged = errors.New("salesdoc: unchanged")

// trace opens a span for a facade call. The returned func closes it and
// reports failures to plugins.
func (e *Engine) trace(ctx context.Context, operation string, actor Actor, docID id.ID) (context.Context, func(error)) {
	ctx, span := e.tracer.Start(ctx, "salesdoc."+operation,
		trace.WithAttributes(
			attribute.String("salesdoc.operation", operation),
			attribute.String("salesdoc.actor.role", string(actor.Role)),
			attribute.String("salesdoc.document.id", docID.String()),
		),
	)

	return ctx, func(err error) {
		defer span.End()
		if err == nil {
			return
		}

		kind := Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)

		e.logger.Debug("salesdoc operation failed",
			"operation", operation,
			"document_id", docID.String(),
			"actor_id", actor.ID,
			"kind", kind,
			"error", err,
		)
		e.plugins.EmitOperationFailed(ctx, plugin.Failure{
			Operation:  operation,
			DocumentID: docID.String(),
			ActorID:    actor.ID,
			Kind:       kind,
			Err:        err,
		})
	}
}

// retry runs fn until it succeeds, fails with something other than a
// version conflict, or runs out of attempts. fn must reload whatever it
// writes.
func (e *Engine) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= e.conflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		e.logger.Debug("version conflict, retrying", "attempt", attempt)
	}
	return err
}

func (e *Engine) entry(docID id.ID, operation string, actor Actor, from, to, detail string) *audit.Entry {
	return &audit.Entry{
		ID:         id.NewAuditID(),
		DocumentID: docID,
		Operation:  operation,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		From:       from,
		To:         to,
		Detail:     detail,
		At:         e.now(),
	}
}

func (e *Engine) emitTransition(ctx context.Context, doc plugin.Document, operation, from, to string, actor Actor) {
	e.plugins.EmitStatusChanged(ctx, plugin.Transition{
		Document:  doc,
		Operation: operation,
		From:      from,
		To:        to,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		At:        e.now(),
	})
}

// price builds line items and totals from caller input.
func price(inputs []lineitem.Input, tax, discount types.Money) (lineitem.Items, lineitem.Totals, error) {
	items, err := lineitem.Build(inputs)
	if err != nil {
		return nil, lineitem.Totals{}, err
	}
	totals, err := lineitem.Compute(items, tax, discount)
	if err != nil {
		return nil, lineitem.Totals{}, err
	}
	return items, totals, nil
}

// ──────────────────────────────────────────────────
// Plugin payloads
// ──────────────────────────────────────────────────

func estimateDoc(est *estimate.Estimate) plugin.Document {
	return plugin.Document{
		ID:        est.ID.String(),
		Kind:      DocumentEstimate,
		Number:    est.Number,
		ContactID: est.ContactID,
		Status:    string(est.Status),
		Total:     est.Total,
	}
}

func contractDoc(c *contract.Contract) plugin.Document {
	return plugin.Document{
		ID:        c.ID.String(),
		Kind:      DocumentContract,
		Number:    c.Number,
		ContactID: c.ContactID,
		Status:    string(c.Status),
		Total:     c.Total,
	}
}

func invoiceDoc(inv *invoice.Invoice) plugin.Document {
	return plugin.Document{
		ID:        inv.ID.String(),
		Kind:      DocumentInvoice,
		Number:    inv.Number,
		ContactID: inv.ContactID,
		Status:    string(inv.Status),
		Total:     inv.Total,
	}
}
