package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/xraph/salesdoc/plugin"
)

// Audiences a message is addressed to.
const (
	AudienceCustomer = "customer"
	AudienceStaff    = "staff"
)

// Message is a rendered notification.
type Message struct {
	Audience   string
	ContactID  string
	DocumentID string
	Subject    string
	Body       string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc is an adapter to use a plain function as a Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LogSender writes messages to a logger. It is the default for local runs.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"audience", msg.Audience,
		"contact_id", msg.ContactID,
		"document_id", msg.DocumentID,
		"subject", msg.Subject,
	)
	return nil
}

// Processor handles notification tasks.
type Processor struct {
	sender Sender
}

// NewProcessor creates a Processor delivering through sender.
func NewProcessor(sender Sender) *Processor {
	return &Processor{sender: sender}
}

// Register wires the notification handlers into mux.
func Register(mux *asynq.ServeMux, sender Sender) {
	p := NewProcessor(sender)
	mux.HandleFunc(TypeStatusChanged, p.HandleStatusChanged)
	mux.HandleFunc(TypePaymentRecorded, p.HandlePaymentRecorded)
}

// HandleStatusChanged delivers a state change notice. Transitions nobody
// needs to hear about are dropped.
func (p *Processor) HandleStatusChanged(ctx context.Context, t *asynq.Task) error {
	var tr plugin.Transition
	if err := json.Unmarshal(t.Payload(), &tr); err != nil {
		return fmt.Errorf("notify: unmarshal transition: %v: %w", err, asynq.SkipRetry)
	}

	msg, ok := RenderTransition(tr)
	if !ok {
		return nil
	}
	return p.sender.Send(ctx, msg)
}

// HandlePaymentRecorded delivers a receipt or reversal notice.
func (p *Processor) HandlePaymentRecorded(ctx context.Context, t *asynq.Task) error {
	var ev plugin.PaymentEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("notify: unmarshal payment: %v: %w", err, asynq.SkipRetry)
	}
	return p.sender.Send(ctx, RenderPayment(ev))
}

// RenderTransition builds the message for a state change. Documents going
// out are announced to the customer; customer decisions are announced to
// staff.
func RenderTransition(t plugin.Transition) (Message, bool) {
	doc := t.Document
	label := documentLabel(doc)

	msg := Message{ContactID: doc.ContactID, DocumentID: doc.ID}
	switch {
	case t.Operation == "send":
		msg.Audience = AudienceCustomer
		msg.Subject = fmt.Sprintf("%s is ready for you", label)
		msg.Body = fmt.Sprintf("%s for %s has been sent to you.", label, doc.Total)
	case t.To == "cancelled":
		msg.Audience = AudienceCustomer
		msg.Subject = fmt.Sprintf("%s was cancelled", label)
		msg.Body = fmt.Sprintf("%s has been cancelled.", label)
	case t.Operation == "view":
		msg.Audience = AudienceStaff
		msg.Subject = fmt.Sprintf("%s was opened", label)
		msg.Body = fmt.Sprintf("Contact %s opened %s.", doc.ContactID, label)
	case t.To == "approved", t.To == "rejected", t.To == "signed":
		msg.Audience = AudienceStaff
		msg.Subject = fmt.Sprintf("%s was %s", label, t.To)
		msg.Body = fmt.Sprintf("Contact %s %s %s.", doc.ContactID, t.To, label)
	case t.To == "paid":
		msg.Audience = AudienceCustomer
		msg.Subject = fmt.Sprintf("%s is paid in full", label)
		msg.Body = fmt.Sprintf("Thank you, %s is settled.", label)
	default:
		return Message{}, false
	}
	return msg, true
}

// RenderPayment builds the receipt for a ledger entry.
func RenderPayment(p plugin.PaymentEvent) Message {
	msg := Message{
		Audience:   AudienceCustomer,
		ContactID:  p.ContactID,
		DocumentID: p.InvoiceID,
	}
	if p.Reversal {
		msg.Subject = "Payment reversed"
		msg.Body = fmt.Sprintf("A payment of %s was reversed. Amount due: %s.", p.Amount.Abs(), p.Due)
		return msg
	}
	msg.Subject = "Payment received"
	msg.Body = fmt.Sprintf("We received %s by %s. Amount due: %s.", p.Amount, p.Method, p.Due)
	return msg
}

func documentLabel(doc plugin.Document) string {
	kind := doc.Kind
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	if doc.Number == "" {
		return kind
	}
	return kind + " " + doc.Number
}
