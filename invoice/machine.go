package invoice

import (
	"time"

	"github.com/xraph/salesdoc/fsm"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/types"
)

// Event drives the invoice state machine.
type Event string

const (
	EventEdit           Event = "edit"
	EventSend           Event = "send"
	EventView           Event = "view"
	EventPayPartial     Event = "pay_partial"
	EventPayFull        Event = "pay_full"
	EventReversePartial Event = "reverse_partial"
	EventReverseFull    Event = "reverse_full"
	EventCancel         Event = "cancel"
)

type row = fsm.Transition[Status, Event]

// Machine is the invoice transition table. Payments are only accepted once
// the invoice has been issued; a draft must be sent first.
var Machine = fsm.New[Status, Event]("invoice",
	row{From: StatusDraft, Event: EventEdit, To: StatusDraft},
	row{From: StatusDraft, Event: EventSend, To: StatusSent},
	row{From: StatusSent, Event: EventView, To: StatusViewed},

	row{From: StatusSent, Event: EventPayPartial, To: StatusPartiallyPaid},
	row{From: StatusViewed, Event: EventPayPartial, To: StatusPartiallyPaid},
	row{From: StatusPartiallyPaid, Event: EventPayPartial, To: StatusPartiallyPaid},
	row{From: StatusSent, Event: EventPayFull, To: StatusPaid},
	row{From: StatusViewed, Event: EventPayFull, To: StatusPaid},
	row{From: StatusPartiallyPaid, Event: EventPayFull, To: StatusPaid},

	row{From: StatusPaid, Event: EventReversePartial, To: StatusPartiallyPaid},
	row{From: StatusPartiallyPaid, Event: EventReversePartial, To: StatusPartiallyPaid},
	row{From: StatusPaid, Event: EventReverseFull, To: StatusSent},
	row{From: StatusPartiallyPaid, Event: EventReverseFull, To: StatusSent},

	row{From: StatusDraft, Event: EventCancel, To: StatusCancelled},
	row{From: StatusSent, Event: EventCancel, To: StatusCancelled},
	row{From: StatusViewed, Event: EventCancel, To: StatusCancelled},
	row{From: StatusPartiallyPaid, Event: EventCancel, To: StatusCancelled},
)

// Apply fires ev at time at. On error the invoice is unchanged.
func (inv *Invoice) Apply(ev Event, at time.Time) error {
	next, err := Machine.Next(inv.Status, ev)
	if err != nil {
		return err
	}

	t := at.UTC()
	switch ev {
	case EventSend:
		inv.SentAt = &t
	case EventView:
		inv.ViewedAt = &t
	case EventPayFull:
		inv.PaidAt = &t
	case EventReversePartial, EventReverseFull:
		inv.PaidAt = nil
	case EventCancel:
		inv.CancelledAt = &t
	}

	inv.Status = next
	inv.Touch(t)
	return nil
}

// PaymentEvent picks the event for a posting that leaves paid recorded
// against total.
func PaymentEvent(paid, total types.Money) Event {
	if !paid.LessThan(total) {
		return EventPayFull
	}
	return EventPayPartial
}

// ReversalEvent picks the event for a reversal that leaves paid recorded.
func ReversalEvent(paid types.Money) Event {
	if paid.IsPositive() {
		return EventReversePartial
	}
	return EventReverseFull
}

// Revise replaces the priced content of a draft invoice.
func (inv *Invoice) Revise(items lineitem.Items, totals lineitem.Totals, at time.Time) error {
	if err := inv.Apply(EventEdit, at); err != nil {
		return err
	}
	inv.LineItems = items
	inv.Totals = totals
	return nil
}
