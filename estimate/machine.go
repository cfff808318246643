package estimate

import (
	"time"

	"github.com/xraph/salesdoc/fsm"
	"github.com/xraph/salesdoc/lineitem"
)

// Event drives the estimate state machine.
type Event string

const (
	EventEdit    Event = "edit"
	EventSend    Event = "send"
	EventView    Event = "view"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventConvert Event = "convert"
	EventCancel  Event = "cancel"
)

type row = fsm.Transition[Status, Event]

// Machine is the estimate transition table. Customers may approve or reject
// from sent as well as viewed; viewed is telemetry, not a gate.
var Machine = fsm.New[Status, Event]("estimate",
	row{From: StatusDraft, Event: EventEdit, To: StatusDraft},
	row{From: StatusDraft, Event: EventSend, To: StatusSent},
	row{From: StatusSent, Event: EventView, To: StatusViewed},
	row{From: StatusSent, Event: EventApprove, To: StatusApproved},
	row{From: StatusViewed, Event: EventApprove, To: StatusApproved},
	row{From: StatusSent, Event: EventReject, To: StatusRejected},
	row{From: StatusViewed, Event: EventReject, To: StatusRejected},
	row{From: StatusApproved, Event: EventConvert, To: StatusConverted},
	row{From: StatusDraft, Event: EventCancel, To: StatusCancelled},
	row{From: StatusSent, Event: EventCancel, To: StatusCancelled},
	row{From: StatusViewed, Event: EventCancel, To: StatusCancelled},
	row{From: StatusApproved, Event: EventCancel, To: StatusCancelled},
)

// Apply fires ev at time at. On error the estimate is unchanged.
func (e *Estimate) Apply(ev Event, at time.Time) error {
	next, err := Machine.Next(e.Status, ev)
	if err != nil {
		return err
	}

	t := at.UTC()
	switch ev {
	case EventSend:
		e.SentAt = &t
	case EventView:
		e.ViewedAt = &t
	case EventApprove:
		e.ApprovedAt = &t
	case EventReject:
		e.RejectedAt = &t
	case EventConvert:
		e.ConvertedAt = &t
	case EventCancel:
		e.CancelledAt = &t
	}

	e.Status = next
	e.Touch(t)
	return nil
}

// Revise replaces the priced content of a draft estimate.
func (e *Estimate) Revise(items lineitem.Items, totals lineitem.Totals, at time.Time) error {
	if err := e.Apply(EventEdit, at); err != nil {
		return err
	}
	e.LineItems = items
	e.Totals = totals
	return nil
}
