package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/xraph/salesdoc/fsm"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/types"
)

// Event drives the contract state machine.
type Event string

const (
	EventEdit     Event = "edit"
	EventSend     Event = "send"
	EventView     Event = "view"
	EventSign     Event = "sign"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

type row = fsm.Transition[Status, Event]

// Machine is the contract transition table. sign is a self-loop that records
// one party's signature; complete fires once both are present.
var Machine = fsm.New[Status, Event]("contract",
	row{From: StatusDraft, Event: EventEdit, To: StatusDraft},
	row{From: StatusDraft, Event: EventSend, To: StatusSent},
	row{From: StatusSent, Event: EventView, To: StatusViewed},
	row{From: StatusSent, Event: EventSign, To: StatusSent},
	row{From: StatusViewed, Event: EventSign, To: StatusViewed},
	row{From: StatusSent, Event: EventComplete, To: StatusSigned},
	row{From: StatusViewed, Event: EventComplete, To: StatusSigned},
	row{From: StatusDraft, Event: EventCancel, To: StatusCancelled},
	row{From: StatusSent, Event: EventCancel, To: StatusCancelled},
	row{From: StatusViewed, Event: EventCancel, To: StatusCancelled},
)

// Apply fires ev at time at. Signing goes through Sign instead.
func (c *Contract) Apply(ev Event, at time.Time) error {
	if ev == EventSign || ev == EventComplete {
		return fmt.Errorf("%w: use Sign to record signatures", fsm.ErrInvalidTransition)
	}

	next, err := Machine.Next(c.Status, ev)
	if err != nil {
		return err
	}

	t := at.UTC()
	switch ev {
	case EventSend:
		c.SentAt = &t
	case EventView:
		c.ViewedAt = &t
	case EventCancel:
		c.CancelledAt = &t
	}

	c.Status = next
	c.Touch(t)
	return nil
}

// Sign records party's signature. It reports whether this signature
// completed the contract. Signing twice as the same party is an invalid
// transition, as is signing a contract that is not sent or viewed.
func (c *Contract) Sign(party Party, signature string, at time.Time) (bool, error) {
	if _, err := Machine.Next(c.Status, EventSign); err != nil {
		return false, err
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false, types.Invalid("signature", "must not be empty")
	}

	t := at.UTC()
	switch party {
	case PartyCustomer:
		if c.CustomerSignature != "" {
			return false, fmt.Errorf("%w: customer has already signed", fsm.ErrInvalidTransition)
		}
		c.CustomerSignature = signature
		c.CustomerSignedAt = &t
	case PartyCompany:
		if c.CompanySignature != "" {
			return false, fmt.Errorf("%w: company has already signed", fsm.ErrInvalidTransition)
		}
		c.CompanySignature = signature
		c.CompanySignedAt = &t
	default:
		return false, types.Invalid("party", "unknown party %q", party)
	}
	c.Touch(t)

	if c.CustomerSignature == "" || c.CompanySignature == "" {
		return false, nil
	}

	next, err := Machine.Next(c.Status, EventComplete)
	if err != nil {
		return false, err
	}
	c.Status = next
	c.SignedAt = &t
	return true, nil
}

// Revise replaces the priced content of a draft contract.
func (c *Contract) Revise(items lineitem.Items, totals lineitem.Totals, schedule []Installment, at time.Time) error {
	if _, err := Machine.Next(c.Status, EventEdit); err != nil {
		return err
	}
	if err := ValidateSchedule(schedule, totals.Total); err != nil {
		return err
	}
	c.LineItems = items
	c.Totals = totals
	c.PaymentSchedule = schedule
	c.Touch(at)
	return nil
}
