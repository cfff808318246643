// Package fsm implements the transition-table state machine shared by every
// sales document type.
//
// A Machine is built once from a static table of (from, event) → to rows and
// is safe for concurrent use. Machines never mutate documents themselves; the
// document packages ask a machine for the next state and apply it only when
// the lookup succeeds, so a rejected event leaves the document untouched.
package fsm

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event is not legal in the
// document's current state.
var ErrInvalidTransition = errors.New("salesdoc: invalid transition")

// Transition is one row of a transition table.
type Transition[S, E ~string] struct {
	From  S
	Event E
	To    S
}

// TransitionError describes a rejected event.
type TransitionError[S, E ~string] struct {
	Machine string
	From    S
	Event   E
}

func (e *TransitionError[S, E]) Error() string {
	return fmt.Sprintf("salesdoc: %s: event %q not allowed in state %q", e.Machine, e.Event, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError[S, E]) Unwrap() error { return ErrInvalidTransition }

type key[S, E ~string] struct {
	from  S
	event E
}

// Machine is an immutable transition table.
type Machine[S, E ~string] struct {
	name  string
	table map[key[S, E]]S
	// terminal states have no outgoing rows.
	outgoing map[S]int
}

// New builds a machine. Duplicate (from, event) rows are a programming error
// and panic.
func New[S, E ~string](name string, rows ...Transition[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		name:     name,
		table:    make(map[key[S, E]]S, len(rows)),
		outgoing: make(map[S]int),
	}
	for _, r := range rows {
		k := key[S, E]{from: r.From, event: r.Event}
		if _, dup := m.table[k]; dup {
			panic(fmt.Sprintf("fsm: %s: duplicate transition %q --%q-->", name, r.From, r.Event))
		}
		m.table[k] = r.To
		m.outgoing[r.From]++
	}
	return m
}

// Name returns the machine name used in errors.
func (m *Machine[S, E]) Name() string { return m.name }

// Next returns the state reached by firing event in state from.
func (m *Machine[S, E]) Next(from S, event E) (S, error) {
	to, ok := m.table[key[S, E]{from: from, event: event}]
	if !ok {
		return from, &TransitionError[S, E]{Machine: m.name, From: from, Event: event}
	}
	return to, nil
}

// Can reports whether event is legal in state from.
func (m *Machine[S, E]) Can(from S, event E) bool {
	_, ok := m.table[key[S, E]{from: from, event: event}]
	return ok
}

// IsTerminal reports whether no event leaves state s.
func (m *Machine[S, E]) IsTerminal(s S) bool {
	return m.outgoing[s] == 0
}

// Events lists the events accepted in state s. Order is unspecified.
func (m *Machine[S, E]) Events(s S) []E {
	var out []E
	for k := range m.table {
		if k.from == s {
			out = append(out, k.event)
		}
	}
	return out
}
