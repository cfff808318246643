package fsm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/fsm"
)

type light string
type signal string

func newLight() *fsm.Machine[light, signal] {
	return fsm.New[light, signal]("light",
		fsm.Transition[light, signal]{From: "red", Event: "go", To: "green"},
		fsm.Transition[light, signal]{From: "green", Event: "slow", To: "amber"},
		fsm.Transition[light, signal]{From: "amber", Event: "stop", To: "red"},
		fsm.Transition[light, signal]{From: "amber", Event: "break", To: "off"},
	)
}

func TestMachineNext(t *testing.T) {
	m := newLight()

	to, err := m.Next("red", "go")
	require.NoError(t, err)
	assert.Equal(t, light("green"), to)

	to, err = m.Next("red", "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsm.ErrInvalidTransition))
	assert.Equal(t, light("red"), to, "rejected event keeps the current state")

	var te *fsm.TransitionError[light, signal]
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "light", te.Machine)
	assert.Equal(t, signal("slow"), te.Event)
}

func TestMachineIntrospection(t *testing.T) {
	m := newLight()

	assert.True(t, m.Can("green", "slow"))
	assert.False(t, m.Can("off", "go"))
	assert.True(t, m.IsTerminal("off"))
	assert.False(t, m.IsTerminal("amber"))
	assert.ElementsMatch(t, []signal{"stop", "break"}, m.Events("amber"))
}

func TestDuplicateRowPanics(t *testing.T) {
	assert.Panics(t, func() {
		fsm.New[light, signal]("dup",
			fsm.Transition[light, signal]{From: "red", Event: "go", To: "green"},
			fsm.Transition[light, signal]{From: "red", Event: "go", To: "amber"},
		)
	})
}
