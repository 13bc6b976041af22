package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachine_SuppressesSelfTransitions(t *testing.T) {
	m := newStateMachine(noopLogger{})
	var transitions int
	m.onChange(func(old, new SessionState) { transitions++ })

	m.transition(StateDisconnected) // same as initial, no-op
	assert.Equal(t, 0, transitions)

	m.transition(StateConnecting)
	assert.Equal(t, 1, transitions)
	assert.Equal(t, StateConnecting, m.State())
}

func TestStateMachine_ListenersFireInRegistrationOrder(t *testing.T) {
	m := newStateMachine(noopLogger{})
	var order []int
	m.onChange(func(old, new SessionState) { order = append(order, 1) })
	m.onChange(func(old, new SessionState) { order = append(order, 2) })
	m.onChange(func(old, new SessionState) { order = append(order, 3) })

	m.transition(StateConnecting)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestStateMachine_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	m := newStateMachine(noopLogger{})
	secondRan := false
	m.onChange(func(old, new SessionState) { panic("boom") })
	m.onChange(func(old, new SessionState) { secondRan = true })

	assert.NotPanics(t, func() { m.transition(StateConnecting) })
	assert.True(t, secondRan)
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "STOPPED", StateStopped.String())
}
