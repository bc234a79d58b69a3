package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	steps := []struct {
		ev   Event
		want State
	}{
		{EvStart, Acquiring},
		{EvStreamLive, Scanning},
		{EvCodeFound, Decoded},
		{EvParsed, Validating},
		{EvValidated, Result},
		{EvDismiss, Idle},
	}
	for _, s := range steps {
		_, to, err := m.Fire(s.ev)
		require.NoError(t, err, s.ev.String())
		assert.Equal(t, s.want, to)
		assert.Equal(t, s.want, m.State())
	}
}

func TestMachineRejectsInvalidTransitions(t *testing.T) {
	m := NewMachine()
	from, to, err := m.Fire(EvCodeFound)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Idle, from)
	assert.Equal(t, Idle, to)
	assert.Equal(t, Idle, m.State())

	_, _, err = m.Fire(EvStart)
	require.NoError(t, err)
	_, _, err = m.Fire(EvStart)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Acquiring, m.State())
}

func TestMachineAbortFromNonTerminalStates(t *testing.T) {
	for _, s := range []State{Acquiring, Scanning, Decoded, Validating} {
		m := &Machine{state: s}
		_, to, err := m.Fire(EvAbort)
		require.NoError(t, err, s.String())
		assert.Equal(t, Idle, to)
		assert.False(t, Terminal(s))
	}
	for _, s := range []State{Idle, Result} {
		m := &Machine{state: s}
		_, _, err := m.Fire(EvAbort)
		assert.ErrorIs(t, err, ErrInvalidTransition, s.String())
		assert.True(t, Terminal(s))
	}
}

func TestMachineMalformedGoesToResult(t *testing.T) {
	m := &Machine{state: Decoded}
	_, to, err := m.Fire(EvMalformed)
	require.NoError(t, err)
	assert.Equal(t, Result, to)
	_, _, err = m.Fire(EvParsed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
