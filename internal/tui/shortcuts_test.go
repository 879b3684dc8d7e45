package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/folio/internal/editor"
)

type pingMsg struct{ from string }

func TestShortcuts_AcquireDispatchRelease(t *testing.T) {
	s := NewShortcuts()
	esc := tea.KeyMsg{Type: tea.KeyEsc}

	_, ok := s.Dispatch(esc)
	require.False(t, ok)

	release := s.Acquire("page", editor.DefaultKeyMap().Shortcuts()...)
	msg, ok := s.Dispatch(esc)
	require.True(t, ok)
	assert.Equal(t, editor.DismissRequestedMsg{}, msg)

	for _, k := range []tea.KeyMsg{{Type: tea.KeyEnter, Alt: true}, {Type: tea.KeyCtrlS}} {
		msg, ok := s.Dispatch(k)
		require.True(t, ok, k.String())
		assert.Equal(t, editor.SaveRequestedMsg{}, msg)
	}

	_, ok = s.Dispatch(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, ok, "plain enter must reach the text field")

	release()
	release()
	_, ok = s.Dispatch(esc)
	assert.False(t, ok)
	assert.Empty(t, s.Owners())
}

func TestShortcuts_LatestRegistrationWins(t *testing.T) {
	s := NewShortcuts()
	bind := key.NewBinding(key.WithKeys("esc"))

	releaseA := s.Acquire("a", editor.Shortcut{Binding: bind, Msg: pingMsg{"a"}})
	releaseB := s.Acquire("b", editor.Shortcut{Binding: bind, Msg: pingMsg{"b"}})
	assert.Equal(t, []string{"a", "b"}, s.Owners())

	msg, _ := s.Dispatch(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, pingMsg{"b"}, msg)

	releaseB()
	msg, _ = s.Dispatch(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, pingMsg{"a"}, msg)

	releaseA()
	assert.Empty(t, s.Owners())
}
