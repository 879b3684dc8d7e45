package editor

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SaveRequestedMsg is emitted by the global save shortcut.
type SaveRequestedMsg struct{}

// DismissRequestedMsg is emitted by the global dismiss shortcut.
type DismissRequestedMsg struct{}

// Shortcut binds keys to the message they produce. Shortcuts carry messages
// rather than callbacks so a press always acts on the page's current state.
type Shortcut struct {
	Binding key.Binding
	Msg     tea.Msg
}

// ShortcutRegistry is the host's table of global shortcuts. Acquire returns
// the function that removes the registration again.
type ShortcutRegistry interface {
	Acquire(owner string, shortcuts ...Shortcut) (release func())
}

type KeyMap struct {
	Save    key.Binding
	Dismiss key.Binding
	Edit    key.Binding
	Upload  key.Binding
	NextTab key.Binding
	PrevTab key.Binding
}

// DefaultKeyMap returns the page bindings. Terminals cannot report
// ctrl+enter, so alt+enter stands in for the primary-modifier chord and
// ctrl+s is accepted as well.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Save: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+s"),
			key.WithHelp("alt+enter", "save"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit profile"),
		),
		Upload: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "change avatar"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev tab"),
		),
	}
}

// Shortcuts are the global registrations the page holds while mounted.
func (k KeyMap) Shortcuts() []Shortcut {
	return []Shortcut{
		{Binding: k.Dismiss, Msg: DismissRequestedMsg{}},
		{Binding: k.Save, Msg: SaveRequestedMsg{}},
	}
}

// helpKeys adapts the bindings that apply in one mode to help.KeyMap.
type helpKeys struct {
	bindings []key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding { return h.bindings }
func (h helpKeys) FullHelp() [][]key.Binding { return [][]key.Binding{h.bindings} }

func (k KeyMap) help(mode Mode, owner bool) helpKeys {
	switch {
	case mode == Edit:
		return helpKeys{bindings: []key.Binding{k.Save, k.Dismiss, k.Upload, k.NextTab}}
	case owner:
		return helpKeys{bindings: []key.Binding{k.Edit, k.NextTab}}
	default:
		return helpKeys{bindings: []key.Binding{k.NextTab}}
	}
}
