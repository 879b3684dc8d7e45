package tui

import (
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/folio/internal/editor"
)

type registration struct {
	id        int
	owner     string
	shortcuts []editor.Shortcut
}

// Shortcuts is the host's global shortcut table. Pages acquire entries while
// mounted; the most recent registration wins when keys overlap.
type Shortcuts struct {
	mu     sync.Mutex
	nextID int
	regs   []registration
}

func NewShortcuts() *Shortcuts {
	return &Shortcuts{}
}

// Acquire registers shortcuts for owner and returns the release function.
// Calling release more than once is harmless.
func (s *Shortcuts) Acquire(owner string, shortcuts ...editor.Shortcut) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.regs = append(s.regs, registration{id: id, owner: owner, shortcuts: shortcuts})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Shortcuts) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.regs {
		if r.id == id {
			s.regs = append(s.regs[:i], s.regs[i+1:]...)
			return
		}
	}
}

// Dispatch returns the message bound to msg, if any.
func (s *Shortcuts) Dispatch(msg tea.KeyMsg) (tea.Msg, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.regs) - 1; i >= 0; i-- {
		for _, sc := range s.regs[i].shortcuts {
			if key.Matches(msg, sc.Binding) {
				return sc.Msg, true
			}
		}
	}
	return nil, false
}

// Owners lists the current registrations, oldest first.
func (s *Shortcuts) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.regs))
	for i, r := range s.regs {
		out[i] = r.owner
	}
	return out
}
