package editor

import (
	"strconv"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/folio/internal/profile"
)

const bioPlaceholder = "Enter a short bio about yourself... (Markdown supported)"

// BioField is the multi-line biography input with its remaining-length
// counter. It never blocks input past the cap; the counter goes negative.
type BioField struct {
	ta textarea.Model
}

func NewBioField(width int) BioField {
	ta := textarea.New()
	ta.Placeholder = bioPlaceholder
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.Prompt = "│ "
	ta.SetWidth(width)
	ta.SetHeight(6)
	return BioField{ta: ta}
}

func (b BioField) Value() string { return b.ta.Value() }

func (b BioField) SetValue(s string) BioField {
	b.ta.SetValue(s)
	return b
}

func (b BioField) SetWidth(w int) BioField {
	b.ta.SetWidth(w)
	return b
}

func (b BioField) Focus() (BioField, tea.Cmd) {
	cmd := b.ta.Focus()
	return b, cmd
}

func (b BioField) Blur() BioField {
	b.ta.Blur()
	return b
}

func (b BioField) Focused() bool { return b.ta.Focused() }

// Update forwards msg to the textarea and reports whether the text changed.
func (b BioField) Update(msg tea.Msg) (BioField, tea.Cmd, bool) {
	before := b.ta.Value()
	var cmd tea.Cmd
	b.ta, cmd = b.ta.Update(msg)
	return b, cmd, b.ta.Value() != before
}

// Remaining is the cap minus the current length in UTF-16 units.
func (b BioField) Remaining() int { return profile.Remaining(b.ta.Value()) }

func (b BioField) Counter() string { return strconv.Itoa(b.Remaining()) }

func (b BioField) View() string { return b.ta.View() }
