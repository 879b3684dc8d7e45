package editor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/folio/internal/profile"
)

const (
	uploadDisabledMsg = "Image upload has been disabled."
	demoRepoURL       = "https://github.com/vercel/mongodb-starter"
	bannerHeight      = 3
	defaultWidth      = 80
)

var tabNames = []string{"Profile", "Work History", "Contact"}

// Config describes the page to mount. Viewer is the session username and is
// empty when anonymous. Settings is set when the page was opened as the
// settings page rather than reached by shallow navigation.
type Config struct {
	Profile  profile.Profile
	Viewer   string
	Settings bool
	Route    Route
	Gateway  Gateway
	Width    int
}

// mountState is shared by all copies of a Model so that releasing the
// shortcut registration happens exactly once.
type mountState struct {
	once    sync.Once
	release func()
}

// Model is the profile page. It hosts the edit Session, the biography field
// and the page chrome.
type Model struct {
	session   *Session
	canonical profile.Profile
	viewer    string
	settings  bool
	route     Route

	keys     KeyMap
	styles   Styles
	bio      BioField
	spinner  spinner.Model
	help     help.Model
	renderer *glamour.TermRenderer

	tab    int
	status string
	width  int
	ctx    context.Context
	mount  *mountState
}

// New builds the page for cfg. Call Mount before handing it to the program.
func New(cfg Config) Model {
	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := Model{
		session:   NewSession(cfg.Profile, cfg.Gateway),
		canonical: cfg.Profile,
		viewer:    cfg.Viewer,
		settings:  cfg.Settings,
		route:     cfg.Route,
		keys:      DefaultKeyMap(),
		styles:    DefaultStyles(),
		bio:       NewBioField(contentWidth(width)).SetValue(cfg.Profile.Bio),
		spinner:   sp,
		help:      help.New(),
		width:     width,
		ctx:       context.Background(),
		mount:     &mountState{},
	}
	m.renderer = newRenderer(width)
	if m.Mode() == Edit {
		m.bio, _ = m.bio.Focus()
	}
	return m
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(contentWidth(width)),
	)
	if err != nil {
		return nil
	}
	return r
}

func contentWidth(width int) int {
	if width > 84 {
		return 80
	}
	if width < 24 {
		return 20
	}
	return width - 4
}

// Mount registers the page's global shortcuts. Unmount releases them.
func (m Model) Mount(reg ShortcutRegistry) Model {
	if reg != nil && m.mount.release == nil {
		m.mount.release = reg.Acquire("profile:"+m.session.ID(), m.keys.Shortcuts()...)
	}
	return m
}

// Unmount releases the shortcut registration and closes the session so
// in-flight saves resolve as no-ops. Safe to call more than once.
func (m Model) Unmount() {
	m.mount.once.Do(func() {
		if m.mount.release != nil {
			m.mount.release()
		}
		m.session.Close()
	})
}

// WithContext sets the parent context of save requests.
func (m Model) WithContext(ctx context.Context) Model {
	m.ctx = ctx
	return m
}

func (m Model) Session() *Session { return m.session }
func (m Model) Route() Route { return m.route }
func (m Model) Settings() bool { return m.settings }
func (m Model) Tab() int { return m.tab }
func (m Model) Status() string { return m.status }
func (m Model) Bio() BioField { return m.bio }

// Mode derives the current mode from the settings flag and the route.
func (m Model) Mode() Mode { return DeriveMode(m.settings, m.route) }

// IsOwner reports whether the viewer owns the shown profile.
func (m Model) IsOwner() bool {
	return m.viewer != "" && m.viewer == m.session.Identity()
}

// Accepts reports whether a shallow navigation to r can stay on this page.
// The settings page only lives at the settings path; a profile page also
// covers its own plain path.
func (m Model) Accepts(r Route) bool {
	if r.Path == SettingsPath {
		return true
	}
	if m.settings {
		return false
	}
	name, ok := r.Username()
	return ok && name == m.session.Identity()
}

// SetRoute applies a shallow navigation and moves focus when the mode flips.
func (m Model) SetRoute(r Route) (Model, tea.Cmd) {
	before := m.Mode()
	m.route = r
	return m.modeChanged(before)
}

// SetCanonical feeds a freshly loaded profile to the page. The header always
// follows the latest canonical profile. A different identity resets the
// draft and the page state; the same identity refreshes the biography
// unless the user is editing it.
func (m Model) SetCanonical(p profile.Profile, viewer string) (Model, tea.Cmd) {
	before := m.Mode()
	m.viewer = viewer
	m.canonical = p
	switch {
	case m.session.Reconcile(p):
		m.bio = m.bio.SetValue(p.Bio)
		m.tab = 0
		m.status = ""
	case before == View && m.session.Refresh(p):
		m.bio = m.bio.SetValue(p.Bio)
	}
	return m.modeChanged(before)
}

// Canonical returns the last profile loaded from the server.
func (m Model) Canonical() profile.Profile { return m.canonical }

func (m Model) modeChanged(before Mode) (Model, tea.Cmd) {
	after := m.Mode()
	if before == after {
		return m, nil
	}
	m.status = ""
	if after == Edit {
		var cmd tea.Cmd
		m.bio = m.bio.SetValue(m.session.Draft().Bio)
		m.bio, cmd = m.bio.Focus()
		return m, cmd
	}
	m.bio = m.bio.Blur()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	if m.Mode() == Edit {
		return textarea.Blink
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SaveRequestedMsg:
		return m.requestSave()

	case DismissRequestedMsg:
		return m, m.session.Dismiss(m.settings, m.route)

	case SaveResultMsg:
		cmd := m.session.HandleSaveResult(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.session.Saving() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bio = m.bio.SetWidth(contentWidth(msg.Width))
		m.help.Width = msg.Width
		m.renderer = newRenderer(msg.Width)
		return m, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd, _ = m.HandleKey(msg)
		return m, cmd
	}

	if m.Mode() == Edit {
		var cmd tea.Cmd
		m.bio, cmd, _ = m.bio.Update(msg)
		return m, cmd
	}
	return m, nil
}

// requestSave starts a save unless the page is not editing or a save is
// already in flight.
func (m Model) requestSave() (Model, tea.Cmd) {
	if m.Mode() != Edit || m.session.Saving() {
		return m, nil
	}
	m.status = ""
	return m, tea.Batch(m.session.Save(m.ctx), m.spinner.Tick)
}

// HandleKey processes page-local keys. The third return value reports
// whether the page consumed the key.
func (m Model) HandleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % len(tabNames)
		return m, nil, true
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + len(tabNames) - 1) % len(tabNames)
		return m, nil, true
	}

	if m.Mode() == View {
		if key.Matches(msg, m.keys.Edit) && m.IsOwner() {
			return m, Navigate(EditRoute(), true), true
		}
		return m, nil, false
	}

	if key.Matches(msg, m.keys.Upload) {
		m.status = uploadDisabledMsg
		return m, nil, true
	}

	var cmd tea.Cmd
	var changed bool
	m.bio, cmd, changed = m.bio.Update(msg)
	if changed {
		v := m.bio.Value()
		m.session.SetField(Patch{Bio: &v})
	}
	return m, cmd, true
}

func (m Model) View() string {
	p := m.session.Draft()
	c := m.canonical
	mode := m.Mode()
	var b strings.Builder

	b.WriteString(banner(p.Username, m.width, bannerHeight))
	b.WriteString("\n\n")

	avatar := m.styles.Avatar.Render("avatar: " + orDash(c.Image))
	if mode == Edit {
		avatar += "  " + m.styles.Counter.Render("("+m.keys.Upload.Help().Key+" to upload)")
	}
	b.WriteString(avatar + "\n")

	name := m.styles.Name.Render(orDash(c.Name))
	if c.Verified {
		name += " " + m.styles.Badge.Render("✓")
	}
	b.WriteString(name + "\n")

	if c.Verified {
		b.WriteString(m.styles.Link.Render("View GitHub Profile") + "  " + m.styles.Counter.Render("https://github.com/"+c.Username))
	} else {
		b.WriteString(m.styles.Link.Render("Demo Account") + "  " + m.styles.Counter.Render(demoRepoURL))
	}
	b.WriteString("\n\n")

	b.WriteString(m.tabsView() + "\n")
	b.WriteString(m.styles.Heading.Render("Bio") + "\n")

	if mode == Edit {
		b.WriteString(m.bio.View() + "\n")
		b.WriteString(m.styles.Counter.Render(m.bio.Counter()+" characters remaining") + "\n")
	} else {
		b.WriteString(m.renderedBio(p) + "\n")
	}

	if controls := m.controlsView(mode); controls != "" {
		b.WriteString("\n" + controls + "\n")
	}
	if m.status != "" {
		b.WriteString(m.styles.Status.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys.help(mode, m.IsOwner())))
	return b.String()
}

func (m Model) tabsView() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if i == m.tab {
			tabs[i] = m.styles.ActiveTab.Render(name)
		} else {
			tabs[i] = m.styles.Tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderedBio(p profile.Profile) string {
	md := p.BioRendered.Markdown
	if strings.TrimSpace(md) == "" {
		return m.styles.Counter.Render("No bio yet.")
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return m.styles.Bio.Render(md)
}

// controlsView renders the save and dismiss triggers in Edit mode and the
// edit affordance for the owner in View mode. Other viewers get nothing.
func (m Model) controlsView(mode Mode) string {
	if mode == Edit {
		var save string
		if m.session.Saving() {
			save = m.styles.Disabled.Render(m.spinner.View() + " saving")
		} else {
			save = m.styles.Button.Render("✓ save (" + m.keys.Save.Help().Key + ")")
		}
		dismiss := m.styles.Disabled.Render("✕ cancel (" + m.keys.Dismiss.Help().Key + ")")
		row := lipgloss.JoinHorizontal(lipgloss.Center, save, " ", dismiss)
		if e := m.session.LastError(); e != "" {
			row = lipgloss.JoinHorizontal(lipgloss.Center, m.styles.Error.Render(e), "  ", row)
		}
		return row
	}
	if m.IsOwner() {
		return m.styles.Button.Render(fmt.Sprintf("✎ edit (%s)", m.keys.Edit.Help().Key))
	}
	return ""
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
