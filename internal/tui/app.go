// Package tui hosts the profile page in a Bubble Tea program: it owns the
// current route, the global shortcut table and the page lifetime.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/editor"
)

// Loader fetches what a page needs.
type Loader interface {
	LoadPage(ctx context.Context, username string) (client.Page, error)
	Whoami(ctx context.Context) (string, error)
}

type Options struct {
	Loader  Loader
	Gateway editor.Gateway
	Start   editor.Route
}

var errSignedOut = errors.New("not signed in")

// pageLoadedMsg is the result of loading the page for route.
type pageLoadedMsg struct {
	route    editor.Route
	settings bool
	page     client.Page
	err      error
}

var (
	addressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f2f2f2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// App is the root Bubble Tea model.
type App struct {
	ctx       context.Context
	loader    Loader
	gateway   editor.Gateway
	shortcuts *Shortcuts

	route   editor.Route
	history []editor.Route

	page    editor.Model
	hasPage bool
	loading bool
	err     string

	spinner   spinner.Model
	prompt    textinput.Model
	prompting bool

	width  int
	height int
}

func NewApp(ctx context.Context, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ti := textinput.New()
	ti.Prompt = "go to /"
	ti.Placeholder = "username"
	ti.CharLimit = 64

	start := opts.Start
	if start.Path == "" {
		start = editor.ParseRoute(editor.SettingsPath)
	}

	return App{
		ctx:       ctx,
		loader:    opts.Loader,
		gateway:   opts.Gateway,
		shortcuts: NewShortcuts(),
		route:     start,
		history:   []editor.Route{start},
		loading:   true,
		spinner:   sp,
		prompt:    ti,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.load(a.route), a.spinner.Tick)
}

func (a App) Route() editor.Route { return a.route }
func (a App) History() []editor.Route { return a.history }
func (a App) Shortcuts() *Shortcuts { return a.shortcuts }
func (a App) Page() (editor.Model, bool) { return a.page, a.hasPage }
func (a App) Err() string { return a.err }
func (a App) Loading() bool { return a.loading }

// load fetches the page behind route. The settings path shows the signed-in
// viewer's own profile in edit mode.
func (a App) load(route editor.Route) tea.Cmd {
	ctx, loader := a.ctx, a.loader
	return func() tea.Msg {
		if route.Path == editor.SettingsPath {
			viewer, err := loader.Whoami(ctx)
			if err != nil {
				return pageLoadedMsg{route: route, settings: true, err: err}
			}
			if viewer == "" {
				return pageLoadedMsg{route: route, settings: true, err: errSignedOut}
			}
			page, err := loader.LoadPage(ctx, viewer)
			return pageLoadedMsg{route: route, settings: true, page: page, err: err}
		}

		username, ok := route.Username()
		if !ok {
			return pageLoadedMsg{route: route, err: fmt.Errorf("no page at %s", route)}
		}
		page, err := loader.LoadPage(ctx, username)
		return pageLoadedMsg{route: route, page: page, err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.prompt.Width = msg.Width - len(a.prompt.Prompt) - 2
		if a.hasPage {
			var cmd tea.Cmd
			a.page, cmd = a.page.Update(msg)
			return a, cmd
		}
		return a, nil

	case editor.NavigateMsg:
		return a.navigate(msg)

	case pageLoadedMsg:
		return a.pageLoaded(msg)

	case spinner.TickMsg:
		var cmds []tea.Cmd
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		if a.hasPage {
			var cmd tea.Cmd
			a.page, cmd = a.page.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)
	}

	if a.hasPage {
		var cmd tea.Cmd
		a.page, cmd = a.page.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a.quit()
	}

	if a.prompting {
		return a.handlePromptKey(msg)
	}

	if a.hasPage {
		if sc, ok := a.shortcuts.Dispatch(msg); ok {
			var cmd tea.Cmd
			a.page, cmd = a.page.Update(sc)
			return a, cmd
		}

		var cmd tea.Cmd
		var handled bool
		a.page, cmd, handled = a.page.HandleKey(msg)
		if handled {
			return a, cmd
		}
	}

	switch msg.String() {
	case "q":
		return a.quit()
	case "g":
		a.prompting = true
		a.prompt.SetValue("")
		return a, a.prompt.Focus()
	case "r":
		a.loading = true
		return a, tea.Batch(a.load(a.route), a.spinner.Tick)
	case "backspace":
		if len(a.history) > 1 {
			a.history = a.history[:len(a.history)-1]
			prev := a.history[len(a.history)-1]
			return a, func() tea.Msg { return editor.NavigateMsg{Route: prev, Replace: true} }
		}
	}
	return a, nil
}

func (a App) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.prompting = false
		a.prompt.Blur()
		return a, nil
	case tea.KeyEnter:
		a.prompting = false
		a.prompt.Blur()
		target := strings.Trim(strings.TrimSpace(a.prompt.Value()), "/")
		if target == "" {
			return a, nil
		}
		route := editor.ParseRoute("/" + target)
		return a, func() tea.Msg { return editor.NavigateMsg{Route: route} }
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

// navigate applies a navigation request. Shallow requests the mounted page
// accepts only change the address; everything else loads a page.
func (a App) navigate(msg editor.NavigateMsg) (tea.Model, tea.Cmd) {
	if msg.Replace && len(a.history) > 0 {
		a.history[len(a.history)-1] = msg.Route
	} else {
		a.history = append(a.history, msg.Route)
	}
	a.route = msg.Route
	slog.Debug("navigate", "route", msg.Route.String(), "shallow", msg.Shallow)

	if msg.Shallow && a.hasPage && a.page.Accepts(msg.Route) {
		var cmd tea.Cmd
		a.page, cmd = a.page.SetRoute(msg.Route)
		return a, cmd
	}

	a.loading = true
	a.err = ""
	return a, tea.Batch(a.load(msg.Route), a.spinner.Tick)
}

func (a App) pageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.route.String() != a.route.String() {
		return a, nil
	}
	a.loading = false

	if msg.err != nil {
		slog.Warn("page load failed", "route", msg.route.String(), "error", msg.err)
		a.unmountPage()
		a.err = loadErrorText(msg.err)
		return a, nil
	}
	a.err = ""

	// A profile page stays mounted across profile navigations and reconciles
	// the new identity; switching to or from the settings page remounts.
	if a.hasPage && !msg.settings && !a.page.Settings() {
		var cmd, routeCmd tea.Cmd
		a.page, cmd = a.page.SetCanonical(msg.page.Profile, msg.page.Viewer)
		a.page, routeCmd = a.page.SetRoute(msg.route)
		return a, tea.Batch(cmd, routeCmd)
	}

	a.unmountPage()
	a.page = editor.New(editor.Config{
		Profile:  msg.page.Profile,
		Viewer:   msg.page.Viewer,
		Settings: msg.settings,
		Route:    msg.route,
		Gateway:  a.gateway,
		Width:    a.width,
	}).WithContext(a.ctx).Mount(a.shortcuts)
	a.hasPage = true
	return a, a.page.Init()
}

func (a *App) unmountPage() {
	if a.hasPage {
		a.page.Unmount()
		a.hasPage = false
	}
}

func (a App) quit() (tea.Model, tea.Cmd) {
	a.unmountPage()
	return a, tea.Quit
}

func loadErrorText(err error) string {
	switch {
	case errors.Is(err, errSignedOut):
		return "Sign in first: folio login <token>"
	case client.IsNotFound(err):
		return "Profile not found."
	default:
		return "Could not load page: " + err.Error()
	}
}

func (a App) View() string {
	var b strings.Builder
	b.WriteString(brandStyle.Render("folio") + "  " + addressStyle.Render(a.route.String()) + "\n\n")

	switch {
	case a.loading:
		b.WriteString(a.spinner.View() + " loading\n")
	case a.err != "":
		b.WriteString(errorStyle.Render(a.err) + "\n")
	case a.hasPage:
		b.WriteString(a.page.View() + "\n")
	}

	if a.prompting {
		b.WriteString("\n" + a.prompt.View() + "\n")
	} else if !a.hasPage || a.page.Mode() == editor.View {
		b.WriteString("\n" + mutedStyle.Render("g go to • r reload • backspace back • q quit"))
	}
	return b.String()
}
