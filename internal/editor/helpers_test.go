package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/goleak"

	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type gatewayCall struct {
	Username string
	Bio      string
}

// fakeGateway records UpdateProfile calls and answers with doc or err.
type fakeGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
	doc   render.Document
	err   error
}

func (g *fakeGateway) UpdateProfile(_ context.Context, username, bio string) (render.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{Username: username, Bio: bio})
	return g.doc, g.err
}

func (g *fakeGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

// fakeRegistry counts acquisitions and releases.
type fakeRegistry struct {
	acquired []string
	released int
	bound    []Shortcut
}

func (r *fakeRegistry) Acquire(owner string, shortcuts ...Shortcut) func() {
	r.acquired = append(r.acquired, owner)
	r.bound = append(r.bound, shortcuts...)
	return func() { r.released++ }
}

var (
	errTransport = errors.New("connection reset")
	errStatus500 = &client.StatusError{Code: 500, Message: "boom"}
)

func alice() profile.Profile {
	return profile.Profile{
		Username:    "alice",
		Name:        "Alice",
		Image:       "https://avatars.example/alice.png",
		Verified:    true,
		Bio:         "old bio",
		BioRendered: render.Document{HTML: "<p>old bio</p>", Markdown: "old bio"},
	}
}

func bob() profile.Profile {
	return profile.Profile{
		Username:    "bob",
		Name:        "Bob",
		Bio:         "bob bio",
		BioRendered: render.Document{HTML: "<p>bob bio</p>", Markdown: "bob bio"},
	}
}

func newTestModel(t *testing.T, p profile.Profile, viewer string, route Route, gw Gateway) Model {
	t.Helper()
	return New(Config{
		Profile: p,
		Viewer:  viewer,
		Route:   route,
		Gateway: gw,
		Width:   80,
	})
}

// runCmd executes cmd and flattens batches into the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findMsg[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}
