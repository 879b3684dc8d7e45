package editor

import (
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SettingsPath is the dedicated path of the profile settings page.
const SettingsPath = "/settings"

// Route is the path and query of the page currently shown.
type Route struct {
	Path  string
	Query url.Values
}

// ParseRoute parses "/path?query". Malformed queries are dropped.
func ParseRoute(s string) Route {
	path, rawQuery, _ := strings.Cut(s, "?")
	if path == "" {
		path = "/"
	}
	if rawQuery == "" {
		return Route{Path: path}
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil || len(q) == 0 {
		return Route{Path: path}
	}
	return Route{Path: path, Query: q}
}

// ProfileRoute is the plain, non-edit view of username.
func ProfileRoute(username string) Route {
	return Route{Path: "/" + username}
}

// EditRoute is the address the profile page shows while editing in place.
func EditRoute() Route {
	return Route{Path: SettingsPath, Query: url.Values{"settings": {"true"}}}
}

func (r Route) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Username returns the profile username addressed by a plain profile path.
func (r Route) Username() (string, bool) {
	name := strings.TrimPrefix(r.Path, "/")
	if name == "" || name == r.Path || strings.Contains(name, "/") || r.Path == SettingsPath {
		return "", false
	}
	return name, true
}

// NavigateMsg asks the host to change the current route. A shallow
// navigation keeps the mounted page and its state and only changes the
// address. Replace overwrites the current history entry instead of pushing
// one. Scroll resets the view to the top afterwards.
type NavigateMsg struct {
	Route   Route
	Shallow bool
	Replace bool
	Scroll  bool
}

// Navigate returns a command requesting a history-replacing, non-scrolling
// transition to r.
func Navigate(r Route, shallow bool) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Route: r, Shallow: shallow, Replace: true}
	}
}
