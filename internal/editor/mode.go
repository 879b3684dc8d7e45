package editor

// Mode is the presentation state of the profile page.
type Mode int

const (
	View Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "view"
}

// DeriveMode computes the page mode. It is Edit when the page was opened as
// the settings page, or when the route carries settings=true and its path is
// exactly the settings path. Mode is never stored.
func DeriveMode(settings bool, r Route) Mode {
	if settings {
		return Edit
	}
	if r.Query.Get("settings") == "true" && r.Path == SettingsPath {
		return Edit
	}
	return View
}
