package editor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
)

// User-visible save errors.
const (
	ErrMsgUnauthorized = "Not authorized to edit this profile."
	ErrMsgSaveFailed   = "Error saving profile."
	ErrMsgUnexpected   = "Unexpected error saving profile."
)

const defaultSaveTimeout = 30 * time.Second

// Gateway persists a biography and returns its rendered form.
type Gateway interface {
	UpdateProfile(ctx context.Context, username, bio string) (render.Document, error)
}

// Patch is a partial draft update. Nil fields are left alone.
type Patch struct {
	Bio *string
}

// Outcome classifies a finished save.
type Outcome int

const (
	Saved Outcome = iota
	Unauthorized
	SaveFailed
	Unexpected
)

// Classify maps a gateway error to an Outcome.
func Classify(err error) Outcome {
	var se *client.StatusError
	switch {
	case err == nil:
		return Saved
	case errors.Is(err, client.ErrUnauthorized):
		return Unauthorized
	case errors.As(err, &se):
		return SaveFailed
	default:
		return Unexpected
	}
}

// SaveResultMsg carries the outcome of a save back into the update loop.
type SaveResultMsg struct {
	SessionID string
	Username  string
	Doc       render.Document
	Err       error
}

// Session is the edit state of one profile page visit. It is owned by the
// Bubble Tea update loop and must only be touched from there.
type Session struct {
	id        string
	draft     profile.Profile
	saving    bool
	lastError string
	closed    bool

	gateway Gateway
	timeout time.Duration
}

// NewSession starts a session whose draft is a copy of canonical.
func NewSession(canonical profile.Profile, gw Gateway) *Session {
	return &Session{
		id:      uuid.NewString(),
		draft:   canonical,
		gateway: gw,
		timeout: defaultSaveTimeout,
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) Draft() profile.Profile { return s.draft }
func (s *Session) Identity() string { return s.draft.Username }
func (s *Session) Saving() bool { return s.saving }
func (s *Session) LastError() string { return s.lastError }
func (s *Session) Closed() bool { return s.closed }

// SetTimeout bounds each save request. The default is 30 seconds.
func (s *Session) SetTimeout(d time.Duration) { s.timeout = d }

// Reconcile replaces the draft wholesale when canonical belongs to another
// identity and starts a fresh session id, so results of saves issued for the
// previous identity are dropped. It reports whether the draft was replaced.
func (s *Session) Reconcile(canonical profile.Profile) bool {
	if s.draft.Username == canonical.Username {
		return false
	}
	s.draft = canonical
	s.id = uuid.NewString()
	s.saving = false
	s.lastError = ""
	return true
}

// Refresh adopts a reloaded canonical profile of the same identity. It is a
// no-op while a save is in flight, since the result of that save is about to
// merge. The page only calls it outside Edit mode so unsaved text survives.
func (s *Session) Refresh(canonical profile.Profile) bool {
	if s.closed || s.saving || s.draft.Username != canonical.Username {
		return false
	}
	s.draft = canonical
	return true
}

// SetField merges p into the draft. The 256 cap is not enforced here.
func (s *Session) SetField(p Patch) {
	if p.Bio != nil {
		s.draft.Bio = *p.Bio
	}
}

// Dismiss requests navigation back to the plain profile view when the page
// is in Edit mode. The draft is kept.
func (s *Session) Dismiss(settings bool, r Route) tea.Cmd {
	if DeriveMode(settings, r) != Edit {
		return nil
	}
	return Navigate(ProfileRoute(s.draft.Username), true)
}

// Save marks the session as saving and returns the command performing the
// request for a snapshot of the current draft. It does not dedupe: callers
// suppress the trigger while Saving reports true.
func (s *Session) Save(ctx context.Context) tea.Cmd {
	s.lastError = ""
	s.saving = true

	id, username, bio := s.id, s.draft.Username, s.draft.Bio
	gw, timeout := s.gateway, s.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		doc, err := gw.UpdateProfile(ctx, username, bio)
		return SaveResultMsg{SessionID: id, Username: username, Doc: doc, Err: err}
	}
}

// HandleSaveResult applies a finished save. Only the rendered biography is
// merged on success; the raw text the user typed stays as is. Results for a
// closed or superseded session are ignored.
func (s *Session) HandleSaveResult(msg SaveResultMsg) tea.Cmd {
	if s.closed || msg.SessionID != s.id {
		slog.Debug("dropping stale save result", "session", msg.SessionID, "username", msg.Username)
		return nil
	}
	s.saving = false

	switch Classify(msg.Err) {
	case Saved:
		s.draft.BioRendered = msg.Doc
		return Navigate(ProfileRoute(s.draft.Username), true)
	case Unauthorized:
		s.lastError = ErrMsgUnauthorized
	case SaveFailed:
		s.lastError = ErrMsgSaveFailed
	default:
		slog.Error("profile save failed", "username", msg.Username, "error", msg.Err)
		s.lastError = ErrMsgUnexpected
	}
	return nil
}

// Close tears the session down. Later save results become no-ops.
func (s *Session) Close() {
	s.closed = true
	s.saving = false
}
