package profile

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/storage"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	GetProfile(username string) (storage.ProfileRow, error)
	UpsertProfile(row storage.ProfileRow) error
	UpdateBio(username, bio, bioHTML, bioMarkdown string) error
}

// BioRenderer compiles raw biography text. Implemented by render.Renderer.
type BioRenderer interface {
	Render(src string) (render.Document, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	profile  Profile
	cachedAt time.Time
}

// Manager provides cached access to profiles stored in SQLite and owns the
// only write path for biographies.
type Manager struct {
	store    ProfileStore
	renderer BioRenderer
	clock    Clock
	ttl      time.Duration

	mu     sync.RWMutex
	cached map[string]cacheEntry
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore, renderer BioRenderer) *Manager {
	return NewManagerWithClock(store, renderer, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, renderer BioRenderer, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store:    store,
		renderer: renderer,
		clock:    clock,
		ttl:      ttl,
		cached:   make(map[string]cacheEntry),
	}
}

// GetProfile returns the profile for username from cache or storage.
// Returns storage.ErrNotFound for unknown users.
func (m *Manager) GetProfile(username string) (Profile, error) {
	username = strings.TrimSpace(username)

	m.mu.RLock()
	if e, ok := m.cached[username]; ok && m.fresh(e) {
		m.mu.RUnlock()
		return e.profile, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if e, ok := m.cached[username]; ok && m.fresh(e) {
		return e.profile, nil
	}

	row, err := m.store.GetProfile(username)
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile %q: %w", username, err)
	}

	p := fromRow(row)
	m.cached[username] = cacheEntry{profile: p, cachedAt: m.clock.Now()}
	return p, nil
}

// CreateProfile inserts or replaces a profile, rendering its biography.
func (m *Manager) CreateProfile(p Profile) (Profile, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Name = strings.TrimSpace(p.Name)
	p.Image = strings.TrimSpace(p.Image)
	if p.Username == "" {
		return Profile{}, fmt.Errorf("username is required")
	}
	if err := ValidateBio(p.Bio); err != nil {
		return Profile{}, err
	}

	doc, err := m.renderer.Render(p.Bio)
	if err != nil {
		return Profile{}, fmt.Errorf("rendering bio for %q: %w", p.Username, err)
	}
	p.BioRendered = doc

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.UpsertProfile(toRow(p)); err != nil {
		return Profile{}, fmt.Errorf("saving profile %q: %w", p.Username, err)
	}
	delete(m.cached, p.Username)
	return p, nil
}

// UpdateBio replaces the biography of username and returns the freshly
// rendered document for the saved text.
func (m *Manager) UpdateBio(username, bio string) (render.Document, error) {
	username = strings.TrimSpace(username)
	if err := ValidateBio(bio); err != nil {
		return render.Document{}, err
	}

	doc, err := m.renderer.Render(bio)
	if err != nil {
		return render.Document{}, fmt.Errorf("rendering bio for %q: %w", username, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.UpdateBio(username, bio, doc.HTML, doc.Markdown); err != nil {
		return render.Document{}, fmt.Errorf("updating bio for %q: %w", username, err)
	}
	delete(m.cached, username)

	slog.Debug("bio updated", "username", username, "length", BioLength(bio))
	return doc, nil
}

func (m *Manager) fresh(e cacheEntry) bool {
	return m.clock.Now().Before(e.cachedAt.Add(m.ttl))
}

func fromRow(row storage.ProfileRow) Profile {
	return Profile{
		Username: row.Username,
		Name:     row.Name,
		Image:    row.Image,
		Verified: row.Verified,
		Bio:      row.Bio,
		BioRendered: render.Document{
			HTML:     row.BioHTML,
			Markdown: row.BioMarkdown,
		},
	}
}

func toRow(p Profile) storage.ProfileRow {
	return storage.ProfileRow{
		Username:    p.Username,
		Name:        p.Name,
		Image:       p.Image,
		Verified:    p.Verified,
		Bio:         p.Bio,
		BioHTML:     p.BioRendered.HTML,
		BioMarkdown: p.BioRendered.Markdown,
	}
}
