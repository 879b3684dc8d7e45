package storage

import (
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding profiles and viewer sessions.
type Store struct {
	db *sql.DB
}

// pragmas run on every new database. A single connection is used, so they
// apply for the lifetime of the Store.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
}

// Open opens (or creates) folio.db in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "folio.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked"
	// and keeps an in-memory database alive across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type migration struct {
	version int
	name    string
}

// pendingMigrations lists embedded migrations not yet recorded in
// schema_version, in ascending version order.
func (s *Store) pendingMigrations() ([]migration, error) {
	applied, err := s.AppliedMigrations()
	if err != nil {
		return nil, fmt.Errorf("reading schema_version: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}
	var pending []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseMigrationVersion(e.Name())
		if err != nil {
			return nil, err
		}
		if !done[v] {
			pending = append(pending, migration{version: v, name: e.Name()})
		}
	}
	slices.SortFunc(pending, func(a, b migration) int { return a.version - b.version })
	return pending, nil
}

// migrate applies every pending migration, each in its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	pending, err := s.pendingMigrations()
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := s.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	body, err := migrationsFS.ReadFile("migrations/" + m.name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", m.name, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return fmt.Errorf("applying migration %d: %w", m.version, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_version ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Profiles ---

// UpsertProfile inserts a profile or replaces every column of an existing one.
func (s *Store) UpsertProfile(p ProfileRow) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO profiles (username, name, image, verified, bio, bio_html, bio_markdown, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			name = excluded.name,
			image = excluded.image,
			verified = excluded.verified,
			bio = excluded.bio,
			bio_html = excluded.bio_html,
			bio_markdown = excluded.bio_markdown,
			updated_at = excluded.updated_at`,
		p.Username, p.Name, p.Image, boolToInt(p.Verified), p.Bio, p.BioHTML, p.BioMarkdown, now, now,
	)
	return err
}

// GetProfile returns the profile for username or ErrNotFound.
func (s *Store) GetProfile(username string) (ProfileRow, error) {
	row := s.db.QueryRow(`
		SELECT username, name, image, verified, bio, bio_html, bio_markdown, created_at, updated_at
		FROM profiles WHERE username = ?`, username)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return ProfileRow{}, ErrNotFound
	}
	return p, err
}

// UpdateBio replaces the biography and its rendered forms in one statement so
// the rendered columns never lag the raw text.
func (s *Store) UpdateBio(username, bio, bioHTML, bioMarkdown string) error {
	res, err := s.db.Exec(`
		UPDATE profiles SET bio = ?, bio_html = ?, bio_markdown = ?, updated_at = ?
		WHERE username = ?`,
		bio, bioHTML, bioMarkdown, time.Now().UTC().Format(time.RFC3339), username,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProfiles returns profiles ordered by most recent update.
func (s *Store) ListProfiles(limit, offset int) ([]ProfileRow, error) {
	rows, err := s.db.Query(`
		SELECT username, name, image, verified, bio, bio_html, bio_markdown, created_at, updated_at
		FROM profiles ORDER BY updated_at DESC, username ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ProfileRow
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(r rowScanner) (ProfileRow, error) {
	var p ProfileRow
	var verified int
	var createdAt, updatedAt string
	if err := r.Scan(&p.Username, &p.Name, &p.Image, &verified, &p.Bio, &p.BioHTML, &p.BioMarkdown, &createdAt, &updatedAt); err != nil {
		return ProfileRow{}, err
	}
	p.Verified = verified != 0
	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return ProfileRow{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return ProfileRow{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Sessions ---

// CreateSession issues a bearer token for username. Only a hash of the token
// is stored; the plaintext is returned once.
func (s *Store) CreateSession(username string) (string, error) {
	if _, err := s.GetProfile(username); err != nil {
		return "", err
	}
	token := strings.ReplaceAll(uuid.New().String(), "-", "") + strings.ReplaceAll(uuid.New().String(), "-", "")
	_, err := s.db.Exec(`INSERT INTO sessions (token_hash, username, created_at) VALUES (?, ?, ?)`,
		hashToken(token), username, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return token, nil
}

// LookupSession returns the username owning token or ErrNotFound.
func (s *Store) LookupSession(token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}
	var username string
	err := s.db.QueryRow(`SELECT username FROM sessions WHERE token_hash = ?`, hashToken(token)).Scan(&username)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

// RevokeSessions deletes every session of username and reports how many were removed.
func (s *Store) RevokeSessions(username string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE username = ?`, username)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
