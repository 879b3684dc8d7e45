package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ProfileRow is a row of the profiles table. The rendered biography columns
// always correspond to Bio.
type ProfileRow struct {
	Username    string
	Name        string
	Image       string
	Verified    bool
	Bio         string
	BioHTML     string
	BioMarkdown string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
