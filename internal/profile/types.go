package profile

import (
	"errors"
	"unicode/utf16"

	"github.com/kalambet/folio/internal/render"
)

// MaxBioLength is the biography cap in UTF-16 code units. Clients display it
// as an advisory counter; the API rejects anything longer.
const MaxBioLength = 256

// ErrBioTooLong is returned when a biography exceeds MaxBioLength.
var ErrBioTooLong = errors.New("bio exceeds 256 characters")

// Profile is a user's public profile. Username is the stable identity;
// Name, Image and Verified are maintained elsewhere and read-only here.
type Profile struct {
	Username    string          `json:"username"`
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Verified    bool            `json:"verified"`
	Bio         string          `json:"bio"`
	BioRendered render.Document `json:"bioRendered"`
}

// BioLength returns the length of s in UTF-16 code units, the unit the cap is
// expressed in.
func BioLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Remaining returns how many code units are left before the cap. Negative
// when bio is over the limit.
func Remaining(bio string) int {
	return MaxBioLength - BioLength(bio)
}

// TruncateBio cuts s to at most MaxBioLength code units without splitting a
// surrogate pair. Any stored value may be longer than the cap, so display
// code passes it through here.
func TruncateBio(s string) string {
	n := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if l <= 0 {
			l = 1
		}
		if n+l > MaxBioLength {
			return s[:i]
		}
		n += l
	}
	return s
}

// ValidateBio enforces the cap.
func ValidateBio(bio string) error {
	if BioLength(bio) > MaxBioLength {
		return ErrBioTooLong
	}
	return nil
}
