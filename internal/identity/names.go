package identity

import (
	"strings"

	"github.com/google/uuid"
)

// PatientIDPrefix prefixes every generated patient id
const PatientIDPrefix = "USER-"

// NewPatientID returns a collision-resistant patient id
func NewPatientID() string {
	return PatientIDPrefix + uuid.New().String()
}

// DisplayNameFromEmail derives a name from the local part of an email:
// every character that is not an ASCII letter becomes a space and the
// first letter of each run of letters is upper-cased.
//
//	john.q.public@mail.com -> John Q Public
func DisplayNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	var b strings.Builder
	b.Grow(len(local))
	startOfWord := true
	for _, r := range local {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		switch {
		case !isLetter:
			b.WriteByte(' ')
			startOfWord = true
		case startOfWord:
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
			startOfWord = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
