package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidEmail is returned when an email fails the submission gate.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrSourceTagTooLong is returned when an attribution tag exceeds the cap.
	ErrSourceTagTooLong = errors.New("source tag must be at most 64 characters")

	// emailRegex is the waitlist gate: non-whitespace, "@", non-whitespace,
	// ".", non-whitespace. Deliberately loose; a stricter RFC 5322 check
	// would reject addresses the product wants to accept.
	emailRegex = regexp.MustCompile(`^\S+@\S+\.\S+$`)

	// hexColorRegex matches #RGB and #RRGGBB style values.
	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// NormalizeAccountEmail canonicalizes an email for account storage and
// lookups: trimmed and lowercased. Every path that touches the users
// table goes through this so "Foo@x.com" and "foo@x.com" stay one account.
func NormalizeAccountEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSubmissionEmail applies the loose waitlist email gate.
func ValidateSubmissionEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 320 {
		return ErrInvalidEmail
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeSourceTag trims an attribution tag taken from a query parameter.
// Control characters are stripped so the tag stays a plain label.
func NormalizeSourceTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if len(tag) > 64 {
		return "", ErrSourceTagTooLong
	}
	var b strings.Builder
	for _, r := range tag {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// IsHexColor reports whether value is a #RGB or #RRGGBB color literal.
func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(value)
}
