package types

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes is the hard cap on message text; longer text is silently
// truncated before persistence, not rejected.
const MaxMessageRunes = 500

// MaxAvatarRunes caps the avatar reference length.
const MaxAvatarRunes = 512

var (
	accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	emailRegex     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// IsValidAccountID checks the connect-time account identifier shape.
func IsValidAccountID(id string) bool {
	return accountIDRegex.MatchString(id)
}

// IsValidEmail checks the address shape used as the presence key.
func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

// NormalizeEmail folds an address into the form used as the presence key.
// Every email entering the engine goes through this, whether it arrives
// at the handshake or inside a thread reference, so both sides of a
// conversation resolve the same key regardless of letter case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidNickname checks the display-name shape.
func IsValidNickname(nickname string) bool {
	n := utf8.RuneCountInString(nickname)
	return n >= 1 && n <= 64
}

// IsValidAvatar checks the optional avatar reference; empty is allowed.
func IsValidAvatar(avatar string) bool {
	return utf8.RuneCountInString(avatar) <= MaxAvatarRunes
}

// Validate checks that all fixed identity fields have the expected shape.
func (i Identity) Validate() error {
	if !IsValidAccountID(i.AccountID) || !IsValidEmail(i.Email) ||
		!IsValidNickname(i.Nickname) || !IsValidAvatar(i.Avatar) {
		return ErrHandshakeInvalid
	}
	return nil
}

// TruncateText caps s at max runes.
func TruncateText(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
