package types

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateText(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := TruncateText(long, MaxMessageRunes)
	if utf8.RuneCountInString(got) != MaxMessageRunes {
		t.Errorf("expected %d runes, got %d", MaxMessageRunes, utf8.RuneCountInString(got))
	}

	// Multi-byte runes must be counted as one, never split.
	wide := strings.Repeat("é", 600)
	got = TruncateText(wide, MaxMessageRunes)
	if utf8.RuneCountInString(got) != MaxMessageRunes {
		t.Errorf("expected %d runes, got %d", MaxMessageRunes, utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}

	short := "hello"
	if TruncateText(short, MaxMessageRunes) != short {
		t.Error("text under the cap must pass through unchanged")
	}
}

func TestIdentityValidate(t *testing.T) {
	valid := Identity{AccountID: "acct-1", Email: "alice@x.com", Nickname: "Alice"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid identity rejected: %v", err)
	}

	tests := []struct {
		name string
		id   Identity
	}{
		{"empty account id", Identity{Email: "alice@x.com", Nickname: "Alice"}},
		{"account id with spaces", Identity{AccountID: "a b", Email: "alice@x.com", Nickname: "Alice"}},
		{"malformed email", Identity{AccountID: "acct-1", Email: "not-an-email", Nickname: "Alice"}},
		{"email without domain dot", Identity{AccountID: "acct-1", Email: "alice@host", Nickname: "Alice"}},
		{"empty nickname", Identity{AccountID: "acct-1", Email: "alice@x.com"}},
		{"overlong nickname", Identity{AccountID: "acct-1", Email: "alice@x.com", Nickname: strings.Repeat("n", 65)}},
		{"overlong avatar", Identity{AccountID: "acct-1", Email: "alice@x.com", Nickname: "Alice", Avatar: strings.Repeat("a", MaxAvatarRunes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.id.Validate(); err == nil {
				t.Errorf("expected rejection for %+v", tt.id)
			}
		})
	}
}
