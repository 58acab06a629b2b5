package identity

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

func query(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestBindValid(t *testing.T) {
	id, err := Bind(query("account_id", "acct-1", "email", "Alice@X.com", "nickname", " Alice ", "avatar", "https://x.com/a.png"))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if id.AccountID != "acct-1" {
		t.Errorf("account id = %q", id.AccountID)
	}
	if id.Email != "alice@x.com" {
		t.Errorf("email not lowercased: %q", id.Email)
	}
	if id.Nickname != "Alice" {
		t.Errorf("nickname not trimmed: %q", id.Nickname)
	}
	if id.Avatar != "https://x.com/a.png" {
		t.Errorf("avatar = %q", id.Avatar)
	}
}

func TestBindAvatarOptional(t *testing.T) {
	if _, err := Bind(query("account_id", "acct-1", "email", "alice@x.com", "nickname", "Alice")); err != nil {
		t.Errorf("avatar should be optional: %v", err)
	}
}

func TestBindRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{"missing account id", query("email", "alice@x.com", "nickname", "Alice")},
		{"missing email", query("account_id", "acct-1", "nickname", "Alice")},
		{"missing nickname", query("account_id", "acct-1", "email", "alice@x.com")},
		{"whitespace-only nickname", query("account_id", "acct-1", "email", "alice@x.com", "nickname", "   ")},
		{"malformed email", query("account_id", "acct-1", "email", "nope", "nickname", "Alice")},
		{"account id with slash", query("account_id", "a/b", "email", "alice@x.com", "nickname", "Alice")},
		{"overlong avatar", query("account_id", "acct-1", "email", "alice@x.com", "nickname", "Alice", "avatar", strings.Repeat("a", types.MaxAvatarRunes+1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(tt.query)
			if !errors.Is(err, types.ErrHandshakeInvalid) {
				t.Errorf("expected ErrHandshakeInvalid, got %v", err)
			}
		})
	}
}
