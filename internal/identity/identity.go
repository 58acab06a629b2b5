// Package identity validates connect-time parameters and binds them into
// a candidate identity. Malformed handshakes are a client bug: binding
// fails fast and the connection is refused with no further interaction.
package identity

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// Bind validates the query parameters presented at connect time and
// returns the bound identity. account_id, email and nickname are all
// required; avatar is optional.
func Bind(query url.Values) (types.Identity, error) {
	id := types.Identity{
		AccountID: strings.TrimSpace(query.Get("account_id")),
		Email:     types.NormalizeEmail(query.Get("email")),
		Nickname:  strings.TrimSpace(query.Get("nickname")),
		Avatar:    strings.TrimSpace(query.Get("avatar")),
	}

	switch {
	case id.AccountID == "" || id.Email == "" || id.Nickname == "":
		return types.Identity{}, fmt.Errorf("%w: account_id, email and nickname are required", types.ErrHandshakeInvalid)
	case !types.IsValidAccountID(id.AccountID):
		return types.Identity{}, fmt.Errorf("%w: malformed account_id", types.ErrHandshakeInvalid)
	case !types.IsValidEmail(id.Email):
		return types.Identity{}, fmt.Errorf("%w: malformed email", types.ErrHandshakeInvalid)
	case !types.IsValidNickname(id.Nickname):
		return types.Identity{}, fmt.Errorf("%w: malformed nickname", types.ErrHandshakeInvalid)
	case !types.IsValidAvatar(id.Avatar):
		return types.Identity{}, fmt.Errorf("%w: avatar too long", types.ErrHandshakeInvalid)
	}

	return id, nil
}
