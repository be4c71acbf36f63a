package chat

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"ryachat/internal/app/user"
	"ryachat/internal/pkg/auth/jwt"
	"ryachat/internal/pkg/randx"
)

// TokenAuthority issues session tokens and maps a presented token back to its user.
// Callers treat tokens as opaque strings; only equality with the stored token matters.
type TokenAuthority interface {
	// Issue creates a fresh token for userID. The caller stores it on the user record.
	Issue(userID string) (string, error)

	// Authenticate returns the id of the user currently holding token.
	Authenticate(token string) (string, bool)
}

// userLookup is the part of the Directory token authorities need.
type userLookup interface {
	Get(userID string) (*user.User, bool)
	Each(fn func(u *user.User) bool)
}

// NewTokenAuthority builds the authority selected by mode.
func NewTokenAuthority(mode, secret string, users userLookup) (TokenAuthority, error) {
	switch mode {
	case TokenModeOpaque:
		return &OpaqueTokenAuthority{users: users}, nil
	case TokenModeSigned:
		if secret == "" {
			return nil, errors.New("signed token mode requires a secret")
		}
		return &SignedTokenAuthority{secret: secret, users: users}, nil
	default:
		return nil, fmt.Errorf("unknown token mode %q", mode)
	}
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// OpaqueTokenAuthority hands out random tokens and authenticates by scanning every user.
// The scan is linear in the number of users.
type OpaqueTokenAuthority struct {
	users userLookup
}

func (a *OpaqueTokenAuthority) Issue(userID string) (string, error) {
	for i := 0; i < 3; i++ {
		token, err := randx.Token()
		if err != nil {
			return "", err
		}
		if _, taken := a.Authenticate(token); !taken {
			return token, nil
		}
	}
	return "", errors.New("could not issue a unique token")
}

func (a *OpaqueTokenAuthority) Authenticate(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	var found string
	a.users.Each(func(u *user.User) bool {
		if tokensEqual(u.Token, token) {
			found = u.ID
			return false
		}
		return true
	})
	return found, found != ""
}

// SignedTokenAuthority issues HS256 tokens that name their user, so authentication is a
// signature check plus one directory lookup. The presented token must still equal the stored one.
type SignedTokenAuthority struct {
	secret string
	users  userLookup
}

func (a *SignedTokenAuthority) Issue(userID string) (string, error) {
	nonce, err := randx.Base62(12)
	if err != nil {
		return "", err
	}
	return jwt.GenerateToken(&jwt.Payload{ID: userID, Nonce: nonce}, a.secret, 0)
}

func (a *SignedTokenAuthority) Authenticate(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	payload, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		return "", false
	}

	u, ok := a.users.Get(payload.ID)
	if !ok || !tokensEqual(u.Token, token) {
		return "", false
	}
	return u.ID, true
}
