package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a signed session token.
// A session token proves control of a userId; it has no expiry and is only replaced by re-issuing.
type Payload struct {
	jwt.StandardClaims

	// ID is the client-supplied userId the token is bound to.
	ID string `json:"uid"`

	// Nonce makes every issued token unique, even for the same user and second.
	Nonce string `json:"nonce"`
}
