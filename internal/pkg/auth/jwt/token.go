package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenIssuer identifies the issuer of the token.
const TokenIssuer = "RyaChat-Server"

// GenerateToken creates and signs a new HS256 token for payload.
// A zero duration produces a token without an expiry claim.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	if secretKey == "" {
		return "", errors.New("empty signing secret")
	}

	now := time.Now()

	payload.StandardClaims = jwt.StandardClaims{
		IssuedAt: now.Unix(),
		Issuer:   TokenIssuer,
		Subject:  payload.ID,
	}
	if duration > 0 {
		payload.StandardClaims.ExpiresAt = now.Add(duration).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates the token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.ID == "" {
		return nil, errors.New("token carries no user id")
	}

	return claims, nil
}
