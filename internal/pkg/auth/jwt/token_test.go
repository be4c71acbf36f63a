package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "RYA-1", Nonce: "n1"}, "secret", 0)
	require.NoError(t, err)

	payload, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "RYA-1", payload.ID)
	assert.Equal(t, "n1", payload.Nonce)
	assert.Equal(t, TokenIssuer, payload.Issuer)
	assert.Zero(t, payload.ExpiresAt)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "RYA-1"}, "secret", 0)
	require.NoError(t, err)

	_, err = ParseToken(token, "other")
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "RYA-1"}, "secret", -time.Minute)
	require.NoError(t, err)

	// a negative duration is treated as "no expiry" by GenerateToken
	_, err = ParseToken(token, "secret")
	require.NoError(t, err)

	payload := &Payload{ID: "RYA-1"}
	token, err = GenerateToken(payload, "secret", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = ParseToken(token, "secret")
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("RYA_not-a-jwt", "secret")
	assert.Error(t, err)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken(&Payload{ID: "RYA-1"}, "", 0)
	assert.Error(t, err)
}

func TestBearerExtractorMiddleware(t *testing.T) {
	var seen string
	h := BearerExtractorMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TokenFromRequest(r)
	}))

	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{name: "header", target: "/x", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", target: "/x", header: "bearer abc", want: "abc"},
		{name: "query", target: "/x?token=q1", want: "q1"},
		{name: "header wins", target: "/x?token=q1", header: "Bearer h1", want: "h1"},
		{name: "bad scheme falls back to query", target: "/x?token=q1", header: "Basic zzz", want: "q1"},
		{name: "none", target: "/x", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = "unset"
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)
			assert.Equal(t, tt.want, seen)
		})
	}
}
