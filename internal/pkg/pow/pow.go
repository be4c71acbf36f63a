/*
Package pow implements an optional Proof-of-Work gate for anonymous endpoints.

A client fetches a nonce, finds a counter such that sha256(nonce+counter) starts with
`difficulty` hex zeros, and trades the proof for a short-lived single-use proof token.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the Proof Token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is the validity period for the Proof Token issued after successful PoW validation.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is the validity period for the challenge Nonce.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	ErrNonceInvalid   = errors.New("nonce expired or invalid")
	ErrProofTooWeak   = errors.New("proof does not meet difficulty requirement")
	ErrNonceCompleted = errors.New("nonce consumed by concurrent request")
)

// Manager tracks outstanding nonces and issued proof tokens.
type Manager struct {
	difficulty int

	// nonces and tokens map to their expiry time.
	nonces map[string]time.Time
	tokens map[string]time.Time

	mu sync.Mutex
}

// NewManager creates a Manager; its cleanup goroutine ends with ctx.
func NewManager(ctx context.Context, difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
	}

	go m.cleanupLoop(ctx)

	return m
}

// Difficulty returns the number of leading hex zeros required.
func (m *Manager) Difficulty() int {
	return m.difficulty
}

// Enabled reports whether the gate is active.
func (m *Manager) Enabled() bool {
	return m != nil && m.difficulty > 0
}

// GenerateNonce creates and stores a new challenge nonce.
func (m *Manager) GenerateNonce() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.New().String()
	m.nonces[nonce] = time.Now().Add(NonceExpiryDuration)
	return nonce
}

// ValidateProof checks counter against nonce and, on success, consumes the nonce and issues a proof token.
func (m *Manager) ValidateProof(nonce, counter string) (string, error) {
	if !Satisfies(nonce, counter, m.difficulty) {
		return "", ErrProofTooWeak
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonces[nonce]
	if !ok {
		return "", ErrNonceCompleted
	}
	delete(m.nonces, nonce)

	if time.Now().After(expiry) {
		return "", ErrNonceInvalid
	}

	token := uuid.New().String()
	m.tokens[token] = time.Now().Add(ProofTokenDuration)
	return token, nil
}

// ConsumeProofToken reports whether r carries a live proof token and invalidates it.
// The token is read from the X-PoW-Token header or the pow_token query parameter.
func (m *Manager) ConsumeProofToken(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}

	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[token]
	if !ok {
		return false
	}
	delete(m.tokens, token)

	return !time.Now().After(expiry)
}

// Satisfies reports whether sha256(nonce+counter) has at least difficulty leading hex zeros.
func Satisfies(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.purge(now)
		}
	}
}

func (m *Manager) purge(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for nonce, expiry := range m.nonces {
		if now.After(expiry) {
			delete(m.nonces, nonce)
		}
	}

	for token, expiry := range m.tokens {
		if now.After(expiry) {
			delete(m.tokens, token)
		}
	}
}
