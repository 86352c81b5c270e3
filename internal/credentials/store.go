// Package credentials keeps each storefront client's login: the bearer token
// and the serialized user, under the fixed keys "token" and "user".
package credentials

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/farellandr/storefront/internal/clock"
	"github.com/farellandr/storefront/internal/models"
)

var ErrEmptyToken = errors.New("empty token")

type Store interface {
	// Load never fails for a client with nothing stored; it reports a
	// logged-out session instead.
	Load(ctx context.Context, clientID string) (models.AuthSession, error)
	Save(ctx context.Context, clientID string, user models.User, token string) error
	Clear(ctx context.Context, clientID string) error
}

// Expired reports whether token is a JWT whose exp claim is not after now.
// Opaque tokens and tokens without exp never expire here; the events API
// remains the authority on their validity.
func Expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now)
}

func session(user *models.User, token string, now time.Time) models.AuthSession {
	if user == nil || token == "" || Expired(token, now) {
		return models.AuthSession{}
	}
	return models.AuthSession{IsLoggedIn: true, User: user, Token: token}
}

type memoryEntry struct {
	user  models.User
	token string
}

// MemoryStore holds credentials for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.NewSystem()
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), clock: c}
}

func (m *MemoryStore) Load(_ context.Context, clientID string) (models.AuthSession, error) {
	m.mu.RLock()
	entry, ok := m.entries[clientID]
	m.mu.RUnlock()
	if !ok {
		return models.AuthSession{}, nil
	}
	user := entry.user
	return session(&user, entry.token, m.clock.Now()), nil
}

func (m *MemoryStore) Save(_ context.Context, clientID string, user models.User, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	m.entries[clientID] = memoryEntry{user: user, token: token}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, clientID string) error {
	m.mu.Lock()
	delete(m.entries, clientID)
	m.mu.Unlock()
	return nil
}
