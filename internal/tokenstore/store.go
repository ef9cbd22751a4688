// Package tokenstore persists the session token between client runs.
// Absence of a token means the client is unauthenticated.
package tokenstore

import (
	"context"
	"sync"
)

// DefaultKey is the fixed key the token is stored under.
const DefaultKey = "auth_token"

// Store is durable client storage for one string token.
type Store interface {
	// Load returns "" when nothing is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	// Clear is idempotent.
	Clear(ctx context.Context) error
}

// Memory keeps the token in process memory only.
type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
