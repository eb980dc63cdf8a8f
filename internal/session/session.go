// Package session exposes the signed-in user to the billing flows.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"billed/internal/core"
)

// UserKey is the accessor key holding the JSON-encoded core.User.
const UserKey = "user"

var (
	ErrNoUser      = errors.New("no user in session")
	ErrInvalidUser = errors.New("invalid session user")
)

// Accessor reads string values from a session.
type Accessor interface {
	Get(key string) (string, bool)
}

// Memory is an in-process Accessor.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// ForUser returns a Memory holding u under UserKey.
func ForUser(u core.User) *Memory {
	m := NewMemory()
	data, _ := json.Marshal(u)
	m.Set(UserKey, string(data))
	return m
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// CurrentUser decodes the user stored under UserKey.
func CurrentUser(a Accessor) (core.User, error) {
	if a == nil {
		return core.User{}, ErrNoUser
	}
	raw, ok := a.Get(UserKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return core.User{}, ErrNoUser
	}
	var u core.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return core.User{}, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	if u.Email == "" {
		return core.User{}, fmt.Errorf("%w: empty email", ErrInvalidUser)
	}
	return u, nil
}

type ctxKey struct{}

// WithAccessor returns a copy of ctx carrying a.
func WithAccessor(ctx context.Context, a Accessor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the accessor stored by WithAccessor, or nil.
func FromContext(ctx context.Context) Accessor {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(ctxKey{}).(Accessor)
	return a
}

// UserFromContext is CurrentUser(FromContext(ctx)).
func UserFromContext(ctx context.Context) (core.User, error) {
	return CurrentUser(FromContext(ctx))
}
