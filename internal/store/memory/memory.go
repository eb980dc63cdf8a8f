package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"billed/internal/core"
	"billed/internal/store"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	order []string
	items map[string]core.Bill
}

func New(seed ...core.Bill) *Store {
	s := &Store{items: make(map[string]core.Bill)}
	for _, b := range seed {
		s.put(b)
	}
	return s
}

// NewFromFile seeds the store from a JSON array of bills. A missing or
// unreadable file yields an empty store.
func NewFromFile(path string) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	var seed []core.Bill
	if err := json.Unmarshal(data, &seed); err != nil {
		return New()
	}
	return New(seed...)
}

// Insert adds a new bill and fails if the ID is already taken.
func (s *Store) Insert(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[b.ID]; ok {
		return fmt.Errorf("insert bill %s: %w", b.ID, store.ErrAlreadyExists)
	}
	s.put(b)
	return nil
}

// Save stores the bill, replacing any previous version.
func (s *Store) Save(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(b)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[id]
	if !ok {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, store.ErrNotFound)
	}
	return b, nil
}

// List returns bills in insertion order.
func (s *Store) List(_ context.Context, email string) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Bill, 0, len(s.order))
	for _, id := range s.order {
		b := s.items[id]
		if email != "" && b.Email != email {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) put(b core.Bill) {
	if _, ok := s.items[b.ID]; !ok {
		s.order = append(s.order, b.ID)
	}
	s.items[b.ID] = b
}
