package billing

import (
	"context"
	"sync"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/store"
)

type fakeStore struct {
	mu sync.Mutex

	createRes  store.CreateResult
	createErr  error
	createGate chan struct{}
	creates    []store.CreateRequest

	updateErr  error
	updateGate chan struct{}
	updates    []store.UpdateRequest

	bills   []core.Bill
	listErr error
	lists   int
}

func (f *fakeStore) Create(ctx context.Context, req store.CreateRequest) (store.CreateResult, error) {
	f.mu.Lock()
	f.creates = append(f.creates, req)
	gate := f.createGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return store.CreateResult{}, ctx.Err()
		}
	}
	return f.createRes, f.createErr
}

func (f *fakeStore) Update(ctx context.Context, req store.UpdateRequest) error {
	f.mu.Lock()
	f.updates = append(f.updates, req)
	gate := f.updateGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.updateErr
}

func (f *fakeStore) List(context.Context) ([]core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return f.bills, f.listErr
}

func (f *fakeStore) createCalls() []store.CreateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.CreateRequest(nil), f.creates...)
}

func (f *fakeStore) updateCalls() []store.UpdateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.UpdateRequest(nil), f.updates...)
}

type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navRecorder) count(path string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, p := range n.paths {
		if p == path {
			c++
		}
	}
	return c
}

const testEmail = "employee@test.tld"

func employee() *session.Memory {
	return session.ForUser(core.User{Type: core.UserEmployee, Email: testEmail})
}

func quiet() Option {
	return WithLogger(log.Discard())
}
