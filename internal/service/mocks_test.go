package service

import (
	"context"
	"sync"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// mockLoader records calls and returns configured responses.
type mockLoader struct {
	mu    sync.Mutex
	calls int

	loadFn func(ctx context.Context) (taxonomy.Stats, error)
}

func (m *mockLoader) Load(ctx context.Context) (taxonomy.Stats, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	return m.loadFn(ctx)
}

func (m *mockLoader) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// mockNotifier collects every event it is told about.
type mockNotifier struct {
	mu     sync.Mutex
	events []ReloadEvent
}

func (m *mockNotifier) TaxonomyReloaded(ev ReloadEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockNotifier) getEvents() []ReloadEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]ReloadEvent(nil), m.events...)
}
