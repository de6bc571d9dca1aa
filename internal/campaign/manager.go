package campaign

import (
	"sync"
)

// Manager hands out one Runner per user. Runners are created lazily through
// the factory so each gets its own restored session state.
type Manager struct {
	mu      sync.Mutex
	runners map[string]*Runner
	factory func(userID string) (*Runner, error)
}

func NewManager(factory func(userID string) (*Runner, error)) *Manager {
	return &Manager{
		runners: make(map[string]*Runner),
		factory: factory,
	}
}

func (m *Manager) Runner(userID string) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runners[userID]; ok {
		return r, nil
	}
	r, err := m.factory(userID)
	if err != nil {
		return nil, err
	}
	m.runners[userID] = r
	return r, nil
}
