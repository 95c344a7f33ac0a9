package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/Cheese-PvP-server/internal/game"
)

// Memory is a process-local store. One mutex serialises every call, so
// Update never conflicts.
type Memory struct {
	mu    sync.Mutex
	games map[string]game.GameState
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string]game.GameState)}
}

func (m *Memory) Get(_ context.Context, id string) (game.GameState, error) {
	id, err := normID(id)
	if err != nil {
		return game.GameState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id).Clone(), nil
}

func (m *Memory) loadLocked(id string) game.GameState {
	s, ok := m.games[id]
	if !ok {
		s = fresh()
		m.games[id] = s
	}
	return s
}

func (m *Memory) Put(_ context.Context, id string, s game.GameState) error {
	id, err := normID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.games[id] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.games, strings.TrimSpace(id))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, id string, fn UpdateFunc) (game.GameState, error) {
	id, err := normID(id)
	if err != nil {
		return game.GameState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.loadLocked(id).Clone())
	if err != nil {
		return game.GameState{}, err
	}
	m.games[id] = next.Clone()
	return next, nil
}

func (m *Memory) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	_, ok := m.games[strings.TrimSpace(id)]
	m.mu.Unlock()
	return ok, nil
}

func (m *Memory) IDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.games = make(map[string]game.GameState)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
