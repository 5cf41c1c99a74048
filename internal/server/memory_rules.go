package server

import (
	"context"
	"sync"

	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// MemoryRules is an in-process RulesProvider used when the database is
// disabled. Rules live for the lifetime of the server.
type MemoryRules struct {
	mu    sync.RWMutex
	rules map[string]rules.Registry // player id -> registry
}

// NewMemoryRules creates an empty in-memory rules provider.
func NewMemoryRules() *MemoryRules {
	return &MemoryRules{rules: make(map[string]rules.Registry)}
}

// LoadRegistry returns a copy of the player's rules.
func (m *MemoryRules) LoadRegistry(_ context.Context, playerID string) (rules.Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reg := rules.Registry{}
	for identity, rule := range m.rules[playerID] {
		reg[identity] = rule
	}
	return reg, nil
}

// SaveRule stores a rule for one card identity.
func (m *MemoryRules) SaveRule(_ context.Context, playerID, identity string, rule *rules.ProductionRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rules[playerID] == nil {
		m.rules[playerID] = rules.Registry{}
	}
	m.rules[playerID][identity] = rule
	return nil
}

// DeleteRule removes a stored rule. Missing rules are ignored.
func (m *MemoryRules) DeleteRule(_ context.Context, playerID, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rules[playerID], identity)
	return nil
}
