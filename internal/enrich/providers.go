package enrich

import (
	"context"
	"maps"
	"sync"
)

// BusinessContextProvider supplies business facts about a user.
type BusinessContextProvider interface {
	BusinessContext(ctx context.Context, userID string) (map[string]any, error)
}

// PreferenceStore supplies a user's stored preferences.
type PreferenceStore interface {
	Preferences(ctx context.Context, userID string) (map[string]any, error)
}

// MapStore is an in-memory BusinessContextProvider and PreferenceStore.
// Unknown users resolve to nil maps.
type MapStore struct {
	mu          sync.RWMutex
	business    map[string]map[string]any
	preferences map[string]map[string]any
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{
		business:    make(map[string]map[string]any),
		preferences: make(map[string]map[string]any),
	}
}

// SetBusinessContext replaces the business context for userID.
func (s *MapStore) SetBusinessContext(userID string, values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.business[userID] = maps.Clone(values)
}

// SetPreferences replaces the preferences for userID.
func (s *MapStore) SetPreferences(userID string, values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[userID] = maps.Clone(values)
}

// BusinessContext implements BusinessContextProvider.
func (s *MapStore) BusinessContext(_ context.Context, userID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.business[userID]), nil
}

// Preferences implements PreferenceStore.
func (s *MapStore) Preferences(_ context.Context, userID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.preferences[userID]), nil
}
