package memory

import (
	"context"
	"sync"

	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

// ProfileStore is an in-memory implementation of driven.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.PerformanceProfile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]domain.PerformanceProfile),
	}
}

// GetProfile retrieves the performance profile for a document.
func (s *ProfileStore) GetProfile(_ context.Context, documentID string) (*domain.PerformanceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &profile, nil
}

// SaveProfile stores or updates a profile.
func (s *ProfileStore) SaveProfile(_ context.Context, profile *domain.PerformanceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.DocumentID] = *profile
	return nil
}
