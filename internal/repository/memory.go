package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"events-assistant/internal/domain"
)

// MemoryFavorites keeps saved places in process memory. Used when no table
// is configured.
type MemoryFavorites struct {
	mu    sync.RWMutex
	saved map[string][]domain.Location
}

func NewMemoryFavorites() *MemoryFavorites {
	return &MemoryFavorites{saved: make(map[string][]domain.Location)}
}

// Add saves loc for userID. Saving the same place again replaces it in place.
func (m *MemoryFavorites) Add(_ context.Context, userID string, loc domain.Location) error {
	if err := validateIDs(userID, loc.PlaceID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.saved[userID]
	for i := range list {
		if list[i].PlaceID == loc.PlaceID {
			list[i] = loc.Clone()
			return nil
		}
	}
	m.saved[userID] = append(list, loc.Clone())
	return nil
}

func (m *MemoryFavorites) Remove(_ context.Context, userID, placeID string) error {
	if err := validateIDs(userID, placeID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.saved[userID]
	for i := range list {
		if list[i].PlaceID == placeID {
			m.saved[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryFavorites) List(_ context.Context, userID string) ([]domain.Location, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := domain.CloneLocations(m.saved[userID])
	if out == nil {
		out = []domain.Location{}
	}
	return out, nil
}
