package store

import (
	"context"
	"sync"
	"time"

	"mathboard/backend/models"
)

// MemoryStore keeps progress in process memory. It is meant for local runs
// and tests; data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[string]models.UserProgress
	nextID uint
}

var _ ProgressStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]models.UserProgress)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (models.UserProgress, error) {
	if err := ctx.Err(); err != nil {
		return models.UserProgress{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[userID]
	if !ok {
		return models.UserProgress{UserID: userID}, nil
	}
	return cloneRow(row), nil
}

// Update holds the write lock for the whole read-modify-write, so mutate
// runs exactly once and must not call back into the store.
func (s *MemoryStore) Update(ctx context.Context, userID string, mutate func(*models.UserProgress) error) (models.UserProgress, error) {
	if err := ctx.Err(); err != nil {
		return models.UserProgress{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rows[userID]
	if !ok {
		current = models.UserProgress{UserID: userID, CreatedAt: time.Now()}
	}

	next := cloneRow(current)
	if err := mutate(&next); err != nil {
		return models.UserProgress{}, err
	}
	if !ok {
		s.nextID++
		current.ID = s.nextID
	}
	next.ID = current.ID
	next.UserID = userID
	next.CreatedAt = current.CreatedAt
	next.Revision = current.Revision + 1
	next.UpdatedAt = time.Now()

	s.rows[userID] = cloneRow(next)
	return next, nil
}

func cloneRow(row models.UserProgress) models.UserProgress {
	if row.LastActiveDate != nil {
		date := *row.LastActiveDate
		row.LastActiveDate = &date
	}
	return row
}
