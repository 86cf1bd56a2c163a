package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mathboard/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.Update(ctx, "u1", func(p *models.UserProgress) error {
		date := "2024-01-01"
		p.TotalXP = 20
		p.LastActiveDate = &date
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)
	assert.Equal(t, int64(1), got.Revision)

	// returned rows do not alias stored state
	*got.LastActiveDate = "1999-12-31"
	stored, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", *stored.LastActiveDate)

	other, err := s.Update(ctx, "u2", addXP(1))
	require.NoError(t, err)
	assert.Equal(t, uint(2), other.ID)
}

func TestMemoryStoreMutateError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	_, err := s.Update(ctx, "u1", func(*models.UserProgress) error { return boom })
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, got.ID)

	created, err := s.Update(ctx, "u1", addXP(1))
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.ID)
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "shared", addXP(2))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.TotalXP)
	assert.Equal(t, int64(50), got.Revision)
}
