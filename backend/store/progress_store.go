package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mathboard/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConflict is returned when an update keeps losing to concurrent writers.
var ErrConflict = errors.New("progress update conflict")

// DefaultMaxRetries bounds the read-modify-write attempts of Update.
const DefaultMaxRetries = 5

//go:generate mockgen -source=progress_store.go -destination=mock/progress_store.go -package=mock

// ProgressStore persists user progress.
//
// Update runs a read-modify-write keyed by user ID. mutate may be called
// more than once and must derive its result only from the row it is given.
// UserID, ID and Revision set by mutate are ignored.
type ProgressStore interface {
	Get(ctx context.Context, userID string) (models.UserProgress, error)
	Update(ctx context.Context, userID string, mutate func(*models.UserProgress) error) (models.UserProgress, error)
}

type GormStore struct {
	db         *gorm.DB
	maxRetries int
}

var _ ProgressStore = (*GormStore)(nil)

func NewGormStore(db *gorm.DB, maxRetries int) *GormStore {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &GormStore{db: db, maxRetries: maxRetries}
}

// Get returns the stored progress, or a fresh zero-value profile for users
// that have none yet.
func (s *GormStore) Get(ctx context.Context, userID string) (models.UserProgress, error) {
	row, _, err := s.load(ctx, userID)
	return row, err
}

func (s *GormStore) load(ctx context.Context, userID string) (models.UserProgress, bool, error) {
	var row models.UserProgress
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserProgress{UserID: userID}, false, nil
	}
	if err != nil {
		return models.UserProgress{}, false, fmt.Errorf("load progress for %s: %w", userID, err)
	}
	return row, true, nil
}

func (s *GormStore) Update(ctx context.Context, userID string, mutate func(*models.UserProgress) error) (models.UserProgress, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.UserProgress{}, err
		}

		current, found, err := s.load(ctx, userID)
		if err != nil {
			return models.UserProgress{}, err
		}

		next := current
		if err := mutate(&next); err != nil {
			return models.UserProgress{}, err
		}
		next.ID = current.ID
		next.UserID = userID
		next.CreatedAt = current.CreatedAt
		next.Revision = current.Revision + 1

		var won bool
		if found {
			won, err = s.compareAndSwap(ctx, current.Revision, &next)
		} else {
			won, err = s.insert(ctx, &next)
		}
		if err != nil {
			return models.UserProgress{}, err
		}
		if won {
			return next, nil
		}

		slog.Debug("Progress write lost a race, retrying",
			slog.String("type", "db"),
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}
	return models.UserProgress{}, fmt.Errorf("update progress for %s after %d attempts: %w", userID, s.maxRetries, ErrConflict)
}

func (s *GormStore) compareAndSwap(ctx context.Context, expected int64, next *models.UserProgress) (bool, error) {
	next.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("user_id = ? AND revision = ?", next.UserID, expected).
		Updates(map[string]interface{}{
			"total_xp":         next.TotalXP,
			"current_streak":   next.CurrentStreak,
			"longest_streak":   next.LongestStreak,
			"last_active_date": next.LastActiveDate,
			"revision":         next.Revision,
			"updated_at":       next.UpdatedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("update progress for %s: %w", next.UserID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// insert creates the first row for a user. A concurrent first write wins the
// unique index and this attempt reports a lost race.
func (s *GormStore) insert(ctx context.Context, next *models.UserProgress) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(next)
	if res.Error != nil {
		return false, fmt.Errorf("create progress for %s: %w", next.UserID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
