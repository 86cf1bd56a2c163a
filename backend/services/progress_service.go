package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"mathboard/backend/events"
	"mathboard/backend/gamification"
	"mathboard/backend/models"
	"mathboard/backend/store"

	"golang.org/x/sync/singleflight"
)

// MaxCompletionXP caps the XP a single completion may award.
const MaxCompletionXP int64 = 100_000

var (
	ErrInvalidXP   = errors.New("xp must not be negative")
	ErrXPTooLarge  = fmt.Errorf("xp must not exceed %d", MaxCompletionXP)
	ErrMissingUser = errors.New("missing user id")
)

// ProfileSummary is the dashboard view of a user's progress on a given day.
type ProfileSummary struct {
	UserID         string                     `json:"userId"`
	TotalXP        int64                      `json:"totalXp"`
	CurrentStreak  int                        `json:"currentStreak"`
	ActiveStreak   int                        `json:"activeStreak"`
	LongestStreak  int                        `json:"longestStreak"`
	LastActiveDate gamification.DateKey       `json:"lastActiveDate,omitempty"`
	Today          gamification.DateKey       `json:"today"`
	Level          gamification.LevelProgress `json:"level"`
}

type CompletionResult struct {
	ProfileSummary
	XPAwarded    int64                     `json:"xpAwarded"`
	StreakChange gamification.StreakChange `json:"streakChange"`
	LeveledUp    bool                      `json:"leveledUp"`
}

type Options struct {
	Clock     gamification.Clock
	Bus       *events.Bus
	CacheSize int
	Logger    *slog.Logger
}

type ProgressService struct {
	store    store.ProgressStore
	levels   *gamification.LevelTable
	calendar *gamification.Calendar
	clock    gamification.Clock
	bus      *events.Bus
	cache    *ProfileCache
	group    singleflight.Group
	logger   *slog.Logger
}

func NewProgressService(st store.ProgressStore, levels *gamification.LevelTable, calendar *gamification.Calendar, opts Options) (*ProgressService, error) {
	if levels == nil {
		return nil, &gamification.ConfigurationError{Reason: "no level table", Err: gamification.ErrEmptyLevelTable}
	}
	if opts.Clock == nil {
		opts.Clock = gamification.SystemClock
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if calendar == nil {
		calendar = gamification.DefaultCalendar()
	}

	cache, err := NewProfileCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	s := &ProgressService{
		store:    st,
		levels:   levels,
		calendar: calendar,
		clock:    opts.Clock,
		bus:      opts.Bus,
		cache:    cache,
		logger:   opts.Logger,
	}
	s.bus.Subscribe(s.refreshCachedProfile)
	return s, nil
}

// Today is the current DateKey in the reference timezone.
func (s *ProgressService) Today() gamification.DateKey {
	return s.calendar.Today(s.clock.Now())
}

func (s *ProgressService) ListLevels() []gamification.LevelDefinition {
	return s.levels.Levels()
}

// RecordCompletion awards xp for a qualifying action and advances the daily
// streak. Repeated completions on the same day only add XP.
func (s *ProgressService) RecordCompletion(ctx context.Context, userID string, xp int64) (CompletionResult, error) {
	if userID == "" {
		return CompletionResult{}, ErrMissingUser
	}
	if xp < 0 {
		return CompletionResult{}, ErrInvalidXP
	}
	if xp > MaxCompletionXP {
		return CompletionResult{}, ErrXPTooLarge
	}

	today := s.Today()

	var (
		before gamification.UserProgress
		change gamification.StreakChange
	)
	row, err := s.store.Update(ctx, userID, func(p *models.UserProgress) error {
		before = p.Domain()
		next := before
		next.TotalXP = addXP(next.TotalXP, xp)
		next, change = s.calendar.EvaluateStreak(next, today)
		p.SetDomain(next)
		return nil
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("record completion: %w", err)
	}

	after := row.Domain()
	s.bus.Publish(events.ProgressUpdated{
		UserID:   userID,
		Revision: row.Revision,
		Progress: after,
		Streak:   change,
		Day:      today,
	})

	summary := s.summarize(userID, after, today)
	leveledUp := summary.Level.CurrentLevel > s.levels.Resolve(before.TotalXP).CurrentLevel

	s.logger.Info("Completion recorded",
		slog.String("type", "progress"),
		slog.String("user_id", userID),
		slog.Int64("xp", xp),
		slog.Int64("total_xp", after.TotalXP),
		slog.String("streak", change.String()),
		slog.Int("current_streak", after.CurrentStreak),
		slog.Bool("leveled_up", leveledUp),
	)

	return CompletionResult{
		ProfileSummary: summary,
		XPAwarded:      xp,
		StreakChange:   change,
		LeveledUp:      leveledUp,
	}, nil
}

// GetProfile returns the caller's summary for today, from cache when possible.
// Concurrent misses for one user share a single store read, detached from
// any one caller's cancellation.
func (s *ProgressService) GetProfile(ctx context.Context, userID string) (ProfileSummary, error) {
	if userID == "" {
		return ProfileSummary{}, ErrMissingUser
	}

	today := s.Today()
	if summary, ok := s.cache.Get(userID, today); ok {
		return summary, nil
	}

	// the shared read must not fail for joined callers when the first one goes away
	readCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(userID+"|"+today.String(), func() (interface{}, error) {
		row, err := s.store.Get(readCtx, userID)
		if err != nil {
			return nil, err
		}
		summary := s.summarize(userID, row.Domain(), today)
		s.cache.Store(userID, row.Revision, summary)
		return summary, nil
	})
	if err != nil {
		return ProfileSummary{}, fmt.Errorf("get profile: %w", err)
	}
	return v.(ProfileSummary), nil
}

// addXP saturates at math.MaxInt64 so a total never wraps negative.
func addXP(total, xp int64) int64 {
	if total > math.MaxInt64-xp {
		return math.MaxInt64
	}
	return total + xp
}

func (s *ProgressService) summarize(userID string, p gamification.UserProgress, today gamification.DateKey) ProfileSummary {
	return ProfileSummary{
		UserID:         userID,
		TotalXP:        p.TotalXP,
		CurrentStreak:  p.CurrentStreak,
		ActiveStreak:   s.calendar.ActiveStreak(p, today),
		LongestStreak:  p.LongestStreak,
		LastActiveDate: p.LastActiveDate,
		Today:          today,
		Level:          s.levels.Resolve(p.TotalXP),
	}
}

func (s *ProgressService) refreshCachedProfile(e events.ProgressUpdated) {
	s.cache.Store(e.UserID, e.Revision, s.summarize(e.UserID, e.Progress, e.Day))
}
