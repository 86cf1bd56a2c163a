package models

import (
	"time"

	"mathboard/backend/gamification"
)

// UserProgress is the persisted gamification state of one user.
// Revision is the optimistic-concurrency token; every write bumps it.
type UserProgress struct {
	ID             uint    `gorm:"primaryKey"`
	UserID         string  `gorm:"uniqueIndex;not null;size:128"`
	TotalXP        int64   `gorm:"not null;default:0"`
	CurrentStreak  int     `gorm:"not null;default:0"`
	LongestStreak  int     `gorm:"not null;default:0"`
	LastActiveDate *string `gorm:"size:10"`
	Revision       int64   `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// Domain converts the row into the value the gamification rules work on.
func (p *UserProgress) Domain() gamification.UserProgress {
	out := gamification.UserProgress{
		TotalXP:       p.TotalXP,
		CurrentStreak: p.CurrentStreak,
		LongestStreak: p.LongestStreak,
	}
	if p.LastActiveDate != nil {
		out.LastActiveDate = gamification.DateKey(*p.LastActiveDate)
	}
	return out
}

// SetDomain copies gamification state back onto the row.
func (p *UserProgress) SetDomain(g gamification.UserProgress) {
	p.TotalXP = g.TotalXP
	p.CurrentStreak = g.CurrentStreak
	p.LongestStreak = g.LongestStreak
	if g.LastActiveDate.IsZero() {
		p.LastActiveDate = nil
		return
	}
	date := g.LastActiveDate.String()
	p.LastActiveDate = &date
}
