package gamification

// UserProgress is the gamification state of one user.
type UserProgress struct {
	TotalXP        int64   `json:"totalXp"`
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
	LastActiveDate DateKey `json:"lastActiveDate,omitempty"`
}

// StreakChange is the branch taken by a streak update.
type StreakChange int

const (
	StreakUnchanged StreakChange = iota
	StreakStarted
	StreakContinued
	StreakReset
)

func (c StreakChange) String() string {
	switch c {
	case StreakStarted:
		return "started"
	case StreakContinued:
		return "continued"
	case StreakReset:
		return "reset"
	default:
		return "unchanged"
	}
}

func (c StreakChange) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// EvaluateStreak applies the daily streak rule for a qualifying action on
// today. It is idempotent per day. A malformed today leaves p untouched.
func (c *Calendar) EvaluateStreak(p UserProgress, today DateKey) (UserProgress, StreakChange) {
	if !today.Valid() {
		return p, StreakUnchanged
	}

	next := p
	var change StreakChange
	switch {
	case p.LastActiveDate.IsZero():
		next.CurrentStreak = 1
		change = StreakStarted
	case p.LastActiveDate == today:
		change = StreakUnchanged
	case c.IsConsecutiveDay(p.LastActiveDate, today):
		next.CurrentStreak++
		change = StreakContinued
	default:
		// gap, negative gap from clock skew, or unreadable stored date
		next.CurrentStreak = 1
		change = StreakReset
	}

	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	next.LastActiveDate = today
	return next, change
}

func (c *Calendar) ApplyStreakUpdate(p UserProgress, today DateKey) UserProgress {
	next, _ := c.EvaluateStreak(p, today)
	return next
}

// ActiveStreak is the streak to display on today: the stored streak while it
// can still be extended (last activity today or yesterday), 0 once broken.
func (c *Calendar) ActiveStreak(p UserProgress, today DateKey) int {
	if p.LastActiveDate.IsZero() {
		return 0
	}
	if p.LastActiveDate == today || c.IsConsecutiveDay(p.LastActiveDate, today) {
		return p.CurrentStreak
	}
	return 0
}

// ApplyStreakUpdate uses the DefaultTimezone calendar.
func ApplyStreakUpdate(p UserProgress, today DateKey) UserProgress {
	return DefaultCalendar().ApplyStreakUpdate(p, today)
}
