package gamification

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a level table that cannot be used.
// It is fatal at startup.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("level table: %s: %v", e.Reason, e.Err)
	}
	return "level table: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ErrEmptyLevelTable is wrapped by the ConfigurationError returned for a table with no levels.
var ErrEmptyLevelTable = errors.New("no level definitions")

type LevelDefinition struct {
	Level          int    `toml:"level" json:"level"`
	Title          string `toml:"title" json:"title"`
	TitleLocalized string `toml:"title_localized" json:"titleLocalized"`
	XPRequired     int64  `toml:"xp_required" json:"xpRequired"`
}

// LevelProgress is where a given XP total sits inside the level table.
type LevelProgress struct {
	CurrentLevel     int     `json:"currentLevel"`
	Title            string  `json:"title"`
	TitleLocalized   string  `json:"titleLocalized"`
	XPIntoLevel      int64   `json:"xpIntoLevel"`
	XPNeededForLevel int64   `json:"xpNeededForLevel"`
	XPToNextLevel    int64   `json:"xpToNextLevel"`
	ProgressPercent  float64 `json:"progressPercent"`
	MaxLevel         bool    `json:"maxLevel"`
}

// LevelTable is a validated, immutable sequence of level definitions.
// Build one with NewLevelTable. A nil or zero table resolves every total
// to a title-less level 1 with no further levels.
type LevelTable struct {
	defs []LevelDefinition
}

// NewLevelTable validates defs and returns a table holding its own copy.
// Levels must start at 1 with zero XP, be consecutive and have strictly
// increasing XP thresholds.
func NewLevelTable(defs []LevelDefinition) (*LevelTable, error) {
	if len(defs) == 0 {
		return nil, &ConfigurationError{Reason: "empty", Err: ErrEmptyLevelTable}
	}
	if defs[0].Level != 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("first level is %d, want 1", defs[0].Level)}
	}
	if defs[0].XPRequired != 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("level 1 requires %d xp, want 0", defs[0].XPRequired)}
	}
	for i := 1; i < len(defs); i++ {
		prev, cur := defs[i-1], defs[i]
		if cur.Level != prev.Level+1 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("level %d follows level %d", cur.Level, prev.Level)}
		}
		if cur.XPRequired <= prev.XPRequired {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("level %d requires %d xp, not above level %d (%d)",
				cur.Level, cur.XPRequired, prev.Level, prev.XPRequired)}
		}
	}

	owned := make([]LevelDefinition, len(defs))
	copy(owned, defs)
	return &LevelTable{defs: owned}, nil
}

// Levels returns a copy of the definitions in ascending order.
func (t *LevelTable) Levels() []LevelDefinition {
	if t == nil {
		return nil
	}
	out := make([]LevelDefinition, len(t.defs))
	copy(out, t.defs)
	return out
}

func (t *LevelTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.defs)
}

// Resolve places totalXP in the table.
func (t *LevelTable) Resolve(totalXP int64) LevelProgress {
	if totalXP < 0 {
		totalXP = 0
	}
	if t == nil || len(t.defs) == 0 {
		return LevelProgress{CurrentLevel: 1, XPIntoLevel: totalXP, ProgressPercent: 100, MaxLevel: true}
	}

	// last definition whose threshold is not exceeded
	idx := 0
	for i, def := range t.defs {
		if def.XPRequired > totalXP {
			break
		}
		idx = i
	}

	current := t.defs[idx]
	progress := LevelProgress{
		CurrentLevel:   current.Level,
		Title:          current.Title,
		TitleLocalized: current.TitleLocalized,
		XPIntoLevel:    totalXP - current.XPRequired,
	}

	if idx == len(t.defs)-1 {
		progress.MaxLevel = true
		progress.ProgressPercent = 100
		return progress
	}

	next := t.defs[idx+1]
	progress.XPNeededForLevel = next.XPRequired - current.XPRequired
	progress.XPToNextLevel = max(0, next.XPRequired-totalXP)
	progress.ProgressPercent = clampPercent(100 * float64(progress.XPIntoLevel) / float64(progress.XPNeededForLevel))
	return progress
}

// ResolveLevel validates definitions and resolves totalXP against them.
// Callers that resolve repeatedly should build a LevelTable once instead.
func ResolveLevel(totalXP int64, definitions []LevelDefinition) (LevelProgress, error) {
	table, err := NewLevelTable(definitions)
	if err != nil {
		return LevelProgress{}, err
	}
	return table.Resolve(totalXP), nil
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
