package model

import (
	"fmt"
	"time"
)

// FreezeBehavior controls how the streak calculator bridges a missing qualifying
// day, per spec.md §3 StreakConfiguration.
type FreezeBehavior string

const (
	FreezeBehaviorNone           FreezeBehavior = "none"
	FreezeBehaviorAutoConsume    FreezeBehavior = "autoConsume"
	FreezeBehaviorManualConsume  FreezeBehavior = "manualConsume"
)

// StreakConfiguration configures one (user, streakKey) streak aggregate.
type StreakConfiguration struct {
	StreakKey           string         `json:"streak_id" firestore:"streak_id" validate:"required"`
	EventsRequiredPerDay int           `json:"events_required_per_day" firestore:"events_required_per_day" validate:"min=1"`
	UseServerCalculation bool          `json:"use_server_calculation" firestore:"use_server_calculation"`
	LeewayHours          int           `json:"leeway_hours" firestore:"leeway_hours" validate:"min=0,max=24"`
	FreezeBehavior       FreezeBehavior `json:"freeze_behavior" firestore:"freeze_behavior"`
}

// Validate checks the invariants of spec.md §3/§7.1 not already covered by struct
// tags: the key must equal its own sanitized form, and FreezeBehavior must be
// empty or one of the known FreezeBehavior values.
func (c StreakConfiguration) Validate() error {
	if err := Validate(c); err != nil {
		return err
	}
	if !IsSanitizedKey(c.StreakKey) {
		return errInvalidKey("streak_key", c.StreakKey)
	}
	switch c.FreezeBehavior {
	case FreezeBehaviorNone, FreezeBehaviorAutoConsume, FreezeBehaviorManualConsume, "":
	default:
		return fmt.Errorf("freeze_behavior %q is not a known freeze behavior", c.FreezeBehavior)
	}
	return nil
}

// StreakFreeze is a token that can substitute for a missing qualifying day in the
// current-streak walk (spec.md §3).
type StreakFreeze struct {
	ID          string     `json:"id" firestore:"id"`
	DateEarned  *time.Time `json:"date_earned,omitempty" firestore:"date_earned,omitempty"`
	DateUsed    *time.Time `json:"date_used,omitempty" firestore:"date_used,omitempty"`
	DateExpires *time.Time `json:"date_expires,omitempty" firestore:"date_expires,omitempty"`
}

// IsAvailable reports whether the freeze is unused and not expired as of now.
func (f StreakFreeze) IsAvailable(now time.Time) bool {
	if f.DateUsed != nil {
		return false
	}
	if f.DateExpires != nil && now.After(*f.DateExpires) {
		return false
	}
	return true
}

// CurrentStreakData is the streak aggregate derived from an event log (spec.md §3).
type CurrentStreakData struct {
	StreakKey            string         `json:"streak_id" firestore:"streak_id"`
	UserID               string         `json:"user_id,omitempty" firestore:"user_id,omitempty"`
	CurrentStreak        int            `json:"current_streak" firestore:"current_streak"`
	LongestStreak        int            `json:"longest_streak" firestore:"longest_streak"`
	DateLastEvent        *time.Time     `json:"date_last_event,omitempty" firestore:"date_last_event,omitempty"`
	DateLastQualifyingDay *time.Time    `json:"date_last_qualifying_day,omitempty" firestore:"date_last_qualifying_day,omitempty"`
	LastEventTimezone    string         `json:"last_event_timezone,omitempty" firestore:"last_event_timezone,omitempty"`
	DateStreakStart      *time.Time     `json:"date_streak_start,omitempty" firestore:"date_streak_start,omitempty"`
	TotalEvents          int            `json:"total_events" firestore:"total_events"`
	FreezesAvailable     []StreakFreeze `json:"freezes_available,omitempty" firestore:"freezes_available,omitempty"`
	FreezesAvailableCount int           `json:"freezes_available_count" firestore:"freezes_available_count"`
	DateCreated          *time.Time     `json:"date_created,omitempty" firestore:"date_created,omitempty"`
	DateUpdated          *time.Time     `json:"date_updated,omitempty" firestore:"date_updated,omitempty"`
	EventsRequiredPerDay int            `json:"events_required_per_day" firestore:"events_required_per_day"`
	TodayEventCount      int            `json:"today_event_count" firestore:"today_event_count"`
	RecentEvents         []StreakEvent  `json:"recent_events,omitempty" firestore:"recent_events,omitempty"`
}

// BlankStreakData returns the zero-valued aggregate for streakKey, used on logOut and
// when no events exist yet (spec.md §8 "logout purity").
func BlankStreakData(streakKey string) CurrentStreakData {
	return CurrentStreakData{
		StreakKey:            streakKey,
		EventsRequiredPerDay: 1,
	}
}

// DaysSinceLastEvent returns the number of whole calendar days (in zone) since
// the most recent day that satisfied the streak's qualification rule, or a
// sentinel of -1 if no day has ever qualified. Goal-based streaks (
// eventsRequiredPerDay > 1) deliberately key this off DateLastQualifyingDay
// rather than the raw DateLastEvent: logging some but not enough activity
// today must not refresh at-risk status.
func (d CurrentStreakData) DaysSinceLastEvent(now time.Time, zone *time.Location) int {
	if d.DateLastQualifyingDay == nil {
		return -1
	}
	last := d.DateLastQualifyingDay.In(zone)
	today := now.In(zone)
	// Compare the zone-local calendar dates in UTC so a DST day of 23 or 25
	// hours still counts as exactly one day.
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	todayDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(todayDay.Sub(lastDay).Hours() / 24)
}

// IsStreakActive reports daysSinceLastEvent <= 1 (spec.md §4.1).
func (d CurrentStreakData) IsStreakActive(now time.Time, zone *time.Location) bool {
	days := d.DaysSinceLastEvent(now, zone)
	return days >= 0 && days <= 1
}

// IsStreakAtRisk reports daysSinceLastEvent == 1 (spec.md §4.1).
func (d CurrentStreakData) IsStreakAtRisk(now time.Time, zone *time.Location) bool {
	return d.DaysSinceLastEvent(now, zone) == 1
}

// IsDataStale reports whether DateUpdated is absent or at least one hour old
// (spec.md §4.1 / GLOSSARY "Stale data").
func (d CurrentStreakData) IsDataStale(now time.Time) bool {
	if d.DateUpdated == nil {
		return true
	}
	return now.Sub(*d.DateUpdated) >= time.Hour
}

// FreezesNeededToSaveStreak is max(0, daysSinceLastEvent - 1) (spec.md §4.1).
func (d CurrentStreakData) FreezesNeededToSaveStreak(now time.Time, zone *time.Location) int {
	days := d.DaysSinceLastEvent(now, zone)
	needed := days - 1
	if needed < 0 {
		return 0
	}
	return needed
}

// CanStreakBeSaved reports freezesAvailableCount >= freezesNeededToSaveStreak
// (spec.md §4.1).
func (d CurrentStreakData) CanStreakBeSaved(now time.Time, zone *time.Location) bool {
	return d.FreezesAvailableCount >= d.FreezesNeededToSaveStreak(now, zone)
}

// IsGoalMet reports whether today's event count satisfies the per-day goal.
func (d CurrentStreakData) IsGoalMet() bool {
	required := d.EventsRequiredPerDay
	if required < 1 {
		required = 1
	}
	return d.TodayEventCount >= required
}

// GoalProgress is min(todayEventCount / eventsRequiredPerDay, 1.0) (spec.md §4.1).
func (d CurrentStreakData) GoalProgress() float64 {
	required := d.EventsRequiredPerDay
	if required < 1 {
		required = 1
	}
	progress := float64(d.TodayEventCount) / float64(required)
	if progress > 1.0 {
		return 1.0
	}
	if progress < 0 {
		return 0
	}
	return progress
}
