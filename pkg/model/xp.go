package model

import "time"

// XPConfiguration configures one (user, experienceKey) XP aggregate.
type XPConfiguration struct {
	ExperienceKey        string `json:"experience_id" firestore:"experience_id" validate:"required"`
	UseServerCalculation bool   `json:"use_server_calculation" firestore:"use_server_calculation"`
}

// Validate checks that ExperienceKey equals its own sanitized form.
func (c XPConfiguration) Validate() error {
	if err := Validate(c); err != nil {
		return err
	}
	if !IsSanitizedKey(c.ExperienceKey) {
		return errInvalidKey("experience_key", c.ExperienceKey)
	}
	return nil
}

// CurrentXPData is the experience-points aggregate derived from an event log
// (spec.md §3).
type CurrentXPData struct {
	ExperienceKey       string        `json:"experience_id" firestore:"experience_id"`
	UserID              string        `json:"user_id,omitempty" firestore:"user_id,omitempty"`
	PointsToday         int           `json:"points_today" firestore:"points_today"`
	EventsTodayCount    int           `json:"events_today_count" firestore:"events_today_count"`
	PointsThisWeek      int           `json:"points_this_week" firestore:"points_this_week"`
	PointsLast7Days     int           `json:"points_last_7_days" firestore:"points_last_7_days"`
	PointsThisMonth     int           `json:"points_this_month" firestore:"points_this_month"`
	PointsLast30Days    int           `json:"points_last_30_days" firestore:"points_last_30_days"`
	PointsThisYear      int           `json:"points_this_year" firestore:"points_this_year"`
	PointsLast12Months  int           `json:"points_last_12_months" firestore:"points_last_12_months"`
	DateLastEvent       *time.Time    `json:"date_last_event,omitempty" firestore:"date_last_event,omitempty"`
	DateCreated         *time.Time    `json:"date_created,omitempty" firestore:"date_created,omitempty"`
	DateUpdated         *time.Time    `json:"date_updated,omitempty" firestore:"date_updated,omitempty"`
	RecentEvents        []XPEvent     `json:"recent_events,omitempty" firestore:"recent_events,omitempty"`
}

// BlankXPData returns the zero-valued aggregate for experienceKey, used on logOut.
func BlankXPData(experienceKey string) CurrentXPData {
	return CurrentXPData{ExperienceKey: experienceKey}
}

// IsDataStale mirrors CurrentStreakData.IsDataStale for the XP aggregate.
func (d CurrentXPData) IsDataStale(now time.Time) bool {
	if d.DateUpdated == nil {
		return true
	}
	return now.Sub(*d.DateUpdated) >= time.Hour
}
