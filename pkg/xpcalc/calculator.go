// Package xpcalc implements the deterministic experience-points aggregation
// function: summing an XPEvent log into time-windowed point totals.
package xpcalc

import (
	"sort"
	"time"

	"github.com/focusnest/gamification-engine/pkg/model"
)

const recentEventsWindow = 60 * 24 * time.Hour

// Calculate sums events into the seven time windows defined by spec.md §4.2,
// anchored at now in userZone. Pure function: never mutates events.
func Calculate(events []model.XPEvent, configuration model.XPConfiguration, now time.Time, userZone *time.Location) model.CurrentXPData {
	if userZone == nil {
		userZone = time.UTC
	}
	local := now.In(userZone)

	startOfToday := truncateToDay(local, userZone)
	startOfWeek := startOfWeekSunday(local, userZone)
	startOfMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, userZone)
	startOfYear := time.Date(local.Year(), 1, 1, 0, 0, 0, 0, userZone)

	windowStarts := map[string]time.Time{
		"today":        startOfToday,
		"week":         startOfWeek,
		"last7":        now.AddDate(0, 0, -7),
		"month":        startOfMonth,
		"last30":       now.AddDate(0, 0, -30),
		"year":         startOfYear,
		"last12Months": now.AddDate(0, -12, 0),
	}

	data := model.CurrentXPData{ExperienceKey: configuration.ExperienceKey}

	if len(events) == 0 {
		return data
	}

	var first, last time.Time
	haveBounds := false

	cutoff := now.Add(-recentEventsWindow)
	var recent []model.XPEvent

	for _, e := range events {
		ts := e.Timestamp
		if !haveBounds {
			first, last = ts, ts
			haveBounds = true
		} else {
			if ts.Before(first) {
				first = ts
			}
			if ts.After(last) {
				last = ts
			}
		}

		if !ts.Before(cutoff) {
			recent = append(recent, e)
		}

		if !ts.After(now) {
			if !ts.Before(windowStarts["today"]) {
				data.PointsToday += e.Points
				data.EventsTodayCount++
			}
			if !ts.Before(windowStarts["week"]) {
				data.PointsThisWeek += e.Points
			}
			if !ts.Before(windowStarts["last7"]) {
				data.PointsLast7Days += e.Points
			}
			if !ts.Before(windowStarts["month"]) {
				data.PointsThisMonth += e.Points
			}
			if !ts.Before(windowStarts["last30"]) {
				data.PointsLast30Days += e.Points
			}
			if !ts.Before(windowStarts["year"]) {
				data.PointsThisYear += e.Points
			}
			if !ts.Before(windowStarts["last12Months"]) {
				data.PointsLast12Months += e.Points
			}
		}
	}

	if haveBounds {
		firstCopy, lastCopy := first, last
		data.DateCreated = &firstCopy
		data.DateLastEvent = &lastCopy
	}

	nowCopy := now
	data.DateUpdated = &nowCopy

	sortEventsByTimestamp(recent)
	data.RecentEvents = recent

	return data
}

// GetTotalPointsForMetadata sums Points over events whose metadata[field]
// equals value (spec.md §4.2).
func GetTotalPointsForMetadata(events []model.XPEvent, field string, value model.MetadataValue) int {
	total := 0
	for _, e := range events {
		v, ok := e.Metadata[field]
		if ok && v.Equal(value) {
			total += e.Points
		}
	}
	return total
}

func truncateToDay(t time.Time, zone *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, zone)
}

// startOfWeekSunday returns midnight of the Sunday on or before t, in zone.
func startOfWeekSunday(t time.Time, zone *time.Location) time.Time {
	day := truncateToDay(t, zone)
	offset := int(day.Weekday()) // Sunday = 0
	return day.AddDate(0, 0, -offset)
}

func sortEventsByTimestamp(events []model.XPEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
