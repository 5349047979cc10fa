// Package streakcalc implements the deterministic streak aggregation function:
// replaying a StreakEvent log plus the available StreakFreeze tokens into a
// CurrentStreakData aggregate.
package streakcalc

import (
	"sort"
	"time"

	"github.com/focusnest/gamification-engine/pkg/model"
)

const (
	recentEventsWindow = 60 * 24 * time.Hour
	dayLayout          = "2006-01-02"
)

// Result is the return value of Calculate: the freshly computed aggregate plus
// the ids of any freezes the calculator decided to consume.
type Result struct {
	Data               model.CurrentStreakData
	ConsumedFreezeIDs  []string
}

type dayBucket struct {
	key    string
	start  time.Time
	events []model.StreakEvent
}

// Calculate replays events against freezes and configuration, anchored at now
// in userZone, and returns the resulting aggregate plus any freezes consumed
// to bridge gaps in the current streak.
func Calculate(events []model.StreakEvent, freezes []model.StreakFreeze, configuration model.StreakConfiguration, now time.Time, userZone *time.Location) Result {
	if userZone == nil {
		userZone = time.UTC
	}
	required := configuration.EventsRequiredPerDay
	if required < 1 {
		required = 1
	}

	buckets := bucketEvents(events, configuration.LeewayHours, userZone)
	today := truncateToDay(now.In(userZone), userZone)
	todayKey := today.Format(dayLayout)

	data := model.CurrentStreakData{
		StreakKey:            configuration.StreakKey,
		EventsRequiredPerDay: required,
	}

	nonFreezeEvents := filterNonFreeze(events)
	if len(nonFreezeEvents) > 0 {
		first := nonFreezeEvents[0].Timestamp
		last := nonFreezeEvents[0].Timestamp
		for _, e := range nonFreezeEvents[1:] {
			if e.Timestamp.Before(first) {
				first = e.Timestamp
			}
			if e.Timestamp.After(last) {
				last = e.Timestamp
			}
		}
		data.DateCreated = &first
		data.DateLastEvent = &last
	}
	data.LastEventTimezone = lastEventTimezone(nonFreezeEvents)
	data.TotalEvents = len(nonFreezeEvents)
	if b, ok := buckets[todayKey]; ok {
		data.TodayEventCount = qualifyingEventCount(b.events)
	}

	qualifies := func(key string) bool {
		b, ok := buckets[key]
		if !ok {
			return false
		}
		return qualifyingEventCount(b.events) >= required
	}

	availableFreezes := make([]model.StreakFreeze, 0, len(freezes))
	for _, f := range freezes {
		if f.IsAvailable(now) {
			availableFreezes = append(availableFreezes, f)
		}
	}
	sort.SliceStable(availableFreezes, func(i, j int) bool {
		return earned(availableFreezes[i]).Before(earned(availableFreezes[j]))
	})

	anchor, anchorFound := findAnchor(qualifies, today)

	var (
		chainLen          int
		dateStreakStart   *time.Time
		consumedIDs       []string
		consumedByDay     = map[string]model.StreakFreeze{}
		syntheticByDay    = map[string]model.StreakEvent{}
		usedFreezeIndexes = map[int]bool{}
	)

	if anchorFound {
		cursor := anchor
		for {
			key := cursor.Format(dayLayout)
			if qualifies(key) {
				chainLen++
				start := cursor
				dateStreakStart = &start
				cursor = cursor.AddDate(0, 0, -1)
				continue
			}
			if configuration.FreezeBehavior != model.FreezeBehaviorAutoConsume {
				break
			}
			idx := -1
			for i, f := range availableFreezes {
				if usedFreezeIndexes[i] {
					continue
				}
				idx = i
				break
			}
			if idx == -1 {
				break
			}
			usedFreezeIndexes[idx] = true
			consumed := availableFreezes[idx]
			usedAt := cursor
			consumed.DateUsed = &usedAt
			consumedIDs = append(consumedIDs, consumed.ID)
			consumedByDay[key] = consumed

			synthetic := model.StreakEvent{
				Event: model.Event{
					ID:        "freeze-" + consumed.ID + "-" + key,
					Timestamp: cursor,
					Timezone:  userZone.String(),
				},
				IsFreeze: true,
				FreezeID: consumed.ID,
			}
			syntheticByDay[key] = synthetic

			chainLen++
			start := cursor
			dateStreakStart = &start
			cursor = cursor.AddDate(0, 0, -1)
		}
	}

	data.CurrentStreak = chainLen
	data.DateStreakStart = dateStreakStart
	if anchorFound {
		anchorCopy := anchor
		data.DateLastQualifyingDay = &anchorCopy
	}

	data.LongestStreak = longestStreak(qualifies, freezes, buckets, today, userZone)
	if data.LongestStreak < data.CurrentStreak {
		data.LongestStreak = data.CurrentStreak
	}

	remainingAvailable := 0
	consumedSet := map[string]bool{}
	for _, id := range consumedIDs {
		consumedSet[id] = true
	}
	for _, f := range freezes {
		if consumedSet[f.ID] {
			continue
		}
		if f.IsAvailable(now) {
			remainingAvailable++
		}
	}
	data.FreezesAvailableCount = remainingAvailable

	nowCopy := now
	data.DateUpdated = &nowCopy

	data.RecentEvents = recentEvents(events, syntheticByDay, today, now)

	return Result{Data: data, ConsumedFreezeIDs: consumedIDs}
}

func lastEventTimezone(nonFreezeEvents []model.StreakEvent) string {
	if len(nonFreezeEvents) == 0 {
		return ""
	}
	latest := nonFreezeEvents[0]
	for _, e := range nonFreezeEvents[1:] {
		if e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	return latest.Timezone
}

func filterNonFreeze(events []model.StreakEvent) []model.StreakEvent {
	out := make([]model.StreakEvent, 0, len(events))
	for _, e := range events {
		if !e.IsFreeze {
			out = append(out, e)
		}
	}
	return out
}

func qualifyingEventCount(events []model.StreakEvent) int {
	count := 0
	for _, e := range events {
		if !e.IsFreeze {
			count++
		}
	}
	return count
}

// bucketEvents groups non-freeze and freeze events alike by calendar day in
// userZone, applying the leeway rule: an event within leewayHours of its local
// midnight is reassigned to the previous day.
func bucketEvents(events []model.StreakEvent, leewayHours int, userZone *time.Location) map[string]*dayBucket {
	out := make(map[string]*dayBucket)
	for _, e := range events {
		local := e.Timestamp.In(userZone)
		startOfDay := truncateToDay(local, userZone)
		day := startOfDay
		if leewayHours > 0 {
			if local.Sub(startOfDay) <= time.Duration(leewayHours)*time.Hour {
				day = startOfDay.AddDate(0, 0, -1)
			}
		}
		key := day.Format(dayLayout)
		b, ok := out[key]
		if !ok {
			b = &dayBucket{key: key, start: day}
			out[key] = b
		}
		b.events = append(b.events, e)
	}
	return out
}

func truncateToDay(t time.Time, zone *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, zone)
}

func earned(f model.StreakFreeze) time.Time {
	if f.DateEarned == nil {
		return time.Time{}
	}
	return *f.DateEarned
}

// findAnchor returns the most recent qualifying day <= today, scanning
// backward up to one year.
func findAnchor(qualifies func(string) bool, today time.Time) (time.Time, bool) {
	cursor := today
	for i := 0; i < 366; i++ {
		if qualifies(cursor.Format(dayLayout)) {
			return cursor, true
		}
		cursor = cursor.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}

// longestStreak scans every day from the earliest relevant day (earliest
// bucketed event or earliest used freeze) through today, counting a day as
// qualifying if it meets the per-day goal, or if a freeze was used
// (dateUsed) on exactly that day. Unused freezes never count. Consecutive
// qualifying calendar days form a run; the longest run length is returned.
func longestStreak(qualifies func(string) bool, freezes []model.StreakFreeze, buckets map[string]*dayBucket, today time.Time, userZone *time.Location) int {
	usedDays := map[string]bool{}
	earliest := today
	for _, f := range freezes {
		if f.DateUsed != nil {
			d := truncateToDay(f.DateUsed.In(userZone), userZone)
			usedDays[d.Format(dayLayout)] = true
			if d.Before(earliest) {
				earliest = d
			}
		}
	}
	for _, b := range buckets {
		if b.start.Before(earliest) {
			earliest = b.start
		}
	}
	if len(buckets) == 0 && len(usedDays) == 0 {
		return 0
	}

	best, run := 0, 0
	for d := earliest; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		if qualifies(key) || usedDays[key] {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// recentEvents returns the input events whose raw timestamp is at or after
// now-60d, plus synthetic freeze-consumption events created during the
// current-streak walk that pass the same cutoff, sorted ascending by timestamp.
// The cutoff is applied to the timestamp, not to the leeway-bucketed day, and
// there is no upper bound: events later than now are included.
func recentEvents(events []model.StreakEvent, syntheticByDay map[string]model.StreakEvent, today time.Time, now time.Time) []model.StreakEvent {
	cutoff := now.Add(-recentEventsWindow)
	out := make([]model.StreakEvent, 0, len(events)+len(syntheticByDay))
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	for day, synthetic := range syntheticByDay {
		if !synthetic.Timestamp.Before(cutoff) {
			out = append(out, synthetic)
		}
		_ = day
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
