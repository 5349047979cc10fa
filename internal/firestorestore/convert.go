// Package firestorestore implements the gamification package's
// RemoteService contracts against Cloud Firestore.
package firestorestore

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/focusnest/gamification-engine/pkg/model"
)

func isNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}

// eventDoc is the Firestore wire shape shared by streak and XP events: metadata
// is stored as the explicit {type, value} map rather than relying on Firestore's
// struct reflection for model.MetadataValue, so a document written by one reader
// of this wire format stays readable by another.
type eventDoc struct {
	ID        string         `firestore:"id"`
	Timestamp time.Time      `firestore:"timestamp"`
	Timezone  string         `firestore:"timezone"`
	Metadata  map[string]any `firestore:"metadata"`
}

func eventToDoc(e model.Event) eventDoc {
	return eventDoc{ID: e.ID, Timestamp: e.Timestamp, Timezone: e.Timezone, Metadata: e.Metadata.ToFirestore()}
}

func eventFromDoc(d eventDoc) (model.Event, error) {
	md, err := model.MetadataFromFirestore(d.Metadata)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{ID: d.ID, Timestamp: d.Timestamp, Timezone: d.Timezone, Metadata: md}, nil
}

type streakEventDoc struct {
	eventDoc
	IsFreeze bool   `firestore:"is_freeze"`
	FreezeID string `firestore:"freeze_id,omitempty"`
}

func streakEventToDoc(e model.StreakEvent) streakEventDoc {
	return streakEventDoc{eventDoc: eventToDoc(e.Event), IsFreeze: e.IsFreeze, FreezeID: e.FreezeID}
}

func streakEventFromDoc(d streakEventDoc) (model.StreakEvent, error) {
	base, err := eventFromDoc(d.eventDoc)
	if err != nil {
		return model.StreakEvent{}, err
	}
	return model.StreakEvent{Event: base, IsFreeze: d.IsFreeze, FreezeID: d.FreezeID}, nil
}

type xpEventDoc struct {
	eventDoc
	ExperienceKey string `firestore:"experience_key"`
	Points        int    `firestore:"points"`
}

func xpEventToDoc(e model.XPEvent) xpEventDoc {
	return xpEventDoc{eventDoc: eventToDoc(e.Event), ExperienceKey: e.ExperienceKey, Points: e.Points}
}

func xpEventFromDoc(d xpEventDoc) (model.XPEvent, error) {
	base, err := eventFromDoc(d.eventDoc)
	if err != nil {
		return model.XPEvent{}, err
	}
	return model.XPEvent{Event: base, ExperienceKey: d.ExperienceKey, Points: d.Points}, nil
}

type streakFreezeDoc struct {
	ID          string     `firestore:"id"`
	DateEarned  *time.Time `firestore:"date_earned,omitempty"`
	DateUsed    *time.Time `firestore:"date_used,omitempty"`
	DateExpires *time.Time `firestore:"date_expires,omitempty"`
}

func freezeToDoc(f model.StreakFreeze) streakFreezeDoc {
	return streakFreezeDoc{ID: f.ID, DateEarned: f.DateEarned, DateUsed: f.DateUsed, DateExpires: f.DateExpires}
}

func freezeFromDoc(d streakFreezeDoc) model.StreakFreeze {
	return model.StreakFreeze{ID: d.ID, DateEarned: d.DateEarned, DateUsed: d.DateUsed, DateExpires: d.DateExpires}
}

type streakAggregateDoc struct {
	StreakKey             string           `firestore:"streak_id"`
	UserID                string           `firestore:"user_id,omitempty"`
	CurrentStreak         int              `firestore:"current_streak"`
	LongestStreak         int              `firestore:"longest_streak"`
	DateLastEvent         *time.Time       `firestore:"date_last_event,omitempty"`
	DateLastQualifyingDay *time.Time       `firestore:"date_last_qualifying_day,omitempty"`
	LastEventTimezone     string           `firestore:"last_event_timezone,omitempty"`
	DateStreakStart       *time.Time       `firestore:"date_streak_start,omitempty"`
	TotalEvents           int              `firestore:"total_events"`
	FreezesAvailable      []streakFreezeDoc `firestore:"freezes_available,omitempty"`
	FreezesAvailableCount int              `firestore:"freezes_available_count"`
	DateCreated           *time.Time       `firestore:"date_created,omitempty"`
	DateUpdated           *time.Time       `firestore:"date_updated,omitempty"`
	EventsRequiredPerDay  int              `firestore:"events_required_per_day"`
	TodayEventCount       int              `firestore:"today_event_count"`
	RecentEvents          []streakEventDoc `firestore:"recent_events,omitempty"`
}

func streakAggregateToDoc(d model.CurrentStreakData) streakAggregateDoc {
	freezes := make([]streakFreezeDoc, len(d.FreezesAvailable))
	for i, f := range d.FreezesAvailable {
		freezes[i] = freezeToDoc(f)
	}
	recent := make([]streakEventDoc, len(d.RecentEvents))
	for i, e := range d.RecentEvents {
		recent[i] = streakEventToDoc(e)
	}
	return streakAggregateDoc{
		StreakKey:             d.StreakKey,
		UserID:                d.UserID,
		CurrentStreak:         d.CurrentStreak,
		LongestStreak:         d.LongestStreak,
		DateLastEvent:         d.DateLastEvent,
		DateLastQualifyingDay: d.DateLastQualifyingDay,
		LastEventTimezone:     d.LastEventTimezone,
		DateStreakStart:       d.DateStreakStart,
		TotalEvents:           d.TotalEvents,
		FreezesAvailable:      freezes,
		FreezesAvailableCount: d.FreezesAvailableCount,
		DateCreated:           d.DateCreated,
		DateUpdated:           d.DateUpdated,
		EventsRequiredPerDay:  d.EventsRequiredPerDay,
		TodayEventCount:       d.TodayEventCount,
		RecentEvents:          recent,
	}
}

func streakAggregateFromDoc(doc streakAggregateDoc) (model.CurrentStreakData, error) {
	freezes := make([]model.StreakFreeze, len(doc.FreezesAvailable))
	for i, f := range doc.FreezesAvailable {
		freezes[i] = freezeFromDoc(f)
	}
	recent := make([]model.StreakEvent, len(doc.RecentEvents))
	for i, e := range doc.RecentEvents {
		se, err := streakEventFromDoc(e)
		if err != nil {
			return model.CurrentStreakData{}, err
		}
		recent[i] = se
	}
	return model.CurrentStreakData{
		StreakKey:             doc.StreakKey,
		UserID:                doc.UserID,
		CurrentStreak:         doc.CurrentStreak,
		LongestStreak:         doc.LongestStreak,
		DateLastEvent:         doc.DateLastEvent,
		DateLastQualifyingDay: doc.DateLastQualifyingDay,
		LastEventTimezone:     doc.LastEventTimezone,
		DateStreakStart:       doc.DateStreakStart,
		TotalEvents:           doc.TotalEvents,
		FreezesAvailable:      freezes,
		FreezesAvailableCount: doc.FreezesAvailableCount,
		DateCreated:           doc.DateCreated,
		DateUpdated:           doc.DateUpdated,
		EventsRequiredPerDay:  doc.EventsRequiredPerDay,
		TodayEventCount:       doc.TodayEventCount,
		RecentEvents:          recent,
	}, nil
}

type xpAggregateDoc struct {
	ExperienceKey      string       `firestore:"experience_id"`
	UserID             string       `firestore:"user_id,omitempty"`
	PointsToday        int          `firestore:"points_today"`
	EventsTodayCount   int          `firestore:"events_today_count"`
	PointsThisWeek     int          `firestore:"points_this_week"`
	PointsLast7Days    int          `firestore:"points_last_7_days"`
	PointsThisMonth    int          `firestore:"points_this_month"`
	PointsLast30Days   int          `firestore:"points_last_30_days"`
	PointsThisYear     int          `firestore:"points_this_year"`
	PointsLast12Months int          `firestore:"points_last_12_months"`
	DateLastEvent      *time.Time   `firestore:"date_last_event,omitempty"`
	DateCreated        *time.Time   `firestore:"date_created,omitempty"`
	DateUpdated        *time.Time   `firestore:"date_updated,omitempty"`
	RecentEvents       []xpEventDoc `firestore:"recent_events,omitempty"`
}

func xpAggregateToDoc(d model.CurrentXPData) xpAggregateDoc {
	recent := make([]xpEventDoc, len(d.RecentEvents))
	for i, e := range d.RecentEvents {
		recent[i] = xpEventToDoc(e)
	}
	return xpAggregateDoc{
		ExperienceKey:      d.ExperienceKey,
		UserID:             d.UserID,
		PointsToday:        d.PointsToday,
		EventsTodayCount:   d.EventsTodayCount,
		PointsThisWeek:     d.PointsThisWeek,
		PointsLast7Days:    d.PointsLast7Days,
		PointsThisMonth:    d.PointsThisMonth,
		PointsLast30Days:   d.PointsLast30Days,
		PointsThisYear:     d.PointsThisYear,
		PointsLast12Months: d.PointsLast12Months,
		DateLastEvent:      d.DateLastEvent,
		DateCreated:        d.DateCreated,
		DateUpdated:        d.DateUpdated,
		RecentEvents:       recent,
	}
}

func xpAggregateFromDoc(doc xpAggregateDoc) (model.CurrentXPData, error) {
	recent := make([]model.XPEvent, len(doc.RecentEvents))
	for i, e := range doc.RecentEvents {
		xe, err := xpEventFromDoc(e)
		if err != nil {
			return model.CurrentXPData{}, err
		}
		recent[i] = xe
	}
	return model.CurrentXPData{
		ExperienceKey:      doc.ExperienceKey,
		UserID:             doc.UserID,
		PointsToday:        doc.PointsToday,
		EventsTodayCount:   doc.EventsTodayCount,
		PointsThisWeek:     doc.PointsThisWeek,
		PointsLast7Days:    doc.PointsLast7Days,
		PointsThisMonth:    doc.PointsThisMonth,
		PointsLast30Days:   doc.PointsLast30Days,
		PointsThisYear:     doc.PointsThisYear,
		PointsLast12Months: doc.PointsLast12Months,
		DateLastEvent:      doc.DateLastEvent,
		DateCreated:        doc.DateCreated,
		DateUpdated:        doc.DateUpdated,
		RecentEvents:       recent,
	}, nil
}

type progressItemDoc struct {
	ID           string         `firestore:"id"`
	ProgressKey  string         `firestore:"progress_key"`
	Value        float64        `firestore:"value"`
	DateCreated  time.Time      `firestore:"date_created"`
	DateModified time.Time      `firestore:"date_modified"`
	Metadata     map[string]any `firestore:"metadata,omitempty"`
}

func progressItemToDoc(item model.ProgressItem) progressItemDoc {
	return progressItemDoc{
		ID:           item.ID,
		ProgressKey:  item.ProgressKey,
		Value:        item.Value,
		DateCreated:  item.DateCreated,
		DateModified: item.DateModified,
		Metadata:     item.Metadata.ToFirestore(),
	}
}

func progressItemFromDoc(doc progressItemDoc) (model.ProgressItem, error) {
	md, err := model.MetadataFromFirestore(doc.Metadata)
	if err != nil {
		return model.ProgressItem{}, err
	}
	return model.ProgressItem{
		ID:           doc.ID,
		ProgressKey:  doc.ProgressKey,
		Value:        doc.Value,
		DateCreated:  doc.DateCreated,
		DateModified: doc.DateModified,
		Metadata:     md,
	}, nil
}

func userKey(userID, key string) string {
	return userID + "_" + key
}
