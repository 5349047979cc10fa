package firestorestore

import (
	"testing"
	"time"

	"github.com/focusnest/gamification-engine/pkg/model"
)

func TestStreakEventDocRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := model.StreakEvent{
		Event: model.Event{
			ID:        "e1",
			Timestamp: now,
			Timezone:  "America/New_York",
			Metadata:  model.Metadata{"pages": model.IntValue(12)},
		},
		IsFreeze: true,
		FreezeID: "f1",
	}

	decoded, err := streakEventFromDoc(streakEventToDoc(original))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.ID != original.ID || decoded.Timezone != original.Timezone || decoded.IsFreeze != original.IsFreeze || decoded.FreezeID != original.FreezeID {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("timestamp mismatch: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if !decoded.Metadata["pages"].Equal(model.IntValue(12)) {
		t.Errorf("metadata mismatch: got %+v", decoded.Metadata)
	}
}

func TestXPEventDocRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := model.XPEvent{
		Event: model.Event{
			ID:        "e2",
			Timestamp: now,
			Metadata:  model.Metadata{"source": model.StringValue("quiz")},
		},
		ExperienceKey: "reading_xp",
		Points:        15,
	}

	decoded, err := xpEventFromDoc(xpEventToDoc(original))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.ExperienceKey != original.ExperienceKey || decoded.Points != original.Points {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Metadata["source"].Equal(model.StringValue("quiz")) {
		t.Errorf("metadata mismatch: got %+v", decoded.Metadata)
	}
}

func TestProgressItemDocRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := model.ProgressItem{
		ID:           "lvl_1",
		ProgressKey:  "book_club",
		Value:        0.75,
		DateCreated:  now,
		DateModified: now,
		Metadata:     model.Metadata{"stars": model.IntValue(3), "done": model.BoolValue(true)},
	}

	decoded, err := progressItemFromDoc(progressItemToDoc(original))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.ID != original.ID || decoded.ProgressKey != original.ProgressKey || decoded.Value != original.Value {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Metadata["stars"].Equal(model.IntValue(3)) || !decoded.Metadata["done"].Equal(model.BoolValue(true)) {
		t.Errorf("metadata mismatch: got %+v", decoded.Metadata)
	}
}

func TestStreakAggregateDocRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := model.CurrentStreakData{
		StreakKey:             "reading_streak",
		UserID:                "user-1",
		CurrentStreak:         5,
		LongestStreak:         9,
		DateLastQualifyingDay: &now,
		FreezesAvailable: []model.StreakFreeze{
			{ID: "f1", DateEarned: &now},
		},
		FreezesAvailableCount: 1,
		RecentEvents: []model.StreakEvent{
			{Event: model.Event{ID: "e1", Timestamp: now, Metadata: model.Metadata{"k": model.BoolValue(true)}}},
		},
	}

	decoded, err := streakAggregateFromDoc(streakAggregateToDoc(original))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.CurrentStreak != original.CurrentStreak || decoded.LongestStreak != original.LongestStreak {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.FreezesAvailable) != 1 || decoded.FreezesAvailable[0].ID != "f1" {
		t.Errorf("freeze round trip mismatch: got %+v", decoded.FreezesAvailable)
	}
	if len(decoded.RecentEvents) != 1 || !decoded.RecentEvents[0].Metadata["k"].Equal(model.BoolValue(true)) {
		t.Errorf("recent event round trip mismatch: got %+v", decoded.RecentEvents)
	}
}

func TestXPAggregateDocRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	original := model.CurrentXPData{
		ExperienceKey: "reading_xp",
		UserID:        "user-1",
		PointsToday:   30,
		RecentEvents: []model.XPEvent{
			{Event: model.Event{ID: "e1", Timestamp: now}, ExperienceKey: "reading_xp", Points: 30},
		},
	}

	decoded, err := xpAggregateFromDoc(xpAggregateToDoc(original))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.PointsToday != original.PointsToday || decoded.ExperienceKey != original.ExperienceKey {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.RecentEvents) != 1 || decoded.RecentEvents[0].Points != 30 {
		t.Errorf("recent event round trip mismatch: got %+v", decoded.RecentEvents)
	}
}

func TestUserKey(t *testing.T) {
	if got := userKey("u1", "reading_streak"); got != "u1_reading_streak" {
		t.Errorf("userKey() = %q, want u1_reading_streak", got)
	}
}
