package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventValidateAt(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name: "valid",
			event: Event{
				ID:        "evt-1",
				Timestamp: now.Add(-time.Hour),
				Timezone:  "America/New_York",
				Metadata:  Metadata{"genre": StringValue("sci-fi")},
			},
		},
		{
			name:    "empty id",
			event:   Event{ID: "", Timestamp: now},
			wantErr: true,
		},
		{
			name:    "timestamp in future",
			event:   Event{ID: "evt-2", Timestamp: now.Add(time.Hour)},
			wantErr: true,
		},
		{
			name:    "timestamp too old",
			event:   Event{ID: "evt-3", Timestamp: now.Add(-366 * 24 * time.Hour)},
			wantErr: true,
		},
		{
			name:    "bad timezone",
			event:   Event{ID: "evt-4", Timestamp: now, Timezone: "Not/AZone"},
			wantErr: true,
		},
		{
			name:    "bad metadata key",
			event:   Event{ID: "evt-5", Timestamp: now, Metadata: Metadata{"bad key": StringValue("x")}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.ValidateAt(now)
			if tc.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestXPEventValidateAtRejectsNegativePoints(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	evt := XPEvent{
		Event:         Event{ID: "evt-1", Timestamp: now},
		ExperienceKey: "reading_xp",
		Points:        -1,
	}
	if err := evt.ValidateAt(now); err == nil {
		t.Error("expected error for negative points")
	}
}

func TestStreakEventJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	original := StreakEvent{
		Event: Event{
			ID:        "evt-1",
			Timestamp: now,
			Timezone:  "UTC",
			Metadata:  Metadata{"pages": IntValue(10)},
		},
		IsFreeze: true,
		FreezeID: "freeze-1",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded StreakEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != original.ID || decoded.IsFreeze != original.IsFreeze || decoded.FreezeID != original.FreezeID {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("timestamp mismatch: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if !decoded.Metadata["pages"].Equal(original.Metadata["pages"]) {
		t.Errorf("metadata mismatch: got %+v, want %+v", decoded.Metadata, original.Metadata)
	}
}

func TestXPEventJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	original := XPEvent{
		Event:         Event{ID: "evt-2", Timestamp: now, Timezone: "UTC"},
		ExperienceKey: "reading_xp",
		Points:        25,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded XPEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != original.ID || decoded.ExperienceKey != original.ExperienceKey || decoded.Points != original.Points {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("timestamp mismatch: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
}
