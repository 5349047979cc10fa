package xpcalc

import (
	"testing"
	"time"

	"github.com/focusnest/gamification-engine/pkg/model"
)

func mustXPEvent(id string, ts time.Time, points int) model.XPEvent {
	return model.XPEvent{Event: model.Event{ID: id, Timestamp: ts}, ExperienceKey: "reading_xp", Points: points}
}

// Scenario 4: XP time windows at month boundary.
func TestCalculateMonthBoundaryWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []model.XPEvent{
		mustXPEvent("e1", time.Date(2025, 5, 31, 23, 30, 0, 0, time.UTC), 200),
		mustXPEvent("e2", time.Date(2025, 6, 1, 0, 15, 0, 0, time.UTC), 100),
	}
	cfg := model.XPConfiguration{ExperienceKey: "reading_xp"}

	data := Calculate(events, cfg, now, time.UTC)

	if data.PointsToday != 100 {
		t.Errorf("PointsToday = %d, want 100", data.PointsToday)
	}
	if data.PointsThisMonth != 100 {
		t.Errorf("PointsThisMonth = %d, want 100", data.PointsThisMonth)
	}
	if data.PointsLast7Days != 300 {
		t.Errorf("PointsLast7Days = %d, want 300", data.PointsLast7Days)
	}
	if data.PointsLast30Days != 300 {
		t.Errorf("PointsLast30Days = %d, want 300", data.PointsLast30Days)
	}
}

func TestCalculateEmptyEventsAllZero(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cfg := model.XPConfiguration{ExperienceKey: "reading_xp"}

	data := Calculate(nil, cfg, now, time.UTC)

	if data.PointsToday != 0 || data.PointsThisYear != 0 || len(data.RecentEvents) != 0 {
		t.Errorf("expected all-zero aggregate for no events, got %+v", data)
	}
	if data.DateLastEvent != nil {
		t.Error("expected nil DateLastEvent for no events")
	}
}

func TestCalculateWindowMonotonicity(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	events := []model.XPEvent{
		mustXPEvent("e1", now, 10),
		mustXPEvent("e2", now.AddDate(0, 0, -3), 20),
		mustXPEvent("e3", now.AddDate(0, 0, -10), 30),
		mustXPEvent("e4", now.AddDate(0, -2, 0), 40),
		mustXPEvent("e5", now.AddDate(0, -11, 0), 50),
	}
	cfg := model.XPConfiguration{ExperienceKey: "reading_xp"}

	data := Calculate(events, cfg, now, time.UTC)

	if data.PointsToday > data.PointsThisWeek {
		t.Errorf("PointsToday (%d) > PointsThisWeek (%d)", data.PointsToday, data.PointsThisWeek)
	}
	if data.PointsToday > data.PointsLast7Days {
		t.Errorf("PointsToday (%d) > PointsLast7Days (%d)", data.PointsToday, data.PointsLast7Days)
	}
	if data.PointsThisWeek > data.PointsThisMonth {
		t.Errorf("PointsThisWeek (%d) > PointsThisMonth (%d)", data.PointsThisWeek, data.PointsThisMonth)
	}
	if data.PointsLast7Days > data.PointsLast30Days {
		t.Errorf("PointsLast7Days (%d) > PointsLast30Days (%d)", data.PointsLast7Days, data.PointsLast30Days)
	}
	if data.PointsLast30Days > data.PointsLast12Months {
		t.Errorf("PointsLast30Days (%d) > PointsLast12Months (%d)", data.PointsLast30Days, data.PointsLast12Months)
	}
}

func TestGetTotalPointsForMetadata(t *testing.T) {
	events := []model.XPEvent{
		{Event: model.Event{ID: "e1", Metadata: model.Metadata{"genre": model.StringValue("sci-fi")}}, Points: 10},
		{Event: model.Event{ID: "e2", Metadata: model.Metadata{"genre": model.StringValue("fantasy")}}, Points: 20},
		{Event: model.Event{ID: "e3", Metadata: model.Metadata{"genre": model.StringValue("sci-fi")}}, Points: 30},
	}

	got := GetTotalPointsForMetadata(events, "genre", model.StringValue("sci-fi"))
	if got != 40 {
		t.Errorf("GetTotalPointsForMetadata() = %d, want 40", got)
	}
}

func TestCalculateEventsTodayCountIncludesZeroPointEvents(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	events := []model.XPEvent{
		mustXPEvent("e1", now, 0),
		mustXPEvent("e2", now, 5),
	}
	cfg := model.XPConfiguration{ExperienceKey: "reading_xp"}

	data := Calculate(events, cfg, now, time.UTC)

	if data.EventsTodayCount != 2 {
		t.Errorf("EventsTodayCount = %d, want 2", data.EventsTodayCount)
	}
	if data.PointsToday != 5 {
		t.Errorf("PointsToday = %d, want 5", data.PointsToday)
	}
}
