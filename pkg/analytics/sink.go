// Package analytics implements the structured logging sink the Managers
// report lifecycle events to, using the fixed key-prefix/suffix vocabulary
// and severity mapping of spec.md §6.
package analytics

import (
	"context"
	"log/slog"

	"github.com/focusnest/gamification-engine/pkg/model"
)

// Prefix identifies which Manager emitted an event.
type Prefix string

const (
	PrefixStreakManager   Prefix = "StreakMan_"
	PrefixXPManager       Prefix = "XPMan_"
	PrefixProgressManager Prefix = "ProgressMan_"
)

// Suffixes fixed by spec.md §6.
const (
	SuffixRemoteListenerStart   = "RemoteListener_Start"
	SuffixRemoteListenerSuccess = "RemoteListener_Success"
	SuffixRemoteListenerFail    = "RemoteListener_Fail"

	SuffixSaveLocalStart   = "SaveLocal_Start"
	SuffixSaveLocalSuccess = "SaveLocal_Success"
	SuffixSaveLocalFail    = "SaveLocal_Fail"

	SuffixCalculateStreakSkipped = "CalculateStreak_Skipped"
	SuffixCalculateStreakStart   = "CalculateStreak_Start"
	SuffixCalculateStreakSuccess = "CalculateStreak_Success"
	SuffixCalculateStreakFail    = "CalculateStreak_Fail"

	SuffixCalculateXPStart   = "CalculateXP_Start"
	SuffixCalculateXPSuccess = "CalculateXP_Success"
	SuffixCalculateXPFail    = "CalculateXP_Fail"

	SuffixAddExperiencePointsStart   = "AddExperiencePoints_Start"
	SuffixAddExperiencePointsSuccess = "AddExperiencePoints_Success"
	SuffixAddExperiencePointsFail    = "AddExperiencePoints_Fail"

	SuffixAddProgressStart   = "AddProgress_Start"
	SuffixAddProgressSuccess = "AddProgress_Success"
	SuffixAddProgressFail    = "AddProgress_Fail"

	SuffixBulkLoadStart   = "BulkLoad_Start"
	SuffixBulkLoadSuccess = "BulkLoad_Success"
	SuffixBulkLoadFail    = "BulkLoad_Fail"

	SuffixDeleteProgressStart   = "DeleteProgress_Start"
	SuffixDeleteProgressSuccess = "DeleteProgress_Success"
	SuffixDeleteProgressFail    = "DeleteProgress_Fail"

	SuffixDeleteAllProgressStart   = "DeleteAllProgress_Start"
	SuffixDeleteAllProgressSuccess = "DeleteAllProgress_Success"
	SuffixDeleteAllProgressFail    = "DeleteAllProgress_Fail"
)

// Sink is the analytics capability consumed by the Managers. Implementations
// are never allowed to block a Manager mutation on a failed log write.
type Sink interface {
	Log(ctx context.Context, prefix Prefix, suffix string, params map[string]any)
}

// EventName concatenates a prefix and suffix into the fixed event name, e.g.
// "StreakMan_CalculateStreak_Success".
func EventName(prefix Prefix, suffix string) string {
	return string(prefix) + suffix
}

func isFailSuffix(suffix string) bool {
	n := len(suffix)
	return n >= 5 && suffix[n-5:] == "_Fail"
}

// slogSink adapts Sink to a structured *slog.Logger, grounded on the
// service's logging setup: a single JSON handler shared process-wide.
type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger as an analytics Sink. Fail-suffixed events log at
// Error severity; all other events log at Info.
func NewSlogSink(logger *slog.Logger) Sink {
	return &slogSink{logger: logger}
}

func (s *slogSink) Log(ctx context.Context, prefix Prefix, suffix string, params map[string]any) {
	event := EventName(prefix, suffix)
	attrs := make([]any, 0, 2+2*len(params))
	attrs = append(attrs, slog.String("event", event))
	for k, v := range params {
		attrs = append(attrs, slog.Any(k, v))
	}
	if isFailSuffix(suffix) {
		s.logger.ErrorContext(ctx, event, attrs...)
		return
	}
	s.logger.InfoContext(ctx, event, attrs...)
}

// StreakParams projects a CurrentStreakData into the "current_streak_…"
// parameter set the analytics logger forwards alongside lifecycle events.
func StreakParams(data model.CurrentStreakData) map[string]any {
	return map[string]any{
		"current_streak_streak_id":       data.StreakKey,
		"current_streak_current_streak":  data.CurrentStreak,
		"current_streak_longest_streak":  data.LongestStreak,
		"current_streak_total_events":    data.TotalEvents,
		"current_streak_freezes_available_count": data.FreezesAvailableCount,
	}
}

// XPParams projects a CurrentXPData into the "current_xp_…" parameter set.
func XPParams(data model.CurrentXPData) map[string]any {
	return map[string]any{
		"current_xp_experience_id":    data.ExperienceKey,
		"current_xp_points_today":     data.PointsToday,
		"current_xp_points_this_week": data.PointsThisWeek,
		"current_xp_points_this_year": data.PointsThisYear,
	}
}

// ProgressParams projects a ProgressItem into the "progress_…" parameter set.
func ProgressParams(item model.ProgressItem) map[string]any {
	return map[string]any{
		"progress_progress_key": item.ProgressKey,
		"progress_id":           item.ID,
		"progress_value":        item.Value,
	}
}

// ErrorParams wraps err into the fixed {error: message} parameter shape used
// by every Fail-suffixed event.
func ErrorParams(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
