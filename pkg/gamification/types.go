package gamification

import (
	"context"
	"time"

	"github.com/focusnest/gamification-engine/pkg/model"
)

// StreakLocalStore is the key→blob persistence capability consumed by
// StreakManager (spec.md §4.6). Keys are namespaced "current_streak_<streakKey>"
// by the implementation, not by the Manager.
type StreakLocalStore interface {
	GetSavedStreakData(ctx context.Context, streakKey string) (model.CurrentStreakData, bool, error)
	SaveCurrentStreakData(ctx context.Context, streakKey string, data model.CurrentStreakData) error
}

// XPLocalStore is the analogous local persistence capability for
// ExperiencePointsManager, keyed "current_xp_<experienceKey>".
type XPLocalStore interface {
	GetSavedXPData(ctx context.Context, experienceKey string) (model.CurrentXPData, bool, error)
	SaveCurrentXPData(ctx context.Context, experienceKey string, data model.CurrentXPData) error
}

// ProgressLocalStore is the per-item local persistence capability for
// ProgressManager, keyed by the (progressKey, id) pair (spec.md §4.6).
type ProgressLocalStore interface {
	GetAllProgressItems(ctx context.Context, progressKey string) ([]model.ProgressItem, error)
	GetProgressItem(ctx context.Context, progressKey, id string) (model.ProgressItem, bool, error)
	SaveProgressItem(ctx context.Context, item model.ProgressItem) error
	SaveProgressItems(ctx context.Context, items []model.ProgressItem) error
	DeleteProgressItem(ctx context.Context, progressKey, id string) error
	DeleteAllProgressItems(ctx context.Context, progressKey string) error
}

// StreakStreamEvent is one emission of the streak aggregate stream
// (spec.md §4.7). Err is set, and Data nil, when the stream reports a
// failure; the Manager's listener stops reading at the first Err and latches.
type StreakStreamEvent struct {
	Data *model.CurrentStreakData
	Err  error
}

// XPStreamEvent mirrors StreakStreamEvent for the experience-points stream.
type XPStreamEvent struct {
	Data *model.CurrentXPData
	Err  error
}

// ProgressChangeEvent is one emission of the progress changeset stream: an
// upserted item, a deletion by id, or an error (the Manager's listener stops
// reading at the first one).
type ProgressChangeEvent struct {
	Item    model.ProgressItem
	Deleted bool
	ID      string
	Err     error
}

// StreakRemoteService is the remote capability contract for streaks
// (spec.md §4.7).
type StreakRemoteService interface {
	StreamCurrentStreak(ctx context.Context, userID, streakKey string) (<-chan StreakStreamEvent, error)
	AppendStreakEvent(ctx context.Context, userID, streakKey string, event model.StreakEvent) error
	ListStreakEvents(ctx context.Context, userID, streakKey string) ([]model.StreakEvent, error)
	DeleteAllStreakEvents(ctx context.Context, userID, streakKey string) error
	WriteStreakAggregate(ctx context.Context, userID string, data model.CurrentStreakData) error
	RequestServerRecompute(ctx context.Context, userID, streakKey string) error
	AddStreakFreeze(ctx context.Context, userID, streakKey string, freeze model.StreakFreeze) error
	ConsumeStreakFreeze(ctx context.Context, userID, streakKey, freezeID string, usedAt time.Time) error
	ListStreakFreezes(ctx context.Context, userID, streakKey string) ([]model.StreakFreeze, error)
}

// XPRemoteService is the remote capability contract for experience points.
type XPRemoteService interface {
	StreamCurrentXP(ctx context.Context, userID, experienceKey string) (<-chan XPStreamEvent, error)
	AppendXPEvent(ctx context.Context, userID, experienceKey string, event model.XPEvent) error
	ListXPEvents(ctx context.Context, userID, experienceKey string) ([]model.XPEvent, error)
	DeleteAllXPEvents(ctx context.Context, userID, experienceKey string) error
	WriteXPAggregate(ctx context.Context, userID string, data model.CurrentXPData) error
	RequestServerRecompute(ctx context.Context, userID, experienceKey string) error
}

// ProgressRemoteService is the remote capability contract for progress items.
type ProgressRemoteService interface {
	StreamProgressChanges(ctx context.Context, userID, progressKey string) (<-chan ProgressChangeEvent, error)
	ListProgressItems(ctx context.Context, userID, progressKey string) ([]model.ProgressItem, error)
	UpsertProgressItem(ctx context.Context, userID string, item model.ProgressItem) error
	DeleteProgressItem(ctx context.Context, userID, progressKey, id string) error
	DeleteAllProgressItems(ctx context.Context, userID, progressKey string) error
}
