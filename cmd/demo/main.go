// Command demo wires the Firestore- and Redis-backed domain stack to the
// three gamification managers, logs in a user, appends one event per
// aggregate, and prints the resulting state. It is demonstration wiring, not
// a product surface: no flags, no subcommands.
package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/focusnest/gamification-engine/internal/config"
	"github.com/focusnest/gamification-engine/internal/firestorestore"
	"github.com/focusnest/gamification-engine/internal/obslog"
	"github.com/focusnest/gamification-engine/internal/rediscache"
	"github.com/focusnest/gamification-engine/pkg/analytics"
	"github.com/focusnest/gamification-engine/pkg/gamification"
	"github.com/focusnest/gamification-engine/pkg/model"
)

func main() {
	ctx := context.Background()
	logger := obslog.NewLogger("gamification-demo")

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	firestoreClient, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.FirestoreDB)
	if err != nil {
		panic(fmt.Errorf("firestore client: %w", err))
	}
	defer firestoreClient.Close()

	local, err := rediscache.New(cfg.RedisURL)
	if err != nil {
		panic(fmt.Errorf("redis client: %w", err))
	}
	defer local.Close()

	sink := analytics.NewSlogSink(logger)

	streakMgr := gamification.NewStreakManager(
		model.StreakConfiguration{StreakKey: cfg.StreakKey, EventsRequiredPerDay: 1, LeewayHours: 3},
		firestorestore.NewStreakRemote(firestoreClient),
		local,
		sink,
		time.UTC,
	)
	xpMgr := gamification.NewExperiencePointsManager(
		model.XPConfiguration{ExperienceKey: cfg.ExperienceKey},
		firestorestore.NewXPRemote(firestoreClient),
		local,
		sink,
		time.UTC,
	)
	progressMgr := gamification.NewProgressManager(
		model.ProgressConfiguration{ProgressKey: cfg.ProgressKey},
		firestorestore.NewProgressRemote(firestoreClient),
		local,
		sink,
	)

	if err := streakMgr.LogIn(ctx, cfg.DemoUserID); err != nil {
		panic(fmt.Errorf("streak login: %w", err))
	}
	if err := xpMgr.LogIn(ctx, cfg.DemoUserID); err != nil {
		panic(fmt.Errorf("xp login: %w", err))
	}
	if err := progressMgr.LogIn(ctx, cfg.DemoUserID); err != nil {
		panic(fmt.Errorf("progress login: %w", err))
	}

	now := time.Now().UTC()

	if err := streakMgr.AddStreakEvent(ctx, model.StreakEvent{
		Event: model.Event{ID: fmt.Sprintf("demo-streak-%d", now.UnixNano()), Timestamp: now},
	}); err != nil {
		panic(fmt.Errorf("add streak event: %w", err))
	}

	if err := xpMgr.AddExperiencePoints(ctx, model.XPEvent{
		Event:         model.Event{ID: fmt.Sprintf("demo-xp-%d", now.UnixNano()), Timestamp: now},
		ExperienceKey: cfg.ExperienceKey,
		Points:        25,
	}); err != nil {
		panic(fmt.Errorf("add xp event: %w", err))
	}

	if err := progressMgr.AddProgress(ctx, "book_1", 0.4, model.Metadata{
		"genre": model.StringValue("sci-fi"),
	}); err != nil {
		panic(fmt.Errorf("add progress: %w", err))
	}

	time.Sleep(200 * time.Millisecond)

	fmt.Printf("streak: %+v\n", streakMgr.CurrentStreakData())
	fmt.Printf("xp:     %+v\n", xpMgr.CurrentExperiencePointsData())
	fmt.Printf("progress book_1: %v\n", progressMgr.GetProgress("book_1"))
}
