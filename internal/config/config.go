// Package config loads the environment-variable configuration for cmd/demo.
// The core engine packages (pkg/model, pkg/streakcalc, pkg/xpcalc, pkg/ggerrors,
// pkg/analytics, pkg/gamification) never read the environment themselves; this
// package exists solely to wire the optional Firestore/Redis backends for the
// example binary.
package config

import (
	"github.com/focusnest/gamification-engine/internal/envconfig"
)

// Config holds everything cmd/demo needs to construct the domain stack.
type Config struct {
	GCPProjectID    string `validate:"required"`
	FirestoreDB     string `validate:"required"`
	RedisURL        string `validate:"required"`
	DemoUserID      string `validate:"required"`
	StreakKey       string `validate:"required"`
	ExperienceKey   string `validate:"required"`
	ProgressKey     string `validate:"required"`
}

// Load reads Config from the environment, applying the same defaults a
// developer running the demo locally would expect.
func Load() (Config, error) {
	cfg := Config{
		GCPProjectID:  envconfig.Get("GCP_PROJECT_ID", "focusnest-dev"),
		FirestoreDB:   envconfig.Get("FIRESTORE_DATABASE", "focusnest-dev"),
		RedisURL:      envconfig.Get("REDIS_URL", "redis://localhost:6379/0"),
		DemoUserID:    envconfig.Get("DEMO_USER_ID", "demo-user"),
		StreakKey:     envconfig.Get("DEMO_STREAK_KEY", "reading_streak"),
		ExperienceKey: envconfig.Get("DEMO_EXPERIENCE_KEY", "reading_xp"),
		ProgressKey:   envconfig.Get("DEMO_PROGRESS_KEY", "book_club"),
	}
	if err := envconfig.Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
