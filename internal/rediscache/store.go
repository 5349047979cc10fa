// Package rediscache implements the gamification package's local-persistence
// contracts as a write-through key/blob cache on Redis, grounded on
// Sergey-Bar-Alfred/services/gateway/redisclient's redis.ParseURL + redis.NewClient
// construction.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/focusnest/gamification-engine/pkg/model"
)

// Store is a thin JSON-blob cache over a *redis.Client, used to back
// StreakLocalStore, XPLocalStore, and ProgressLocalStore with the exact key
// scheme of spec.md §4.6.
type Store struct {
	client *redis.Client
}

// New builds a Store from a Redis connection URL (e.g. "redis://localhost:6379/0").
func New(redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &Store{client: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity, mirroring redisclient.Client.Ping.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func streakKey(streakKey string) string { return "current_streak_" + streakKey }
func xpKey(experienceKey string) string { return "current_xp_" + experienceKey }
func progressIndexKey(progressKey string) string {
	return "progress_index_" + progressKey
}
func progressItemKey(progressKey, id string) string {
	return "progress_item_" + progressKey + "_" + id
}

func (s *Store) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, raw, 0).Err()
}

// GetSavedStreakData implements gamification.StreakLocalStore.
func (s *Store) GetSavedStreakData(ctx context.Context, key string) (model.CurrentStreakData, bool, error) {
	var data model.CurrentStreakData
	ok, err := s.getJSON(ctx, streakKey(key), &data)
	return data, ok, err
}

// SaveCurrentStreakData implements gamification.StreakLocalStore.
func (s *Store) SaveCurrentStreakData(ctx context.Context, key string, data model.CurrentStreakData) error {
	return s.setJSON(ctx, streakKey(key), data)
}

// GetSavedXPData implements gamification.XPLocalStore.
func (s *Store) GetSavedXPData(ctx context.Context, experienceKey string) (model.CurrentXPData, bool, error) {
	var data model.CurrentXPData
	ok, err := s.getJSON(ctx, xpKey(experienceKey), &data)
	return data, ok, err
}

// SaveCurrentXPData implements gamification.XPLocalStore.
func (s *Store) SaveCurrentXPData(ctx context.Context, experienceKey string, data model.CurrentXPData) error {
	return s.setJSON(ctx, xpKey(experienceKey), data)
}

// GetAllProgressItems implements gamification.ProgressLocalStore. The
// progressIndexKey set tracks membership since Redis has no native "scan by
// prefix, return values" primitive cheap enough for a write-through cache.
func (s *Store) GetAllProgressItems(ctx context.Context, progressKey string) ([]model.ProgressItem, error) {
	ids, err := s.client.SMembers(ctx, progressIndexKey(progressKey)).Result()
	if err != nil {
		return nil, err
	}
	items := make([]model.ProgressItem, 0, len(ids))
	for _, id := range ids {
		var item model.ProgressItem
		ok, err := s.getJSON(ctx, progressItemKey(progressKey, id), &item)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetProgressItem implements gamification.ProgressLocalStore.
func (s *Store) GetProgressItem(ctx context.Context, progressKey, id string) (model.ProgressItem, bool, error) {
	var item model.ProgressItem
	ok, err := s.getJSON(ctx, progressItemKey(progressKey, id), &item)
	return item, ok, err
}

// SaveProgressItem implements gamification.ProgressLocalStore.
func (s *Store) SaveProgressItem(ctx context.Context, item model.ProgressItem) error {
	if err := s.setJSON(ctx, progressItemKey(item.ProgressKey, item.ID), item); err != nil {
		return err
	}
	return s.client.SAdd(ctx, progressIndexKey(item.ProgressKey), item.ID).Err()
}

// SaveProgressItems implements gamification.ProgressLocalStore.
func (s *Store) SaveProgressItems(ctx context.Context, items []model.ProgressItem) error {
	pipe := s.client.Pipeline()
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode progress item %s: %w", item.CompositeID(), err)
		}
		pipe.Set(ctx, progressItemKey(item.ProgressKey, item.ID), raw, 0)
		pipe.SAdd(ctx, progressIndexKey(item.ProgressKey), item.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteProgressItem implements gamification.ProgressLocalStore.
func (s *Store) DeleteProgressItem(ctx context.Context, progressKey, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, progressItemKey(progressKey, id))
	pipe.SRem(ctx, progressIndexKey(progressKey), id)
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteAllProgressItems implements gamification.ProgressLocalStore.
func (s *Store) DeleteAllProgressItems(ctx context.Context, progressKey string) error {
	ids, err := s.client.SMembers(ctx, progressIndexKey(progressKey)).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, progressItemKey(progressKey, id))
	}
	pipe.Del(ctx, progressIndexKey(progressKey))
	_, err = pipe.Exec(ctx)
	return err
}
