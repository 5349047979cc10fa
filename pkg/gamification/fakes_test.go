package gamification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/focusnest/gamification-engine/pkg/analytics"
	"github.com/focusnest/gamification-engine/pkg/model"
)

type fakeStreakRemote struct {
	mu     sync.Mutex
	events []model.StreakEvent
	freezes []model.StreakFreeze
	streamFn func(ctx context.Context, userID, streakKey string) (<-chan StreakStreamEvent, error)
	writeAggregateFn func(ctx context.Context, userID string, data model.CurrentStreakData) error
}

func (f *fakeStreakRemote) StreamCurrentStreak(ctx context.Context, userID, streakKey string) (<-chan StreakStreamEvent, error) {
	if f.streamFn != nil {
		return f.streamFn(ctx, userID, streakKey)
	}
	ch := make(chan StreakStreamEvent)
	close(ch)
	return ch, nil
}

func (f *fakeStreakRemote) AppendStreakEvent(ctx context.Context, userID, streakKey string, event model.StreakEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStreakRemote) ListStreakEvents(ctx context.Context, userID, streakKey string) ([]model.StreakEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.StreakEvent, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeStreakRemote) DeleteAllStreakEvents(ctx context.Context, userID, streakKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	return nil
}

func (f *fakeStreakRemote) WriteStreakAggregate(ctx context.Context, userID string, data model.CurrentStreakData) error {
	if f.writeAggregateFn != nil {
		return f.writeAggregateFn(ctx, userID, data)
	}
	return nil
}

func (f *fakeStreakRemote) RequestServerRecompute(ctx context.Context, userID, streakKey string) error {
	return nil
}

func (f *fakeStreakRemote) AddStreakFreeze(ctx context.Context, userID, streakKey string, freeze model.StreakFreeze) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freezes = append(f.freezes, freeze)
	return nil
}

func (f *fakeStreakRemote) ConsumeStreakFreeze(ctx context.Context, userID, streakKey, freezeID string, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.freezes {
		if f.freezes[i].ID == freezeID {
			ts := usedAt
			f.freezes[i].DateUsed = &ts
			return nil
		}
	}
	return errors.New("freeze not found")
}

func (f *fakeStreakRemote) ListStreakFreezes(ctx context.Context, userID, streakKey string) ([]model.StreakFreeze, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.StreakFreeze, len(f.freezes))
	copy(out, f.freezes)
	return out, nil
}

type fakeStreakLocal struct {
	mu   sync.Mutex
	data map[string]model.CurrentStreakData
}

func newFakeStreakLocal() *fakeStreakLocal {
	return &fakeStreakLocal{data: make(map[string]model.CurrentStreakData)}
}

func (f *fakeStreakLocal) GetSavedStreakData(ctx context.Context, streakKey string) (model.CurrentStreakData, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[streakKey]
	return d, ok, nil
}

func (f *fakeStreakLocal) SaveCurrentStreakData(ctx context.Context, streakKey string, data model.CurrentStreakData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[streakKey] = data
	return nil
}

type fakeXPRemote struct {
	mu       sync.Mutex
	events   []model.XPEvent
	streamFn func(ctx context.Context, userID, experienceKey string) (<-chan XPStreamEvent, error)
}

func (f *fakeXPRemote) StreamCurrentXP(ctx context.Context, userID, experienceKey string) (<-chan XPStreamEvent, error) {
	if f.streamFn != nil {
		return f.streamFn(ctx, userID, experienceKey)
	}
	ch := make(chan XPStreamEvent)
	close(ch)
	return ch, nil
}

func (f *fakeXPRemote) AppendXPEvent(ctx context.Context, userID, experienceKey string, event model.XPEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeXPRemote) ListXPEvents(ctx context.Context, userID, experienceKey string) ([]model.XPEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.XPEvent, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeXPRemote) DeleteAllXPEvents(ctx context.Context, userID, experienceKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	return nil
}

func (f *fakeXPRemote) WriteXPAggregate(ctx context.Context, userID string, data model.CurrentXPData) error {
	return nil
}

func (f *fakeXPRemote) RequestServerRecompute(ctx context.Context, userID, experienceKey string) error {
	return nil
}

type fakeXPLocal struct {
	mu   sync.Mutex
	data map[string]model.CurrentXPData
}

func newFakeXPLocal() *fakeXPLocal {
	return &fakeXPLocal{data: make(map[string]model.CurrentXPData)}
}

func (f *fakeXPLocal) GetSavedXPData(ctx context.Context, experienceKey string) (model.CurrentXPData, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[experienceKey]
	return d, ok, nil
}

func (f *fakeXPLocal) SaveCurrentXPData(ctx context.Context, experienceKey string, data model.CurrentXPData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[experienceKey] = data
	return nil
}

type fakeProgressRemote struct {
	mu       sync.Mutex
	items    map[string]model.ProgressItem
	streamFn func(ctx context.Context, userID, progressKey string) (<-chan ProgressChangeEvent, error)
}

func newFakeProgressRemote() *fakeProgressRemote {
	return &fakeProgressRemote{items: make(map[string]model.ProgressItem)}
}

func (f *fakeProgressRemote) StreamProgressChanges(ctx context.Context, userID, progressKey string) (<-chan ProgressChangeEvent, error) {
	if f.streamFn != nil {
		return f.streamFn(ctx, userID, progressKey)
	}
	ch := make(chan ProgressChangeEvent)
	close(ch)
	return ch, nil
}

func (f *fakeProgressRemote) ListProgressItems(ctx context.Context, userID, progressKey string) ([]model.ProgressItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ProgressItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeProgressRemote) UpsertProgressItem(ctx context.Context, userID string, item model.ProgressItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.CompositeID()] = item
	return nil
}

func (f *fakeProgressRemote) DeleteProgressItem(ctx context.Context, userID, progressKey, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, progressKey+"_"+id)
	return nil
}

func (f *fakeProgressRemote) DeleteAllProgressItems(ctx context.Context, userID, progressKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[string]model.ProgressItem)
	return nil
}

type fakeProgressLocal struct {
	mu    sync.Mutex
	items map[string]model.ProgressItem
}

func newFakeProgressLocal() *fakeProgressLocal {
	return &fakeProgressLocal{items: make(map[string]model.ProgressItem)}
}

func (f *fakeProgressLocal) GetAllProgressItems(ctx context.Context, progressKey string) ([]model.ProgressItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ProgressItem
	for _, item := range f.items {
		if item.ProgressKey == progressKey {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeProgressLocal) GetProgressItem(ctx context.Context, progressKey, id string) (model.ProgressItem, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[progressKey+"_"+id]
	return item, ok, nil
}

func (f *fakeProgressLocal) SaveProgressItem(ctx context.Context, item model.ProgressItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.CompositeID()] = item
	return nil
}

func (f *fakeProgressLocal) SaveProgressItems(ctx context.Context, items []model.ProgressItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.items[item.CompositeID()] = item
	}
	return nil
}

func (f *fakeProgressLocal) DeleteProgressItem(ctx context.Context, progressKey, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, progressKey+"_"+id)
	return nil
}

func (f *fakeProgressLocal) DeleteAllProgressItems(ctx context.Context, progressKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, item := range f.items {
		if item.ProgressKey == progressKey {
			delete(f.items, k)
		}
	}
	return nil
}

type noopSink struct{}

func (noopSink) Log(ctx context.Context, prefix analytics.Prefix, suffix string, params map[string]any) {
}
