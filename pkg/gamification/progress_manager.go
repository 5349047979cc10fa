package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/focusnest/gamification-engine/pkg/analytics"
	"github.com/focusnest/gamification-engine/pkg/ggerrors"
	"github.com/focusnest/gamification-engine/pkg/model"
)

// ProgressManager owns the in-memory id→ProgressItem cache for one
// progressKey (spec.md §4.5). Unlike StreakManager/ExperiencePointsManager
// this is a collection: mutations are per-item and the listener streams
// changesets rather than a single aggregate.
type ProgressManager struct {
	mu sync.Mutex

	configuration model.ProgressConfiguration
	remote        ProgressRemoteService
	local         ProgressLocalStore
	sink          analytics.Sink
	now           func() time.Time

	userID                 string
	loggedIn               bool
	cache                  map[string]model.ProgressItem
	listener               *listenerHandle
	listenerFailedToAttach bool

	observers []func(model.ProgressItem)
}

// NewProgressManager constructs a ProgressManager for configuration, backed
// by remote and local.
func NewProgressManager(configuration model.ProgressConfiguration, remote ProgressRemoteService, local ProgressLocalStore, sink analytics.Sink) *ProgressManager {
	return &ProgressManager{
		configuration: configuration,
		remote:        remote,
		local:         local,
		sink:          sink,
		now:           time.Now,
		cache:         make(map[string]model.ProgressItem),
	}
}

// Subscribe registers fn to be called whenever an item in the cache changes,
// returning an unsubscribe function.
func (m *ProgressManager) Subscribe(fn func(model.ProgressItem)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
	idx := len(m.observers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers[idx] = nil
	}
}

func (m *ProgressManager) notify(item model.ProgressItem) {
	m.mu.Lock()
	observers := append([]func(model.ProgressItem){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range observers {
		if fn != nil {
			fn(item)
		}
	}
}

// LogIn loads local persistence for an instant warm start, then asynchronously
// bulk-fetches all remote items, applies the merge rule, and attaches the
// streaming listener for subsequent changes (spec.md §4.5).
func (m *ProgressManager) LogIn(ctx context.Context, userID string) error {
	m.mu.Lock()
	needsLogout := m.loggedIn && m.userID != userID
	m.mu.Unlock()

	if needsLogout {
		if err := m.LogOut(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.userID = userID
	m.loggedIn = true
	m.mu.Unlock()

	if m.local != nil {
		if items, err := m.local.GetAllProgressItems(ctx, m.configuration.ProgressKey); err == nil {
			m.mu.Lock()
			for _, item := range items {
				m.cache[item.CompositeID()] = item
			}
			m.mu.Unlock()
		}
	}

	go m.bulkLoad(context.Background())

	return nil
}

func (m *ProgressManager) bulkLoad(ctx context.Context) {
	userID, progressKey, ok := m.requireLoggedIn()
	if !ok {
		return
	}

	m.logStart(ctx, analytics.SuffixBulkLoadStart)
	items, err := m.remote.ListProgressItems(ctx, userID, progressKey)
	if err != nil {
		m.logFail(ctx, analytics.SuffixBulkLoadFail, err)
		m.attachListener(ctx)
		return
	}

	for _, item := range items {
		m.mergeFromListener(ctx, item)
	}
	m.logSuccess(ctx, analytics.SuffixBulkLoadSuccess)

	m.attachListener(ctx)
}

// LogOut cancels the listener and clears the cache.
func (m *ProgressManager) LogOut(ctx context.Context) error {
	m.mu.Lock()
	listener := m.listener
	m.listener = nil
	m.loggedIn = false
	m.cache = make(map[string]model.ProgressItem)
	m.mu.Unlock()

	listener.Cancel()
	return nil
}

func (m *ProgressManager) attachListener(ctx context.Context) {
	m.mu.Lock()
	prior := m.listener
	m.listenerFailedToAttach = false
	userID, progressKey := m.userID, m.configuration.ProgressKey
	m.mu.Unlock()

	prior.Cancel()

	m.logStart(ctx, analytics.SuffixRemoteListenerStart)

	handle := startListener(ctx, func(runCtx context.Context) error {
		stream, err := m.remote.StreamProgressChanges(runCtx, userID, progressKey)
		if err != nil {
			return err
		}
		for {
			select {
			case <-runCtx.Done():
				return nil
			case change, ok := <-stream:
				if !ok {
					return nil
				}
				if change.Err != nil {
					return change.Err
				}
				if change.Deleted {
					m.mu.Lock()
					delete(m.cache, progressKey+"_"+change.ID)
					m.mu.Unlock()
					continue
				}
				m.mergeFromListener(runCtx, change.Item)
			}
		}
	}, func(err error) {
		m.mu.Lock()
		m.listenerFailedToAttach = true
		m.mu.Unlock()
		m.logFail(ctx, analytics.SuffixRemoteListenerFail, err)
	})

	m.mu.Lock()
	m.listener = handle
	m.mu.Unlock()

	m.logSuccess(ctx, analytics.SuffixRemoteListenerSuccess)
}

// mergeFromListener applies the listener merge policy (spec.md §4.5): a
// lower-value emission keeps the cached value but still accepts
// metadata/date updates; a value ≥ cached accepts the item in full.
func (m *ProgressManager) mergeFromListener(ctx context.Context, incoming model.ProgressItem) {
	key := incoming.CompositeID()

	m.mu.Lock()
	existing, exists := m.cache[key]
	final := incoming
	if exists && incoming.Value < existing.Value {
		final = existing
		final.Metadata = incoming.Metadata
		final.DateModified = incoming.DateModified
	}
	m.cache[key] = final
	m.mu.Unlock()

	m.notify(final)
	if m.local != nil {
		_ = m.local.SaveProgressItem(ctx, final)
	}
}

// GetProgress returns the cached value for id, or 0.0 on miss.
func (m *ProgressManager) GetProgress(id string) float64 {
	item, ok := m.GetProgressItem(id)
	if !ok {
		return 0.0
	}
	return item.Value
}

// GetProgressItem is a synchronous cache read.
func (m *ProgressManager) GetProgressItem(id string) (model.ProgressItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.cache[m.configuration.ProgressKey+"_"+id]
	return item, ok
}

// GetAllProgress returns a snapshot of id→value for every cached item.
func (m *ProgressManager) GetAllProgress() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.cache))
	for _, item := range m.cache {
		out[item.ID] = item.Value
	}
	return out
}

// GetAllProgressItems returns a snapshot of every cached item.
func (m *ProgressManager) GetAllProgressItems() []model.ProgressItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ProgressItem, 0, len(m.cache))
	for _, item := range m.cache {
		out = append(out, item)
	}
	return out
}

// GetProgressItems returns every cached item whose metadata[forMetadataField]
// equals equalTo.
func (m *ProgressManager) GetProgressItems(forMetadataField string, equalTo model.MetadataValue) []model.ProgressItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ProgressItem
	for _, item := range m.cache {
		if v, ok := item.Metadata[forMetadataField]; ok && v.Equal(equalTo) {
			out = append(out, item)
		}
	}
	return out
}

// GetMaxProgress returns the maximum value among items whose
// metadata[forMetadataField] equals equalTo, or 0.0 when no item matches.
func (m *ProgressManager) GetMaxProgress(forMetadataField string, equalTo model.MetadataValue) float64 {
	items := m.GetProgressItems(forMetadataField, equalTo)
	max := 0.0
	for _, item := range items {
		if item.Value > max {
			max = item.Value
		}
	}
	return max
}

// AddProgress applies the never-regress value rule and the metadata merge
// rule, writes the result optimistically into the cache, persists it
// locally, and forwards it to remote (spec.md §4.5).
func (m *ProgressManager) AddProgress(ctx context.Context, id string, value float64, metadata model.Metadata) error {
	if value < 0.0 || value > 1.0 {
		return ggerrors.Validation("progress value must be within [0.0, 1.0]")
	}
	userID, progressKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}

	m.logStart(ctx, analytics.SuffixAddProgressStart)

	key := progressKey + "_" + id
	now := m.now()

	m.mu.Lock()
	existing, exists := m.cache[key]
	item := model.ProgressItem{
		ID:          id,
		ProgressKey: progressKey,
		Value:       value,
		DateCreated: now,
		DateModified: now,
		Metadata:    metadata,
	}
	if exists {
		item.DateCreated = existing.DateCreated
		if existing.Value > value {
			item.Value = existing.Value
		}
		if len(metadata) == 0 {
			item.Metadata = existing.Metadata
		} else {
			merged := make(model.Metadata, len(existing.Metadata)+len(metadata))
			for k, v := range existing.Metadata {
				merged[k] = v
			}
			for k, v := range metadata {
				merged[k] = v
			}
			item.Metadata = merged
		}
	}
	m.cache[key] = item
	m.mu.Unlock()

	m.notify(item)

	if m.local != nil {
		if err := m.local.SaveProgressItem(ctx, item); err != nil {
			m.logFail(ctx, analytics.SuffixSaveLocalFail, err)
		}
	}

	err := m.remote.UpsertProgressItem(ctx, userID, item)
	m.reattachIfLatched(ctx)
	if err != nil {
		m.logFail(ctx, analytics.SuffixAddProgressFail, err)
		return ggerrors.System("failed to upsert progress item", err)
	}
	m.logSuccessParams(ctx, analytics.SuffixAddProgressSuccess, analytics.ProgressParams(item))
	return nil
}

// DeleteProgress removes id from cache, local, then remote, in that order.
func (m *ProgressManager) DeleteProgress(ctx context.Context, id string) error {
	userID, progressKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}

	m.logStart(ctx, analytics.SuffixDeleteProgressStart)

	key := progressKey + "_" + id
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	if m.local != nil {
		_ = m.local.DeleteProgressItem(ctx, progressKey, id)
	}

	if err := m.remote.DeleteProgressItem(ctx, userID, progressKey, id); err != nil {
		m.logFail(ctx, analytics.SuffixDeleteProgressFail, err)
		return ggerrors.System("failed to delete progress item", err)
	}
	m.logSuccess(ctx, analytics.SuffixDeleteProgressSuccess)
	return nil
}

// DeleteAllProgress clears the cache, then local, then remote, for this
// progressKey.
func (m *ProgressManager) DeleteAllProgress(ctx context.Context) error {
	userID, progressKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}

	m.logStart(ctx, analytics.SuffixDeleteAllProgressStart)

	m.mu.Lock()
	m.cache = make(map[string]model.ProgressItem)
	m.mu.Unlock()

	if m.local != nil {
		_ = m.local.DeleteAllProgressItems(ctx, progressKey)
	}

	if err := m.remote.DeleteAllProgressItems(ctx, userID, progressKey); err != nil {
		m.logFail(ctx, analytics.SuffixDeleteAllProgressFail, err)
		return ggerrors.System("failed to delete all progress items", err)
	}
	m.logSuccess(ctx, analytics.SuffixDeleteAllProgressSuccess)
	return nil
}

func (m *ProgressManager) requireLoggedIn() (userID, progressKey string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loggedIn {
		return "", "", false
	}
	return m.userID, m.configuration.ProgressKey, true
}

func (m *ProgressManager) reattachIfLatched(ctx context.Context) {
	m.mu.Lock()
	latched := m.listenerFailedToAttach
	m.mu.Unlock()
	if latched {
		m.attachListener(ctx)
	}
}

func (m *ProgressManager) logStart(ctx context.Context, suffix string) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixProgressManager, suffix, nil)
	}
}

func (m *ProgressManager) logSuccess(ctx context.Context, suffix string) {
	m.logSuccessParams(ctx, suffix, nil)
}

func (m *ProgressManager) logSuccessParams(ctx context.Context, suffix string, params map[string]any) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixProgressManager, suffix, params)
	}
}

func (m *ProgressManager) logFail(ctx context.Context, suffix string, err error) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixProgressManager, suffix, analytics.ErrorParams(err))
	}
}
