package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/focusnest/gamification-engine/pkg/analytics"
	"github.com/focusnest/gamification-engine/pkg/ggerrors"
	"github.com/focusnest/gamification-engine/pkg/model"
	"github.com/focusnest/gamification-engine/pkg/streakcalc"
)

// StreakManager owns the in-memory CurrentStreakData for one (user,
// streakKey), the listener attached to it, and the self-healing latch that
// records a failed listener so the next mutation re-attaches it (spec.md §4.3, §5).
//
// All exported methods are safe to call concurrently; they serialize on an
// internal mutex to emulate the single logical main-serialized executor the
// spec assumes.
type StreakManager struct {
	mu sync.Mutex

	configuration model.StreakConfiguration
	remote        StreakRemoteService
	local         StreakLocalStore
	sink          analytics.Sink
	zone          *time.Location
	now           func() time.Time

	userID                 string
	loggedIn               bool
	data                   model.CurrentStreakData
	listener               *listenerHandle
	listenerFailedToAttach bool

	observers []func(model.CurrentStreakData)
}

// NewStreakManager constructs a StreakManager for configuration, backed by
// remote and local. zone is the userZone passed to the calculator on every
// recompute; nil defaults to UTC.
func NewStreakManager(configuration model.StreakConfiguration, remote StreakRemoteService, local StreakLocalStore, sink analytics.Sink, zone *time.Location) *StreakManager {
	if zone == nil {
		zone = time.UTC
	}
	return &StreakManager{
		configuration: configuration,
		remote:        remote,
		local:         local,
		sink:          sink,
		zone:          zone,
		now:           time.Now,
		data:          model.BlankStreakData(configuration.StreakKey),
	}
}

// Subscribe registers fn to be called, from an internal goroutine, whenever
// the in-memory aggregate changes. It returns an unsubscribe function.
func (m *StreakManager) Subscribe(fn func(model.CurrentStreakData)) func() {
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

func (m *StreakManager) notify(data model.CurrentStreakData) {
	m.mu.Lock()
	observers := append([]func(model.CurrentStreakData){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range observers {
		if fn != nil {
			fn(data)
		}
	}
}

// CurrentStreakData returns a synchronous snapshot of the in-memory
// aggregate.
func (m *StreakManager) CurrentStreakData() model.CurrentStreakData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// LogIn attaches this Manager to userID. If already logged in as a different
// user, LogOut runs first so no stale stream emissions leak across users
// (spec.md §5 "listener task ownership").
func (m *StreakManager) LogIn(ctx context.Context, userID string) error {
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
	m.data.UserID = userID
	m.mu.Unlock()

	m.attachListener(ctx)

	if !m.configuration.UseServerCalculation {
		go m.recompute(context.Background())
	}
	return nil
}

// LogOut cancels the listener, overwrites local persistence with the blank
// aggregate, and clears in-memory state (spec.md §8 "logout purity").
func (m *StreakManager) LogOut(ctx context.Context) error {
	m.mu.Lock()
	listener := m.listener
	m.listener = nil
	m.loggedIn = false
	blank := model.BlankStreakData(m.configuration.StreakKey)
	m.data = blank
	streakKey := m.configuration.StreakKey
	m.mu.Unlock()

	listener.Cancel()

	if m.local != nil {
		if err := m.local.SaveCurrentStreakData(ctx, streakKey, blank); err != nil {
			m.logFail(ctx, analytics.SuffixSaveLocalFail, err)
			return ggerrors.System("failed to persist blank streak data on logout", err)
		}
	}
	return nil
}

func (m *StreakManager) attachListener(ctx context.Context) {
	m.mu.Lock()
	prior := m.listener
	m.listenerFailedToAttach = false
	userID, streakKey := m.userID, m.configuration.StreakKey
	m.mu.Unlock()

	prior.Cancel()

	m.logStart(ctx, analytics.SuffixRemoteListenerStart)

	handle := startListener(ctx, func(runCtx context.Context) error {
		stream, err := m.remote.StreamCurrentStreak(runCtx, userID, streakKey)
		if err != nil {
			return err
		}
		for {
			select {
			case <-runCtx.Done():
				return nil
			case event, ok := <-stream:
				if !ok {
					return nil
				}
				if event.Err != nil {
					return event.Err
				}
				if event.Data != nil {
					m.applyRemote(runCtx, *event.Data)
				}
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

func (m *StreakManager) applyRemote(ctx context.Context, data model.CurrentStreakData) {
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	m.notify(data)
	m.saveLocalAsync(ctx, data)
}

func (m *StreakManager) saveLocalAsync(ctx context.Context, data model.CurrentStreakData) {
	if m.local == nil {
		return
	}
	go func() {
		m.logStart(ctx, analytics.SuffixSaveLocalStart)
		if err := m.local.SaveCurrentStreakData(ctx, m.configuration.StreakKey, data); err != nil {
			m.logFail(ctx, analytics.SuffixSaveLocalFail, err)
			return
		}
		m.logSuccess(ctx, analytics.SuffixSaveLocalSuccess)
	}()
}

// AddStreakEvent validates and appends event via the remote service, then in
// client mode triggers a recompute. Requires a prior LogIn.
func (m *StreakManager) AddStreakEvent(ctx context.Context, event model.StreakEvent) error {
	if err := event.ValidateAt(m.now()); err != nil {
		return ggerrors.Validation(err.Error())
	}
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}

	err := m.remote.AppendStreakEvent(ctx, userID, streakKey, event)
	m.reattachIfLatched(ctx)
	if err != nil {
		return ggerrors.System("failed to append streak event", err)
	}

	if !m.configuration.UseServerCalculation {
		go m.recompute(context.Background())
	} else {
		_ = m.remote.RequestServerRecompute(ctx, userID, streakKey)
	}
	return nil
}

// GetAllStreakEvents proxies to the remote service. Requires a prior LogIn.
func (m *StreakManager) GetAllStreakEvents(ctx context.Context) ([]model.StreakEvent, error) {
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return nil, ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	events, err := m.remote.ListStreakEvents(ctx, userID, streakKey)
	if err != nil {
		return nil, ggerrors.System("failed to list streak events", err)
	}
	return events, nil
}

// DeleteAllStreakEvents proxies to the remote service. Requires a prior
// LogIn.
func (m *StreakManager) DeleteAllStreakEvents(ctx context.Context) error {
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	if err := m.remote.DeleteAllStreakEvents(ctx, userID, streakKey); err != nil {
		return ggerrors.System("failed to delete streak events", err)
	}
	if !m.configuration.UseServerCalculation {
		go m.recompute(context.Background())
	}
	return nil
}

// AddStreakFreeze proxies to the remote service. Requires a prior LogIn.
func (m *StreakManager) AddStreakFreeze(ctx context.Context, freeze model.StreakFreeze) error {
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	err := m.remote.AddStreakFreeze(ctx, userID, streakKey, freeze)
	m.reattachIfLatched(ctx)
	if err != nil {
		return ggerrors.System("failed to add streak freeze", err)
	}
	return nil
}

// UseStreakFreeze marks freezeID consumed as of now. Requires a prior LogIn.
func (m *StreakManager) UseStreakFreeze(ctx context.Context, freezeID string) error {
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	freezes, err := m.remote.ListStreakFreezes(ctx, userID, streakKey)
	if err != nil {
		return ggerrors.System("failed to list streak freezes", err)
	}
	var target *model.StreakFreeze
	for i := range freezes {
		if freezes[i].ID == freezeID {
			target = &freezes[i]
			break
		}
	}
	if target == nil {
		return ggerrors.Business(ggerrors.ErrFreezeNotAvailable)
	}
	if !target.IsAvailable(m.now()) {
		return ggerrors.Business(ggerrors.ErrFreezeAlreadyUsed)
	}
	if err := m.remote.ConsumeStreakFreeze(ctx, userID, streakKey, freezeID, m.now()); err != nil {
		return ggerrors.System("failed to consume streak freeze", err)
	}
	if !m.configuration.UseServerCalculation {
		go m.recompute(context.Background())
	}
	return nil
}

// GetAllStreakFreezes proxies to the remote service. Requires a prior LogIn.
func (m *StreakManager) GetAllStreakFreezes(ctx context.Context) ([]model.StreakFreeze, error) {
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return nil, ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	freezes, err := m.remote.ListStreakFreezes(ctx, userID, streakKey)
	if err != nil {
		return nil, ggerrors.System("failed to list streak freezes", err)
	}
	return freezes, nil
}

// recompute fetches the full event/freeze log, runs the calculator, replaces
// the in-memory aggregate, and writes it back to the remote (client-mode
// recompute, spec.md §4.3). Failures are logged, not raised: the caller is
// an async goroutine, and the prior in-memory value is retained on failure.
func (m *StreakManager) recompute(ctx context.Context) {
	userID, streakKey, ok := m.requireLoggedIn()
	if !ok {
		return
	}

	m.logStart(ctx, analytics.SuffixCalculateStreakStart)

	events, err := m.remote.ListStreakEvents(ctx, userID, streakKey)
	if err != nil {
		m.logFail(ctx, analytics.SuffixCalculateStreakFail, err)
		return
	}
	freezes, err := m.remote.ListStreakFreezes(ctx, userID, streakKey)
	if err != nil {
		m.logFail(ctx, analytics.SuffixCalculateStreakFail, err)
		return
	}

	result := streakcalc.Calculate(events, freezes, m.configuration, m.now(), m.zone)
	result.Data.UserID = userID

	m.mu.Lock()
	m.data = result.Data
	m.mu.Unlock()
	m.notify(result.Data)
	m.saveLocalAsync(ctx, result.Data)

	if err := m.remote.WriteStreakAggregate(ctx, userID, result.Data); err != nil {
		m.logFail(ctx, analytics.SuffixCalculateStreakFail, err)
		return
	}
	m.logSuccessParams(ctx, analytics.SuffixCalculateStreakSuccess, analytics.StreakParams(result.Data))
}

func (m *StreakManager) requireLoggedIn() (userID, streakKey string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loggedIn {
		return "", "", false
	}
	return m.userID, m.configuration.StreakKey, true
}

func (m *StreakManager) reattachIfLatched(ctx context.Context) {
	m.mu.Lock()
	latched := m.listenerFailedToAttach
	m.mu.Unlock()
	if latched {
		m.attachListener(ctx)
	}
}

func (m *StreakManager) logStart(ctx context.Context, suffix string) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixStreakManager, suffix, nil)
	}
}

func (m *StreakManager) logSuccess(ctx context.Context, suffix string) {
	m.logSuccessParams(ctx, suffix, nil)
}

func (m *StreakManager) logSuccessParams(ctx context.Context, suffix string, params map[string]any) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixStreakManager, suffix, params)
	}
}

func (m *StreakManager) logFail(ctx context.Context, suffix string, err error) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixStreakManager, suffix, analytics.ErrorParams(err))
	}
}
