package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/focusnest/gamification-engine/pkg/analytics"
	"github.com/focusnest/gamification-engine/pkg/ggerrors"
	"github.com/focusnest/gamification-engine/pkg/model"
	"github.com/focusnest/gamification-engine/pkg/xpcalc"
)

// ExperiencePointsManager mirrors StreakManager's lifecycle (spec.md §4.4):
// the aggregate is keyed by experienceKey and there is no freeze concept.
type ExperiencePointsManager struct {
	mu sync.Mutex

	configuration model.XPConfiguration
	remote        XPRemoteService
	local         XPLocalStore
	sink          analytics.Sink
	zone          *time.Location
	now           func() time.Time

	userID                 string
	loggedIn               bool
	data                   model.CurrentXPData
	listener               *listenerHandle
	listenerFailedToAttach bool

	observers []func(model.CurrentXPData)
}

// NewExperiencePointsManager constructs an ExperiencePointsManager for
// configuration, backed by remote and local.
func NewExperiencePointsManager(configuration model.XPConfiguration, remote XPRemoteService, local XPLocalStore, sink analytics.Sink, zone *time.Location) *ExperiencePointsManager {
	if zone == nil {
		zone = time.UTC
	}
	return &ExperiencePointsManager{
		configuration: configuration,
		remote:        remote,
		local:         local,
		sink:          sink,
		zone:          zone,
		now:           time.Now,
		data:          model.BlankXPData(configuration.ExperienceKey),
	}
}

// Subscribe registers fn to be called whenever the in-memory aggregate
// changes, returning an unsubscribe function.
func (m *ExperiencePointsManager) Subscribe(fn func(model.CurrentXPData)) func() {
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

func (m *ExperiencePointsManager) notify(data model.CurrentXPData) {
	m.mu.Lock()
	observers := append([]func(model.CurrentXPData){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range observers {
		if fn != nil {
			fn(data)
		}
	}
}

// CurrentExperiencePointsData returns a synchronous snapshot of the
// in-memory aggregate.
func (m *ExperiencePointsManager) CurrentExperiencePointsData() model.CurrentXPData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// LogIn attaches this Manager to userID, performing a LogOut first if a
// different user was previously logged in.
func (m *ExperiencePointsManager) LogIn(ctx context.Context, userID string) error {
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
// aggregate, and clears in-memory state.
func (m *ExperiencePointsManager) LogOut(ctx context.Context) error {
	m.mu.Lock()
	listener := m.listener
	m.listener = nil
	m.loggedIn = false
	blank := model.BlankXPData(m.configuration.ExperienceKey)
	m.data = blank
	experienceKey := m.configuration.ExperienceKey
	m.mu.Unlock()

	listener.Cancel()

	if m.local != nil {
		if err := m.local.SaveCurrentXPData(ctx, experienceKey, blank); err != nil {
			m.logFail(ctx, analytics.SuffixSaveLocalFail, err)
			return ggerrors.System("failed to persist blank xp data on logout", err)
		}
	}
	return nil
}

func (m *ExperiencePointsManager) attachListener(ctx context.Context) {
	m.mu.Lock()
	prior := m.listener
	m.listenerFailedToAttach = false
	userID, experienceKey := m.userID, m.configuration.ExperienceKey
	m.mu.Unlock()

	prior.Cancel()

	m.logStart(ctx, analytics.SuffixRemoteListenerStart)

	handle := startListener(ctx, func(runCtx context.Context) error {
		stream, err := m.remote.StreamCurrentXP(runCtx, userID, experienceKey)
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

func (m *ExperiencePointsManager) applyRemote(ctx context.Context, data model.CurrentXPData) {
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	m.notify(data)
	m.saveLocalAsync(ctx, data)
}

func (m *ExperiencePointsManager) saveLocalAsync(ctx context.Context, data model.CurrentXPData) {
	if m.local == nil {
		return
	}
	go func() {
		m.logStart(ctx, analytics.SuffixSaveLocalStart)
		if err := m.local.SaveCurrentXPData(ctx, m.configuration.ExperienceKey, data); err != nil {
			m.logFail(ctx, analytics.SuffixSaveLocalFail, err)
			return
		}
		m.logSuccess(ctx, analytics.SuffixSaveLocalSuccess)
	}()
}

// AddExperiencePoints validates and appends event via the remote service,
// then in client mode triggers a recompute. Requires a prior LogIn.
func (m *ExperiencePointsManager) AddExperiencePoints(ctx context.Context, event model.XPEvent) error {
	if err := event.ValidateAt(m.now()); err != nil {
		return ggerrors.Validation(err.Error())
	}
	userID, experienceKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}

	m.logStart(ctx, analytics.SuffixAddExperiencePointsStart)
	err := m.remote.AppendXPEvent(ctx, userID, experienceKey, event)
	m.reattachIfLatched(ctx)
	if err != nil {
		m.logFail(ctx, analytics.SuffixAddExperiencePointsFail, err)
		return ggerrors.System("failed to append xp event", err)
	}
	m.logSuccess(ctx, analytics.SuffixAddExperiencePointsSuccess)

	if !m.configuration.UseServerCalculation {
		go m.recompute(context.Background())
	} else {
		_ = m.remote.RequestServerRecompute(ctx, userID, experienceKey)
	}
	return nil
}

// GetAllExperiencePointsEvents fetches all events and, if forField is
// non-empty, applies the metadata filter at the Manager layer
// (spec.md §4.4).
func (m *ExperiencePointsManager) GetAllExperiencePointsEvents(ctx context.Context, forField string, equalTo model.MetadataValue) ([]model.XPEvent, error) {
	userID, experienceKey, ok := m.requireLoggedIn()
	if !ok {
		return nil, ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	events, err := m.remote.ListXPEvents(ctx, userID, experienceKey)
	if err != nil {
		return nil, ggerrors.System("failed to list xp events", err)
	}
	if forField == "" {
		return events, nil
	}
	filtered := make([]model.XPEvent, 0, len(events))
	for _, e := range events {
		if v, ok := e.Metadata[forField]; ok && v.Equal(equalTo) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// DeleteAllExperiencePointsEvents proxies to the remote service.
func (m *ExperiencePointsManager) DeleteAllExperiencePointsEvents(ctx context.Context) error {
	userID, experienceKey, ok := m.requireLoggedIn()
	if !ok {
		return ggerrors.Business(ggerrors.ErrNotLoggedIn)
	}
	if err := m.remote.DeleteAllXPEvents(ctx, userID, experienceKey); err != nil {
		return ggerrors.System("failed to delete xp events", err)
	}
	if !m.configuration.UseServerCalculation {
		go m.recompute(context.Background())
	}
	return nil
}

func (m *ExperiencePointsManager) recompute(ctx context.Context) {
	userID, experienceKey, ok := m.requireLoggedIn()
	if !ok {
		return
	}

	m.logStart(ctx, analytics.SuffixCalculateXPStart)

	events, err := m.remote.ListXPEvents(ctx, userID, experienceKey)
	if err != nil {
		m.logFail(ctx, analytics.SuffixCalculateXPFail, err)
		return
	}

	data := xpcalc.Calculate(events, m.configuration, m.now(), m.zone)
	data.UserID = userID

	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	m.notify(data)
	m.saveLocalAsync(ctx, data)

	if err := m.remote.WriteXPAggregate(ctx, userID, data); err != nil {
		m.logFail(ctx, analytics.SuffixCalculateXPFail, err)
		return
	}
	m.logSuccessParams(ctx, analytics.SuffixCalculateXPSuccess, analytics.XPParams(data))
}

func (m *ExperiencePointsManager) requireLoggedIn() (userID, experienceKey string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loggedIn {
		return "", "", false
	}
	return m.userID, m.configuration.ExperienceKey, true
}

func (m *ExperiencePointsManager) reattachIfLatched(ctx context.Context) {
	m.mu.Lock()
	latched := m.listenerFailedToAttach
	m.mu.Unlock()
	if latched {
		m.attachListener(ctx)
	}
}

func (m *ExperiencePointsManager) logStart(ctx context.Context, suffix string) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixXPManager, suffix, nil)
	}
}

func (m *ExperiencePointsManager) logSuccess(ctx context.Context, suffix string) {
	m.logSuccessParams(ctx, suffix, nil)
}

func (m *ExperiencePointsManager) logSuccessParams(ctx context.Context, suffix string, params map[string]any) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixXPManager, suffix, params)
	}
}

func (m *ExperiencePointsManager) logFail(ctx context.Context, suffix string, err error) {
	if m.sink != nil {
		m.sink.Log(ctx, analytics.PrefixXPManager, suffix, analytics.ErrorParams(err))
	}
}
