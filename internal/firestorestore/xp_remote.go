package firestorestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/focusnest/gamification-engine/pkg/gamification"
	"github.com/focusnest/gamification-engine/pkg/model"
)

const (
	xpAggregateColl = "current_xp"
	xpEventsColl    = "xp_events"
)

// XPRemote implements gamification.XPRemoteService against Firestore.
type XPRemote struct {
	client *firestore.Client
}

// NewXPRemote wraps an already-initialized Firestore client.
func NewXPRemote(client *firestore.Client) *XPRemote {
	return &XPRemote{client: client}
}

func (r *XPRemote) aggregateRef(userID, experienceKey string) *firestore.DocumentRef {
	return r.client.Collection(xpAggregateColl).Doc(userKey(userID, experienceKey))
}

func (r *XPRemote) eventsColl(userID, experienceKey string) *firestore.CollectionRef {
	return r.client.Collection(xpEventsColl).Doc(userKey(userID, experienceKey)).Collection("events")
}

func (r *XPRemote) StreamCurrentXP(ctx context.Context, userID, experienceKey string) (<-chan gamification.XPStreamEvent, error) {
	out := make(chan gamification.XPStreamEvent)
	iter := r.aggregateRef(userID, experienceKey).Snapshots(ctx)
	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				out <- gamification.XPStreamEvent{Err: err}
				return
			}
			if !snap.Exists() {
				continue
			}
			var doc xpAggregateDoc
			if err := snap.DataTo(&doc); err != nil {
				out <- gamification.XPStreamEvent{Err: fmt.Errorf("decode current_xp: %w", err)}
				continue
			}
			data, err := xpAggregateFromDoc(doc)
			if err != nil {
				out <- gamification.XPStreamEvent{Err: err}
				continue
			}
			out <- gamification.XPStreamEvent{Data: &data}
		}
	}()
	return out, nil
}

func (r *XPRemote) AppendXPEvent(ctx context.Context, userID, experienceKey string, event model.XPEvent) error {
	_, err := r.eventsColl(userID, experienceKey).Doc(event.ID).Set(ctx, xpEventToDoc(event))
	return err
}

func (r *XPRemote) ListXPEvents(ctx context.Context, userID, experienceKey string) ([]model.XPEvent, error) {
	iter := r.eventsColl(userID, experienceKey).Documents(ctx)
	defer iter.Stop()

	var events []model.XPEvent
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc xpEventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode xp event %s: %w", snap.Ref.ID, err)
		}
		event, err := xpEventFromDoc(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *XPRemote) DeleteAllXPEvents(ctx context.Context, userID, experienceKey string) error {
	return deleteAllDocs(ctx, r.client, r.eventsColl(userID, experienceKey))
}

func (r *XPRemote) WriteXPAggregate(ctx context.Context, userID string, data model.CurrentXPData) error {
	_, err := r.aggregateRef(userID, data.ExperienceKey).Set(ctx, xpAggregateToDoc(data))
	return err
}

func (r *XPRemote) RequestServerRecompute(ctx context.Context, userID, experienceKey string) error {
	_, err := r.client.Collection("xp_recompute_requests").Doc(userKey(userID, experienceKey)).Set(ctx, map[string]any{
		"user_id":       userID,
		"experience_id": experienceKey,
	})
	return err
}
