package firestorestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/focusnest/gamification-engine/pkg/gamification"
	"github.com/focusnest/gamification-engine/pkg/model"
)

const (
	streakAggregateColl = "current_streak"
	streakEventsColl    = "streak_events"
	streakFreezesColl   = "streak_freezes"
)

// StreakRemote implements gamification.StreakRemoteService against Firestore.
type StreakRemote struct {
	client *firestore.Client
}

// NewStreakRemote wraps an already-initialized Firestore client.
func NewStreakRemote(client *firestore.Client) *StreakRemote {
	return &StreakRemote{client: client}
}

func (r *StreakRemote) aggregateRef(userID, streakKey string) *firestore.DocumentRef {
	return r.client.Collection(streakAggregateColl).Doc(userKey(userID, streakKey))
}

func (r *StreakRemote) eventsColl(userID, streakKey string) *firestore.CollectionRef {
	return r.client.Collection(streakEventsColl).Doc(userKey(userID, streakKey)).Collection("events")
}

func (r *StreakRemote) freezesColl(userID, streakKey string) *firestore.CollectionRef {
	return r.client.Collection(streakFreezesColl).Doc(userKey(userID, streakKey)).Collection("freezes")
}

func (r *StreakRemote) StreamCurrentStreak(ctx context.Context, userID, streakKey string) (<-chan gamification.StreakStreamEvent, error) {
	out := make(chan gamification.StreakStreamEvent)
	iter := r.aggregateRef(userID, streakKey).Snapshots(ctx)
	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				out <- gamification.StreakStreamEvent{Err: err}
				return
			}
			if !snap.Exists() {
				continue
			}
			var doc streakAggregateDoc
			if err := snap.DataTo(&doc); err != nil {
				out <- gamification.StreakStreamEvent{Err: fmt.Errorf("decode current_streak: %w", err)}
				continue
			}
			data, err := streakAggregateFromDoc(doc)
			if err != nil {
				out <- gamification.StreakStreamEvent{Err: err}
				continue
			}
			out <- gamification.StreakStreamEvent{Data: &data}
		}
	}()
	return out, nil
}

func (r *StreakRemote) AppendStreakEvent(ctx context.Context, userID, streakKey string, event model.StreakEvent) error {
	_, err := r.eventsColl(userID, streakKey).Doc(event.ID).Set(ctx, streakEventToDoc(event))
	return err
}

func (r *StreakRemote) ListStreakEvents(ctx context.Context, userID, streakKey string) ([]model.StreakEvent, error) {
	iter := r.eventsColl(userID, streakKey).Documents(ctx)
	defer iter.Stop()

	var events []model.StreakEvent
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc streakEventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode streak event %s: %w", snap.Ref.ID, err)
		}
		event, err := streakEventFromDoc(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *StreakRemote) DeleteAllStreakEvents(ctx context.Context, userID, streakKey string) error {
	return deleteAllDocs(ctx, r.client, r.eventsColl(userID, streakKey))
}

func (r *StreakRemote) WriteStreakAggregate(ctx context.Context, userID string, data model.CurrentStreakData) error {
	_, err := r.aggregateRef(userID, data.StreakKey).Set(ctx, streakAggregateToDoc(data))
	return err
}

func (r *StreakRemote) RequestServerRecompute(ctx context.Context, userID, streakKey string) error {
	_, err := r.client.Collection("streak_recompute_requests").Doc(userKey(userID, streakKey)).Set(ctx, map[string]any{
		"user_id":    userID,
		"streak_id":  streakKey,
		"requested":  time.Now().UTC(),
	})
	return err
}

func (r *StreakRemote) AddStreakFreeze(ctx context.Context, userID, streakKey string, freeze model.StreakFreeze) error {
	_, err := r.freezesColl(userID, streakKey).Doc(freeze.ID).Set(ctx, freezeToDoc(freeze))
	return err
}

func (r *StreakRemote) ConsumeStreakFreeze(ctx context.Context, userID, streakKey, freezeID string, usedAt time.Time) error {
	ref := r.freezesColl(userID, streakKey).Doc(freezeID)
	_, err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("freeze %s not found", freezeID)
			}
			return err
		}
		var doc streakFreezeDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.DateUsed != nil {
			return fmt.Errorf("freeze %s already used", freezeID)
		}
		ts := usedAt
		doc.DateUsed = &ts
		return tx.Set(ref, doc)
	})
	return err
}

func (r *StreakRemote) ListStreakFreezes(ctx context.Context, userID, streakKey string) ([]model.StreakFreeze, error) {
	iter := r.freezesColl(userID, streakKey).Documents(ctx)
	defer iter.Stop()

	var freezes []model.StreakFreeze
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc streakFreezeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode streak freeze %s: %w", snap.Ref.ID, err)
		}
		freezes = append(freezes, freezeFromDoc(doc))
	}
	return freezes, nil
}

// deleteAllDocs is shared by the three remote implementations for the
// "delete all events/items" operations spec.md §4.7 requires.
func deleteAllDocs(ctx context.Context, client *firestore.Client, coll *firestore.CollectionRef) error {
	iter := coll.Documents(ctx)
	defer iter.Stop()

	batch := client.BulkWriter(ctx)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if _, err := batch.Delete(snap.Ref); err != nil {
			return err
		}
	}
	batch.End()
	return nil
}
