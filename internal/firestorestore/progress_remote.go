package firestorestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/focusnest/gamification-engine/pkg/gamification"
	"github.com/focusnest/gamification-engine/pkg/model"
)

const progressItemsColl = "progress_items"

// ProgressRemote implements gamification.ProgressRemoteService against Firestore.
type ProgressRemote struct {
	client *firestore.Client
}

// NewProgressRemote wraps an already-initialized Firestore client.
func NewProgressRemote(client *firestore.Client) *ProgressRemote {
	return &ProgressRemote{client: client}
}

func (r *ProgressRemote) itemsColl(userID, progressKey string) *firestore.CollectionRef {
	return r.client.Collection(progressItemsColl).Doc(userKey(userID, progressKey)).Collection("items")
}

func (r *ProgressRemote) StreamProgressChanges(ctx context.Context, userID, progressKey string) (<-chan gamification.ProgressChangeEvent, error) {
	out := make(chan gamification.ProgressChangeEvent)
	iter := r.itemsColl(userID, progressKey).Snapshots(ctx)
	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				out <- gamification.ProgressChangeEvent{Err: err}
				return
			}
			for _, change := range snap.Changes {
				if change.Kind == firestore.DocumentRemoved {
					out <- gamification.ProgressChangeEvent{Deleted: true, ID: change.Doc.Ref.ID}
					continue
				}
				var doc progressItemDoc
				if err := change.Doc.DataTo(&doc); err != nil {
					out <- gamification.ProgressChangeEvent{Err: fmt.Errorf("decode progress item %s: %w", change.Doc.Ref.ID, err)}
					continue
				}
				item, err := progressItemFromDoc(doc)
				if err != nil {
					out <- gamification.ProgressChangeEvent{Err: err}
					continue
				}
				item.ProgressKey = progressKey
				out <- gamification.ProgressChangeEvent{Item: item}
			}
		}
	}()
	return out, nil
}

func (r *ProgressRemote) ListProgressItems(ctx context.Context, userID, progressKey string) ([]model.ProgressItem, error) {
	iter := r.itemsColl(userID, progressKey).Documents(ctx)
	defer iter.Stop()

	var items []model.ProgressItem
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc progressItemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode progress item %s: %w", snap.Ref.ID, err)
		}
		item, err := progressItemFromDoc(doc)
		if err != nil {
			return nil, err
		}
		item.ProgressKey = progressKey
		items = append(items, item)
	}
	return items, nil
}

func (r *ProgressRemote) UpsertProgressItem(ctx context.Context, userID string, item model.ProgressItem) error {
	_, err := r.itemsColl(userID, item.ProgressKey).Doc(item.ID).Set(ctx, progressItemToDoc(item))
	return err
}

func (r *ProgressRemote) DeleteProgressItem(ctx context.Context, userID, progressKey, id string) error {
	_, err := r.itemsColl(userID, progressKey).Doc(id).Delete(ctx)
	return err
}

func (r *ProgressRemote) DeleteAllProgressItems(ctx context.Context, userID, progressKey string) error {
	return deleteAllDocs(ctx, r.client, r.itemsColl(userID, progressKey))
}
