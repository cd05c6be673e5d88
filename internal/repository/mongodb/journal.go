package mongodb

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
)

// journal collects compensating writes for a WithTransaction call when multi-document
// transactions are disabled. Steps run newest first when the callback fails.
type journal struct {
	mu    sync.Mutex
	steps []func(ctx context.Context) error
}

type journalKey struct{}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

func (j *journal) add(step func(ctx context.Context) error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, step)
}

// rollback runs every step even when one fails.
func (j *journal) rollback(ctx context.Context) error {
	j.mu.Lock()
	steps := j.steps
	j.steps = nil
	j.mu.Unlock()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// undoInsert registers removal of freshly inserted documents.
func undoInsert(ctx context.Context, coll *mongo.Collection, ids ...interface{}) {
	j := journalFrom(ctx)
	if j == nil || len(ids) == 0 {
		return
	}
	j.add(func(ctx context.Context) error {
		_, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		return err
	})
}

// snapshot saves the documents matching filter so a failed call can put them back as they were.
// It covers updates and deletes alike.
func snapshot(ctx context.Context, coll *mongo.Collection, op string, filter any) error {
	j := journalFrom(ctx)
	if j == nil {
		return nil
	}
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return apperr.Store(op, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return apperr.Store(op, err)
	}
	if len(docs) == 0 {
		return nil
	}
	j.add(func(ctx context.Context) error {
		for _, doc := range docs {
			if _, err := coll.ReplaceOne(ctx, bson.M{"_id": doc["_id"]}, doc, options.Replace().SetUpsert(true)); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}
