package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

type batchRepo struct{ coll *mongo.Collection }

func (r batchRepo) Insert(ctx context.Context, b *models.Batch) error {
	res, err := r.coll.InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("batch code %s is already in use", b.BatchCode)
	}
	if err != nil {
		return wrap("insert batch", "batch", err)
	}
	undoInsert(ctx, r.coll, res.InsertedID)
	return nil
}

func (r batchRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"batch_code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Store("count batch codes", err)
	}
	return n > 0, nil
}

func (r batchRepo) FindByID(ctx context.Context, userID, batchID id) (*models.Batch, error) {
	return findOne[models.Batch](ctx, r.coll, "find batch", "batch", owned(userID, batchID))
}

func (r batchRepo) List(ctx context.Context, userID id) ([]models.Batch, error) {
	return findAll[models.Batch](ctx, r.coll, "list batches", bson.M{"user_id": userID}, sortBy("start_date", -1))
}

func (r batchRepo) Update(ctx context.Context, userID, batchID id, u repository.BatchUpdate, updatedAt time.Time) (*models.Batch, error) {
	set := bson.M{"updated_at": updatedAt}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Breed != nil {
		set["breed"] = *u.Breed
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Archived != nil {
		set["archived"] = *u.Archived
	}
	if u.MaleCount != nil {
		set["male_count"] = *u.MaleCount
	}
	if u.FemaleCount != nil {
		set["female_count"] = *u.FemaleCount
	}

	return findOneAndUpdate[models.Batch](ctx, r.coll, "update batch", "batch", owned(userID, batchID), bson.M{"$set": set})
}

// AdjustSize applies the delta server-side with an update pipeline so concurrent adjustments never lose writes.
func (r batchRepo) AdjustSize(ctx context.Context, userID, batchID id, delta int, updatedAt time.Time) (*models.Batch, error) {
	pipeline := mongo.Pipeline{
		stage("$set", bson.D{
			{Key: "current_size", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$add", Value: bson.A{"$current_size", delta}}},
			}}}},
			{Key: "updated_at", Value: updatedAt},
		}),
	}

	return findOneAndUpdate[models.Batch](ctx, r.coll, "adjust batch size", "batch", owned(userID, batchID), pipeline)
}

func (r batchRepo) Delete(ctx context.Context, userID, batchID id) error {
	return deleteOne(ctx, r.coll, "delete batch", "batch", owned(userID, batchID))
}
