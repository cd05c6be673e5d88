package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

type mortalityRepo struct{ coll *mongo.Collection }

func (r mortalityRepo) Insert(ctx context.Context, m *models.Mortality) error {
	return insertOne(ctx, r.coll, "insert mortality", "mortality record", m)
}

func (r mortalityRepo) List(ctx context.Context, userID id, batchID *id) ([]models.Mortality, error) {
	return findAll[models.Mortality](ctx, r.coll, "list mortality", ownedBy(userID, batchID), sortBy("date", -1))
}

func (r mortalityRepo) Delete(ctx context.Context, userID, recordID id) error {
	return deleteOne(ctx, r.coll, "delete mortality", "mortality record", owned(userID, recordID))
}

func (r mortalityRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	return deleteMany(ctx, r.coll, "delete batch mortality", ownedBy(userID, &batchID))
}

type eggRepo struct{ coll *mongo.Collection }

func (r eggRepo) Insert(ctx context.Context, e *models.EggLog) error {
	return insertOne(ctx, r.coll, "insert egg log", "egg log", e)
}

func (r eggRepo) List(ctx context.Context, userID id, batchID *id) ([]models.EggLog, error) {
	return findAll[models.EggLog](ctx, r.coll, "list egg logs", ownedBy(userID, batchID), sortBy("date", -1))
}

func (r eggRepo) Delete(ctx context.Context, userID, recordID id) error {
	return deleteOne(ctx, r.coll, "delete egg log", "egg log", owned(userID, recordID))
}

func (r eggRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	return deleteMany(ctx, r.coll, "delete batch egg logs", ownedBy(userID, &batchID))
}

func (r eggRepo) Totals(ctx context.Context, userID id, batchID *id, from, to time.Time) (repository.EggTotals, error) {
	match := ownedBy(userID, batchID)
	match["date"] = bson.M{"$gte": from, "$lt": to}

	pipeline := mongo.Pipeline{
		stage("$match", match),
		stage("$group", bson.M{
			"_id":       nil,
			"collected": bson.M{"$sum": "$collected"},
			"sold":      bson.M{"$sum": "$sold"},
			"spoiled":   bson.M{"$sum": "$spoiled"},
		}),
	}

	var totals repository.EggTotals
	if err := aggregateOne(ctx, r.coll, "sum egg logs", pipeline, &totals); err != nil {
		return repository.EggTotals{}, err
	}
	return totals, nil
}

type feedRepo struct{ coll *mongo.Collection }

func (r feedRepo) Insert(ctx context.Context, f *models.FeedLog) error {
	return insertOne(ctx, r.coll, "insert feed log", "feed log", f)
}

func (r feedRepo) List(ctx context.Context, userID id) ([]models.FeedLog, error) {
	return findAll[models.FeedLog](ctx, r.coll, "list feed logs", bson.M{"user_id": userID}, sortBy("date", -1))
}

func (r feedRepo) Delete(ctx context.Context, userID, recordID id) error {
	return deleteOne(ctx, r.coll, "delete feed log", "feed log", owned(userID, recordID))
}

func (r feedRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	return deleteMany(ctx, r.coll, "delete batch feed logs", ownedBy(userID, &batchID))
}

func (r feedRepo) Stats(ctx context.Context, userID id) (models.FeedStats, error) {
	pipeline := mongo.Pipeline{
		stage("$match", bson.M{"user_id": userID}),
		stage("$group", bson.M{
			"_id":         nil,
			"total_bags":  bson.M{"$sum": "$bags"},
			"total_kg":    bson.M{"$sum": "$total_kg"},
			"total_spent": bson.M{"$sum": "$price"},
		}),
	}

	var stats models.FeedStats
	if err := aggregateOne(ctx, r.coll, "sum feed logs", pipeline, &stats); err != nil {
		return models.FeedStats{}, err
	}
	return stats, nil
}

type incubatorRepo struct{ coll *mongo.Collection }

func (r incubatorRepo) Insert(ctx context.Context, l *models.IncubatorLog) error {
	return insertOne(ctx, r.coll, "insert incubator log", "incubator log", l)
}

func (r incubatorRepo) List(ctx context.Context, userID id, batchID *id) ([]models.IncubatorLog, error) {
	return findAll[models.IncubatorLog](ctx, r.coll, "list incubator logs", ownedBy(userID, batchID), sortBy("date", -1))
}

func (r incubatorRepo) Delete(ctx context.Context, userID, recordID id) error {
	return deleteOne(ctx, r.coll, "delete incubator log", "incubator log", owned(userID, recordID))
}

func (r incubatorRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	return deleteMany(ctx, r.coll, "delete batch incubator logs", ownedBy(userID, &batchID))
}
