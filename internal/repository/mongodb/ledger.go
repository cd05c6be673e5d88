package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
)

type transactionRepo struct{ coll *mongo.Collection }

// transactionQuery translates a filter into a Mongo query; it mirrors models.TransactionFilter.Matches.
func transactionQuery(userID id, f models.TransactionFilter) bson.M {
	q := bson.M{"user_id": userID}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.BatchID != nil {
		q["batch_id"] = *f.BatchID
	}
	date := bson.M{}
	if !f.From.IsZero() {
		date["$gte"] = f.From
	}
	if !f.To.IsZero() {
		date["$lte"] = f.To
	}
	if len(date) > 0 {
		q["date"] = date
	}
	return q
}

func (r transactionRepo) Insert(ctx context.Context, t *models.Transaction) error {
	return insertOne(ctx, r.coll, "insert transaction", "transaction", t)
}

func (r transactionRepo) List(ctx context.Context, userID id, f models.TransactionFilter) ([]models.Transaction, error) {
	opts := sortBy("date", -1)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return findAll[models.Transaction](ctx, r.coll, "list transactions", transactionQuery(userID, f), opts)
}

func (r transactionRepo) Delete(ctx context.Context, userID, txID id) error {
	return deleteOne(ctx, r.coll, "delete transaction", "transaction", owned(userID, txID))
}

func (r transactionRepo) SumByType(ctx context.Context, userID id, f models.TransactionFilter) ([]models.TypeTotal, error) {
	pipeline := mongo.Pipeline{
		stage("$match", transactionQuery(userID, f)),
		stage("$group", bson.M{"_id": "$type", "total": bson.M{"$sum": "$amount"}}),
		stage("$sort", bson.D{{Key: "_id", Value: 1}}),
	}
	return aggregateAll[models.TypeTotal](ctx, r.coll, "sum transactions by type", pipeline)
}

func (r transactionRepo) SumByCategory(ctx context.Context, userID id, f models.TransactionFilter) ([]models.CategoryTotal, error) {
	pipeline := mongo.Pipeline{
		stage("$match", transactionQuery(userID, f)),
		stage("$group", bson.M{
			"_id":   bson.M{"type": "$type", "category": "$category"},
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}),
		stage("$project", bson.M{
			"_id":      0,
			"type":     "$_id.type",
			"category": "$_id.category",
			"total":    1,
			"count":    1,
		}),
		stage("$sort", bson.D{{Key: "total", Value: -1}, {Key: "category", Value: 1}}),
	}
	return aggregateAll[models.CategoryTotal](ctx, r.coll, "sum transactions by category", pipeline)
}

func (r transactionRepo) SumByMonth(ctx context.Context, userID id, f models.TransactionFilter, loc *time.Location) ([]models.MonthTotal, error) {
	dateIn := bson.M{"date": "$date", "timezone": timezoneFor(loc, f.From)}

	pipeline := mongo.Pipeline{
		stage("$match", transactionQuery(userID, f)),
		stage("$group", bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": dateIn},
				"month": bson.M{"$month": dateIn},
				"type":  "$type",
			},
			"total": bson.M{"$sum": "$amount"},
		}),
		stage("$project", bson.M{
			"_id":   0,
			"year":  "$_id.year",
			"month": "$_id.month",
			"type":  "$_id.type",
			"total": 1,
		}),
		stage("$sort", bson.D{{Key: "year", Value: 1}, {Key: "month", Value: 1}, {Key: "type", Value: 1}}),
	}
	return aggregateAll[models.MonthTotal](ctx, r.coll, "sum transactions by month", pipeline)
}

// timezoneFor names loc for date operators. Unnamed zones (time.Local) fall back to the
// UTC offset in effect at the given instant.
func timezoneFor(loc *time.Location, at time.Time) string {
	if loc == nil {
		return "UTC"
	}
	if name := loc.String(); name != "Local" && name != "" {
		return name
	}
	if at.IsZero() {
		at = time.Now()
	}
	return at.In(loc).Format("-07:00")
}

type notificationRepo struct{ coll *mongo.Collection }

func (r notificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	return insertOne(ctx, r.coll, "insert notification", "notification", n)
}

func (r notificationRepo) ExistsSince(ctx context.Context, userID, relatedID id, since time.Time) (bool, error) {
	filter := bson.M{
		"user_id":    userID,
		"related.id": relatedID,
		"created_at": bson.M{"$gte": since},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Store("count notifications", err)
	}
	return n > 0, nil
}

func (r notificationRepo) List(ctx context.Context, userID id, unreadOnly bool, limit int) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}
	opts := sortBy("created_at", -1)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Notification](ctx, r.coll, "list notifications", filter, opts)
}

func (r notificationRepo) CountUnread(ctx context.Context, userID id) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	if err != nil {
		return 0, apperr.Store("count unread notifications", err)
	}
	return n, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, userID, notificationID id) (*models.Notification, error) {
	return findOneAndUpdate[models.Notification](ctx, r.coll, "mark notification read", "notification", owned(userID, notificationID), bson.M{"$set": bson.M{"read": true}})
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID id) (int64, error) {
	filter := bson.M{"user_id": userID, "read": false}
	if err := snapshot(ctx, r.coll, "mark notifications read", filter); err != nil {
		return 0, err
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, apperr.Store("mark notifications read", err)
	}
	return res.ModifiedCount, nil
}

type userRepo struct{ coll *mongo.Collection }

func (r userRepo) FindByID(ctx context.Context, userID id) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, "find user", "user", bson.M{"_id": userID})
}
