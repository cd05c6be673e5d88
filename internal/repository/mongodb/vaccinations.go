package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/repository"
)

type vaccinationRepo struct{ coll *mongo.Collection }

func (r vaccinationRepo) Insert(ctx context.Context, v *models.Vaccination) error {
	return insertOne(ctx, r.coll, "insert vaccination", "vaccination", v)
}

func (r vaccinationRepo) InsertMany(ctx context.Context, vs []models.Vaccination) error {
	if len(vs) == 0 {
		return nil
	}
	docs := make([]interface{}, len(vs))
	for i := range vs {
		docs[i] = vs[i]
	}
	res, err := r.coll.InsertMany(ctx, docs)
	if err != nil {
		return wrap("insert vaccinations", "vaccination", err)
	}
	undoInsert(ctx, r.coll, res.InsertedIDs...)
	return nil
}

func (r vaccinationRepo) FindByID(ctx context.Context, userID, vaccinationID id) (*models.Vaccination, error) {
	return findOne[models.Vaccination](ctx, r.coll, "find vaccination", "vaccination", owned(userID, vaccinationID))
}

func (r vaccinationRepo) List(ctx context.Context, userID id, batchID *id) ([]models.Vaccination, error) {
	return findAll[models.Vaccination](ctx, r.coll, "list vaccinations", ownedBy(userID, batchID), sortBy("scheduled_date", -1))
}

func (r vaccinationRepo) Complete(ctx context.Context, userID, vaccinationID id, completedAt time.Time, actualCost *float64) (*models.Vaccination, error) {
	set := bson.M{"completed_date": completedAt, "updated_at": completedAt}
	if actualCost != nil {
		set["actual_cost"] = *actualCost
	}

	return findOneAndUpdate[models.Vaccination](ctx, r.coll, "complete vaccination", "vaccination", owned(userID, vaccinationID), bson.M{"$set": set})
}

func (r vaccinationRepo) Delete(ctx context.Context, userID, vaccinationID id) error {
	return deleteOne(ctx, r.coll, "delete vaccination", "vaccination", owned(userID, vaccinationID))
}

func (r vaccinationRepo) DeleteByBatch(ctx context.Context, userID, batchID id) (int64, error) {
	return deleteMany(ctx, r.coll, "delete batch vaccinations", ownedBy(userID, &batchID))
}

func (r vaccinationRepo) CountByTemplate(ctx context.Context, userID, templateID id) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "vaccine_template_id": templateID})
	if err != nil {
		return 0, apperr.Store("count template vaccinations", err)
	}
	return n, nil
}

func (r vaccinationRepo) ListDue(ctx context.Context, from, to time.Time) ([]models.Vaccination, error) {
	filter := bson.M{
		"scheduled_date": bson.M{"$gte": from, "$lte": to},
		"completed_date": bson.M{"$exists": false},
	}
	return findAll[models.Vaccination](ctx, r.coll, "list due vaccinations", filter, sortBy("scheduled_date", 1))
}

type templateRepo struct{ coll *mongo.Collection }

func (r templateRepo) Insert(ctx context.Context, t *models.VaccineTemplate) error {
	return insertOne(ctx, r.coll, "insert vaccine template", "vaccine template", t)
}

func (r templateRepo) FindByID(ctx context.Context, userID, templateID id) (*models.VaccineTemplate, error) {
	return findOne[models.VaccineTemplate](ctx, r.coll, "find vaccine template", "vaccine template", owned(userID, templateID))
}

func (r templateRepo) ListActive(ctx context.Context, userID id) ([]models.VaccineTemplate, error) {
	return findAll[models.VaccineTemplate](ctx, r.coll, "list vaccine templates",
		bson.M{"user_id": userID, "active": true}, sortBy("age_in_days", 1))
}

func (r templateRepo) FindActiveByIDs(ctx context.Context, userID id, ids []id) ([]models.VaccineTemplate, error) {
	if len(ids) == 0 {
		return []models.VaccineTemplate{}, nil
	}
	filter := bson.M{"user_id": userID, "active": true, "_id": bson.M{"$in": ids}}
	return findAll[models.VaccineTemplate](ctx, r.coll, "find vaccine templates", filter, sortBy("age_in_days", 1))
}

func (r templateRepo) Update(ctx context.Context, userID, templateID id, u repository.TemplateUpdate, updatedAt time.Time) (*models.VaccineTemplate, error) {
	set := bson.M{"updated_at": updatedAt}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.DefaultCost != nil {
		set["default_cost"] = *u.DefaultCost
	}
	if u.AgeInDays != nil {
		set["age_in_days"] = *u.AgeInDays
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Active != nil {
		set["active"] = *u.Active
	}

	return findOneAndUpdate[models.VaccineTemplate](ctx, r.coll, "update vaccine template", "vaccine template", owned(userID, templateID), bson.M{"$set": set})
}

func (r templateRepo) Delete(ctx context.Context, userID, templateID id) error {
	return deleteOne(ctx, r.coll, "delete vaccine template", "vaccine template", owned(userID, templateID))
}
