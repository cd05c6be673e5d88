package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/repository"
)

// Collection names.
const (
	collBatches       = "batches"
	collMortality     = "mortality"
	collEggs          = "egg_logs"
	collFeed          = "feed_logs"
	collIncubator     = "incubator_logs"
	collVaccinations  = "vaccinations"
	collTemplates     = "vaccine_templates"
	collTransactions  = "transactions"
	collNotifications = "notifications"
	collUsers         = "users"
)

type id = repository.ID

// Options tunes the store.
type Options struct {
	// Transactions enables multi-document transactions. Standalone servers do not support them;
	// without them WithTransaction undoes the writes of a failed call instead.
	Transactions bool
}

// Store implements repository.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	opts   Options
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, dbName string, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(dbName),
		opts:   opts,
		logger: logger,
	}, nil
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	byOwnerDate := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: field, Value: -1}}}
	}
	byBatch := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "batch_id", Value: 1}}}

	indexes := map[string][]mongo.IndexModel{
		collBatches: {
			{Keys: bson.D{{Key: "batch_code", Value: 1}}, Options: options.Index().SetUnique(true)},
			byOwnerDate("start_date"),
		},
		collMortality: {byBatch, byOwnerDate("date")},
		collEggs:      {byBatch, byOwnerDate("date")},
		collFeed:      {byBatch, byOwnerDate("date")},
		collIncubator: {byBatch, byOwnerDate("date")},
		collVaccinations: {
			byBatch,
			{Keys: bson.D{{Key: "scheduled_date", Value: 1}, {Key: "completed_date", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "vaccine_template_id", Value: 1}}},
		},
		collTemplates:    {{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "active", Value: 1}, {Key: "age_in_days", Value: 1}}}},
		collTransactions: {byOwnerDate("date"), {Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "batch_id", Value: 1}}}},
		collNotifications: {
			byOwnerDate("created_at"),
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "related.id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for coll, specs := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
		s.logger.Debug("indexes ensured", zap.String("collection", coll), zap.Int("count", len(specs)))
	}
	return nil
}

// WithTransaction runs fn inside a session transaction. The session context is passed to fn as ctx,
// so every repository call made with it joins the transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.opts.Transactions {
		return s.withJournal(ctx, fn)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return apperr.Store("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Store("transaction", err)
	}
	return nil
}

// withJournal stands in for a transaction on servers without one: writes made by fn record how
// to undo themselves, and a failing fn rolls them back. Nested calls join the outer journal.
func (s *Store) withJournal(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}
	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		return nil
	}
	if rbErr := j.rollback(context.WithoutCancel(ctx)); rbErr != nil {
		s.logger.Error("failed to undo partial writes", zap.Error(rbErr), zap.NamedError("cause", err))
	}
	return err
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Batches() repository.BatchRepository { return batchRepo{s.db.Collection(collBatches)} }
func (s *Store) Mortality() repository.MortalityRepository {
	return mortalityRepo{s.db.Collection(collMortality)}
}
func (s *Store) Eggs() repository.EggRepository { return eggRepo{s.db.Collection(collEggs)} }
func (s *Store) Feed() repository.FeedRepository { return feedRepo{s.db.Collection(collFeed)} }
func (s *Store) Incubator() repository.IncubatorRepository {
	return incubatorRepo{s.db.Collection(collIncubator)}
}
func (s *Store) Vaccinations() repository.VaccinationRepository {
	return vaccinationRepo{s.db.Collection(collVaccinations)}
}
func (s *Store) Templates() repository.TemplateRepository {
	return templateRepo{s.db.Collection(collTemplates)}
}
func (s *Store) Transactions() repository.TransactionRepository {
	return transactionRepo{s.db.Collection(collTransactions)}
}
func (s *Store) Notifications() repository.NotificationRepository {
	return notificationRepo{s.db.Collection(collNotifications)}
}
func (s *Store) Users() repository.UserRepository { return userRepo{s.db.Collection(collUsers)} }

// wrap maps driver errors onto the application taxonomy.
func wrap(op, entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(entity)
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict("%s already exists", entity)
	default:
		return apperr.Store(op, err)
	}
}

func owned(userID, docID id) bson.M {
	return bson.M{"_id": docID, "user_id": userID}
}

func ownedBy(userID id, batchID *id) bson.M {
	filter := bson.M{"user_id": userID}
	if batchID != nil {
		filter["batch_id"] = *batchID
	}
	return filter
}

func sortBy(field string, dir int) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: dir}})
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, op string, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, op, entity string, filter any) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, wrap(op, entity, err)
	}
	return &out, nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, op, entity string, doc any) error {
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return wrap(op, entity, err)
	}
	undoInsert(ctx, coll, res.InsertedID)
	return nil
}

func findOneAndUpdate[T any](ctx context.Context, coll *mongo.Collection, op, entity string, filter, update any) (*T, error) {
	if err := snapshot(ctx, coll, op, filter); err != nil {
		return nil, err
	}
	var out T
	err := coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return nil, wrap(op, entity, err)
	}
	return &out, nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, op, entity string, filter any) error {
	if err := snapshot(ctx, coll, op, filter); err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return apperr.Store(op, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

func deleteMany(ctx context.Context, coll *mongo.Collection, op string, filter any) (int64, error) {
	if err := snapshot(ctx, coll, op, filter); err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, apperr.Store(op, err)
	}
	return res.DeletedCount, nil
}

// aggregateOne runs pipeline and decodes its single result into out. An empty result leaves out untouched.
func aggregateOne(ctx context.Context, coll *mongo.Collection, op string, pipeline mongo.Pipeline, out any) error {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return apperr.Store(op, err)
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		if err := cur.Decode(out); err != nil {
			return apperr.Store(op, err)
		}
	}
	if err := cur.Err(); err != nil {
		return apperr.Store(op, err)
	}
	return nil
}

func aggregateAll[T any](ctx context.Context, coll *mongo.Collection, op string, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

func stage(name string, value any) bson.D {
	return bson.D{{Key: name, Value: value}}
}
