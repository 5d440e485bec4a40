package store

import (
	"context"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// DefaultMongoDatabase is used when the URI names no database.
const DefaultMongoDatabase = "hlsched"

// MongoStore implements [Store] on a MongoDB collection named "runs".
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
	logger *log.Logger
}

// NewMongoStore connects to uri, pings the primary and ensures the
// (dfg, variant) and created_at indexes exist.
func NewMongoStore(ctx context.Context, uri, database string, logger *log.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}

	s := &MongoStore{
		client: client,
		runs:   client.Database(database).Collection("runs"),
		logger: logger.With("component", "store"),
	}
	_, err = s.runs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "dfg", Value: 1}, {Key: "variant", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create indexes")
	}
	return s, nil
}

// SaveRun inserts r, assigning an ID and timestamp when missing.
func (s *MongoStore) SaveRun(ctx context.Context, r *Run) error {
	if err := prepare(r); err != nil {
		return err
	}
	s.logger.Debug("mongo", "op", "insert", "collection", "runs", "id", r.ID)
	if _, err := s.runs.InsertOne(ctx, r); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert run %s", r.ID)
	}
	return nil
}

// ListRuns returns runs matching f, newest first.
func (s *MongoStore) ListRuns(ctx context.Context, f Filter) ([]*Run, error) {
	f.Clamp()
	s.logger.Debug("mongo", "op", "find", "collection", "runs", "dfg", f.DFG, "variant", f.Variant, "limit", f.Limit)

	cur, err := s.runs.Find(ctx, mongoFilter(f), options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(f.Limit)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "find runs")
	}
	var runs []*Run
	if err := cur.All(ctx, &runs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode runs")
	}
	return runs, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func mongoFilter(f Filter) bson.D {
	d := bson.D{}
	if f.DFG != "" {
		d = append(d, bson.E{Key: "dfg", Value: f.DFG})
	}
	if f.Variant != "" {
		d = append(d, bson.E{Key: "variant", Value: f.Variant})
	}
	if f.Status != "" {
		d = append(d, bson.E{Key: "status", Value: string(f.Status)})
	}
	return d
}

var _ Store = (*MongoStore)(nil)
