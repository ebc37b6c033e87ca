package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ararat/reports/internal/config"
)

// MongoStore reads collections from a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.MongoURI)
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		db:     client.Database(cfg.MongoDatabase),
		log:    log.With().Str("store", "mongo").Logger(),
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("database", cfg.MongoDatabase).Msg("Mongo store initialized")
	return s, nil
}

// Query implements RecordStore.
func (s *MongoStore) Query(ctx context.Context, q Query) ([]Document, error) {
	cur, err := s.db.Collection(q.Collection).Find(ctx, buildMongoFilter(q))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", q.Collection, err)
		}
		id := mongoID(raw["_id"])
		delete(raw, "_id")
		docs = append(docs, Document{ID: id, Fields: map[string]any(raw)})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error on %s: %w", q.Collection, err)
	}

	s.log.Debug().Str("collection", q.Collection).Int("count", len(docs)).Msg("Query completed")
	return docs, nil
}

// Ping implements RecordStore.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

// Close implements RecordStore.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// buildMongoFilter translates a Query into a bson filter. Date fields may be
// stored either as ISO strings or as BSON dates, so the range matches both.
func buildMongoFilter(q Query) bson.M {
	filter := bson.M{}
	for _, field := range q.EqualKeys() {
		filter[field] = q.Equals[field]
	}

	if q.Range.Empty() {
		return filter
	}

	lower, upper := q.Range.Bounds()
	strRange := bson.M{}
	if lower != "" {
		strRange["$gte"] = lower
	}
	if upper != "" {
		strRange["$lt"] = upper
	}

	lowerT, upperT := q.Range.TimeBounds()
	timeRange := bson.M{}
	if lowerT != nil {
		timeRange["$gte"] = primitive.NewDateTimeFromTime(*lowerT)
	}
	if upperT != nil {
		timeRange["$lt"] = primitive.NewDateTimeFromTime(*upperT)
	}

	filter["$or"] = bson.A{
		bson.M{q.Range.Field: strRange},
		bson.M{q.Range.Field: timeRange},
	}
	return filter
}

func mongoID(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
