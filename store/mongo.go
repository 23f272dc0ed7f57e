package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"p9e.in/energydesk/models"
	"p9e.in/energydesk/pkg/records"
)

const collectionName = "client_records"

// recordDocument is the BSON shape of a client record.
type recordDocument struct {
	ID                        primitive.ObjectID `bson:"_id,omitempty"`
	models.ClientRecordFields `bson:",inline"`
	CreatedAt                 time.Time `bson:"createdAt"`
	UpdatedAt                 time.Time `bson:"updatedAt"`
}

// replacement is the $set body of an update; it never touches _id or createdAt.
type replacement struct {
	models.ClientRecordFields `bson:",inline"`
	UpdatedAt                 time.Time `bson:"updatedAt"`
}

func (d recordDocument) toModel() models.ClientRecord {
	return models.ClientRecord{
		ID:                 d.ID.Hex(),
		ClientRecordFields: d.ClientRecordFields,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

// MongoStore keeps client records in a MongoDB collection, identified by
// ObjectIDs rendered as hex strings.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ records.Store = (*MongoStore)(nil)

// DialMongo connects to uri and verifies the primary is reachable.
func DialMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]models.ClientRecord, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.ClientRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec *models.ClientRecord) error {
	doc := recordDocument{
		ClientRecordFields: rec.ClientRecordFields,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	rec.ID = oid.Hex()
	return nil
}

func (s *MongoStore) Replace(ctx context.Context, id string, fields models.ClientRecordFields, updatedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return records.ErrNotFound
	}
	set := replacement{
		ClientRecordFields: fields,
		UpdatedAt:          updatedAt,
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return records.ErrNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}
