package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo keeps one mongo collection per logical collection; each document is
// the envelope {_id, version, data} with data holding the record's JSON text.
// Conditional replacement filters on both _id and version, so a concurrent
// writer turns the update into a zero-match — reported as ErrVersionConflict.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoRecord struct {
	ID      string `bson:"_id"`
	Version int64  `bson:"version"`
	Data    string `bson:"data"`
}

var _ Store = (*Mongo)(nil)

// NewMongo connects and pings the deployment before returning the store.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if database == "" {
		database = "sellsmart"
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (s *Mongo) Get(ctx context.Context, collection, id string, out any) (int64, error) {
	var rec mongoRecord
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(rec.Data), out); err != nil {
		return 0, err
	}
	return rec.Version, nil
}

func (s *Mongo) Put(ctx context.Context, collection, id string, doc any, expectedVersion int64) (int64, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	next := expectedVersion + 1
	col := s.db.Collection(collection)

	if expectedVersion == VersionNew {
		_, err := col.InsertOne(ctx, mongoRecord{ID: id, Version: next, Data: string(data)})
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrVersionConflict
		}
		if err != nil {
			return 0, err
		}
		return next, nil
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{"$set": bson.M{"version": next, "data": string(data)}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *Mongo) List(ctx context.Context, collection, prefix string, fn func(id string, raw json.RawMessage) error) error {
	filter := bson.M{}
	if prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	cur, err := s.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var rec mongoRecord
		if err := cur.Decode(&rec); err != nil {
			return err
		}
		if err := fn(rec.ID, json.RawMessage(rec.Data)); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *Mongo) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
