package store

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Live queries ride on change
// streams: every matching change triggers a re-query that is delivered as a
// full snapshot, and createdAt-style fields are stamped server side with
// $currentDate so client clocks never leak into the data.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB")
	return &MongoStore{db: client.Database(dbName)}, nil
}

// splitTimestamps separates regular fields from the ones carrying the
// ServerTimestamp marker, which become a $currentDate clause.
func splitTimestamps(fields map[string]any) (set bson.M, current bson.M) {
	set = bson.M{}
	current = bson.M{}
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			current[k] = true
			continue
		}
		set[k] = v
	}
	return set, current
}

func (s *MongoStore) upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	set, current := splitTimestamps(fields)
	update := bson.M{"$set": set}
	if len(current) > 0 {
		update["$currentDate"] = current
	}
	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()
	if err := s.upsert(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) UpsertDocument(ctx context.Context, collection string, id string, fields map[string]any) error {
	return s.upsert(ctx, collection, id, fields)
}

func (s *MongoStore) DeleteDocument(ctx context.Context, collection string, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) AtomicIncrement(ctx context.Context, collection string, id, field string, delta int64) error {
	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: delta}},
	)
	return err
}

func (s *MongoStore) GetDocument(ctx context.Context, collection string, id string) (Document, bool, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	return docFromBSON(raw), true, nil
}

func (s *MongoStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	cursor, err := s.db.Collection(collection).Find(
		ctx,
		filterToBSON(filter),
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, docFromBSON(raw))
	}
	return docs, cursor.Err()
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string, filter Filter) (*Subscription, error) {
	streamCtx, stop := context.WithCancel(ctx)
	stream, err := s.db.Collection(collection).Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		stop()
		return nil, err
	}

	sub := newSubscription(16, stop)

	go func() {
		defer close(sub.ch)
		defer stream.Close(context.Background())

		s.requery(streamCtx, collection, filter, sub)
		for stream.Next(streamCtx) {
			s.requery(streamCtx, collection, filter, sub)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			deliver(sub.ch, Snapshot{Err: err})
		}
	}()

	return sub, nil
}

func (s *MongoStore) requery(ctx context.Context, collection string, filter Filter, sub *Subscription) {
	docs, err := s.QueryDocuments(ctx, collection, filter)
	if err != nil {
		if ctx.Err() == nil {
			deliver(sub.ch, Snapshot{Err: err})
		}
		return
	}
	deliver(sub.ch, Snapshot{Docs: docs})
}

func filterToBSON(filter Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	return out
}

func docFromBSON(raw bson.M) Document {
	doc := Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			if id, ok := v.(string); ok {
				doc.ID = id
			} else if oid, ok := v.(primitive.ObjectID); ok {
				doc.ID = oid.Hex()
			}
			continue
		}
		doc.Fields[k] = fromBSONValue(v)
	}
	return doc
}

func fromBSONValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSONValue(e)
		}
		return out
	default:
		return v
	}
}
