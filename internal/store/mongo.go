package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fct/fct/backend/go-services/internal/objectid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store over a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore wraps col and creates the given indexes (idempotent on the server).
func NewMongoStore(ctx context.Context, col *mongo.Collection, indexes ...Index) (*MongoStore, error) {
	if len(indexes) > 0 {
		models := make([]mongo.IndexModel, 0, len(indexes))
		for _, idx := range indexes {
			keys := bson.D{}
			for _, k := range idx.Keys {
				keys = append(keys, bson.E{Key: k, Value: 1})
			}
			models = append(models, mongo.IndexModel{
				Keys:    keys,
				Options: options.Index().SetName(idx.Name()).SetUnique(idx.Unique),
			})
		}
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return nil, fmt.Errorf("create indexes on %s: %w", col.Name(), err)
		}
	}
	return &MongoStore{col: col}, nil
}

func (m *MongoStore) Collection() string { return m.col.Name() }

func (m *MongoStore) Find(ctx context.Context, filter Filter) ([]Record, error) {
	q, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	cur, err := m.col.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoStore) FindByID(ctx context.Context, id objectid.ID) (Record, error) {
	var rec Record
	err := m.col.FindOne(ctx, bson.M{IDField: id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (m *MongoStore) Insert(ctx context.Context, doc Record) (objectid.ID, error) {
	id, doc, err := withID(doc)
	if err != nil {
		return objectid.Nil, err
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return objectid.Nil, writeError(err)
	}
	return id, nil
}

func (m *MongoStore) Update(ctx context.Context, id objectid.ID, set Record) error {
	res, err := m.col.UpdateOne(ctx, bson.M{IDField: id}, bson.M{"$set": withoutID(set)})
	if err != nil {
		return writeError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Replace(ctx context.Context, id objectid.ID, doc Record) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{IDField: id}, withoutID(doc))
	if err != nil {
		return writeError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, id objectid.ID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return writeError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// writeError separates unique index violations from other write failures.
func writeError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &DuplicateKeyError{Message: err.Error()}
	}
	return err
}

// mongoFilter translates terms to a query document. A single term stays a plain
// field match; several are combined with $and so repeated fields all apply.
func mongoFilter(filter Filter) (bson.M, error) {
	clauses := make([]bson.M, 0, len(filter))
	for _, t := range filter {
		switch t.Op {
		case OpContains:
			s, ok := t.Value.(string)
			if !ok {
				return nil, fmt.Errorf("contains on %q needs a string, got %T", t.Field, t.Value)
			}
			clauses = append(clauses, bson.M{t.Field: primitive.Regex{Pattern: regexp.QuoteMeta(s)}})
		default:
			clauses = append(clauses, bson.M{t.Field: t.Value})
		}
	}
	switch len(clauses) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauses[0], nil
	}
	and := make(bson.A, len(clauses))
	for i, c := range clauses {
		and[i] = c
	}
	return bson.M{"$and": and}, nil
}
