// Package store is the boundary to the document database. A Store is scoped to one
// collection and speaks in loosely typed records; typing happens in the repository.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fct/fct/backend/go-services/internal/objectid"
	"go.mongodb.org/mongo-driver/bson"
)

// IDField is the primary key attribute of every stored record.
const IDField = "_id"

// Record is a stored document's attributes.
type Record = bson.M

var ErrNotFound = errors.New("document not found")

// DuplicateKeyError reports a unique index violation. Message is the store's text,
// which for MongoDB is the E11000 message naming the conflicting key.
type DuplicateKeyError struct {
	Message string
}

func (e *DuplicateKeyError) Error() string { return e.Message }

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	var d *DuplicateKeyError
	return errors.As(err, &d)
}

type Op int

const (
	OpEq Op = iota
	OpContains
)

// Term is one field predicate. Terms in a Filter are ANDed.
type Term struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Term { return Term{Field: field, Op: OpEq, Value: v} }

// Contains matches string attributes holding s as a substring (case-sensitive).
func Contains(field, s string) Term { return Term{Field: field, Op: OpContains, Value: s} }

func (t Term) String() string {
	if t.Op == OpContains {
		return fmt.Sprintf("%s contains %q", t.Field, t.Value)
	}
	if s, ok := t.Value.(string); ok {
		return fmt.Sprintf("%s=%q", t.Field, s)
	}
	return fmt.Sprintf("%s=%v", t.Field, t.Value)
}

type Filter []Term

func (f Filter) String() string {
	if len(f) == 0 {
		return "{}"
	}
	parts := make([]string, len(f))
	for i, t := range f {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Index declares an index on a collection.
type Index struct {
	Keys   []string
	Unique bool
}

// Name follows MongoDB's default naming, e.g. "name_1".
func (i Index) Name() string {
	parts := make([]string, len(i.Keys))
	for n, k := range i.Keys {
		parts[n] = k + "_1"
	}
	return strings.Join(parts, "_")
}

// Store is the set of operations the repository needs from a document database.
type Store interface {
	Collection() string
	Find(ctx context.Context, filter Filter) ([]Record, error)
	FindByID(ctx context.Context, id objectid.ID) (Record, error)
	// Insert persists doc, generating the primary key when doc has none.
	Insert(ctx context.Context, doc Record) (objectid.ID, error)
	// Update sets the given attributes, leaving the others untouched.
	Update(ctx context.Context, id objectid.ID, set Record) error
	// Replace swaps every attribute except the primary key.
	Replace(ctx context.Context, id objectid.ID, doc Record) error
	Delete(ctx context.Context, id objectid.ID) error
}

// withID returns a copy of doc carrying a primary key, generating one when absent.
func withID(doc Record) (objectid.ID, Record, error) {
	out := make(Record, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	raw, ok := doc[IDField]
	if !ok || raw == nil {
		id := objectid.New()
		out[IDField] = id
		return id, out, nil
	}
	id, err := objectid.Parse(raw)
	if err != nil {
		return objectid.Nil, nil, err
	}
	out[IDField] = id
	return id, out, nil
}

// withoutID returns a copy of doc without its primary key.
func withoutID(doc Record) Record {
	out := make(Record, len(doc))
	for k, v := range doc {
		if k != IDField {
			out[k] = v
		}
	}
	return out
}
