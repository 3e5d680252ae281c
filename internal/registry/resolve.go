package registry

import (
	"context"
	"encoding/json"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"github.com/fct/fct/backend/go-services/internal/objectid"
	"github.com/fct/fct/backend/go-services/internal/store"
	"go.mongodb.org/mongo-driver/bson"
)

const unresolved = "could not resolve reference"

// Reference points at a document in another collection. It is stored as a DBRef.
type Reference struct {
	Collection string      `bson:"$ref" json:"collection"`
	ID         objectid.ID `bson:"$id" json:"id"`
}

// Resolve materializes raw as a T.
//
// Already materialized values (T, *T, or a record without $ref) are returned as T.
// References are looked up by collection name; an unknown collection yields
// (nil, nil), while a known collection with a missing or unconvertible document
// yields a resolution error.
func Resolve[T any](ctx context.Context, reg *Registry, raw any) (*T, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case T:
		return &v, nil
	case *T:
		return v, nil
	case Reference:
		return follow[T](ctx, reg, v)
	case *Reference:
		if v == nil {
			return nil, nil
		}
		return follow[T](ctx, reg, *v)
	case store.Record:
		return fromRecord[T](ctx, reg, v)
	case map[string]any:
		return fromRecord[T](ctx, reg, store.Record(v))
	}
	return nil, apperrors.Validationf("unsupported reference value of type %T", raw)
}

func fromRecord[T any](ctx context.Context, reg *Registry, rec store.Record) (*T, error) {
	if _, ok := rec["$ref"]; !ok {
		out, err := Convert[T](rec)
		if err != nil {
			return nil, apperrors.Resolution(unresolved, err)
		}
		return out, nil
	}
	collection, _ := rec["$ref"].(string)
	id, err := objectid.Parse(rec["$id"])
	if err != nil {
		return nil, err
	}
	return follow[T](ctx, reg, Reference{Collection: collection, ID: id})
}

func follow[T any](ctx context.Context, reg *Registry, ref Reference) (*T, error) {
	src, ok := reg.Lookup(ref.Collection)
	if !ok {
		return nil, nil
	}
	rec, err := src.FindByID(ctx, ref.ID)
	if err != nil {
		return nil, apperrors.Resolution(unresolved, err)
	}
	out, err := Convert[T](rec)
	if err != nil {
		return nil, apperrors.Resolution(unresolved, err)
	}
	return out, nil
}

// Convert decodes a stored record into T through its bson mapping.
func Convert[T any](rec store.Record) (*T, error) {
	data, err := bson.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ref is a schema field holding a reference to a T. It is stored as the DBRef
// document and serialized to JSON as the resolved value once Resolve succeeded,
// or as the target id before that.
type Ref[T any] struct {
	Reference
	value *T
}

func NewRef[T any](collection string, id objectid.ID) Ref[T] {
	return Ref[T]{Reference: Reference{Collection: collection, ID: id}}
}

// Resolve materializes the target through reg and keeps it on the field.
func (r *Ref[T]) Resolve(ctx context.Context, reg *Registry) (*T, error) {
	v, err := Resolve[T](ctx, reg, r.Reference)
	if err != nil {
		return nil, err
	}
	r.value = v
	return v, nil
}

// Value returns the materialized target, if any.
func (r Ref[T]) Value() (*T, bool) { return r.value, r.value != nil }

func (r Ref[T]) MarshalBSON() ([]byte, error) { return bson.Marshal(r.Reference) }

func (r *Ref[T]) UnmarshalBSON(data []byte) error {
	var ref Reference
	if err := bson.Unmarshal(data, &ref); err != nil {
		return err
	}
	*r = Ref[T]{Reference: ref}
	return nil
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.value != nil {
		return json.Marshal(r.value)
	}
	return json.Marshal(r.ID)
}
