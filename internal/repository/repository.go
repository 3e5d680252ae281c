// Package repository maps partial input schemas onto one document collection and
// normalizes store failures into the apperrors taxonomy.
package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"github.com/fct/fct/backend/go-services/internal/objectid"
	"github.com/fct/fct/backend/go-services/internal/registry"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/fct/fct/backend/go-services/pkg/metrics"
)

// Timestamp attributes maintained on every document.
const (
	CreatedField = "created_date"
	UpdatedField = "updated_date"
)

// Schema is a partial input: SetFields lists only the attributes the caller set,
// keyed by stored attribute name.
type Schema interface {
	SetFields() map[string]any
}

// Completer is implemented by schemas with required attributes. Create and
// WholeUpdate reject a schema whose Missing is non-empty.
type Completer interface {
	Missing() []string
}

// Observer receives one call per repository operation.
type Observer func(collection, operation string, elapsed time.Duration, err error)

type Option func(*options)

type options struct {
	now     func() time.Time
	observe Observer
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithObserver(obs Observer) Option { return func(o *options) { o.observe = obs } }

// WithMetrics reports every operation to the prometheus collectors in pkg/metrics.
func WithMetrics() Option {
	return WithObserver(func(collection, operation string, elapsed time.Duration, err error) {
		status := "ok"
		if err != nil {
			status = apperrors.KindOf(err).String()
		}
		metrics.ObserveRepository(collection, operation, status, elapsed)
	})
}

// Repository is the CRUD contract over the collection held by one store.
type Repository[T any] struct {
	store   store.Store
	now     func() time.Time
	observe Observer
}

func New[T any](st store.Store, opts ...Option) *Repository[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{store: st, now: o.now, observe: o.observe}
}

// Collection is the name of the bound collection.
func (r *Repository[T]) Collection() string { return r.store.Collection() }

// FindMany returns the documents matching the schema's set attributes and the extra
// terms, all ANDed. A query matching nothing is a NotFound error.
func (r *Repository[T]) FindMany(ctx context.Context, schema Schema, terms ...store.Term) (out []T, err error) {
	defer r.track("find_many", time.Now(), &err)
	filter := make(store.Filter, 0, len(terms))
	if schema != nil {
		fields := schema.SetFields()
		for _, k := range sortedKeys(fields) {
			filter = append(filter, store.Eq(k, fields[k]))
		}
	}
	filter = append(filter, terms...)

	recs, err := r.store.Find(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err)
	}
	if len(recs) == 0 {
		return nil, apperrors.NotFoundf("no %s match %s", r.Collection(), filter)
	}
	out = make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := r.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// FindByID fetches one document. The id must be a valid identifier.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (out *T, err error) {
	defer r.track("find_by_id", time.Now(), &err)
	_, rec, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.decode(rec)
}

// Create inserts the schema's set attributes with fresh timestamps and returns the
// document as committed by the store.
func (r *Repository[T]) Create(ctx context.Context, schema Schema) (out *T, err error) {
	defer r.track("create", time.Now(), &err)
	if err := complete(schema); err != nil {
		return nil, err
	}
	doc := store.Record{}
	for k, v := range schema.SetFields() {
		doc[k] = v
	}
	now := r.stamp()
	doc[CreatedField] = now
	doc[UpdatedField] = now

	id, err := r.store.Insert(ctx, doc)
	if err != nil {
		return nil, classify(err)
	}
	return r.reload(ctx, id)
}

// Update sets the schema's set attributes, leaving the rest untouched.
func (r *Repository[T]) Update(ctx context.Context, id string, schema Schema) (out *T, err error) {
	defer r.track("update", time.Now(), &err)
	oid, _, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	set := store.Record{}
	if schema != nil {
		set = patch(schema.SetFields())
	}
	set[UpdatedField] = r.stamp()
	if err := r.store.Update(ctx, oid, set); err != nil {
		return nil, r.writeFailure(oid, err)
	}
	return r.reload(ctx, oid)
}

// UpdateAttr sets a single attribute.
func (r *Repository[T]) UpdateAttr(ctx context.Context, id, attr string, value any) (out *T, err error) {
	defer r.track("update_attr", time.Now(), &err)
	if attr == "" || reserved(attr) {
		return nil, apperrors.Validationf("attribute %q cannot be updated", attr)
	}
	oid, _, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	set := store.Record{attr: value, UpdatedField: r.stamp()}
	if err := r.store.Update(ctx, oid, set); err != nil {
		return nil, r.writeFailure(oid, err)
	}
	return r.reload(ctx, oid)
}

// WholeUpdate replaces the document with the schema's attributes. The schema must
// be complete; the identifier and creation time are carried over.
func (r *Repository[T]) WholeUpdate(ctx context.Context, id string, schema Schema) (out *T, err error) {
	defer r.track("whole_update", time.Now(), &err)
	oid, cur, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := complete(schema); err != nil {
		return nil, err
	}
	doc := patch(schema.SetFields())
	if created, ok := cur[CreatedField]; ok {
		doc[CreatedField] = created
	}
	doc[UpdatedField] = r.stamp()
	if err := r.store.Replace(ctx, oid, doc); err != nil {
		return nil, r.writeFailure(oid, err)
	}
	return r.reload(ctx, oid)
}

// DeleteByID removes the document and returns its last state.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) (out *T, err error) {
	defer r.track("delete", time.Now(), &err)
	oid, rec, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot, err := r.decode(rec)
	if err != nil {
		return nil, err
	}
	if err := r.store.Delete(ctx, oid); err != nil {
		return nil, r.writeFailure(oid, err)
	}
	return snapshot, nil
}

func (r *Repository[T]) fetch(ctx context.Context, id string) (objectid.ID, store.Record, error) {
	oid, err := objectid.Parse(id)
	if err != nil {
		return objectid.Nil, nil, err
	}
	rec, err := r.store.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return objectid.Nil, nil, notFound(oid)
		}
		return objectid.Nil, nil, apperrors.Wrap(apperrors.KindValidation, err)
	}
	return oid, rec, nil
}

func (r *Repository[T]) reload(ctx context.Context, id objectid.ID) (*T, error) {
	rec, err := r.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, apperrors.Wrap(apperrors.KindValidation, err)
	}
	return r.decode(rec)
}

func (r *Repository[T]) decode(rec store.Record) (*T, error) {
	v, err := registry.Convert[T](rec)
	if err != nil {
		return nil, apperrors.Validationf("decode %s document: %v", r.Collection(), err)
	}
	return v, nil
}

func (r *Repository[T]) writeFailure(id objectid.ID, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(id)
	}
	return classify(err)
}

// stamp truncates to the store's millisecond precision so the value written is the
// value read back.
func (r *Repository[T]) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *Repository[T]) track(op string, start time.Time, err *error) {
	if r.observe != nil {
		r.observe(r.Collection(), op, time.Since(start), *err)
	}
}

func notFound(id objectid.ID) error {
	return apperrors.NotFoundf("ObjectId('%s') not found", id)
}

// classify maps a store write failure to Duplicated or Validation.
func classify(err error) error {
	var app *apperrors.Error
	if errors.As(err, &app) {
		return err
	}
	if store.IsDuplicateKey(err) {
		return &apperrors.Error{Kind: apperrors.KindDuplicated, Detail: apperrors.DuplicateDetail(err.Error()), Err: err}
	}
	return apperrors.Wrap(apperrors.KindValidation, err)
}

func complete(schema Schema) error {
	if schema == nil {
		return apperrors.Validation("missing input")
	}
	c, ok := schema.(Completer)
	if !ok {
		return nil
	}
	if missing := c.Missing(); len(missing) > 0 {
		return apperrors.Validationf("missing required attributes: %s", strings.Join(missing, ", "))
	}
	return nil
}

func reserved(attr string) bool {
	return attr == store.IDField || attr == CreatedField || attr == UpdatedField
}

// patch copies fields without the attributes the repository owns.
func patch(fields map[string]any) store.Record {
	out := store.Record{}
	for k, v := range fields {
		if !reserved(k) {
			out[k] = v
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
