package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fct/fct/backend/go-services/internal/objectid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-process collection used by tests and when no database is
// configured. Documents are kept BSON-encoded so reads observe the same value
// normalization as MongoDB (millisecond timestamps, driver types in records).
type MemoryStore struct {
	mu      sync.RWMutex
	name    string
	indexes []Index
	docs    map[objectid.ID]bson.Raw
	order   []objectid.ID
}

func NewMemoryStore(name string, indexes ...Index) *MemoryStore {
	return &MemoryStore{name: name, indexes: indexes, docs: make(map[objectid.ID]bson.Raw)}
}

func (m *MemoryStore) Collection() string { return m.name }

func (m *MemoryStore) Find(ctx context.Context, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Record{}
	for _, id := range m.order {
		rec, err := decode(m.docs[id])
		if err != nil {
			return nil, err
		}
		if matches(rec, terms) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id objectid.ID) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return decode(raw)
}

func (m *MemoryStore) Insert(ctx context.Context, doc Record) (objectid.ID, error) {
	if err := ctx.Err(); err != nil {
		return objectid.Nil, err
	}
	id, doc, err := withID(doc)
	if err != nil {
		return objectid.Nil, err
	}
	raw, rec, err := normalize(doc)
	if err != nil {
		return objectid.Nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; exists {
		return objectid.Nil, m.duplicate("_id_", fmt.Sprintf("_id: ObjectId('%s')", id))
	}
	if err := m.checkUnique(id, rec); err != nil {
		return objectid.Nil, err
	}
	m.docs[id] = raw
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryStore) Update(ctx context.Context, id objectid.ID, set Record) error {
	return m.write(ctx, id, func(cur Record) Record {
		for k, v := range withoutID(set) {
			cur[k] = v
		}
		return cur
	})
}

func (m *MemoryStore) Replace(ctx context.Context, id objectid.ID, doc Record) error {
	return m.write(ctx, id, func(Record) Record {
		out := withoutID(doc)
		out[IDField] = id
		return out
	})
}

func (m *MemoryStore) Delete(ctx context.Context, id objectid.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	for i, cur := range m.order {
		if cur == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) write(ctx context.Context, id objectid.ID, apply func(Record) Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	cur, err := decode(raw)
	if err != nil {
		return err
	}
	next, rec, err := normalize(apply(cur))
	if err != nil {
		return err
	}
	if err := m.checkUnique(id, rec); err != nil {
		return err
	}
	m.docs[id] = next
	return nil
}

func (m *MemoryStore) checkUnique(self objectid.ID, rec Record) error {
	for _, idx := range m.indexes {
		if !idx.Unique {
			continue
		}
		for _, id := range m.order {
			if id == self {
				continue
			}
			other, err := decode(m.docs[id])
			if err != nil {
				return err
			}
			if sameKey(idx, rec, other) {
				return m.duplicate(idx.Name(), formatKey(idx, rec))
			}
		}
	}
	return nil
}

func (m *MemoryStore) duplicate(index, key string) error {
	return &DuplicateKeyError{Message: fmt.Sprintf(
		"E11000 duplicate key error collection: memory.%s index: %s dup key: { %s }", m.name, index, key)}
}

func sameKey(idx Index, a, b Record) bool {
	for _, k := range idx.Keys {
		if !equal(a[k], b[k]) {
			return false
		}
	}
	return true
}

func formatKey(idx Index, rec Record) string {
	parts := make([]string, len(idx.Keys))
	for i, k := range idx.Keys {
		switch v := rec[k].(type) {
		case string:
			parts[i] = fmt.Sprintf("%s: %q", k, v)
		case nil:
			parts[i] = k + ": null"
		default:
			parts[i] = fmt.Sprintf("%s: %v", k, v)
		}
	}
	return strings.Join(parts, ", ")
}

func matches(rec Record, terms Filter) bool {
	for _, t := range terms {
		v, ok := rec[t.Field]
		switch t.Op {
		case OpContains:
			s, isStr := v.(string)
			sub, _ := t.Value.(string)
			if !ok || !isStr || !strings.Contains(s, sub) {
				return false
			}
		default:
			if !ok || !equal(v, t.Value) {
				return false
			}
		}
	}
	return true
}

// equal compares decoded values, treating BSON numeric kinds by value like MongoDB does.
func equal(a, b any) bool {
	x, xok := number(a)
	y, yok := number(b)
	if xok && yok {
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// normalizeFilter converts equality values to the representation records decode to.
func normalizeFilter(filter Filter) (Filter, error) {
	out := make(Filter, len(filter))
	for i, t := range filter {
		if t.Op == OpContains {
			if _, ok := t.Value.(string); !ok {
				return nil, fmt.Errorf("contains on %q needs a string, got %T", t.Field, t.Value)
			}
			out[i] = t
			continue
		}
		_, rec, err := normalize(Record{"v": t.Value})
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", t.Field, err)
		}
		out[i] = Term{Field: t.Field, Op: t.Op, Value: rec["v"]}
	}
	return out, nil
}

func normalize(doc Record) (bson.Raw, Record, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	rec, err := decode(raw)
	return raw, rec, err
}

func decode(raw bson.Raw) (Record, error) {
	var rec Record
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
