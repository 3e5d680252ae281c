package service

import (
	"context"
	"testing"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"github.com/fct/fct/backend/go-services/internal/repository"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/stretchr/testify/require"
)

type item struct{ Name string }

type fields map[string]any

func (f fields) SetFields() map[string]any { return f }

// fakeRepo records the last call it received.
type fakeRepo struct {
	calls []string
	id    string
	attr  string
	value any
	terms []store.Term
	err   error
}

func (f *fakeRepo) result(call string) (*item, error) {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return &item{Name: call}, nil
}

func (f *fakeRepo) FindMany(_ context.Context, _ repository.Schema, terms ...store.Term) ([]item, error) {
	f.terms = terms
	it, err := f.result("find_many")
	if err != nil {
		return nil, err
	}
	return []item{*it}, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*item, error) {
	f.id = id
	return f.result("find_by_id")
}

func (f *fakeRepo) Create(context.Context, repository.Schema) (*item, error) {
	return f.result("create")
}

func (f *fakeRepo) Update(_ context.Context, id string, _ repository.Schema) (*item, error) {
	f.id = id
	return f.result("update")
}

func (f *fakeRepo) UpdateAttr(_ context.Context, id, attr string, value any) (*item, error) {
	f.id, f.attr, f.value = id, attr, value
	return f.result("update_attr")
}

func (f *fakeRepo) WholeUpdate(_ context.Context, id string, _ repository.Schema) (*item, error) {
	f.id = id
	return f.result("whole_update")
}

func (f *fakeRepo) DeleteByID(_ context.Context, id string) (*item, error) {
	f.id = id
	return f.result("delete")
}

func TestServiceForwards(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := New[item](repo)

	list, err := svc.List(ctx, fields{"name": "A"}, store.Contains("name", "x"))
	require.NoError(t, err)
	require.Equal(t, []item{{Name: "find_many"}}, list)
	require.Len(t, repo.terms, 1)

	got, err := svc.GetByID(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "find_by_id", got.Name)
	require.Equal(t, "abc", repo.id)

	_, err = svc.Add(ctx, fields{})
	require.NoError(t, err)
	_, err = svc.Patch(ctx, "p", fields{})
	require.NoError(t, err)
	require.Equal(t, "p", repo.id)
	_, err = svc.PatchAttr(ctx, "q", "width", 3.0)
	require.NoError(t, err)
	require.Equal(t, "width", repo.attr)
	require.Equal(t, 3.0, repo.value)
	_, err = svc.PutUpdate(ctx, "r", fields{})
	require.NoError(t, err)
	_, err = svc.DeleteByID(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, "s", repo.id)

	require.Equal(t, []string{"find_many", "find_by_id", "create", "update", "update_attr", "whole_update", "delete"}, repo.calls)
}

func TestServicePassesErrorsThrough(t *testing.T) {
	want := apperrors.NotFound("gone")
	svc := New[item](&fakeRepo{err: want})
	_, err := svc.GetByID(context.Background(), "x")
	require.Same(t, want, err)
	_, err = svc.List(context.Background(), nil)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestServiceOverRepository(t *testing.T) {
	st := store.NewMemoryStore("items")
	svc := New[item](repository.New[item](st))
	got, err := svc.Add(context.Background(), fields{"name": "A"})
	require.NoError(t, err)
	require.Equal(t, "A", got.Name)
}
