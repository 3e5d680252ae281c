package service

import (
	"context"

	"github.com/fct/fct/backend/go-services/internal/repository"
	"github.com/fct/fct/backend/go-services/internal/store"
)

// Repository is the persistence contract a Service forwards to.
type Repository[T any] interface {
	FindMany(ctx context.Context, schema repository.Schema, terms ...store.Term) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, schema repository.Schema) (*T, error)
	Update(ctx context.Context, id string, schema repository.Schema) (*T, error)
	UpdateAttr(ctx context.Context, id, attr string, value any) (*T, error)
	WholeUpdate(ctx context.Context, id string, schema repository.Schema) (*T, error)
	DeleteByID(ctx context.Context, id string) (*T, error)
}

// Service defines the business operations used by the handler layer. Results and
// errors of the repository pass through unchanged.
type Service[T any] struct {
	repo Repository[T]
}

func New[T any](repo Repository[T]) *Service[T] {
	return &Service[T]{repo: repo}
}

func (s *Service[T]) List(ctx context.Context, schema repository.Schema, terms ...store.Term) ([]T, error) {
	return s.repo.FindMany(ctx, schema, terms...)
}

func (s *Service[T]) GetByID(ctx context.Context, id string) (*T, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service[T]) Add(ctx context.Context, schema repository.Schema) (*T, error) {
	return s.repo.Create(ctx, schema)
}

func (s *Service[T]) Patch(ctx context.Context, id string, schema repository.Schema) (*T, error) {
	return s.repo.Update(ctx, id, schema)
}

func (s *Service[T]) PatchAttr(ctx context.Context, id, attr string, value any) (*T, error) {
	return s.repo.UpdateAttr(ctx, id, attr, value)
}

func (s *Service[T]) PutUpdate(ctx context.Context, id string, schema repository.Schema) (*T, error) {
	return s.repo.WholeUpdate(ctx, id, schema)
}

func (s *Service[T]) DeleteByID(ctx context.Context, id string) (*T, error) {
	return s.repo.DeleteByID(ctx, id)
}
