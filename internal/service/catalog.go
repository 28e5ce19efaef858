package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validate"
)

// CategoryService manages categories. Reads are public; the route guards
// writes with AdminOrReadOnly.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, name, slug string) (*model.Category, error) {
	if err := checkNameAndSlug(name, slug); err != nil {
		return nil, err
	}

	exists, err := s.repo.CategorySlugExists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("service/category: checking slug: %w", err)
	}
	if exists {
		return nil, apperror.ValidationFailed("slug", "category with this slug already exists.")
	}

	c := &model.Category{Name: name, Slug: slug}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("service/category: creating %q: %w", slug, err)
	}

	s.logger.Info("category created", slog.String("slug", slug))
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, search string, opts repository.ListOptions) (*Page[model.Category], error) {
	items, total, err := s.repo.ListCategories(ctx, search, opts)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing: %w", err)
	}
	return &Page[model.Category]{Count: total, Results: items}, nil
}

func (s *CategoryService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.DeleteCategory(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("category deleted", slog.String("slug", slug))
	return nil
}

// GenreService manages genres.
type GenreService struct {
	repo   repository.GenreRepository
	logger *slog.Logger
}

func NewGenreService(repo repository.GenreRepository, logger *slog.Logger) *GenreService {
	return &GenreService{repo: repo, logger: logger}
}

func (s *GenreService) Create(ctx context.Context, name, slug string) (*model.Genre, error) {
	if err := checkNameAndSlug(name, slug); err != nil {
		return nil, err
	}

	exists, err := s.repo.GenreSlugExists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("service/genre: checking slug: %w", err)
	}
	if exists {
		return nil, apperror.ValidationFailed("slug", "genre with this slug already exists.")
	}

	g := &model.Genre{Name: name, Slug: slug}
	if err := s.repo.CreateGenre(ctx, g); err != nil {
		return nil, fmt.Errorf("service/genre: creating %q: %w", slug, err)
	}

	s.logger.Info("genre created", slog.String("slug", slug))
	return g, nil
}

func (s *GenreService) List(ctx context.Context, search string, opts repository.ListOptions) (*Page[model.Genre], error) {
	items, total, err := s.repo.ListGenres(ctx, search, opts)
	if err != nil {
		return nil, fmt.Errorf("service/genre: listing: %w", err)
	}
	return &Page[model.Genre]{Count: total, Results: items}, nil
}

func (s *GenreService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.DeleteGenre(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("genre deleted", slog.String("slug", slug))
	return nil
}

func checkNameAndSlug(name, slug string) error {
	if err := validate.Name(name); err != nil {
		return err
	}
	return validate.Slug(slug)
}
