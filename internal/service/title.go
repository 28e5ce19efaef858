package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validate"
)

// TitleInput carries the writable title fields. Genre and Category hold
// slugs. Nil fields are left unchanged on update.
type TitleInput struct {
	Name        *string  `json:"name"        validate:"omitnil,min=1,max=256"`
	Year        *int     `json:"year"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre"       validate:"omitempty,dive,slug"`
	Category    *string  `json:"category"    validate:"omitnil,slug"`
}

// TitleService manages titles and resolves the genre and category slugs
// clients send into stored references.
type TitleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	now        Clock
	logger     *slog.Logger
}

func NewTitleService(
	titles repository.TitleRepository,
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	now Clock,
	logger *slog.Logger,
) *TitleService {
	return &TitleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		now:        now,
		logger:     logger,
	}
}

func (s *TitleService) List(ctx context.Context, f repository.TitleFilter, opts repository.ListOptions) (*Page[model.Title], error) {
	titles, total, err := s.titles.ListTitles(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("service/title: listing: %w", err)
	}
	return &Page[model.Title]{Count: total, Results: titles}, nil
}

func (s *TitleService) Get(ctx context.Context, id int64) (*model.Title, error) {
	return s.titles.GetTitle(ctx, id)
}

// Create validates and stores a title. Name, year and category are required;
// the year must fall between -4000 and the current year.
func (s *TitleService) Create(ctx context.Context, in TitleInput) (*model.Title, error) {
	switch {
	case in.Name == nil:
		return nil, apperror.ValidationFailed("name", "name is required")
	case in.Year == nil:
		return nil, apperror.ValidationFailed("year", "year is required")
	case in.Category == nil:
		return nil, apperror.ValidationFailed("category", "category is required")
	}

	t := &model.Title{Genres: []model.Genre{}}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}

	if err := s.titles.CreateTitle(ctx, t); err != nil {
		return nil, fmt.Errorf("service/title: creating %q: %w", t.Name, err)
	}

	s.logger.Info("title created",
		slog.Int64("title_id", t.ID),
		slog.String("name", t.Name),
	)
	return t, nil
}

// Update applies a partial update. Supplying genre replaces the whole list.
func (s *TitleService) Update(ctx context.Context, id int64, in TitleInput) (*model.Title, error) {
	t, err := s.titles.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}

	if err := s.titles.UpdateTitle(ctx, t); err != nil {
		return nil, fmt.Errorf("service/title: updating %d: %w", id, err)
	}

	s.logger.Info("title updated", slog.Int64("title_id", id))

	// Reload for the rating and the stored genre order.
	return s.titles.GetTitle(ctx, id)
}

func (s *TitleService) Delete(ctx context.Context, id int64) error {
	if err := s.titles.DeleteTitle(ctx, id); err != nil {
		return err
	}
	s.logger.Info("title deleted", slog.Int64("title_id", id))
	return nil
}

// apply validates in and copies the supplied fields onto t, resolving slugs.
func (s *TitleService) apply(ctx context.Context, t *model.Title, in TitleInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.Year != nil {
		if err := validate.Year(*in.Year, s.now().Year()); err != nil {
			return err
		}
	}

	if in.Category != nil {
		c, err := s.categories.GetCategoryBySlug(ctx, *in.Category)
		if err != nil {
			return relationError("category", *in.Category, err)
		}
		t.Category = c
	}
	if in.Genre != nil {
		genres := make([]model.Genre, 0, len(in.Genre))
		seen := make(map[string]bool, len(in.Genre))
		for _, slug := range in.Genre {
			if seen[slug] {
				continue
			}
			seen[slug] = true
			g, err := s.genres.GetGenreBySlug(ctx, slug)
			if err != nil {
				return relationError("genre", slug, err)
			}
			genres = append(genres, *g)
		}
		t.Genres = genres
	}

	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Year != nil {
		t.Year = *in.Year
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	return nil
}

// relationError turns a missing referenced slug into a validation error on
// the submitting field.
func relationError(field, slug string, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.ValidationFailed(field, fmt.Sprintf("Object with slug=%s does not exist.", slug))
	}
	return fmt.Errorf("service/title: resolving %s %q: %w", field, slug, err)
}
