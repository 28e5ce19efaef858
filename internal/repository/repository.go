// Package repository declares the storage contracts the service layer depends
// on. Implementations enforce every uniqueness, foreign-key and cascade rule
// with real database constraints; existence lookups here exist only to give
// friendlier errors before a write.
package repository

import (
	"context"

	"github.com/sakif/yamdb/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps Limit into [1, MaxListLimit] (0 means DefaultListLimit)
// and Offset to be non-negative.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, search string, opts ListOptions) ([]model.User, int, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, username string) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	ListCategories(ctx context.Context, search string, opts ListOptions) ([]model.Category, int, error)
	DeleteCategory(ctx context.Context, slug string) error
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
}

type GenreRepository interface {
	CreateGenre(ctx context.Context, g *model.Genre) error
	GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error)
	ListGenres(ctx context.Context, search string, opts ListOptions) ([]model.Genre, int, error)
	DeleteGenre(ctx context.Context, slug string) error
	GenreSlugExists(ctx context.Context, slug string) (bool, error)
}

// TitleFilter narrows ListTitles. Zero values do not filter.
type TitleFilter struct {
	Category string // category slug
	Genre    string // genre slug
	Name     string // case-insensitive substring
	Year     *int
}

// TitleRepository persists titles together with their category reference and
// genre links. Create and Update take category and genre ids from
// Title.Category and Title.Genres.
type TitleRepository interface {
	CreateTitle(ctx context.Context, t *model.Title) error
	GetTitle(ctx context.Context, id int64) (*model.Title, error)
	ListTitles(ctx context.Context, f TitleFilter, opts ListOptions) ([]model.Title, int, error)
	UpdateTitle(ctx context.Context, t *model.Title) error
	DeleteTitle(ctx context.Context, id int64) error
}

// ReviewRepository scopes every lookup by the parent title so a review id
// only resolves under the title it belongs to.
type ReviewRepository interface {
	CreateReview(ctx context.Context, r *model.Review) error
	GetReview(ctx context.Context, titleID, reviewID int64) (*model.Review, error)
	ListReviews(ctx context.Context, titleID int64, opts ListOptions) ([]model.Review, int, error)
	UpdateReview(ctx context.Context, r *model.Review) error
	DeleteReview(ctx context.Context, titleID, reviewID int64) error
	ReviewExists(ctx context.Context, authorID, titleID int64) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, reviewID, commentID int64) (*model.Comment, error)
	ListComments(ctx context.Context, reviewID int64, opts ListOptions) ([]model.Comment, int, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, reviewID, commentID int64) error
}

// RowInserter writes raw rows without any validation. It is only used for
// seeding from external data files.
type RowInserter interface {
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int, error)
}

// Seeder runs fn inside a single transaction; either every row lands or none.
type Seeder interface {
	Seed(ctx context.Context, fn func(ins RowInserter) error) error
}
