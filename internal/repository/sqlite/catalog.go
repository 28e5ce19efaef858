package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

var (
	_ repository.CategoryRepository = (*DB)(nil)
	_ repository.GenreRepository    = (*DB)(nil)
)

// Categories and genres share one table shape; slugTable holds the table
// name and the resource name used in errors.
type slugTable struct {
	table    string
	resource string
}

var (
	categoriesTable = slugTable{table: "categories", resource: "category"}
	genresTable     = slugTable{table: "genres", resource: "genre"}
)

func (st slugTable) create(ctx context.Context, q querier, name, slug string) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO `+st.table+` (name, slug) VALUES (?, ?)`, name, slug,
	)
	if err != nil {
		return 0, translateErr("inserting "+st.resource+" "+slug, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading %s id: %w", st.resource, err)
	}
	return id, nil
}

func (st slugTable) get(ctx context.Context, q querier, slug string) (id int64, name string, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT id, name FROM `+st.table+` WHERE slug = ?`, slug,
	).Scan(&id, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", apperror.NotFound(st.resource, slug)
		}
		return 0, "", fmt.Errorf("sqlite: getting %s %q: %w", st.resource, slug, err)
	}
	return id, name, nil
}

// list calls emit for each row of one page ordered by id and returns the
// total count matching search (a case-insensitive name substring).
func (st slugTable) list(ctx context.Context, q querier, search string, opts repository.ListOptions, emit func(id int64, name, slug string)) (int, error) {
	opts = opts.Normalize()

	where := ""
	var args []any
	if search != "" {
		where = ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likeContains(search))
	}

	var total int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+st.table+where, args...,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", st.table, err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, slug FROM `+st.table+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: listing %s: %w", st.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			name, slug string
		)
		if err := rows.Scan(&id, &name, &slug); err != nil {
			return 0, fmt.Errorf("sqlite: scanning %s row: %w", st.resource, err)
		}
		emit(id, name, slug)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sqlite: iterating %s: %w", st.table, err)
	}
	return total, nil
}

func (st slugTable) delete(ctx context.Context, q querier, slug string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM `+st.table+` WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %q: %w", st.resource, slug, err)
	}
	return checkAffected(result, st.resource, slug)
}

func (st slugTable) exists(ctx context.Context, db *DB, slug string) (bool, error) {
	return db.exists(ctx, `SELECT EXISTS(SELECT 1 FROM `+st.table+` WHERE slug = ?)`, slug)
}

// ===== CATEGORIES =====

func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	id, err := categoriesTable.create(ctx, db.conn, c.Name, c.Slug)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (db *DB) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	id, name, err := categoriesTable.get(ctx, db.conn, slug)
	if err != nil {
		return nil, err
	}
	return &model.Category{ID: id, Name: name, Slug: slug}, nil
}

func (db *DB) ListCategories(ctx context.Context, search string, opts repository.ListOptions) ([]model.Category, int, error) {
	out := make([]model.Category, 0, opts.Normalize().Limit)
	total, err := categoriesTable.list(ctx, db.conn, search, opts, func(id int64, name, slug string) {
		out = append(out, model.Category{ID: id, Name: name, Slug: slug})
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteCategory removes a category. Titles in it keep existing with a NULL
// category.
func (db *DB) DeleteCategory(ctx context.Context, slug string) error {
	return categoriesTable.delete(ctx, db.conn, slug)
}

func (db *DB) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return categoriesTable.exists(ctx, db, slug)
}

// ===== GENRES =====

func (db *DB) CreateGenre(ctx context.Context, g *model.Genre) error {
	id, err := genresTable.create(ctx, db.conn, g.Name, g.Slug)
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

func (db *DB) GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	id, name, err := genresTable.get(ctx, db.conn, slug)
	if err != nil {
		return nil, err
	}
	return &model.Genre{ID: id, Name: name, Slug: slug}, nil
}

func (db *DB) ListGenres(ctx context.Context, search string, opts repository.ListOptions) ([]model.Genre, int, error) {
	out := make([]model.Genre, 0, opts.Normalize().Limit)
	total, err := genresTable.list(ctx, db.conn, search, opts, func(id int64, name, slug string) {
		out = append(out, model.Genre{ID: id, Name: name, Slug: slug})
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteGenre removes a genre and its links to titles.
func (db *DB) DeleteGenre(ctx context.Context, slug string) error {
	return genresTable.delete(ctx, db.conn, slug)
}

func (db *DB) GenreSlugExists(ctx context.Context, slug string) (bool, error) {
	return genresTable.exists(ctx, db, slug)
}
