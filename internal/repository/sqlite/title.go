package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

var _ repository.TitleRepository = (*DB)(nil)

// titleSelect reads a title with its category and rating. The rating is the
// average score truncated to an integer, NULL while there are no reviews.
const titleSelect = `
	SELECT t.id, t.name, t.year, t.description,
	       c.id, c.name, c.slug,
	       (SELECT CAST(AVG(r.score) AS INTEGER) FROM reviews r WHERE r.title_id = t.id)
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTitle(row interface{ Scan(...any) error }, t *model.Title) error {
	var (
		catID            sql.NullInt64
		catName, catSlug sql.NullString
		rating           sql.NullInt64
	)
	if err := row.Scan(
		&t.ID, &t.Name, &t.Year, &t.Description,
		&catID, &catName, &catSlug,
		&rating,
	); err != nil {
		return err
	}

	t.Category = nil
	if catID.Valid {
		t.Category = &model.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
	}
	t.Rating = nil
	if rating.Valid {
		v := int(rating.Int64)
		t.Rating = &v
	}
	t.Genres = []model.Genre{}
	return nil
}

func categoryID(t *model.Title) any {
	if t.Category == nil {
		return nil
	}
	return t.Category.ID
}

// CreateTitle inserts a title and its genre links in one transaction.
func (db *DB) CreateTitle(ctx context.Context, t *model.Title) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO titles (name, year, description, category_id) VALUES (?, ?, ?, ?)`,
			t.Name, t.Year, t.Description, categoryID(t),
		)
		if err != nil {
			return translateErr("inserting title "+t.Name, err)
		}
		if t.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading title id: %w", err)
		}
		return linkGenres(ctx, tx, t.ID, t.Genres)
	})
}

func linkGenres(ctx context.Context, tx *sql.Tx, titleID int64, genres []model.Genre) error {
	for _, g := range genres {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO genre_title (genre_id, title_id) VALUES (?, ?)`,
			g.ID, titleID,
		)
		if err != nil {
			return translateErr("linking genre "+g.Slug, err)
		}
	}
	return nil
}

// GetTitle retrieves a title with category, genres and rating.
func (db *DB) GetTitle(ctx context.Context, id int64) (*model.Title, error) {
	var t model.Title
	err := scanTitle(db.conn.QueryRowContext(ctx, titleSelect+` WHERE t.id = ?`, id), &t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("title", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting title %d: %w", id, err)
	}

	titles := []model.Title{t}
	if err := db.attachGenres(ctx, titles); err != nil {
		return nil, err
	}
	return &titles[0], nil
}

// ListTitles returns one page of titles matching f, ordered by id, and the
// total number of matches.
func (db *DB) ListTitles(ctx context.Context, f repository.TitleFilter, opts repository.ListOptions) ([]model.Title, int, error) {
	opts = opts.Normalize()

	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		conds = append(conds, `c.slug = ?`)
		args = append(args, f.Category)
	}
	if f.Genre != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM genre_title gt
			JOIN genres g ON g.id = gt.genre_id
			WHERE gt.title_id = t.id AND g.slug = ?)`)
		args = append(args, f.Genre)
	}
	if f.Name != "" {
		conds = append(conds, `t.name LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(f.Name))
	}
	if f.Year != nil {
		conds = append(conds, `t.year = ?`)
		args = append(args, *f.Year)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id`+where,
		args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting titles: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		titleSelect+where+` ORDER BY t.id LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing titles: %w", err)
	}
	defer rows.Close()

	titles := make([]model.Title, 0, opts.Limit)
	for rows.Next() {
		var t model.Title
		if err := scanTitle(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning title row: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating titles: %w", err)
	}
	rows.Close()

	if err := db.attachGenres(ctx, titles); err != nil {
		return nil, 0, err
	}
	return titles, total, nil
}

// attachGenres loads the genres of every title in one query.
func (db *DB) attachGenres(ctx context.Context, titles []model.Title) error {
	if len(titles) == 0 {
		return nil
	}

	index := make(map[int64]int, len(titles))
	args := make([]any, 0, len(titles))
	for i, t := range titles {
		index[t.ID] = i
		args = append(args, t.ID)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT gt.title_id, g.id, g.name, g.slug
		 FROM genre_title gt
		 JOIN genres g ON g.id = gt.genre_id
		 WHERE gt.title_id IN (`+placeholders(len(args))+`)
		 ORDER BY g.id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			titleID int64
			g       model.Genre
		)
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("sqlite: scanning title genre: %w", err)
		}
		i := index[titleID]
		titles[i].Genres = append(titles[i].Genres, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating title genres: %w", err)
	}
	return nil
}

// UpdateTitle rewrites the title's columns and replaces its genre links.
func (db *DB) UpdateTitle(ctx context.Context, t *model.Title) error {
	id := strconv.FormatInt(t.ID, 10)
	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE titles SET name = ?, year = ?, description = ?, category_id = ? WHERE id = ?`,
			t.Name, t.Year, t.Description, categoryID(t), t.ID,
		)
		if err != nil {
			return translateErr("updating title "+id, err)
		}
		if err := checkAffected(result, "title", id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM genre_title WHERE title_id = ?`, t.ID); err != nil {
			return fmt.Errorf("sqlite: clearing genres of title %s: %w", id, err)
		}
		return linkGenres(ctx, tx, t.ID, t.Genres)
	})
}

// DeleteTitle removes a title along with its genre links, reviews and their
// comments.
func (db *DB) DeleteTitle(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting title %d: %w", id, err)
	}
	return checkAffected(result, "title", strconv.FormatInt(id, 10))
}
