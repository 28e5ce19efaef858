package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

var (
	_ repository.ReviewRepository  = (*DB)(nil)
	_ repository.CommentRepository = (*DB)(nil)
)

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanReview(row interface{ Scan(...any) error }, r *model.Review) error {
	return row.Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate)
}

func scanComment(row interface{ Scan(...any) error }, c *model.Comment) error {
	return row.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate)
}

// =========================================================================
// REVIEWS
// =========================================================================

// CreateReview inserts a review and sets its ID. A second review by the same
// author for the same title fails with a constraint violation even when both
// inserts race past the service's existence check.
func (db *DB) CreateReview(ctx context.Context, r *model.Review) error {
	if r.PubDate.IsZero() {
		r.PubDate = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (?, ?, ?, ?, ?)`,
		r.TitleID, r.AuthorID, r.Text, r.Score, r.PubDate,
	)
	if err != nil {
		return translateErr(fmt.Sprintf("inserting review for title %d", r.TitleID), err)
	}
	if r.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading review id: %w", err)
	}
	return nil
}

// GetReview returns the review only if it belongs to titleID.
func (db *DB) GetReview(ctx context.Context, titleID, reviewID int64) (*model.Review, error) {
	var r model.Review
	err := scanReview(db.conn.QueryRowContext(ctx,
		reviewSelect+` WHERE r.id = ? AND r.title_id = ?`, reviewID, titleID,
	), &r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", strconv.FormatInt(reviewID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting review %d: %w", reviewID, err)
	}
	return &r, nil
}

func (db *DB) ListReviews(ctx context.Context, titleID int64, opts repository.ListOptions) ([]model.Review, int, error) {
	opts = opts.Normalize()

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = ?`, titleID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting reviews: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		reviewSelect+` WHERE r.title_id = ? ORDER BY r.id LIMIT ? OFFSET ?`,
		titleID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0, opts.Limit)
	for rows.Next() {
		var r model.Review
		if err := scanReview(rows, &r); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	return reviews, total, nil
}

// UpdateReview rewrites text, score and pub_date. Title and author never
// change.
func (db *DB) UpdateReview(ctx context.Context, r *model.Review) error {
	id := strconv.FormatInt(r.ID, 10)
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET text = ?, score = ?, pub_date = ? WHERE id = ? AND title_id = ?`,
		r.Text, r.Score, r.PubDate, r.ID, r.TitleID,
	)
	if err != nil {
		return translateErr("updating review "+id, err)
	}
	return checkAffected(result, "review", id)
}

// DeleteReview removes a review and its comments.
func (db *DB) DeleteReview(ctx context.Context, titleID, reviewID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = ? AND title_id = ?`, reviewID, titleID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %d: %w", reviewID, err)
	}
	return checkAffected(result, "review", strconv.FormatInt(reviewID, 10))
}

func (db *DB) ReviewExists(ctx context.Context, authorID, titleID int64) (bool, error) {
	return db.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE author_id = ? AND title_id = ?)`,
		authorID, titleID,
	)
}

// =========================================================================
// COMMENTS
// =========================================================================

func (db *DB) CreateComment(ctx context.Context, c *model.Comment) error {
	if c.PubDate.IsZero() {
		c.PubDate = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (review_id, author_id, text, pub_date) VALUES (?, ?, ?, ?)`,
		c.ReviewID, c.AuthorID, c.Text, c.PubDate,
	)
	if err != nil {
		return translateErr(fmt.Sprintf("inserting comment for review %d", c.ReviewID), err)
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading comment id: %w", err)
	}
	return nil
}

// GetComment returns the comment only if it belongs to reviewID.
func (db *DB) GetComment(ctx context.Context, reviewID, commentID int64) (*model.Comment, error) {
	var c model.Comment
	err := scanComment(db.conn.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ? AND c.review_id = ?`, commentID, reviewID,
	), &c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", strconv.FormatInt(commentID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", commentID, err)
	}
	return &c, nil
}

func (db *DB) ListComments(ctx context.Context, reviewID int64, opts repository.ListOptions) ([]model.Comment, int, error) {
	opts = opts.Normalize()

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE review_id = ?`, reviewID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting comments: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.review_id = ? ORDER BY c.id LIMIT ? OFFSET ?`,
		reviewID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, opts.Limit)
	for rows.Next() {
		var c model.Comment
		if err := scanComment(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, total, nil
}

func (db *DB) UpdateComment(ctx context.Context, c *model.Comment) error {
	id := strconv.FormatInt(c.ID, 10)
	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET text = ?, pub_date = ? WHERE id = ? AND review_id = ?`,
		c.Text, c.PubDate, c.ID, c.ReviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", id, err)
	}
	return checkAffected(result, "comment", id)
}

func (db *DB) DeleteComment(ctx context.Context, reviewID, commentID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND review_id = ?`, commentID, reviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", commentID, err)
	}
	return checkAffected(result, "comment", strconv.FormatInt(commentID, 10))
}
