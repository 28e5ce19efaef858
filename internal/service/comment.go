package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/policy"
	"github.com/sakif/yamdb/internal/repository"
)

// ReviewGetter resolves a review under its title.
type ReviewGetter interface {
	GetReview(ctx context.Context, titleID, reviewID int64) (*model.Review, error)
}

// CommentService manages comments nested under /titles/{id}/reviews/{id}.
// Every call first resolves the review under the title, so a review id from
// another title is NotFound.
type CommentService struct {
	comments repository.CommentRepository
	reviews  ReviewGetter
	perm     policy.Permission
	now      Clock
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, reviews ReviewGetter, now Clock, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		reviews:  reviews,
		perm:     policy.AdminModeratorAuthorOrReadOnly{},
		now:      now,
		logger:   logger,
	}
}

func (s *CommentService) List(ctx context.Context, titleID, reviewID int64, opts repository.ListOptions) (*Page[model.Comment], error) {
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comments, total, err := s.comments.ListComments(ctx, reviewID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing: %w", err)
	}
	return &Page[model.Comment]{Count: total, Results: comments}, nil
}

func (s *CommentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*model.Comment, error) {
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.comments.GetComment(ctx, reviewID, commentID)
}

func (s *CommentService) Create(ctx context.Context, user *model.User, titleID, reviewID int64, text string) (*model.Comment, error) {
	if user == nil {
		return nil, apperror.Unauthorized("Authentication credentials were not provided.")
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if err := checkText(text); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ReviewID: reviewID,
		AuthorID: user.ID,
		Author:   user.Username,
		Text:     text,
		PubDate:  s.now(),
	}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment on review %d: %w", reviewID, err)
	}

	s.logger.Info("comment created",
		slog.Int64("comment_id", c.ID),
		slog.Int64("review_id", reviewID),
		slog.String("author", user.Username),
	)
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, user *model.User, titleID, reviewID, commentID int64, text *string) (*model.Comment, error) {
	c, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.perm, user, c); err != nil {
		return nil, err
	}

	if text != nil {
		if err := checkText(*text); err != nil {
			return nil, err
		}
		c.Text = *text
	}
	c.PubDate = s.now()

	if err := s.comments.UpdateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("service/comment: updating %d: %w", commentID, err)
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, user *model.User, titleID, reviewID, commentID int64) error {
	c, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(s.perm, user, c); err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, reviewID, commentID); err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		slog.Int64("comment_id", commentID),
		slog.String("by", user.Username),
	)
	return nil
}
