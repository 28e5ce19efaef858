package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/policy"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validate"
)

// TitleGetter is the part of TitleRepository the review service needs.
type TitleGetter interface {
	GetTitle(ctx context.Context, id int64) (*model.Title, error)
}

// ReviewService manages reviews nested under a title. Item-level changes are
// gated by the author/moderator/admin rule.
type ReviewService struct {
	reviews repository.ReviewRepository
	titles  TitleGetter
	perm    policy.Permission
	now     Clock
	logger  *slog.Logger
}

func NewReviewService(reviews repository.ReviewRepository, titles TitleGetter, now Clock, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		titles:  titles,
		perm:    policy.AdminModeratorAuthorOrReadOnly{},
		now:     now,
		logger:  logger,
	}
}

func (s *ReviewService) List(ctx context.Context, titleID int64, opts repository.ListOptions) (*Page[model.Review], error) {
	if _, err := s.titles.GetTitle(ctx, titleID); err != nil {
		return nil, err
	}
	reviews, total, err := s.reviews.ListReviews(ctx, titleID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/review: listing: %w", err)
	}
	return &Page[model.Review]{Count: total, Results: reviews}, nil
}

func (s *ReviewService) Get(ctx context.Context, titleID, reviewID int64) (*model.Review, error) {
	return s.reviews.GetReview(ctx, titleID, reviewID)
}

// Create stores user's review of the title. A user may review a title only
// once; the storage constraint backs the pre-check when two requests race.
func (s *ReviewService) Create(ctx context.Context, user *model.User, titleID int64, text string, score int) (*model.Review, error) {
	if user == nil {
		return nil, apperror.Unauthorized("Authentication credentials were not provided.")
	}
	if _, err := s.titles.GetTitle(ctx, titleID); err != nil {
		return nil, err
	}
	if err := checkText(text); err != nil {
		return nil, err
	}
	if err := validate.Score(score); err != nil {
		return nil, err
	}

	exists, err := s.reviews.ReviewExists(ctx, user.ID, titleID)
	if err != nil {
		return nil, fmt.Errorf("service/review: checking existing review: %w", err)
	}
	if exists {
		return nil, apperror.ValidationFailed("", "You can leave a review to the title only once!")
	}

	r := &model.Review{
		TitleID:  titleID,
		AuthorID: user.ID,
		Author:   user.Username,
		Text:     text,
		Score:    score,
		PubDate:  s.now(),
	}
	if err := s.reviews.CreateReview(ctx, r); err != nil {
		return nil, fmt.Errorf("service/review: creating review of title %d: %w", titleID, err)
	}

	s.logger.Info("review created",
		slog.Int64("review_id", r.ID),
		slog.Int64("title_id", titleID),
		slog.String("author", user.Username),
	)
	return r, nil
}

// Update changes text and/or score. pub_date is restamped on every save.
func (s *ReviewService) Update(ctx context.Context, user *model.User, titleID, reviewID int64, text *string, score *int) (*model.Review, error) {
	r, err := s.reviews.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.perm, user, r); err != nil {
		return nil, err
	}

	if text != nil {
		if err := checkText(*text); err != nil {
			return nil, err
		}
		r.Text = *text
	}
	if score != nil {
		if err := validate.Score(*score); err != nil {
			return nil, err
		}
		r.Score = *score
	}
	r.PubDate = s.now()

	if err := s.reviews.UpdateReview(ctx, r); err != nil {
		return nil, fmt.Errorf("service/review: updating %d: %w", reviewID, err)
	}

	s.logger.Info("review updated",
		slog.Int64("review_id", reviewID),
		slog.String("by", user.Username),
	)
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, user *model.User, titleID, reviewID int64) error {
	r, err := s.reviews.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := authorize(s.perm, user, r); err != nil {
		return err
	}
	if err := s.reviews.DeleteReview(ctx, titleID, reviewID); err != nil {
		return err
	}

	s.logger.Info("review deleted",
		slog.Int64("review_id", reviewID),
		slog.String("by", user.Username),
	)
	return nil
}

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.ValidationFailed("text", "text is required")
	}
	return nil
}
