package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/service"
)

// ReviewHandler serves reviews and their comments, both nested under a
// title:
//
//	/titles/{title_id}/reviews/
//	/titles/{title_id}/reviews/{review_id}/
//	/titles/{title_id}/reviews/{review_id}/comments/
//	/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/
//
// The route group requires a logged-in user for writes; the services decide
// who may change a particular review or comment.
type ReviewHandler struct {
	reviews  *service.ReviewService
	comments *service.CommentService
	logger   *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, comments *service.CommentService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, comments: comments, logger: logger}
}

// reviewRequest has pointer fields so PATCH can tell "absent" from "zero".
type reviewRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type commentRequest struct {
	Text *string `json:"text"`
}

// ===== Reviews =====

func (h *ReviewHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	titleID, err := pathID(r, "title_id", "title")
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.reviews.List(r.Context(), titleID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleCreateReview posts the caller's review of a title.
//
// HTTP: POST /api/v1/titles/{title_id}/reviews/
// REQUEST BODY: {"text": "...", "score": 8}
func (h *ReviewHandler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	titleID, err := pathID(r, "title_id", "title")
	if err != nil {
		writeError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var text string
	if req.Text != nil {
		text = *req.Text
	}
	var score int
	if req.Score != nil {
		score = *req.Score
	}

	review, err := h.reviews.Create(r.Context(), auth.UserFromContext(r.Context()), titleID, text, score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) HandleGetReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	review, err := h.reviews.Get(r.Context(), titleID, reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.Update(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID, req.Text, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.reviews.Delete(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Comments =====

func (h *ReviewHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.comments.List(r.Context(), titleID, reviewID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ReviewHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var text string
	if req.Text != nil {
		text = *req.Text
	}

	comment, err := h.comments.Create(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID, text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *ReviewHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, err := commentPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	comment, err := h.comments.Get(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *ReviewHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, err := commentPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID, commentID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *ReviewHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, err := commentPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.comments.Delete(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID, commentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reviewPath(r *http.Request) (titleID, reviewID int64, err error) {
	if titleID, err = pathID(r, "title_id", "title"); err != nil {
		return 0, 0, err
	}
	if reviewID, err = pathID(r, "review_id", "review"); err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}

func commentPath(r *http.Request) (titleID, reviewID, commentID int64, err error) {
	if titleID, reviewID, err = reviewPath(r); err != nil {
		return 0, 0, 0, err
	}
	if commentID, err = pathID(r, "comment_id", "comment"); err != nil {
		return 0, 0, 0, err
	}
	return titleID, reviewID, commentID, nil
}
