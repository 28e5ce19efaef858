package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/service"
)

// TitleHandler serves /titles/. Reads are public; writes are admin-only via
// the route group.
type TitleHandler struct {
	titles *service.TitleService
	logger *slog.Logger
}

func NewTitleHandler(titles *service.TitleService, logger *slog.Logger) *TitleHandler {
	return &TitleHandler{titles: titles, logger: logger}
}

// HandleList returns one page of titles.
//
// HTTP: GET /api/v1/titles/?category=<slug>&genre=<slug>&name=<substring>&year=<int>
func (h *TitleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err := titleFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.titles.List(r.Context(), filter, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleCreate adds a title.
//
// HTTP: POST /api/v1/titles/
// REQUEST BODY:
//
//	{"name": "Solaris", "year": 1972, "description": "...",
//	 "genre": ["drama", "sci-fi"], "category": "films"}
func (h *TitleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.TitleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	title, err := h.titles.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

// HTTP: GET /api/v1/titles/{title_id}/
func (h *TitleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "title_id", "title")
	if err != nil {
		writeError(w, err)
		return
	}
	title, err := h.titles.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// HTTP: PATCH /api/v1/titles/{title_id}/
func (h *TitleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "title_id", "title")
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.TitleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	title, err := h.titles.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// HTTP: DELETE /api/v1/titles/{title_id}/
func (h *TitleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "title_id", "title")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.titles.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func titleFilter(r *http.Request) (repository.TitleFilter, error) {
	q := r.URL.Query()
	f := repository.TitleFilter{
		Category: q.Get("category"),
		Genre:    q.Get("genre"),
		Name:     q.Get("name"),
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperror.ValidationFailed("year", "year must be an integer")
		}
		f.Year = &year
	}
	return f, nil
}
