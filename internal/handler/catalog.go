package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/yamdb/internal/service"
)

// CatalogHandler serves categories and genres. Both resources have the same
// shape ({name, slug}) and the same three operations: list, create, delete.
type CatalogHandler struct {
	categories *service.CategoryService
	genres     *service.GenreService
	logger     *slog.Logger
}

func NewCatalogHandler(categories *service.CategoryService, genres *service.GenreService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{categories: categories, genres: genres, logger: logger}
}

type slugRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HTTP: GET /api/v1/categories/?search=<name substring>
func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.categories.List(r.Context(), r.URL.Query().Get("search"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HTTP: POST /api/v1/categories/
func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req slugRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.categories.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: DELETE /api/v1/categories/{slug}/
func (h *CatalogHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/v1/genres/?search=<name substring>
func (h *CatalogHandler) HandleListGenres(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.genres.List(r.Context(), r.URL.Query().Get("search"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HTTP: POST /api/v1/genres/
func (h *CatalogHandler) HandleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var req slugRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.genres.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HTTP: DELETE /api/v1/genres/{slug}/
func (h *CatalogHandler) HandleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	if err := h.genres.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
