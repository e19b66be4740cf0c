package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/bookx-exchange/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	allCategories = "All Categories"
	allStatuses   = "All Statuses"
)

// BookHandler provides HTTP handlers for books.
type BookHandler struct {
	bookService *services.BookService
}

func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// BookRouter registers book routes on the given router. Everything except
// the category list requires authentication.
func BookRouter(r chi.Router, bookService *services.BookService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewBookHandler(bookService)

	r.Get("/categories", handler.Categories)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", handler.ListBooks)
		r.Post("/", handler.CreateBook)
		r.Get("/search", handler.SearchBooks)
		r.Get("/available", handler.AvailableBooks)
		r.Get("/user/{userID}/related", handler.RelatedBooks)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", handler.GetBook)
			r.Put("/", handler.UpdateBook)
			r.Delete("/", handler.DeleteBook)
			r.Put("/cover", handler.UploadCover)
			r.Get("/cover", handler.GetCover)
		})
	})
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Create(r.Context(), user, req.draft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Update(r.Context(), user, id, req.draft())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.bookService.Delete(r.Context(), user, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseBookFilter(r, user)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	books, err := h.bookService.Search(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bookService.Categories())
}

func (h *BookHandler) AvailableBooks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	books, err := h.bookService.Available(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) RelatedBooks(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	books, err := h.bookService.Related(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// UploadCover takes the raw image as the request body; the Content-Type
// header names the image type.
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readFileLimited(r.Body, services.MaxCoverSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.UploadCover(r.Context(), user, id, r.Header.Get("Content-Type"), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.bookService.Cover(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer obj.Close()

	data, err := readFileLimited(obj, services.MaxCoverSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	contentType := obj.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// BookRequest is the JSON payload for creating and updating books.
type BookRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	Author          string `json:"author" validate:"required,max=255"`
	Category        string `json:"category" validate:"required"`
	Description     string `json:"description" validate:"max=5000"`
	PublicationYear *int   `json:"publicationYear" validate:"omitempty,gte=0,lte=9999"`
}

func (req BookRequest) draft() services.BookDraft {
	return services.BookDraft{
		Title:           req.Title,
		Author:          req.Author,
		Category:        types.BookCategory(req.Category),
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
	}
}

func parseBookFilter(r *http.Request, user types.User) (types.BookFilter, error) {
	q := r.URL.Query()
	filter := types.BookFilter{
		Query:  strings.TrimSpace(q.Get("query")),
		Author: strings.TrimSpace(q.Get("author")),
	}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" && !strings.EqualFold(raw, allCategories) {
		category, err := types.ParseCategory(raw)
		if err != nil {
			return types.BookFilter{}, fmt.Errorf("%w: %q", err, raw)
		}
		filter.Category = &category
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" && !strings.EqualFold(raw, allStatuses) {
		status, err := types.ParseBookStatus(raw)
		if err != nil {
			return types.BookFilter{}, fmt.Errorf("%w: %q", err, raw)
		}
		filter.Status = &status
	}

	var err error
	if filter.YearFrom, err = parseOptionalInt(q.Get("yearFrom")); err != nil {
		return types.BookFilter{}, errors.New("invalid yearFrom")
	}
	if filter.YearTo, err = parseOptionalInt(q.Get("yearTo")); err != nil {
		return types.BookFilter{}, errors.New("invalid yearTo")
	}

	exclude := true
	if raw := strings.TrimSpace(q.Get("excludeCurrentUser")); raw != "" {
		exclude, err = strconv.ParseBool(raw)
		if err != nil {
			return types.BookFilter{}, errors.New("invalid excludeCurrentUser")
		}
	}
	if exclude {
		filter.ExcludeOwnerID = &user.ID
	}

	return filter, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
