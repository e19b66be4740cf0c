package handlers

import (
	"net/http"

	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// AdminHandler provides the moderation endpoints.
type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// AdminRouter registers admin routes; every route requires an ADMIN user.
func AdminRouter(r chi.Router, adminService *services.AdminService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAdminHandler(adminService)

	r.Use(authMiddleware, RequireAdmin)
	r.Get("/users", handler.ListUsers)
	r.Delete("/users/{userID}", handler.DeleteUser)
	r.Get("/books", handler.ListBooks)
	r.Delete("/books/{bookID}", handler.DeleteBook)
	r.Get("/user-actions", handler.ListActions)
	r.Get("/actions-by-type", handler.ActionsByType)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.Users(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, _ := currentUser(r.Context())
	userID, err := parseIDParam(r, "userID", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.adminService.DeleteUser(r.Context(), admin, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.adminService.Books(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *AdminHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	admin, _ := currentUser(r.Context())
	bookID, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.adminService.DeleteBook(r.Context(), admin, bookID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.adminService.Actions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AdminHandler) ActionsByType(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("actionType")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "actionType is required")
		return
	}

	entries, err := h.adminService.ActionsByType(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
