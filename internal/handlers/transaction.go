package handlers

import (
	"context"
	"net/http"

	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/bookx-exchange/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// TransactionHandler exposes borrow, reserve and return.
type TransactionHandler struct {
	lendingService *services.LendingService
}

func NewTransactionHandler(lendingService *services.LendingService) *TransactionHandler {
	return &TransactionHandler{lendingService: lendingService}
}

// TransactionRouter registers lending routes on the given router.
func TransactionRouter(r chi.Router, lendingService *services.LendingService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTransactionHandler(lendingService)

	r.Use(authMiddleware)
	r.Route("/books/{bookID}", func(r chi.Router) {
		r.Get("/", handler.History)
		r.Post("/borrow", handler.transition(lendingService.Borrow))
		r.Post("/reserve", handler.transition(lendingService.Reserve))
		r.Post("/return", handler.transition(lendingService.Return))
	})
}

type transitionFunc func(ctx context.Context, user types.User, bookID int) (types.Transaction, error)

func (h *TransactionHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		bookID, err := parseIDParam(r, "bookID", "book")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		tx, err := fn(r.Context(), user, bookID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	bookID, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.lendingService.History(r.Context(), bookID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
