package handlers

import (
	"time"

	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// API bundles the services served over HTTP.
type API struct {
	Users    *services.UserService
	Books    *services.BookService
	Lending  *services.LendingService
	Comments *services.CommentService
	Messages *services.MessageService
	Admin    *services.AdminService

	JWTSecret string
	TokenTTL  time.Duration
}

// Mount registers every route group on r.
func Mount(r chi.Router, api API) {
	authMiddleware := RequireAuth(api.JWTSecret, api.Users)

	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, api.Users, api.JWTSecret, api.TokenTTL)
	})
	r.Route("/books", func(r chi.Router) {
		BookRouter(r, api.Books, authMiddleware)
	})
	r.Route("/transactions", func(r chi.Router) {
		TransactionRouter(r, api.Lending, authMiddleware)
	})
	r.Route("/comments", func(r chi.Router) {
		CommentRouter(r, api.Comments, authMiddleware)
	})
	r.Route("/messages", func(r chi.Router) {
		MessageRouter(r, api.Messages, authMiddleware)
	})
	r.Route("/admin", func(r chi.Router) {
		AdminRouter(r, api.Admin, authMiddleware)
	})
}
