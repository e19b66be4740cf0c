// Package apitest serves the full HTTP API over in-memory repositories.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookx-exchange/apiserver/internal/handlers"
	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/bookx-exchange/apiserver/internal/tests/memstore"
	"github.com/bookx-exchange/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

const (
	JWTSecret = "test-secret"
	Password  = "password"
)

type Env struct {
	Server *httptest.Server

	Users     *memstore.Users
	Books     *memstore.Books
	Lending   *memstore.Lending
	Comments  *memstore.Comments
	Messages  *memstore.Messages
	Activity  *memstore.Activity
	Publisher *memstore.Publisher
	Covers    *memstore.Covers

	API handlers.API
}

// New starts a test server. It is closed when t finishes.
func New(t testing.TB) *Env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := memstore.NewClock()
	e := &Env{
		Users:     memstore.NewUsers(clock),
		Books:     memstore.NewBooks(clock),
		Activity:  &memstore.Activity{},
		Publisher: &memstore.Publisher{},
		Covers:    memstore.NewCovers(),
	}
	e.Lending = memstore.NewLending(e.Books, e.Users, clock)
	e.Comments = memstore.NewComments(e.Users, clock)
	e.Messages = memstore.NewMessages(e.Books, clock)

	activity := services.NewActivityService(e.Activity, e.Publisher, "bookx.activity", logger)
	books := services.NewBookService(e.Books, activity, e.Covers, logger)
	lending := services.NewLendingService(e.Lending, e.Books, e.Users, activity)
	e.API = handlers.API{
		Users:     services.NewUserService(e.Users),
		Books:     books,
		Lending:   lending,
		Comments:  services.NewCommentService(e.Comments, e.Books, activity),
		Messages:  services.NewMessageService(e.Messages, e.Books, e.Users, activity),
		Admin:     services.NewAdminService(e.Users, books, lending, activity),
		JWTSecret: JWTSecret,
		TokenTTL:  time.Hour,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer)
	handlers.Mount(router, e.API)

	e.Server = httptest.NewServer(router)
	t.Cleanup(e.Server.Close)
	return e
}

// SignUp creates an account with Password and logs it in.
func (e *Env) SignUp(t testing.TB, username, first, last string, userType types.UserType) (types.User, string) {
	t.Helper()

	user, _, err := e.API.Users.EnsureUser(context.Background(), services.Registration{
		Username:  username,
		Password:  Password,
		FirstName: first,
		LastName:  last,
		Email:     username + "@example.com",
	}, userType)
	require.NoError(t, err)

	var auth handlers.AuthResponse
	resp := e.Do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{Username: username, Password: Password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	Decode(t, resp, &auth)
	return user, auth.Token
}

// Do sends a JSON request. body may be nil.
func (e *Env) Do(t testing.TB, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.Server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Decode reads a JSON response body into dst.
func Decode(t testing.TB, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}
