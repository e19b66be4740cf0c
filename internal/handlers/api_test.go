package handlers_test

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/bookx-exchange/apiserver/internal/handlers"
	"github.com/bookx-exchange/apiserver/internal/tests/apitest"
	"github.com/bookx-exchange/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginAndMe(t *testing.T) {
	env := apitest.New(t)

	resp := env.Do(t, http.MethodPost, "/auth/register", "", handlers.RegisterRequest{
		Username:    "alice",
		Password:    "secret",
		FirstName:   "Alice",
		LastName:    "Johnson",
		Email:       "alice@example.com",
		DateOfBirth: "1990-05-17",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var registered handlers.AuthResponse
	apitest.Decode(t, resp, &registered)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, types.UserTypeRegular, registered.User.UserType)

	resp = env.Do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/auth/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me types.User
	apitest.Decode(t, resp, &me)
	assert.Equal(t, "alice", me.Username)

	resp = env.Do(t, http.MethodPost, "/auth/register", "", handlers.RegisterRequest{
		Username:  "alice",
		Password:  "secret",
		FirstName: "Alice",
		LastName:  "Again",
		Email:     "other@example.com",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterValidationUsesJSONNames(t *testing.T) {
	env := apitest.New(t)

	resp := env.Do(t, http.MethodPost, "/auth/register", "", handlers.RegisterRequest{
		Username: "bob",
		Password: "secret",
		LastName: "Wilson",
		Email:    "bob@example.com",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body handlers.ErrorResponse
	apitest.Decode(t, resp, &body)
	assert.Equal(t, "firstName is required", body.Error)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := apitest.New(t)

	resp := env.Do(t, http.MethodGet, "/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/books", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/books/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []string
	apitest.Decode(t, resp, &categories)
	assert.Contains(t, categories, "Science Fiction")
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	env := apitest.New(t)
	_, adminToken := env.SignUp(t, "admin", "Ada", "Admin", types.UserTypeAdmin)
	bob, bobToken := env.SignUp(t, "bob", "Bob", "Wilson", types.UserTypeRegular)

	resp := env.Do(t, http.MethodDelete, "/admin/users/"+itoa(bob.ID), adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/auth/me", bobToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBookLifecycle(t *testing.T) {
	env := apitest.New(t)
	_, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	_, readerToken := env.SignUp(t, "reader", "Rick", "Reader", types.UserTypeRegular)

	year := 1965
	resp := env.Do(t, http.MethodPost, "/books", ownerToken, handlers.BookRequest{
		Title:           "Dune",
		Author:          "Frank Herbert",
		Category:        "Science Fiction",
		PublicationYear: &year,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var book types.Book
	apitest.Decode(t, resp, &book)
	assert.Equal(t, types.BookStatusAvailable, book.Status)
	assert.Equal(t, "Olga Owner", book.OwnerName)

	path := "/books/" + itoa(book.ID)
	resp = env.Do(t, http.MethodPut, path, readerToken, handlers.BookRequest{Title: "Mine", Author: "Me", Category: "Fiction"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, "/books", ownerToken, handlers.BookRequest{Title: "X", Author: "Y", Category: "Poetry"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/books/999", readerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/books/abc", readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodDelete, path, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, path, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchExcludesCallerByDefault(t *testing.T) {
	env := apitest.New(t)
	owner, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	reader, _ := env.SignUp(t, "reader", "Rick", "Reader", types.UserTypeRegular)
	env.Books.Add(owner, "Dune")
	env.Books.Add(reader, "Dune Messiah")

	var books []types.Book
	resp := env.Do(t, http.MethodGet, "/books/search?query=dune&category=All+Categories", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &books)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune Messiah", books[0].Title)

	resp = env.Do(t, http.MethodGet, "/books/search?query=dune&excludeCurrentUser=false", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &books)
	assert.Len(t, books, 2)

	resp = env.Do(t, http.MethodGet, "/books/search?yearFrom=2000&yearTo=1990", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/books/search?status=LOST", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLendingOverHTTP(t *testing.T) {
	env := apitest.New(t)
	owner, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	_, holderToken := env.SignUp(t, "holder", "Hana", "Holder", types.UserTypeRegular)
	_, otherToken := env.SignUp(t, "other", "Omar", "Other", types.UserTypeRegular)
	book := env.Books.Add(owner, "Emma")
	base := "/transactions/books/" + itoa(book.ID)

	resp := env.Do(t, http.MethodPost, base+"/reserve", holderToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, base+"/borrow", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, base+"/borrow", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, base+"/borrow", holderToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loan types.Transaction
	apitest.Decode(t, resp, &loan)
	assert.Equal(t, types.TransactionBorrow, loan.Type)

	resp = env.Do(t, http.MethodPost, base+"/reserve", otherToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, base+"/return", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, base+"/return", ownerToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var history []types.Transaction
	resp = env.Do(t, http.MethodGet, base, otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &history)
	assert.Len(t, history, 2)
}

func TestCommentsOverHTTP(t *testing.T) {
	env := apitest.New(t)
	owner, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	_, readerToken := env.SignUp(t, "reader", "Rick", "Reader", types.UserTypeRegular)
	book := env.Books.Add(owner, "Hamlet")

	resp := env.Do(t, http.MethodPost, "/comments/books/"+itoa(book.ID), readerToken, handlers.CommentRequest{Content: "To be?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var root types.Comment
	apitest.Decode(t, resp, &root)

	resp = env.Do(t, http.MethodPost, "/comments/"+itoa(root.ID)+"/replies", ownerToken, handlers.CommentRequest{Content: "Or not."})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reply types.Comment
	apitest.Decode(t, resp, &reply)
	assert.Equal(t, 1, reply.Depth)

	resp = env.Do(t, http.MethodPut, "/comments/"+itoa(root.ID), ownerToken, handlers.CommentRequest{Content: "hijack"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.Do(t, http.MethodPost, "/comments/books/"+itoa(book.ID), readerToken, handlers.CommentRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodDelete, "/comments/"+itoa(root.ID), readerToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var tree []types.Comment
	resp = env.Do(t, http.MethodGet, "/comments/books/"+itoa(book.ID)+"/nested", readerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &tree)
	require.Len(t, tree, 1)
	assert.True(t, tree[0].IsDeleted)
	assert.Empty(t, tree[0].Content)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, "Or not.", tree[0].Replies[0].Content)
}

func TestMessagesOverHTTP(t *testing.T) {
	env := apitest.New(t)
	owner, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	reader, readerToken := env.SignUp(t, "reader", "Rick", "Reader", types.UserTypeRegular)
	_, strangerToken := env.SignUp(t, "stranger", "Stan", "Stranger", types.UserTypeRegular)
	book := env.Books.Add(owner, "Emma")

	resp := env.Do(t, http.MethodPost, "/messages", readerToken, handlers.MessageRequest{BookID: book.ID, Content: "Is it free?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var msg types.Message
	apitest.Decode(t, resp, &msg)
	require.NotNil(t, msg.RecipientID)
	assert.Equal(t, owner.ID, *msg.RecipientID)

	resp = env.Do(t, http.MethodPost, "/messages", ownerToken, handlers.MessageRequest{Content: "Yes", ParentMessageID: &msg.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/messages/user/"+itoa(reader.ID), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var threads []types.Message
	resp = env.Do(t, http.MethodGet, "/messages/books/"+itoa(book.ID)+"/thread", readerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &threads)
	require.Len(t, threads, 1)
	assert.Len(t, threads[0].Replies, 1)

	resp = env.Do(t, http.MethodDelete, "/messages/"+itoa(msg.ID), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.Do(t, http.MethodDelete, "/messages/"+itoa(msg.ID), readerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	env := apitest.New(t)
	admin, adminToken := env.SignUp(t, "admin", "Ada", "Admin", types.UserTypeAdmin)
	owner, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	book := env.Books.Add(owner, "Emma")

	resp := env.Do(t, http.MethodGet, "/admin/users", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var users []types.User
	resp = env.Do(t, http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &users)
	assert.Len(t, users, 2)

	resp = env.Do(t, http.MethodDelete, "/admin/users/"+itoa(admin.ID), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodDelete, "/admin/books/"+itoa(book.ID), adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/admin/actions-by-type", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/admin/actions-by-type?actionType=BOOK_LOST", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var entries []types.UserActionLog
	resp = env.Do(t, http.MethodGet, "/admin/actions-by-type?actionType=book_deleted", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.Decode(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, admin.ID, entries[0].UserID)
}

func TestCoverUploadAndDownload(t *testing.T) {
	env := apitest.New(t)
	owner, ownerToken := env.SignUp(t, "owner", "Olga", "Owner", types.UserTypeRegular)
	book := env.Books.Add(owner, "Dune")
	image := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

	req, err := http.NewRequest(http.MethodPut, env.Server.URL+"/books/"+itoa(book.ID)+"/cover", bytes.NewReader(image))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	resp, err := env.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/books/"+itoa(book.ID)+"/cover", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image, data)
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
