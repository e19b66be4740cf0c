package services

import (
	"context"
	"testing"

	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveThenBorrowByHolder(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	reader := e.users.Add("reader", "Rick", "Reader", types.UserTypeRegular)
	book := e.books.Add(owner, "Dune")

	reservation, err := e.lendingService.Reserve(ctx, reader, book.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TransactionReserve, reservation.Type)
	assert.Equal(t, types.TransactionActive, reservation.Status)
	assert.Equal(t, owner.ID, reservation.LenderID)

	stored, _ := e.books.Get(ctx, book.ID)
	assert.Equal(t, types.BookStatusReserved, stored.Status)

	loan, err := e.lendingService.Borrow(ctx, reader, book.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TransactionBorrow, loan.Type)

	stored, _ = e.books.Get(ctx, book.ID)
	assert.Equal(t, types.BookStatusBorrowed, stored.Status)

	history, err := e.lendingService.History(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, loan.ID, history[0].ID)
	assert.Equal(t, types.TransactionCompleted, history[1].Status)
	assert.NotNil(t, history[1].CompletedAt)

	assert.Equal(t, []types.ActionType{types.ActionBookReserved, types.ActionBookBorrowed}, e.log.Actions())
}

func TestReservedBookRejectsOtherBorrowers(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	holder := e.users.Add("holder", "Hana", "Holder", types.UserTypeRegular)
	other := e.users.Add("other", "Omar", "Other", types.UserTypeRegular)
	book := e.books.Add(owner, "Emma")

	_, err := e.lendingService.Reserve(ctx, holder, book.ID)
	require.NoError(t, err)

	_, err = e.lendingService.Borrow(ctx, other, book.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, _ := e.books.Get(ctx, book.ID)
	assert.Equal(t, types.BookStatusReserved, stored.Status)
	assert.Equal(t, []types.ActionType{types.ActionBookReserved}, e.log.Actions())
}

func TestBorrowUnavailableBook(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	first := e.users.Add("first", "Fay", "First", types.UserTypeRegular)
	second := e.users.Add("second", "Sam", "Second", types.UserTypeRegular)
	book := e.books.Add(owner, "Ulysses")

	_, err := e.lendingService.Borrow(ctx, first, book.ID)
	require.NoError(t, err)

	_, err = e.lendingService.Borrow(ctx, second, book.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = e.lendingService.Reserve(ctx, second, book.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOwnerCannotBorrowOwnBook(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	book := e.books.Add(owner, "Middlemarch")

	_, err := e.lendingService.Borrow(ctx, owner, book.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.lendingService.Reserve(ctx, owner, book.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReturnWithoutActiveTransaction(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	book := e.books.Add(owner, "Beloved")

	_, err := e.lendingService.Return(ctx, owner, book.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, e.log.Actions())
}

func TestReturnPermissions(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	borrower := e.users.Add("borrower", "Bea", "Borrower", types.UserTypeRegular)
	stranger := e.users.Add("stranger", "Stan", "Stranger", types.UserTypeRegular)
	book := e.books.Add(owner, "Persuasion")

	_, err := e.lendingService.Borrow(ctx, borrower, book.ID)
	require.NoError(t, err)

	_, err = e.lendingService.Return(ctx, stranger, book.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	returned, err := e.lendingService.Return(ctx, owner, book.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TransactionCompleted, returned.Status)
	require.NotNil(t, returned.CompletedAt)

	stored, _ := e.books.Get(ctx, book.ID)
	assert.Equal(t, types.BookStatusAvailable, stored.Status)

	entry := e.log.Last()
	assert.Equal(t, types.ActionBookReturned, entry.ActionType)
	assert.Equal(t, borrower.ID, entry.UserID)
	assert.Equal(t, "Bea Borrower", entry.UserName)
}

func TestReturnCancelsReservation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	holder := e.users.Add("holder", "Hana", "Holder", types.UserTypeRegular)
	admin := e.users.Add("admin", "Ada", "Admin", types.UserTypeAdmin)
	book := e.books.Add(owner, "Walden")

	_, err := e.lendingService.Reserve(ctx, holder, book.ID)
	require.NoError(t, err)

	_, err = e.lendingService.Return(ctx, admin, book.ID)
	require.NoError(t, err)

	stored, _ := e.books.Get(ctx, book.ID)
	assert.Equal(t, types.BookStatusAvailable, stored.Status)

	_, err = e.lendingService.Return(ctx, holder, book.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLendingMissingBook(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	reader := e.users.Add("reader", "Rick", "Reader", types.UserTypeRegular)

	_, err := e.lendingService.Borrow(ctx, reader, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.lendingService.History(ctx, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConflictOnDuplicate(t *testing.T) {
	assert.ErrorIs(t, conflictOnDuplicate(store.ErrDuplicate), ErrConflict)
	assert.ErrorIs(t, conflictOnDuplicate(store.ErrNotFound), store.ErrNotFound)
	assert.NotErrorIs(t, conflictOnDuplicate(store.ErrNotFound), ErrConflict)
}

func TestActivityFailureDoesNotUndoTransition(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	owner := e.users.Add("owner", "Olga", "Owner", types.UserTypeRegular)
	reader := e.users.Add("reader", "Rick", "Reader", types.UserTypeRegular)
	book := e.books.Add(owner, "Dracula")
	e.log.Failing = true

	_, err := e.lendingService.Borrow(ctx, reader, book.ID)
	require.NoError(t, err)

	stored, _ := e.books.Get(ctx, book.ID)
	assert.Equal(t, types.BookStatusBorrowed, stored.Status)
	assert.Empty(t, e.pub.Sent())
}
