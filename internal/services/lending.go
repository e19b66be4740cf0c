package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
)

// LendingStore runs book state transitions atomically.
type LendingStore interface {
	WithinTx(ctx context.Context, fn func(ops store.LendingOps) error) error
	ListByBook(ctx context.Context, bookID int) ([]types.Transaction, error)
}

// LendingService moves books between AVAILABLE, RESERVED and BORROWED.
// Every transition reads and writes the book under one row lock.
type LendingService struct {
	store    LendingStore
	books    BookReader
	users    UserReader
	activity *ActivityService
	now      func() time.Time
}

func NewLendingService(store LendingStore, books BookReader, users UserReader, activity *ActivityService) *LendingService {
	return &LendingService{
		store:    store,
		books:    books,
		users:    users,
		activity: activity,
		now:      time.Now,
	}
}

// Reserve holds an AVAILABLE book for user.
func (s *LendingService) Reserve(ctx context.Context, user types.User, bookID int) (types.Transaction, error) {
	var book types.Book
	var created types.Transaction

	err := s.store.WithinTx(ctx, func(ops store.LendingOps) error {
		var err error
		book, err = ops.GetBookForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if book.OwnerID == user.ID {
			return invalidInput("cannot reserve your own book")
		}
		if book.Status != types.BookStatusAvailable {
			return invalidState("book is %s", book.Status)
		}

		created, err = ops.CreateTransaction(ctx, types.Transaction{
			BookID:     book.ID,
			BorrowerID: user.ID,
			LenderID:   book.OwnerID,
			Type:       types.TransactionReserve,
			Status:     types.TransactionActive,
		})
		if err != nil {
			return err
		}
		book.Status = types.BookStatusReserved
		return ops.SetBookStatus(ctx, book.ID, book.Status)
	})
	if err != nil {
		return types.Transaction{}, conflictOnDuplicate(err)
	}

	s.activity.Record(ctx, types.BookReservedAction(user, book))
	return created, nil
}

// Borrow lends a book to user. A RESERVED book can only be borrowed by
// the holder of the reservation, whose reservation is then completed.
func (s *LendingService) Borrow(ctx context.Context, user types.User, bookID int) (types.Transaction, error) {
	var book types.Book
	var created types.Transaction

	err := s.store.WithinTx(ctx, func(ops store.LendingOps) error {
		var err error
		book, err = ops.GetBookForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if book.OwnerID == user.ID {
			return invalidInput("cannot borrow your own book")
		}

		switch book.Status {
		case types.BookStatusAvailable:
		case types.BookStatusReserved:
			reservation, err := ops.ActiveTransaction(ctx, book.ID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return invalidState("book is reserved without an active reservation")
				}
				return err
			}
			if reservation.BorrowerID != user.ID {
				return forbidden("book is reserved by another user")
			}
			if err := ops.CompleteTransaction(ctx, reservation.ID, s.now()); err != nil {
				return err
			}
		default:
			return invalidState("book is %s", book.Status)
		}

		created, err = ops.CreateTransaction(ctx, types.Transaction{
			BookID:     book.ID,
			BorrowerID: user.ID,
			LenderID:   book.OwnerID,
			Type:       types.TransactionBorrow,
			Status:     types.TransactionActive,
		})
		if err != nil {
			return err
		}
		book.Status = types.BookStatusBorrowed
		return ops.SetBookStatus(ctx, book.ID, book.Status)
	})
	if err != nil {
		return types.Transaction{}, conflictOnDuplicate(err)
	}

	s.activity.Record(ctx, types.BookBorrowedAction(user, book))
	return created, nil
}

// Return completes the book's active transaction and makes it AVAILABLE
// again. The borrower, the owner or an admin may return a book; for a
// reservation this cancels the hold.
func (s *LendingService) Return(ctx context.Context, user types.User, bookID int) (types.Transaction, error) {
	var book types.Book
	var active types.Transaction

	err := s.store.WithinTx(ctx, func(ops store.LendingOps) error {
		var err error
		book, err = ops.GetBookForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		active, err = ops.ActiveTransaction(ctx, book.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalidState("book has no active transaction")
			}
			return err
		}
		if active.BorrowerID != user.ID && book.OwnerID != user.ID && !user.IsAdmin() {
			return forbidden("only the borrower or the owner can return this book")
		}

		completedAt := s.now()
		if err := ops.CompleteTransaction(ctx, active.ID, completedAt); err != nil {
			return err
		}
		active.Status = types.TransactionCompleted
		active.CompletedAt = &completedAt

		book.Status = types.BookStatusAvailable
		return ops.SetBookStatus(ctx, book.ID, book.Status)
	})
	if err != nil {
		return types.Transaction{}, err
	}

	borrower := user
	if active.BorrowerID != user.ID {
		if b, err := s.users.GetByID(ctx, active.BorrowerID); err == nil {
			borrower = b
		}
	}
	s.activity.Record(ctx, types.BookReturnedAction(borrower, book))
	return active, nil
}

// CloseAccount deletes user after completing every transaction they
// hold, returning those books to AVAILABLE in the same database
// transaction. It returns the released books.
func (s *LendingService) CloseAccount(ctx context.Context, user types.User) ([]types.Book, error) {
	var released []types.Book

	err := s.store.WithinTx(ctx, func(ops store.LendingOps) error {
		released = released[:0]
		held, err := ops.ActiveByBorrower(ctx, user.ID)
		if err != nil {
			return err
		}
		completedAt := s.now()
		for _, t := range held {
			book, err := ops.GetBookForUpdate(ctx, t.BookID)
			if err != nil {
				return err
			}
			active, err := ops.ActiveTransaction(ctx, book.ID)
			if errors.Is(err, store.ErrNotFound) || (err == nil && active.BorrowerID != user.ID) {
				continue
			}
			if err != nil {
				return err
			}
			if err := ops.CompleteTransaction(ctx, active.ID, completedAt); err != nil {
				return err
			}
			book.Status = types.BookStatusAvailable
			if err := ops.SetBookStatus(ctx, book.ID, book.Status); err != nil {
				return err
			}
			released = append(released, book)
		}
		return ops.DeleteUser(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	for _, book := range released {
		s.activity.Record(ctx, types.BookReturnedAction(user, book))
	}
	return released, nil
}

// History lists a book's transactions, newest first.
func (s *LendingService) History(ctx context.Context, bookID int) ([]types.Transaction, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.ListByBook(ctx, bookID)
}

// conflictOnDuplicate reports a lost race on the one-active-transaction
// index as a conflict.
func conflictOnDuplicate(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: book already has an active transaction", ErrConflict)
	}
	return err
}
