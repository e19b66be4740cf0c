package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookx-exchange/apiserver/types"
)

// TransactionRepository handles persistence for lending transactions.
// State transitions run through WithinTx so the book row stays locked
// for the whole read-check-write sequence.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, book_id, borrower_id, lender_id, type, status, created_at, completed_at`

func scanTransaction(row rowScanner) (types.Transaction, error) {
	var tx types.Transaction
	var completed sql.NullTime
	err := row.Scan(
		&tx.ID,
		&tx.BookID,
		&tx.BorrowerID,
		&tx.LenderID,
		&tx.Type,
		&tx.Status,
		&tx.CreatedAt,
		&completed,
	)
	if err != nil {
		return types.Transaction{}, mapError(err)
	}
	if completed.Valid {
		t := completed.Time
		tx.CompletedAt = &t
	}
	return tx, nil
}

// WithinTx runs fn inside a database transaction, committing when fn
// returns nil and rolling back otherwise.
func (r *TransactionRepository) WithinTx(ctx context.Context, fn func(ops LendingOps) error) (err error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&lendingTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (r *TransactionRepository) ListByBook(ctx context.Context, bookID int) ([]types.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE book_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]types.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// LendingOps are the statements a book state transition needs, bound to
// one open database transaction.
type LendingOps interface {
	GetBookForUpdate(ctx context.Context, bookID int) (types.Book, error)
	ActiveTransaction(ctx context.Context, bookID int) (types.Transaction, error)
	CreateTransaction(ctx context.Context, t types.Transaction) (types.Transaction, error)
	CompleteTransaction(ctx context.Context, id int, at time.Time) error
	SetBookStatus(ctx context.Context, bookID int, status types.BookStatus) error

	// ActiveByBorrower lists the ACTIVE transactions held by a user.
	ActiveByBorrower(ctx context.Context, borrowerID int) ([]types.Transaction, error)
	// DeleteUser removes the user. Owned books, transactions, comments
	// and messages go with it through ON DELETE CASCADE.
	DeleteUser(ctx context.Context, userID int) error
}

type lendingTx struct {
	tx *sql.Tx
}

// GetBookForUpdate loads the book and locks its row until commit.
func (l *lendingTx) GetBookForUpdate(ctx context.Context, bookID int) (types.Book, error) {
	const query = `
		SELECT id, title, author, category, description, status, owner_id, publication_year, cover_key, created_at, updated_at
		FROM books
		WHERE id = $1
		FOR UPDATE`
	var book types.Book
	var year sql.NullInt64
	err := l.tx.QueryRowContext(ctx, query, bookID).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Category,
		&book.Description,
		&book.Status,
		&book.OwnerID,
		&year,
		&book.CoverKey,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return types.Book{}, mapError(err)
	}
	book.PublicationYear = intPtr(year)
	return book, nil
}

// ActiveTransaction returns the book's ACTIVE transaction or ErrNotFound.
func (l *lendingTx) ActiveTransaction(ctx context.Context, bookID int) (types.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE book_id = $1 AND status = $2`
	return scanTransaction(l.tx.QueryRowContext(ctx, query, bookID, types.TransactionActive))
}

func (l *lendingTx) CreateTransaction(ctx context.Context, t types.Transaction) (types.Transaction, error) {
	t.CreatedAt = time.Now()

	const query = `
		INSERT INTO transactions (book_id, borrower_id, lender_id, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := l.tx.QueryRowContext(
		ctx,
		query,
		t.BookID,
		t.BorrowerID,
		t.LenderID,
		t.Type,
		t.Status,
		t.CreatedAt,
	).Scan(&t.ID); err != nil {
		return types.Transaction{}, mapError(err)
	}
	return t, nil
}

func (l *lendingTx) CompleteTransaction(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE transactions SET status = $1, completed_at = $2 WHERE id = $3`
	result, err := l.tx.ExecContext(ctx, query, types.TransactionCompleted, at, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *lendingTx) SetBookStatus(ctx context.Context, bookID int, status types.BookStatus) error {
	const query = `UPDATE books SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := l.tx.ExecContext(ctx, query, status, time.Now(), bookID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *lendingTx) ActiveByBorrower(ctx context.Context, borrowerID int) ([]types.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE borrower_id = $1 AND status = $2 ORDER BY book_id`
	rows, err := l.tx.QueryContext(ctx, query, borrowerID, types.TransactionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]types.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (l *lendingTx) DeleteUser(ctx context.Context, userID int) error {
	result, err := l.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
