package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookx-exchange/apiserver/types"
)

// BookRepository handles persistence for books.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookSelect = `
		SELECT b.id, b.title, b.author, b.category, b.description, b.status, b.owner_id,
		       TRIM(u.first_name || ' ' || u.last_name), b.publication_year, b.cover_key,
		       b.created_at, b.updated_at
		FROM books b
		JOIN users u ON u.id = b.owner_id`

func scanBook(row rowScanner) (types.Book, error) {
	var book types.Book
	var year sql.NullInt64
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Category,
		&book.Description,
		&book.Status,
		&book.OwnerID,
		&book.OwnerName,
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

func (r *BookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]types.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]types.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (r *BookRepository) List(ctx context.Context) ([]types.Book, error) {
	return r.queryBooks(ctx, bookSelect+` ORDER BY b.created_at DESC, b.id DESC`)
}

func (r *BookRepository) Get(ctx context.Context, id int) (types.Book, error) {
	return scanBook(r.db.QueryRowContext(ctx, bookSelect+` WHERE b.id = $1`, id))
}

func (r *BookRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM books`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *BookRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Book, error) {
	return r.queryBooks(ctx, bookSelect+` WHERE b.owner_id = $1 ORDER BY b.created_at DESC, b.id DESC`, ownerID)
}

// ListHeldBy returns books the user currently borrows or has reserved.
func (r *BookRepository) ListHeldBy(ctx context.Context, userID int) ([]types.Book, error) {
	query := bookSelect + `
		JOIN transactions t ON t.book_id = b.id
		WHERE t.borrower_id = $1 AND t.status = $2
		ORDER BY t.created_at DESC, b.id DESC`
	return r.queryBooks(ctx, query, userID, types.TransactionActive)
}

func (r *BookRepository) ListAvailableExcludingOwner(ctx context.Context, ownerID int) ([]types.Book, error) {
	query := bookSelect + `
		WHERE b.status = $1 AND b.owner_id <> $2
		ORDER BY b.created_at DESC, b.id DESC`
	return r.queryBooks(ctx, query, types.BookStatusAvailable, ownerID)
}

func (r *BookRepository) Search(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	query, args := buildBookSearch(filter)
	return r.queryBooks(ctx, query, args...)
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.Status == "" {
		book.Status = types.BookStatusAvailable
	}

	const query = `
		INSERT INTO books (title, author, category, description, status, owner_id, publication_year, cover_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		book.Title,
		book.Author,
		book.Category,
		book.Description,
		book.Status,
		book.OwnerID,
		nullableInt(book.PublicationYear),
		book.CoverKey,
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&book.ID); err != nil {
		return types.Book{}, mapError(err)
	}
	return book, nil
}

// Update writes the editable fields. Status and owner are left alone.
func (r *BookRepository) Update(ctx context.Context, book types.Book) (types.Book, error) {
	book.UpdatedAt = time.Now()

	const query = `
		UPDATE books
		SET title = $1,
			author = $2,
			category = $3,
			description = $4,
			publication_year = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		book.Title,
		book.Author,
		book.Category,
		book.Description,
		nullableInt(book.PublicationYear),
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		return types.Book{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Book{}, err
	}
	if affected == 0 {
		return types.Book{}, ErrNotFound
	}
	return r.Get(ctx, book.ID)
}

// SwapCover sets the cover key only if it still equals previous and
// returns the key stored afterwards. A result other than key means another
// writer got there first.
func (r *BookRepository) SwapCover(ctx context.Context, id int, previous, key string) (string, error) {
	const update = `UPDATE books SET cover_key = $1, updated_at = $2 WHERE id = $3 AND cover_key = $4`
	result, err := r.db.ExecContext(ctx, update, key, time.Now(), id, previous)
	if err != nil {
		return "", err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 1 {
		return key, nil
	}

	var current string
	if err := r.db.QueryRowContext(ctx, `SELECT cover_key FROM books WHERE id = $1`, id).Scan(&current); err != nil {
		return "", mapError(err)
	}
	return current, nil
}

func (r *BookRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM books WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
