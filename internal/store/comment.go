package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookx-exchange/apiserver/types"
)

// CommentRepository handles persistence for book comments.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentSelect = `
		SELECT c.id, c.content, c.author_id, TRIM(u.first_name || ' ' || u.last_name), c.book_id,
		       c.parent_comment_id, c.is_deleted, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id`

func scanComment(row rowScanner) (types.Comment, error) {
	var comment types.Comment
	var parent sql.NullInt64
	err := row.Scan(
		&comment.ID,
		&comment.Content,
		&comment.AuthorID,
		&comment.AuthorName,
		&comment.BookID,
		&parent,
		&comment.IsDeleted,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return types.Comment{}, mapError(err)
	}
	comment.ParentCommentID = intPtr(parent)
	return comment, nil
}

// Get returns the comment whether or not it is deleted.
func (r *CommentRepository) Get(ctx context.Context, id int) (types.Comment, error) {
	return scanComment(r.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
}

// ListByBook returns every comment of a book, deleted ones included,
// oldest first.
func (r *CommentRepository) ListByBook(ctx context.Context, bookID int) ([]types.Comment, error) {
	rows, err := r.db.QueryContext(ctx, commentSelect+` WHERE c.book_id = $1 ORDER BY c.created_at ASC, c.id ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]types.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	const query = `
		INSERT INTO comments (content, author_id, book_id, parent_comment_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		comment.Content,
		comment.AuthorID,
		comment.BookID,
		nullableInt(comment.ParentCommentID),
		comment.CreatedAt,
		comment.UpdatedAt,
	).Scan(&comment.ID); err != nil {
		return types.Comment{}, mapError(err)
	}
	return comment, nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id int, content string) (types.Comment, error) {
	const query = `UPDATE comments SET content = $1, updated_at = $2 WHERE id = $3 AND NOT is_deleted`
	result, err := r.db.ExecContext(ctx, query, content, time.Now(), id)
	if err != nil {
		return types.Comment{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Comment{}, err
	}
	if affected == 0 {
		return types.Comment{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// MarkDeleted flips the soft-delete flag; the row and its content stay.
func (r *CommentRepository) MarkDeleted(ctx context.Context, id int) error {
	const query = `UPDATE comments SET is_deleted = TRUE, updated_at = $1 WHERE id = $2 AND NOT is_deleted`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
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
