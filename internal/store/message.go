package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookx-exchange/apiserver/types"
)

// MessageRepository handles persistence for direct messages.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageSelect = `
		SELECT m.id, m.book_id, b.title, b.owner_id,
		       m.sender_id, TRIM(s.first_name || ' ' || s.last_name),
		       m.recipient_id, COALESCE(TRIM(r.first_name || ' ' || r.last_name), ''),
		       m.parent_message_id, m.content, m.is_read, m.depth,
		       m.is_deleted, m.deleted_at, m.created_at
		FROM messages m
		JOIN books b ON b.id = m.book_id
		JOIN users s ON s.id = m.sender_id
		LEFT JOIN users r ON r.id = m.recipient_id`

func scanMessage(row rowScanner) (types.Message, error) {
	var msg types.Message
	var recipient, parent sql.NullInt64
	var deletedAt sql.NullTime
	err := row.Scan(
		&msg.ID,
		&msg.BookID,
		&msg.BookTitle,
		&msg.BookOwnerID,
		&msg.SenderID,
		&msg.SenderName,
		&recipient,
		&msg.RecipientName,
		&parent,
		&msg.Content,
		&msg.IsRead,
		&msg.Depth,
		&msg.IsDeleted,
		&deletedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return types.Message{}, mapError(err)
	}
	msg.RecipientID = intPtr(recipient)
	msg.ParentMessageID = intPtr(parent)
	if deletedAt.Valid {
		t := deletedAt.Time
		msg.DeletedAt = &t
	}
	return msg, nil
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]types.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]types.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) Get(ctx context.Context, id int) (types.Message, error) {
	return scanMessage(r.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = $1`, id))
}

// ListForUser returns messages the user sent, received, or that concern
// one of the user's books, newest first.
func (r *MessageRepository) ListForUser(ctx context.Context, userID int) ([]types.Message, error) {
	query := messageSelect + `
		WHERE m.sender_id = $1 OR m.recipient_id = $1 OR b.owner_id = $1
		ORDER BY m.created_at DESC, m.id DESC`
	return r.queryMessages(ctx, query, userID)
}

// ListForBookAndUser returns the user's messages about one book, oldest
// first.
func (r *MessageRepository) ListForBookAndUser(ctx context.Context, bookID, userID int) ([]types.Message, error) {
	query := messageSelect + `
		WHERE m.book_id = $1 AND (m.sender_id = $2 OR m.recipient_id = $2 OR b.owner_id = $2)
		ORDER BY m.created_at ASC, m.id ASC`
	return r.queryMessages(ctx, query, bookID, userID)
}

func (r *MessageRepository) Create(ctx context.Context, msg types.Message) (types.Message, error) {
	msg.CreatedAt = time.Now()

	const query = `
		INSERT INTO messages (book_id, sender_id, recipient_id, parent_message_id, content, is_read, depth, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, FALSE, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		msg.BookID,
		msg.SenderID,
		nullableInt(msg.RecipientID),
		nullableInt(msg.ParentMessageID),
		msg.Content,
		msg.Depth,
		msg.CreatedAt,
	).Scan(&msg.ID); err != nil {
		return types.Message{}, mapError(err)
	}
	return msg, nil
}

// MarkDeleted flips the soft-delete flag and stamps deleted_at.
func (r *MessageRepository) MarkDeleted(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE messages SET is_deleted = TRUE, deleted_at = $1 WHERE id = $2 AND NOT is_deleted`
	result, err := r.db.ExecContext(ctx, query, at, id)
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
