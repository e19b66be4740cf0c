package types

import "time"

// Message is a private note about a book between a sender and a
// recipient. Replies carry their parent's depth + 1.
type Message struct {
	ID            int    `json:"id" db:"id"`
	BookID        int    `json:"bookId" db:"book_id"`
	BookTitle     string `json:"bookTitle,omitempty" db:"-"`
	BookOwnerID   int    `json:"-" db:"-"`
	SenderID      int    `json:"senderId" db:"sender_id"`
	SenderName    string `json:"senderName,omitempty" db:"-"`
	RecipientID   *int   `json:"recipientId,omitempty" db:"recipient_id"`
	RecipientName string `json:"recipientName,omitempty" db:"-"`

	// ParentMessageID is nil for messages that start a thread.
	ParentMessageID *int `json:"parentMessageId,omitempty" db:"parent_message_id"`

	Content string `json:"content" db:"content"`
	IsRead  bool   `json:"isRead" db:"is_read"`
	Depth   int    `json:"depth" db:"depth"`

	IsDeleted bool       `json:"isDeleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`

	// Replies is populated only in thread views.
	Replies []*Message `json:"replies,omitempty" db:"-"`
}

// InvolvesUser reports whether userID sent, received, or owns the book
// of this message.
func (m Message) InvolvesUser(userID int) bool {
	if m.SenderID == userID || m.BookOwnerID == userID {
		return true
	}
	return m.RecipientID != nil && *m.RecipientID == userID
}
