package types

import "time"

// Comment is a public remark on a book. Replies point at their parent
// and together form one tree per book.
type Comment struct {
	ID         int    `json:"id" db:"id"`
	Content    string `json:"content" db:"content"`
	AuthorID   int    `json:"authorId" db:"author_id"`
	AuthorName string `json:"authorName,omitempty" db:"-"`
	BookID     int    `json:"bookId" db:"book_id"`

	// ParentCommentID is nil for top-level comments.
	ParentCommentID *int `json:"parentCommentId,omitempty" db:"parent_comment_id"`

	IsDeleted bool      `json:"isDeleted" db:"is_deleted"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Depth is 0 for top-level comments and parent depth + 1 for replies.
	Depth int `json:"depth" db:"-"`

	// Replies is populated only in tree views.
	Replies []*Comment `json:"replies,omitempty" db:"-"`
}

// IsTopLevel reports whether the comment has no parent.
func (c Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil
}
