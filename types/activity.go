package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActionType names a mutating action recorded in the activity log.
type ActionType string

const (
	ActionBookCreated  ActionType = "BOOK_CREATED"
	ActionBookBorrowed ActionType = "BOOK_BORROWED"
	ActionBookReserved ActionType = "BOOK_RESERVED"
	ActionBookReturned ActionType = "BOOK_RETURNED"
	ActionBookDeleted  ActionType = "BOOK_DELETED"
	ActionMessageSent  ActionType = "MESSAGE_SENT"
	ActionCommentAdded ActionType = "COMMENT_ADDED"
	ActionUserDeleted  ActionType = "USER_DELETED"
)

// TargetType names the kind of row an action refers to.
type TargetType string

const (
	TargetBook    TargetType = "BOOK"
	TargetMessage TargetType = "MESSAGE"
	TargetComment TargetType = "COMMENT"
	TargetUser    TargetType = "USER"
)

// UserActionLog is one append-only audit entry.
type UserActionLog struct {
	ID          int        `json:"id" db:"id"`
	UserID      int        `json:"userId" db:"user_id"`
	UserName    string     `json:"userName" db:"user_name"`
	ActionType  ActionType `json:"actionType" db:"action_type"`
	Description string     `json:"description" db:"description"`
	TargetID    int        `json:"targetId,omitempty" db:"target_id"`
	TargetType  TargetType `json:"targetType,omitempty" db:"target_type"`
	Timestamp   time.Time  `json:"timestamp" db:"timestamp"`
}

func newAction(actor User, action ActionType, description string, targetID int, target TargetType) UserActionLog {
	return UserActionLog{
		UserID:      actor.ID,
		UserName:    actor.FullName(),
		ActionType:  action,
		Description: description,
		TargetID:    targetID,
		TargetType:  target,
	}
}

func BookCreatedAction(actor User, book Book) UserActionLog {
	return newAction(actor, ActionBookCreated, "Created book: "+book.Title, book.ID, TargetBook)
}

func BookBorrowedAction(actor User, book Book) UserActionLog {
	return newAction(actor, ActionBookBorrowed, "Borrowed book: "+book.Title, book.ID, TargetBook)
}

func BookReservedAction(actor User, book Book) UserActionLog {
	return newAction(actor, ActionBookReserved, "Reserved book: "+book.Title, book.ID, TargetBook)
}

func BookReturnedAction(actor User, book Book) UserActionLog {
	return newAction(actor, ActionBookReturned, "Returned book: "+book.Title, book.ID, TargetBook)
}

func BookDeletedAction(actor User, book Book) UserActionLog {
	return newAction(actor, ActionBookDeleted, "Deleted book: "+book.Title, book.ID, TargetBook)
}

func MessageSentAction(actor User, message Message, book Book) UserActionLog {
	return newAction(actor, ActionMessageSent, "Sent message about book: "+book.Title, message.ID, TargetMessage)
}

func CommentAddedAction(actor User, comment Comment, book Book) UserActionLog {
	return newAction(actor, ActionCommentAdded, "Added comment to book: "+book.Title, comment.ID, TargetComment)
}

func UserDeletedAction(admin User, deleted User) UserActionLog {
	return newAction(admin, ActionUserDeleted, fmt.Sprintf("Deleted user: %s", deleted.FullName()), deleted.ID, TargetUser)
}

// ActionTypes lists every recorded action type.
var ActionTypes = []ActionType{
	ActionBookCreated,
	ActionBookBorrowed,
	ActionBookReserved,
	ActionBookReturned,
	ActionBookDeleted,
	ActionMessageSent,
	ActionCommentAdded,
	ActionUserDeleted,
}

// ErrUnknownActionType is returned by ParseActionType.
var ErrUnknownActionType = errors.New("unknown action type")

// ParseActionType parses an action type case-insensitively.
func ParseActionType(raw string) (ActionType, error) {
	raw = strings.TrimSpace(raw)
	for _, a := range ActionTypes {
		if strings.EqualFold(raw, string(a)) {
			return a, nil
		}
	}
	return "", ErrUnknownActionType
}
