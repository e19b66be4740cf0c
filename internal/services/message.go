package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Get(ctx context.Context, id int) (types.Message, error)
	ListForUser(ctx context.Context, userID int) ([]types.Message, error)
	ListForBookAndUser(ctx context.Context, bookID, userID int) ([]types.Message, error)
	Create(ctx context.Context, msg types.Message) (types.Message, error)
	MarkDeleted(ctx context.Context, id int, at time.Time) error
}

// MessageDraft is an outgoing message. BookID may be zero for replies,
// which then use the parent's book.
type MessageDraft struct {
	BookID          int
	Content         string
	ParentMessageID *int
	RecipientID     *int
}

// MessageService encapsulates private message threads about books.
type MessageService struct {
	repo     MessageRepository
	books    BookReader
	users    UserReader
	activity *ActivityService
	now      func() time.Time
}

func NewMessageService(repo MessageRepository, books BookReader, users UserReader, activity *ActivityService) *MessageService {
	return &MessageService{
		repo:     repo,
		books:    books,
		users:    users,
		activity: activity,
		now:      time.Now,
	}
}

// Send stores a message from sender. Without an explicit recipient the
// message goes to the book owner, or back to the parent's sender when the
// owner is the one replying.
func (s *MessageService) Send(ctx context.Context, sender types.User, draft MessageDraft) (types.Message, error) {
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		return types.Message{}, invalidInput("content is required")
	}

	bookID := draft.BookID
	depth := 0
	var parent *types.Message
	if draft.ParentMessageID != nil {
		p, err := s.repo.Get(ctx, *draft.ParentMessageID)
		if err != nil {
			return types.Message{}, err
		}
		if p.IsDeleted {
			return types.Message{}, fmt.Errorf("%w: message %d is deleted", store.ErrNotFound, p.ID)
		}
		if !p.InvolvesUser(sender.ID) {
			return types.Message{}, forbidden("not a participant of this message")
		}
		if draft.RecipientID != nil && !p.InvolvesUser(*draft.RecipientID) {
			return types.Message{}, forbidden("reply recipient is not a participant of this message")
		}
		if bookID != 0 && bookID != p.BookID {
			return types.Message{}, invalidInput("reply must stay on book %d", p.BookID)
		}
		bookID = p.BookID
		depth = p.Depth + 1
		parent = &p
	}
	if bookID <= 0 {
		return types.Message{}, invalidInput("bookId is required")
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return types.Message{}, err
	}

	var recipient types.User
	switch {
	case draft.RecipientID != nil:
		recipient, err = s.users.GetByID(ctx, *draft.RecipientID)
	case parent != nil && book.OwnerID == sender.ID && parent.SenderID != sender.ID:
		recipient, err = s.users.GetByID(ctx, parent.SenderID)
	default:
		recipient, err = s.users.GetByID(ctx, book.OwnerID)
	}
	if err != nil {
		return types.Message{}, err
	}

	msg, err := s.repo.Create(ctx, types.Message{
		BookID:          book.ID,
		SenderID:        sender.ID,
		RecipientID:     &recipient.ID,
		ParentMessageID: draft.ParentMessageID,
		Content:         content,
		Depth:           depth,
	})
	if err != nil {
		return types.Message{}, err
	}
	msg.BookTitle = book.Title
	msg.BookOwnerID = book.OwnerID
	msg.SenderName = sender.FullName()
	msg.RecipientName = recipient.FullName()

	s.activity.Record(ctx, types.MessageSentAction(sender, msg, book))
	return msg, nil
}

// ForUser lists the messages a user sent, received or that concern one of
// their books, newest first. Only the user or an admin may look.
func (s *MessageService) ForUser(ctx context.Context, viewer types.User, userID int) ([]types.Message, error) {
	if viewer.ID != userID && !viewer.IsAdmin() {
		return nil, forbidden("cannot read another user's messages")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListForUser(ctx, userID)
}

// Thread returns the viewer's conversations about a book as reply trees,
// oldest first.
func (s *MessageService) Thread(ctx context.Context, viewer types.User, bookID int) ([]*types.Message, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListForBookAndUser(ctx, bookID, viewer.ID)
	if err != nil {
		return nil, err
	}
	return buildMessageThreads(messages), nil
}

// Get returns a message, deleted or not, to someone involved in it.
func (s *MessageService) Get(ctx context.Context, viewer types.User, id int) (types.Message, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Message{}, err
	}
	if !msg.InvolvesUser(viewer.ID) && !viewer.IsAdmin() {
		return types.Message{}, forbidden("not a participant of this message")
	}
	return msg, nil
}

// Delete soft-deletes a message for its sender or recipient.
func (s *MessageService) Delete(ctx context.Context, actor types.User, id int) error {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return fmt.Errorf("%w: message %d is deleted", store.ErrNotFound, id)
	}
	isRecipient := msg.RecipientID != nil && *msg.RecipientID == actor.ID
	if msg.SenderID != actor.ID && !isRecipient {
		return forbidden("only the sender or the recipient can delete this message")
	}
	return s.repo.MarkDeleted(ctx, msg.ID, s.now())
}

// buildMessageThreads nests replies under their parents. Messages whose
// parent is not visible start their own thread.
func buildMessageThreads(messages []types.Message) []*types.Message {
	nodes := make(map[int]*types.Message, len(messages))
	ordered := make([]*types.Message, 0, len(messages))
	for i := range messages {
		m := messages[i]
		m.Replies = nil
		nodes[m.ID] = &m
		ordered = append(ordered, &m)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	roots := make([]*types.Message, 0)
	for _, m := range ordered {
		if m.ParentMessageID != nil {
			if parent, ok := nodes[*m.ParentMessageID]; ok {
				parent.Replies = append(parent.Replies, m)
				continue
			}
		}
		roots = append(roots, m)
	}
	return roots
}
