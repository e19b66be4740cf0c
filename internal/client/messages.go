package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bookx-exchange/apiserver/types"
)

// DeletedMessageText replaces the content of deleted messages in
// rendered output.
const DeletedMessageText = "(Message deleted)"

// MessageInput is a new message. BookID may be zero for replies, which
// inherit the parent's book. RecipientID defaults to the book owner.
type MessageInput struct {
	BookID          int    `json:"bookId,omitempty"`
	Content         string `json:"content"`
	ParentMessageID *int   `json:"parentMessageId,omitempty"`
	RecipientID     *int   `json:"recipientId,omitempty"`
}

func messagePath(id int) string {
	return fmt.Sprintf("/messages/%d", id)
}

func (c *Client) SendMessage(ctx context.Context, in MessageInput) (types.Message, error) {
	var out types.Message
	err := c.doJSON(ctx, http.MethodPost, "/messages", in, &out)
	return out, err
}

// UserMessages lists messages a user sent, received, or received as book
// owner, newest first.
func (c *Client) UserMessages(ctx context.Context, userID int) ([]types.Message, error) {
	var out []types.Message
	err := c.getJSON(ctx, fmt.Sprintf("/messages/user/%d", userID), nil, &out)
	return out, err
}

// BookThread returns the caller's message threads about a book.
func (c *Client) BookThread(ctx context.Context, bookID int) ([]*types.Message, error) {
	var out []*types.Message
	err := c.getJSON(ctx, fmt.Sprintf("/messages/books/%d/thread", bookID), nil, &out)
	return out, err
}

func (c *Client) Message(ctx context.Context, id int) (types.Message, error) {
	var out types.Message
	err := c.getJSON(ctx, messagePath(id), nil, &out)
	return out, err
}

func (c *Client) DeleteMessage(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, messagePath(id), nil, nil)
}

// DisplayContent is the text shown for a message.
func DisplayContent(m types.Message) string {
	if m.IsDeleted {
		return DeletedMessageText
	}
	return m.Content
}

// RenderThread writes msgs and their replies depth-first, one per line,
// indented two spaces per depth level.
func RenderThread(msgs []*types.Message) []string {
	var lines []string
	var walk func(list []*types.Message)
	walk = func(list []*types.Message) {
		for _, m := range list {
			indent := strings.Repeat("  ", m.Depth)
			lines = append(lines, fmt.Sprintf("%s%s: %s", indent, m.SenderName, DisplayContent(*m)))
			walk(m.Replies)
		}
	}
	walk(msgs)
	return lines
}
