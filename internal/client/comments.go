package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bookx-exchange/apiserver/types"
)

type contentBody struct {
	Content string `json:"content"`
}

func commentPath(id int) string {
	return fmt.Sprintf("/comments/%d", id)
}

func (c *Client) AddComment(ctx context.Context, bookID int, content string) (types.Comment, error) {
	var out types.Comment
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/comments/books/%d", bookID), contentBody{content}, &out)
	return out, err
}

func (c *Client) ReplyToComment(ctx context.Context, parentID int, content string) (types.Comment, error) {
	var out types.Comment
	err := c.doJSON(ctx, http.MethodPost, commentPath(parentID)+"/replies", contentBody{content}, &out)
	return out, err
}

// CommentTree returns the top-level comments of a book with nested
// replies.
func (c *Client) CommentTree(ctx context.Context, bookID int) ([]*types.Comment, error) {
	var out []*types.Comment
	err := c.getJSON(ctx, fmt.Sprintf("/comments/books/%d/nested", bookID), nil, &out)
	return out, err
}

func (c *Client) Comment(ctx context.Context, id int) (types.Comment, error) {
	var out types.Comment
	err := c.getJSON(ctx, commentPath(id), nil, &out)
	return out, err
}

func (c *Client) UpdateComment(ctx context.Context, id int, content string) (types.Comment, error) {
	var out types.Comment
	err := c.doJSON(ctx, http.MethodPut, commentPath(id), contentBody{content}, &out)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, commentPath(id), nil, nil)
}
