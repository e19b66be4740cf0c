package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bookx-exchange/apiserver/types"
)

func (c *Client) transition(ctx context.Context, bookID int, action string) (types.Transaction, error) {
	var out types.Transaction
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/transactions/books/%d/%s", bookID, action), nil, &out)
	return out, err
}

func (c *Client) Borrow(ctx context.Context, bookID int) (types.Transaction, error) {
	return c.transition(ctx, bookID, "borrow")
}

func (c *Client) Reserve(ctx context.Context, bookID int) (types.Transaction, error) {
	return c.transition(ctx, bookID, "reserve")
}

// Return ends the active borrow or reservation of a book.
func (c *Client) Return(ctx context.Context, bookID int) (types.Transaction, error) {
	return c.transition(ctx, bookID, "return")
}

// History lists a book's transactions newest first.
func (c *Client) History(ctx context.Context, bookID int) ([]types.Transaction, error) {
	var out []types.Transaction
	err := c.getJSON(ctx, fmt.Sprintf("/transactions/books/%d", bookID), nil, &out)
	return out, err
}
