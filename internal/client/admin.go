package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bookx-exchange/apiserver/types"
)

func (c *Client) AdminUsers(ctx context.Context) ([]types.User, error) {
	var out []types.User
	err := c.getJSON(ctx, "/admin/users", nil, &out)
	return out, err
}

func (c *Client) AdminDeleteUser(ctx context.Context, userID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/users/%d", userID), nil, nil)
}

func (c *Client) AdminBooks(ctx context.Context) ([]types.Book, error) {
	var out []types.Book
	err := c.getJSON(ctx, "/admin/books", nil, &out)
	return out, err
}

func (c *Client) AdminDeleteBook(ctx context.Context, bookID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/books/%d", bookID), nil, nil)
}

// UserActions returns the whole activity log, newest first.
func (c *Client) UserActions(ctx context.Context) ([]types.UserActionLog, error) {
	var out []types.UserActionLog
	err := c.getJSON(ctx, "/admin/user-actions", nil, &out)
	return out, err
}

func (c *Client) ActionsByType(ctx context.Context, action types.ActionType) ([]types.UserActionLog, error) {
	var out []types.UserActionLog
	err := c.getJSON(ctx, "/admin/actions-by-type", url.Values{"actionType": {string(action)}}, &out)
	return out, err
}

// FilterActionsByUserName keeps entries whose user name contains substr,
// ignoring case. An empty substr keeps everything.
func FilterActionsByUserName(entries []types.UserActionLog, substr string) []types.UserActionLog {
	needle := strings.ToLower(strings.TrimSpace(substr))
	if needle == "" {
		return entries
	}
	out := make([]types.UserActionLog, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.UserName), needle) {
			out = append(out, entry)
		}
	}
	return out
}
