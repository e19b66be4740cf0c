package client

import (
	"context"
	"net/http"

	"github.com/bookx-exchange/apiserver/types"
)

type Registration struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Register creates an account and keeps its token.
func (c *Client) Register(ctx context.Context, reg Registration) (types.User, error) {
	var out authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", reg, &out); err != nil {
		return types.User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (types.User, error) {
	var out authResponse
	in := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return types.User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) Me(ctx context.Context) (types.User, error) {
	var out types.User
	err := c.getJSON(ctx, "/auth/me", nil, &out)
	return out, err
}

func (c *Client) Healthz(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", nil, nil)
}
