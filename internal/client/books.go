package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bookx-exchange/apiserver/types"
)

type BookInput struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	PublicationYear *int   `json:"publicationYear,omitempty"`
}

// SearchParams maps onto the /books/search query string. Zero values are
// omitted. The server excludes the caller's own books unless
// IncludeOwn is set.
type SearchParams struct {
	Query      string
	Category   string
	Author     string
	Status     string
	YearFrom   *int
	YearTo     *int
	IncludeOwn bool
}

func (p SearchParams) values() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("query", p.Query)
	set("category", p.Category)
	set("author", p.Author)
	set("status", p.Status)
	if p.YearFrom != nil {
		q.Set("yearFrom", strconv.Itoa(*p.YearFrom))
	}
	if p.YearTo != nil {
		q.Set("yearTo", strconv.Itoa(*p.YearTo))
	}
	if p.IncludeOwn {
		q.Set("excludeCurrentUser", "false")
	}
	return q
}

func bookPath(id int) string {
	return fmt.Sprintf("/books/%d", id)
}

// Categories returns the display names of every category.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.getJSON(ctx, "/books/categories", nil, &out)
	return out, err
}

func (c *Client) Books(ctx context.Context) ([]types.Book, error) {
	var out []types.Book
	err := c.getJSON(ctx, "/books", nil, &out)
	return out, err
}

func (c *Client) Book(ctx context.Context, id int) (types.Book, error) {
	var out types.Book
	err := c.getJSON(ctx, bookPath(id), nil, &out)
	return out, err
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (types.Book, error) {
	var out types.Book
	err := c.doJSON(ctx, http.MethodPost, "/books", in, &out)
	return out, err
}

func (c *Client) UpdateBook(ctx context.Context, id int, in BookInput) (types.Book, error) {
	var out types.Book
	err := c.doJSON(ctx, http.MethodPut, bookPath(id), in, &out)
	return out, err
}

func (c *Client) DeleteBook(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, bookPath(id), nil, nil)
}

func (c *Client) SearchBooks(ctx context.Context, params SearchParams) ([]types.Book, error) {
	var out []types.Book
	err := c.getJSON(ctx, "/books/search", params.values(), &out)
	return out, err
}

// AvailableBooks lists AVAILABLE books owned by other users.
func (c *Client) AvailableBooks(ctx context.Context) ([]types.Book, error) {
	var out []types.Book
	err := c.getJSON(ctx, "/books/available", nil, &out)
	return out, err
}

// RelatedBooks lists the books a user owns or currently holds.
func (c *Client) RelatedBooks(ctx context.Context, userID int) ([]types.Book, error) {
	var out []types.Book
	err := c.getJSON(ctx, fmt.Sprintf("/books/user/%d/related", userID), nil, &out)
	return out, err
}

// UploadCover sends the raw image bytes as the request body.
func (c *Client) UploadCover(ctx context.Context, id int, contentType string, image io.Reader) (types.Book, error) {
	resp, err := c.do(ctx, http.MethodPut, bookPath(id)+"/cover", image, contentType)
	if err != nil {
		return types.Book{}, err
	}
	defer resp.Body.Close()

	var out types.Book
	if err := decodeBody(resp, &out); err != nil {
		return types.Book{}, err
	}
	return out, nil
}

// Cover downloads the cover image and its content type.
func (c *Client) Cover(ctx context.Context, id int) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, bookPath(id)+"/cover", nil, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
