package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bookx-exchange/apiserver/internal/storage"
	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
)

// MaxCoverSize caps uploaded cover images.
const MaxCoverSize = 5 << 20

var coverContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// BookRepository defines persistence operations for books.
type BookRepository interface {
	List(ctx context.Context) ([]types.Book, error)
	Get(ctx context.Context, id int) (types.Book, error)
	Count(ctx context.Context) (int, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Book, error)
	ListHeldBy(ctx context.Context, userID int) ([]types.Book, error)
	ListAvailableExcludingOwner(ctx context.Context, ownerID int) ([]types.Book, error)
	Search(ctx context.Context, filter types.BookFilter) ([]types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	Update(ctx context.Context, book types.Book) (types.Book, error)
	SwapCover(ctx context.Context, id int, previous, key string) (string, error)
	Delete(ctx context.Context, id int) error
}

// BookReader is the lookup other services need to resolve book ids.
type BookReader interface {
	Get(ctx context.Context, id int) (types.Book, error)
}

// CoverStore holds cover images. storage.Storage satisfies it.
type CoverStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// BookDraft carries the editable fields of a book.
type BookDraft struct {
	Title           string
	Author          string
	Category        types.BookCategory
	Description     string
	PublicationYear *int
}

func (d BookDraft) normalize() (BookDraft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.Description = strings.TrimSpace(d.Description)
	if d.Title == "" || d.Author == "" {
		return d, invalidInput("title and author are required")
	}
	category, err := types.ParseCategory(string(d.Category))
	if err != nil {
		return d, invalidInput("%v: %q", err, d.Category)
	}
	d.Category = category
	if d.PublicationYear != nil && *d.PublicationYear < 0 {
		return d, invalidInput("publicationYear must not be negative")
	}
	return d, nil
}

// BookService encapsulates book use-cases outside of lending.
type BookService struct {
	repo     BookRepository
	activity *ActivityService
	covers   CoverStore
	logger   *slog.Logger
}

// NewBookService builds the service. covers may be nil when no object
// storage is configured; cover operations then fail with
// ErrStorageDisabled.
func NewBookService(repo BookRepository, activity *ActivityService, covers CoverStore, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{
		repo:     repo,
		activity: activity,
		covers:   covers,
		logger:   logger,
	}
}

func (s *BookService) List(ctx context.Context) ([]types.Book, error) {
	return s.repo.List(ctx)
}

func (s *BookService) Get(ctx context.Context, id int) (types.Book, error) {
	return s.repo.Get(ctx, id)
}

func (s *BookService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *BookService) Search(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	if filter.YearFrom != nil && filter.YearTo != nil && *filter.YearFrom > *filter.YearTo {
		return nil, invalidInput("yearFrom must not be after yearTo")
	}
	return s.repo.Search(ctx, filter)
}

// Available lists AVAILABLE books that the user does not own.
func (s *BookService) Available(ctx context.Context, user types.User) ([]types.Book, error) {
	return s.repo.ListAvailableExcludingOwner(ctx, user.ID)
}

// Related lists the books a user owns followed by the books they
// currently hold as borrower, without duplicates.
func (s *BookService) Related(ctx context.Context, userID int) ([]types.Book, error) {
	owned, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	held, err := s.repo.ListHeldBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(owned)+len(held))
	related := make([]types.Book, 0, len(owned)+len(held))
	for _, list := range [][]types.Book{owned, held} {
		for _, book := range list {
			if seen[book.ID] {
				continue
			}
			seen[book.ID] = true
			related = append(related, book)
		}
	}
	return related, nil
}

// Categories returns the display names of every category.
func (s *BookService) Categories() []string {
	names := make([]string, 0, len(types.Categories))
	for _, c := range types.Categories {
		names = append(names, c.DisplayName())
	}
	return names
}

// Create lists a new book owned by owner. New books are always AVAILABLE.
func (s *BookService) Create(ctx context.Context, owner types.User, draft BookDraft) (types.Book, error) {
	draft, err := draft.normalize()
	if err != nil {
		return types.Book{}, err
	}

	book, err := s.repo.Create(ctx, types.Book{
		Title:           draft.Title,
		Author:          draft.Author,
		Category:        draft.Category,
		Description:     draft.Description,
		Status:          types.BookStatusAvailable,
		OwnerID:         owner.ID,
		PublicationYear: draft.PublicationYear,
	})
	if err != nil {
		return types.Book{}, err
	}
	book.OwnerName = owner.FullName()

	s.activity.Record(ctx, types.BookCreatedAction(owner, book))
	return book, nil
}

// Update changes the editable fields. Status is left untouched.
func (s *BookService) Update(ctx context.Context, actor types.User, id int, draft BookDraft) (types.Book, error) {
	draft, err := draft.normalize()
	if err != nil {
		return types.Book{}, err
	}
	book, err := s.ownedBook(ctx, actor, id)
	if err != nil {
		return types.Book{}, err
	}

	book.Title = draft.Title
	book.Author = draft.Author
	book.Category = draft.Category
	book.Description = draft.Description
	book.PublicationYear = draft.PublicationYear
	return s.repo.Update(ctx, book)
}

// Delete removes a book owned by actor.
func (s *BookService) Delete(ctx context.Context, actor types.User, id int) error {
	book, err := s.ownedBook(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, actor, book)
}

// remove deletes the row, logs the deletion against actor and drops the
// cover object.
func (s *BookService) remove(ctx context.Context, actor types.User, book types.Book) error {
	if err := s.repo.Delete(ctx, book.ID); err != nil {
		return err
	}
	s.activity.Record(ctx, types.BookDeletedAction(actor, book))
	s.dropCover(ctx, book.CoverKey)
	return nil
}

func (s *BookService) ownedBook(ctx context.Context, actor types.User, id int) (types.Book, error) {
	book, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Book{}, err
	}
	if book.OwnerID != actor.ID {
		return types.Book{}, forbidden("only the owner can modify this book")
	}
	return book, nil
}

// UploadCover stores a cover image for a book owned by actor and returns
// the updated book.
func (s *BookService) UploadCover(ctx context.Context, actor types.User, id int, contentType string, data []byte) (types.Book, error) {
	if s.covers == nil {
		return types.Book{}, ErrStorageDisabled
	}
	if len(data) == 0 {
		return types.Book{}, invalidInput("empty cover image")
	}
	if len(data) > MaxCoverSize {
		return types.Book{}, invalidInput("cover image exceeds %d bytes", MaxCoverSize)
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !coverContentTypes[contentType] {
		return types.Book{}, invalidInput("unsupported cover type %q", contentType)
	}

	book, err := s.ownedBook(ctx, actor, id)
	if err != nil {
		return types.Book{}, err
	}

	hash := sha256.Sum256(data)
	key := coverKey(book.ID, hex.EncodeToString(hash[:]))
	if key == book.CoverKey {
		return book, nil
	}

	if err := s.covers.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.Book{}, fmt.Errorf("store cover: %w", err)
	}
	current, err := s.repo.SwapCover(ctx, book.ID, book.CoverKey, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.dropCover(ctx, key)
		}
		return types.Book{}, err
	}
	if current != key {
		s.dropCover(ctx, key)
		return types.Book{}, fmt.Errorf("%w: cover was replaced by another upload", ErrConflict)
	}
	s.dropCover(ctx, book.CoverKey)

	book.CoverKey = key
	return book, nil
}

// Cover opens the stored cover of a book.
func (s *BookService) Cover(ctx context.Context, id int) (*storage.Object, error) {
	if s.covers == nil {
		return nil, ErrStorageDisabled
	}
	book, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.CoverKey == "" {
		return nil, fmt.Errorf("%w: book has no cover", store.ErrNotFound)
	}
	obj, err := s.covers.Get(ctx, book.CoverKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: cover object is missing", store.ErrNotFound)
	}
	return obj, err
}

func (s *BookService) dropCover(ctx context.Context, key string) {
	if key == "" || s.covers == nil {
		return
	}
	if err := s.covers.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete cover", "key", key, "error", err)
	}
}

func coverKey(bookID int, sum string) string {
	return fmt.Sprintf("covers/%d/%s", bookID, sum)
}
