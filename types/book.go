package types

import (
	"errors"
	"strings"
	"time"
)

// BookStatus is the lending state of a book.
type BookStatus string

const (
	BookStatusAvailable BookStatus = "AVAILABLE"
	BookStatusBorrowed  BookStatus = "BORROWED"
	BookStatusReserved  BookStatus = "RESERVED"
)

// BookCategory is one of the fixed book categories.
type BookCategory string

const (
	CategoryFiction        BookCategory = "FICTION"
	CategoryNonFiction     BookCategory = "NON_FICTION"
	CategoryScienceFiction BookCategory = "SCIENCE_FICTION"
	CategoryFantasy        BookCategory = "FANTASY"
	CategoryHistory        BookCategory = "HISTORY"
	CategoryBiography      BookCategory = "BIOGRAPHY"
	CategoryRomance        BookCategory = "ROMANCE"
	CategoryMystery        BookCategory = "MYSTERY"
	CategoryThriller       BookCategory = "THRILLER"
	CategoryAdventure      BookCategory = "ADVENTURE"
)

// Categories lists every category in display order.
var Categories = []BookCategory{
	CategoryFiction,
	CategoryNonFiction,
	CategoryScienceFiction,
	CategoryFantasy,
	CategoryHistory,
	CategoryBiography,
	CategoryRomance,
	CategoryMystery,
	CategoryThriller,
	CategoryAdventure,
}

var categoryDisplayNames = map[BookCategory]string{
	CategoryFiction:        "Fiction",
	CategoryNonFiction:     "Non-Fiction",
	CategoryScienceFiction: "Science Fiction",
	CategoryFantasy:        "Fantasy",
	CategoryHistory:        "History",
	CategoryBiography:      "Biography",
	CategoryRomance:        "Romance",
	CategoryMystery:        "Mystery",
	CategoryThriller:       "Thriller",
	CategoryAdventure:      "Adventure",
}

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownStatus   = errors.New("unknown status")
)

// DisplayName returns the human-readable category name.
func (c BookCategory) DisplayName() string {
	if name, ok := categoryDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseCategory accepts an enum value ("SCIENCE_FICTION") or a display
// name ("Science Fiction"), case-insensitively.
func ParseCategory(raw string) (BookCategory, error) {
	raw = strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(raw, string(c)) || strings.EqualFold(raw, c.DisplayName()) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// ParseBookStatus parses a status case-insensitively.
func ParseBookStatus(raw string) (BookStatus, error) {
	switch BookStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case BookStatusAvailable:
		return BookStatusAvailable, nil
	case BookStatusBorrowed:
		return BookStatusBorrowed, nil
	case BookStatusReserved:
		return BookStatusReserved, nil
	}
	return "", ErrUnknownStatus
}

// Book is a physical book offered for exchange by its owner.
type Book struct {
	// ID is the unique identifier of the book.
	ID int `json:"id" db:"id"`

	Title       string       `json:"title" db:"title"`
	Author      string       `json:"author" db:"author"`
	Category    BookCategory `json:"category" db:"category"`
	Description string       `json:"description" db:"description"`

	// Status only changes through borrow, reserve and return.
	Status BookStatus `json:"status" db:"status"`

	// OwnerID identifies the user who listed the book.
	OwnerID int `json:"ownerId" db:"owner_id"`

	// OwnerName is joined from users for display.
	OwnerName string `json:"ownerName,omitempty" db:"-"`

	// PublicationYear is optional.
	PublicationYear *int `json:"publicationYear,omitempty" db:"publication_year"`

	// CoverKey is the object storage key of the uploaded cover, if any.
	CoverKey string `json:"coverKey,omitempty" db:"cover_key"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// BookFilter holds the optional search predicates. Nil or empty fields
// do not filter.
type BookFilter struct {
	Query          string
	Category       *BookCategory
	Author         string
	Status         *BookStatus
	YearFrom       *int
	YearTo         *int
	ExcludeOwnerID *int
}
