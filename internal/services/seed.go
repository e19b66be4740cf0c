package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookx-exchange/apiserver/types"
)

type seedUser struct {
	reg      Registration
	userType types.UserType
	books    []BookDraft
}

func seedBook(title, author string, category types.BookCategory, description string, year int) BookDraft {
	return BookDraft{
		Title:           title,
		Author:          author,
		Category:        category,
		Description:     description,
		PublicationYear: &year,
	}
}

var defaultSeed = []seedUser{
	{
		reg:      Registration{Username: "admin", Password: "admin", FirstName: "Admin", LastName: "User", Email: "admin@example.com", DateOfBirth: "1990-01-01"},
		userType: types.UserTypeAdmin,
	},
	{
		reg:      Registration{Username: "user", Password: "password", FirstName: "Alice", LastName: "Johnson", Email: "user@example.com", DateOfBirth: "1990-01-01"},
		userType: types.UserTypeRegular,
		books: []BookDraft{
			seedBook("The Great Gatsby", "F. Scott Fitzgerald", types.CategoryFiction, "A classic American novel about the Jazz Age and the American Dream.", 1925),
			seedBook("Pride and Prejudice", "Jane Austen", types.CategoryRomance, "A witty romance novel about manners, marriage, and social expectations.", 1813),
			seedBook("The Catcher in the Rye", "J.D. Salinger", types.CategoryFiction, "A coming-of-age story following Holden Caulfield in New York City.", 1951),
		},
	},
	{
		reg:      Registration{Username: "user2", Password: "password2", FirstName: "Bob", LastName: "Wilson", Email: "user2@example.com", DateOfBirth: "1985-05-15"},
		userType: types.UserTypeRegular,
		books: []BookDraft{
			seedBook("To Kill a Mockingbird", "Harper Lee", types.CategoryFiction, "A powerful story about racial injustice and the loss of innocence.", 1960),
			seedBook("The Lord of the Rings", "J.R.R. Tolkien", types.CategoryFantasy, "An epic fantasy adventure about the quest to destroy the One Ring.", 1954),
			seedBook("Dune", "Frank Herbert", types.CategoryScienceFiction, "A science fiction epic set on the desert planet Arrakis.", 1965),
		},
	},
	{
		reg:      Registration{Username: "user3", Password: "password3", FirstName: "Carol", LastName: "Davis", Email: "user3@example.com", DateOfBirth: "1992-08-22"},
		userType: types.UserTypeRegular,
		books: []BookDraft{
			seedBook("1984", "George Orwell", types.CategoryScienceFiction, "A dystopian novel about totalitarianism and surveillance society.", 1949),
			seedBook("Harry Potter and the Philosopher's Stone", "J.K. Rowling", types.CategoryFantasy, "The first book in the magical Harry Potter series.", 1997),
			seedBook("The Hunger Games", "Suzanne Collins", types.CategoryThriller, "A dystopian novel about survival in a televised death match.", 2008),
		},
	},
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Users int
	Books int
}

// Seed creates the default accounts when missing and, if the catalogue
// is empty, three sample books for each regular account. Books go through
// the book service so their creation is logged. Running it twice is a
// no-op.
func Seed(ctx context.Context, users *UserService, books *BookService, logger *slog.Logger) (SeedResult, error) {
	var result SeedResult
	owners := make([]types.User, len(defaultSeed))
	for i, entry := range defaultSeed {
		user, created, err := users.EnsureUser(ctx, entry.reg, entry.userType)
		if err != nil {
			return result, fmt.Errorf("seed user %s: %w", entry.reg.Username, err)
		}
		if created {
			result.Users++
			logger.InfoContext(ctx, "seeded user", "username", user.Username, "user_type", user.UserType)
		}
		owners[i] = user
	}

	count, err := books.Count(ctx)
	if err != nil {
		return result, err
	}
	if count > 0 {
		logger.InfoContext(ctx, "books already exist, skipping sample books", "count", count)
		return result, nil
	}

	for i, entry := range defaultSeed {
		for _, draft := range entry.books {
			if _, err := books.Create(ctx, owners[i], draft); err != nil {
				return result, fmt.Errorf("seed book %q: %w", draft.Title, err)
			}
			result.Books++
		}
	}
	logger.InfoContext(ctx, "seeded sample books", "count", result.Books)
	return result, nil
}
