package services

import (
	"context"

	"github.com/bookx-exchange/apiserver/types"
)

// AdminService holds the moderation use-cases available to ADMIN users.
// Callers are expected to have checked the admin role already.
type AdminService struct {
	users    UserRepository
	books    *BookService
	lending  *LendingService
	activity *ActivityService
}

func NewAdminService(users UserRepository, books *BookService, lending *LendingService, activity *ActivityService) *AdminService {
	return &AdminService{users: users, books: books, lending: lending, activity: activity}
}

func (s *AdminService) Users(ctx context.Context) ([]types.User, error) {
	return s.users.List(ctx)
}

func (s *AdminService) Books(ctx context.Context) ([]types.Book, error) {
	return s.books.List(ctx)
}

// DeleteUser removes an account together with everything it owns. Books
// the user was borrowing or had reserved are returned first.
func (s *AdminService) DeleteUser(ctx context.Context, admin types.User, userID int) error {
	if admin.ID == userID {
		return invalidInput("cannot delete your own account")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.lending.CloseAccount(ctx, user); err != nil {
		return err
	}
	s.activity.Record(ctx, types.UserDeletedAction(admin, user))
	return nil
}

// DeleteBook removes any book; the deletion is logged against the admin.
func (s *AdminService) DeleteBook(ctx context.Context, admin types.User, bookID int) error {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return err
	}
	return s.books.remove(ctx, admin, book)
}

func (s *AdminService) Actions(ctx context.Context) ([]types.UserActionLog, error) {
	return s.activity.List(ctx)
}

// ActionsByType parses raw as an action type and lists matching entries.
func (s *AdminService) ActionsByType(ctx context.Context, raw string) ([]types.UserActionLog, error) {
	action, err := types.ParseActionType(raw)
	if err != nil {
		return nil, invalidInput("%v: %q", err, raw)
	}
	return s.activity.ByType(ctx, action)
}
