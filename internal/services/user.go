package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const dateOfBirthLayout = "2006-01-02"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserReader is the lookup other services need to resolve user ids.
type UserReader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Registration carries the fields a new account is created from.
type Registration struct {
	Username    string
	Password    string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Register creates a regular user. Username and email must be unused.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	return s.create(ctx, reg, types.UserTypeRegular)
}

// Authenticate returns the user whose username and password match.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureUser returns the user with the registration's username, creating
// it with the given type when it does not exist yet.
func (s *UserService) EnsureUser(ctx context.Context, reg Registration, userType types.UserType) (types.User, bool, error) {
	existing, err := s.repo.GetByUsername(ctx, strings.TrimSpace(reg.Username))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, false, err
	}
	user, err := s.create(ctx, reg, userType)
	if err != nil {
		return types.User{}, false, err
	}
	return user, true, nil
}

func (s *UserService) create(ctx context.Context, reg Registration, userType types.UserType) (types.User, error) {
	user := types.User{
		Username:  strings.TrimSpace(reg.Username),
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		Email:     strings.TrimSpace(reg.Email),
		Phone:     strings.TrimSpace(reg.Phone),
		UserType:  userType,
	}
	if user.Username == "" || user.FirstName == "" || user.LastName == "" || user.Email == "" || reg.Password == "" {
		return types.User{}, invalidInput("missing required fields")
	}

	if dob := strings.TrimSpace(reg.DateOfBirth); dob != "" {
		parsed, err := time.Parse(dateOfBirthLayout, dob)
		if err != nil {
			return types.User{}, invalidInput("dateOfBirth must be YYYY-MM-DD")
		}
		user.DateOfBirth = &parsed
	}

	if _, err := s.repo.GetByUsername(ctx, user.Username); err == nil {
		return types.User{}, fmt.Errorf("%w: username already exists", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = string(hashed)

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return types.User{}, err
	}
	return created, nil
}
