package services

import (
	"io"
	"log/slog"

	"github.com/bookx-exchange/apiserver/internal/tests/memstore"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// env wires every service over in-memory repositories.
type env struct {
	clock    *memstore.Clock
	users    *memstore.Users
	books    *memstore.Books
	lending  *memstore.Lending
	comments *memstore.Comments
	messages *memstore.Messages
	log      *memstore.Activity
	pub      *memstore.Publisher
	covers   *memstore.Covers

	activity       *ActivityService
	userService    *UserService
	bookService    *BookService
	lendingService *LendingService
	commentService *CommentService
	messageService *MessageService
	adminService   *AdminService
}

func newEnv() *env {
	c := memstore.NewClock()
	e := &env{clock: c}
	e.users = memstore.NewUsers(c)
	e.books = memstore.NewBooks(c)
	e.lending = memstore.NewLending(e.books, e.users, c)
	e.comments = memstore.NewComments(e.users, c)
	e.messages = memstore.NewMessages(e.books, c)
	e.log = &memstore.Activity{}
	e.pub = &memstore.Publisher{}
	e.covers = memstore.NewCovers()

	e.activity = NewActivityService(e.log, e.pub, "bookx.activity", discardLogger)
	e.userService = NewUserService(e.users)
	e.bookService = NewBookService(e.books, e.activity, e.covers, discardLogger)
	e.lendingService = NewLendingService(e.lending, e.books, e.users, e.activity)
	e.lendingService.now = c.Now
	e.commentService = NewCommentService(e.comments, e.books, e.activity)
	e.messageService = NewMessageService(e.messages, e.books, e.users, e.activity)
	e.messageService.now = c.Now
	e.adminService = NewAdminService(e.users, e.bookService, e.lendingService, e.activity)
	return e
}
