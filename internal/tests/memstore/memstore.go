// Package memstore holds in-memory repositories with the same contracts
// as the Postgres store, for service, handler and client tests.
package memstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bookx-exchange/apiserver/internal/storage"
	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
)

// Clock hands out strictly increasing timestamps so ordering is stable.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type Users struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
	clock  *Clock
}

func NewUsers(c *Clock) *Users {
	return &Users{users: map[int]types.User{}, clock: c}
}

func (f *Users) Add(username, first, last string, userType types.UserType) types.User {
	u, err := f.Create(context.Background(), types.User{
		Username:  username,
		FirstName: first,
		LastName:  last,
		Email:     username + "@example.com",
		UserType:  userType,
	})
	if err != nil {
		panic(err)
	}
	return u
}

func (f *Users) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *Users) GetByUsername(ctx context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *Users) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *Users) List(ctx context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Users) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	if user.UserType == "" {
		user.UserType = types.UserTypeRegular
	}
	user.CreatedAt = f.clock.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *Users) Update(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *Users) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type Books struct {
	mu     sync.Mutex
	nextID int
	books  map[int]types.Book
	clock  *Clock

	// held maps a book id to the borrower currently holding it.
	held map[int]int
}

func NewBooks(c *Clock) *Books {
	return &Books{books: map[int]types.Book{}, held: map[int]int{}, clock: c}
}

func (f *Books) Add(owner types.User, title string) types.Book {
	b, err := f.Create(context.Background(), types.Book{
		Title:    title,
		Author:   "Author of " + title,
		Category: types.CategoryFiction,
		Status:   types.BookStatusAvailable,
		OwnerID:  owner.ID,
	})
	if err != nil {
		panic(err)
	}
	return b
}

func (f *Books) sorted(keep func(types.Book) bool) []types.Book {
	out := make([]types.Book, 0)
	for _, b := range f.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *Books) List(ctx context.Context) ([]types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(types.Book) bool { return true }), nil
}

func (f *Books) Get(ctx context.Context, id int) (types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return b, nil
}

func (f *Books) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.books), nil
}

func (f *Books) ListByOwner(ctx context.Context, ownerID int) ([]types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(b types.Book) bool { return b.OwnerID == ownerID }), nil
}

func (f *Books) ListHeldBy(ctx context.Context, userID int) ([]types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(b types.Book) bool { return f.held[b.ID] == userID }), nil
}

func (f *Books) ListAvailableExcludingOwner(ctx context.Context, ownerID int) ([]types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(b types.Book) bool {
		return b.Status == types.BookStatusAvailable && b.OwnerID != ownerID
	}), nil
}

func (f *Books) Search(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(b types.Book) bool { return matchesFilter(b, filter) }), nil
}

// matchesFilter mirrors the SQL predicate: every set field must match,
// text matches are case-insensitive substrings, and books without a
// publication year pass the year range.
func matchesFilter(b types.Book, filter types.BookFilter) bool {
	contains := func(s, sub string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}
	if q := strings.TrimSpace(filter.Query); q != "" &&
		!contains(b.Title, q) && !contains(b.Author, q) && !contains(b.Description, q) {
		return false
	}
	if filter.Category != nil && b.Category != *filter.Category {
		return false
	}
	if a := strings.TrimSpace(filter.Author); a != "" && !contains(b.Author, a) {
		return false
	}
	if filter.Status != nil && b.Status != *filter.Status {
		return false
	}
	if y := b.PublicationYear; y != nil {
		if filter.YearFrom != nil && *y < *filter.YearFrom {
			return false
		}
		if filter.YearTo != nil && *y > *filter.YearTo {
			return false
		}
	}
	if filter.ExcludeOwnerID != nil && b.OwnerID == *filter.ExcludeOwnerID {
		return false
	}
	return true
}

func (f *Books) Create(ctx context.Context, book types.Book) (types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	book.ID = f.nextID
	book.CreatedAt = f.clock.Now()
	book.UpdatedAt = book.CreatedAt
	f.books[book.ID] = book
	return book, nil
}

func (f *Books) Update(ctx context.Context, book types.Book) (types.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.books[book.ID]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	book.Status = current.Status
	book.CoverKey = current.CoverKey
	f.books[book.ID] = book
	return book, nil
}

func (f *Books) SwapCover(ctx context.Context, id int, previous, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return "", store.ErrNotFound
	}
	if b.CoverKey == previous {
		b.CoverKey = key
		f.books[id] = b
	}
	return b.CoverKey, nil
}

func (f *Books) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.books, id)
	return nil
}

// Lending keeps transactions in memory and applies a transition only
// when the callback succeeds. Deleting a user cascades to their books and
// transactions the way the foreign keys do.
type Lending struct {
	mu     sync.Mutex
	books  *Books
	users  *Users
	clock  *Clock
	nextID int
	txs    []types.Transaction
}

func NewLending(books *Books, users *Users, c *Clock) *Lending {
	return &Lending{books: books, users: users, clock: c}
}

func (f *Lending) WithinTx(ctx context.Context, fn func(ops store.LendingOps) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.books.mu.Lock()
	books := make(map[int]types.Book, len(f.books.books))
	for id, b := range f.books.books {
		books[id] = b
	}
	f.books.mu.Unlock()

	ops := &lendingOps{
		parent: f,
		books:  books,
		txs:    append([]types.Transaction(nil), f.txs...),
		nextID: f.nextID,
	}
	if err := fn(ops); err != nil {
		return err
	}

	if ops.deletedUser != 0 {
		if err := f.users.Delete(ctx, ops.deletedUser); err != nil {
			return err
		}
	}

	f.books.mu.Lock()
	for id, b := range ops.books {
		if _, ok := f.books.books[id]; ok {
			f.books.books[id] = b
		}
	}
	if ops.deletedUser != 0 {
		for id, b := range f.books.books {
			if b.OwnerID == ops.deletedUser {
				delete(f.books.books, id)
			}
		}
	}
	kept := ops.txs[:0]
	for _, t := range ops.txs {
		_, bookExists := f.books.books[t.BookID]
		if !bookExists || t.BorrowerID == ops.deletedUser || t.LenderID == ops.deletedUser {
			continue
		}
		kept = append(kept, t)
	}
	f.books.held = map[int]int{}
	for _, t := range kept {
		if t.Status == types.TransactionActive && t.Type == types.TransactionBorrow {
			f.books.held[t.BookID] = t.BorrowerID
		}
	}
	f.books.mu.Unlock()

	f.txs = kept
	f.nextID = ops.nextID
	return nil
}

func (f *Lending) ListByBook(ctx context.Context, bookID int) ([]types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Transaction, 0)
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].BookID == bookID {
			out = append(out, f.txs[i])
		}
	}
	return out, nil
}

type lendingOps struct {
	parent      *Lending
	books       map[int]types.Book
	txs         []types.Transaction
	nextID      int
	deletedUser int
}

func (o *lendingOps) GetBookForUpdate(ctx context.Context, bookID int) (types.Book, error) {
	b, ok := o.books[bookID]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return b, nil
}

func (o *lendingOps) ActiveTransaction(ctx context.Context, bookID int) (types.Transaction, error) {
	for _, t := range o.txs {
		if t.BookID == bookID && t.Status == types.TransactionActive {
			return t, nil
		}
	}
	return types.Transaction{}, store.ErrNotFound
}

func (o *lendingOps) CreateTransaction(ctx context.Context, t types.Transaction) (types.Transaction, error) {
	if t.Status == types.TransactionActive {
		if _, err := o.ActiveTransaction(ctx, t.BookID); err == nil {
			return types.Transaction{}, store.ErrDuplicate
		}
	}
	o.nextID++
	t.ID = o.nextID
	t.CreatedAt = o.parent.clock.Now()
	o.txs = append(o.txs, t)
	return t, nil
}

func (o *lendingOps) CompleteTransaction(ctx context.Context, id int, at time.Time) error {
	for i := range o.txs {
		if o.txs[i].ID == id {
			o.txs[i].Status = types.TransactionCompleted
			o.txs[i].CompletedAt = &at
			return nil
		}
	}
	return store.ErrNotFound
}

func (o *lendingOps) SetBookStatus(ctx context.Context, bookID int, status types.BookStatus) error {
	b, ok := o.books[bookID]
	if !ok {
		return store.ErrNotFound
	}
	b.Status = status
	o.books[bookID] = b
	return nil
}

func (o *lendingOps) ActiveByBorrower(ctx context.Context, borrowerID int) ([]types.Transaction, error) {
	out := make([]types.Transaction, 0)
	for _, t := range o.txs {
		if t.BorrowerID == borrowerID && t.Status == types.TransactionActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

func (o *lendingOps) DeleteUser(ctx context.Context, userID int) error {
	if _, err := o.parent.users.GetByID(ctx, userID); err != nil {
		return err
	}
	o.deletedUser = userID
	return nil
}

type Comments struct {
	mu       sync.Mutex
	nextID   int
	comments map[int]types.Comment
	users    *Users
	clock    *Clock
}

func NewComments(users *Users, c *Clock) *Comments {
	return &Comments{comments: map[int]types.Comment{}, users: users, clock: c}
}

func (f *Comments) withAuthor(c types.Comment) types.Comment {
	if u, err := f.users.GetByID(context.Background(), c.AuthorID); err == nil {
		c.AuthorName = u.FullName()
	}
	return c
}

func (f *Comments) Get(ctx context.Context, id int) (types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return f.withAuthor(c), nil
}

func (f *Comments) ListByBook(ctx context.Context, bookID int) ([]types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Comment, 0)
	for _, c := range f.comments {
		if c.BookID == bookID {
			out = append(out, f.withAuthor(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Comments) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	comment.ID = f.nextID
	comment.CreatedAt = f.clock.Now()
	comment.UpdatedAt = comment.CreatedAt
	f.comments[comment.ID] = comment
	return comment, nil
}

func (f *Comments) UpdateContent(ctx context.Context, id int, content string) (types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok || c.IsDeleted {
		return types.Comment{}, store.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = f.clock.Now()
	f.comments[id] = c
	return f.withAuthor(c), nil
}

func (f *Comments) MarkDeleted(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok || c.IsDeleted {
		return store.ErrNotFound
	}
	c.IsDeleted = true
	f.comments[id] = c
	return nil
}

type Messages struct {
	mu       sync.Mutex
	nextID   int
	messages map[int]types.Message
	books    *Books
	clock    *Clock
}

func NewMessages(books *Books, c *Clock) *Messages {
	return &Messages{messages: map[int]types.Message{}, books: books, clock: c}
}

func (f *Messages) withBook(m types.Message) types.Message {
	if b, err := f.books.Get(context.Background(), m.BookID); err == nil {
		m.BookTitle = b.Title
		m.BookOwnerID = b.OwnerID
	}
	return m
}

func (f *Messages) Get(ctx context.Context, id int) (types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return types.Message{}, store.ErrNotFound
	}
	return f.withBook(m), nil
}

func (f *Messages) ListForUser(ctx context.Context, userID int) ([]types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Message, 0)
	for _, m := range f.messages {
		m = f.withBook(m)
		if m.InvolvesUser(userID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *Messages) ListForBookAndUser(ctx context.Context, bookID, userID int) ([]types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Message, 0)
	for _, m := range f.messages {
		m = f.withBook(m)
		if m.BookID == bookID && m.InvolvesUser(userID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Messages) Create(ctx context.Context, msg types.Message) (types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = f.clock.Now()
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *Messages) MarkDeleted(ctx context.Context, id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok || m.IsDeleted {
		return store.ErrNotFound
	}
	m.IsDeleted = true
	m.DeletedAt = &at
	f.messages[id] = m
	return nil
}

type Activity struct {
	mu      sync.Mutex
	entries []types.UserActionLog
	Failing bool
}

func (f *Activity) Append(ctx context.Context, entry types.UserActionLog) (types.UserActionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Failing {
		return types.UserActionLog{}, errors.New("log table unavailable")
	}
	if err := ctx.Err(); err != nil {
		return types.UserActionLog{}, err
	}
	entry.ID = len(f.entries) + 1
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *Activity) List(ctx context.Context) ([]types.UserActionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.UserActionLog, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *Activity) ListByType(ctx context.Context, action types.ActionType) ([]types.UserActionLog, error) {
	all, _ := f.List(ctx)
	out := make([]types.UserActionLog, 0)
	for _, e := range all {
		if e.ActionType == action {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *Activity) Actions() []types.ActionType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.ActionType, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.ActionType)
	}
	return out
}

func (f *Activity) Last() types.UserActionLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return types.UserActionLog{}
	}
	return f.entries[len(f.entries)-1]
}

// Published is one message handed to Publisher.
type Published struct {
	Channel string
	Data    []byte
	Attrs   map[string]string
}

type Publisher struct {
	mu   sync.Mutex
	sent []Published

	// Err, when set, fails every publish.
	Err error
}

func (f *Publisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.sent = append(f.sent, Published{Channel: channel, Data: data, Attrs: attrs})
	return "msg-1", nil
}

type Covers struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func NewCovers() *Covers {
	return &Covers{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *Covers) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.contentTypes[key] = contentType
	return nil
}

func (f *Covers) Get(ctx context.Context, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		ContentType: f.contentTypes[key],
		Size:        int64(len(data)),
	}, nil
}

func (f *Covers) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	delete(f.contentTypes, key)
	return nil
}

// Sent returns the messages published so far.
func (f *Publisher) Sent() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.sent...)
}

// ContentType returns the stored content type of key.
func (f *Covers) ContentType(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentTypes[key]
}

// Has reports whether key is stored.
func (f *Covers) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}
