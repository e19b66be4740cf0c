//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/bookx-exchange/apiserver/config"
	"github.com/bookx-exchange/apiserver/internal/client"
	"github.com/bookx-exchange/apiserver/internal/mq"
	"github.com/bookx-exchange/apiserver/types"
)

func newUser(t *testing.T, prefix string) (*client.Client, types.User) {
	t.Helper()

	c, err := client.New(baseURL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	username := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	user, err := c.Register(context.Background(), client.Registration{
		Username:  username,
		Password:  "testpass123!",
		FirstName: strings.ToUpper(prefix[:1]) + prefix[1:],
		LastName:  "Tester",
		Email:     username + "@example.com",
	})
	if err != nil {
		t.Fatalf("register %s: %v", prefix, err)
	}
	return c, user
}

func TestLendingLifecycle(t *testing.T) {
	ctx := context.Background()
	owner, _ := newUser(t, "owner")
	borrower, borrowerUser := newUser(t, "borrower")
	other, _ := newUser(t, "other")

	title := fmt.Sprintf("Dune %d", time.Now().UnixNano())
	book, err := owner.CreateBook(ctx, client.BookInput{Title: title, Author: "Frank Herbert", Category: "SCIENCE_FICTION"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	found, err := borrower.SearchBooks(ctx, client.SearchParams{Query: title})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != book.ID {
		t.Fatalf("expected search to return book %d, got %+v", book.ID, found)
	}

	if _, err := borrower.Reserve(ctx, book.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := other.Borrow(ctx, book.ID); client.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 borrowing a book reserved by someone else, got %v", err)
	}
	if _, err := borrower.Borrow(ctx, book.ID); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := other.Reserve(ctx, book.ID); client.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 reserving a borrowed book, got %v", err)
	}

	concurrentReturns := make(chan error, 2)
	for _, c := range []*client.Client{borrower, owner} {
		go func(c *client.Client) {
			_, err := c.Return(ctx, book.ID)
			concurrentReturns <- err
		}(c)
	}
	var succeeded int
	for i := 0; i < 2; i++ {
		err := <-concurrentReturns
		switch {
		case err == nil:
			succeeded++
		case client.StatusOf(err) != http.StatusConflict:
			t.Fatalf("unexpected return error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one return to succeed, got %d", succeeded)
	}

	history, err := owner.History(ctx, book.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(history))
	}
	for _, tx := range history {
		if tx.Status != types.TransactionCompleted {
			t.Fatalf("expected completed transactions, got %+v", tx)
		}
		if tx.BorrowerID != borrowerUser.ID {
			t.Fatalf("unexpected borrower %d", tx.BorrowerID)
		}
	}

	fetched, err := owner.Book(ctx, book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if fetched.Status != types.BookStatusAvailable {
		t.Fatalf("expected AVAILABLE, got %s", fetched.Status)
	}

	image := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 64)...)
	if _, err := owner.UploadCover(ctx, book.ID, "image/png", bytes.NewReader(image)); err != nil {
		t.Fatalf("upload cover: %v", err)
	}
	data, _, err := borrower.Cover(ctx, book.ID)
	if err != nil {
		t.Fatalf("download cover: %v", err)
	}
	if !bytes.Equal(data, image) {
		t.Fatalf("cover bytes differ")
	}

	if err := owner.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if _, err := owner.Book(ctx, book.ID); client.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected deleted book to be missing, got %v", err)
	}
}

func TestCommentsAndAdminLog(t *testing.T) {
	ctx := context.Background()
	owner, ownerUser := newUser(t, "owner")
	reader, _ := newUser(t, "reader")
	admin, adminUser := newUser(t, "admin")
	if err := promoteUserToAdmin(adminUser.Username); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	title := fmt.Sprintf("Emma %d", time.Now().UnixNano())
	book, err := owner.CreateBook(ctx, client.BookInput{Title: title, Author: "Jane Austen", Category: "Romance"})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}

	top, err := reader.AddComment(ctx, book.ID, "Worth it?")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if _, err := owner.ReplyToComment(ctx, top.ID, "Absolutely."); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := reader.DeleteComment(ctx, top.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}

	tree, err := owner.CommentTree(ctx, book.ID)
	if err != nil {
		t.Fatalf("comment tree: %v", err)
	}
	if len(tree) != 1 || !tree[0].IsDeleted || tree[0].Content != "" || len(tree[0].Replies) != 1 {
		t.Fatalf("expected a blanked placeholder with one reply, got %+v", tree)
	}

	if err := admin.AdminDeleteUser(ctx, ownerUser.ID); err != nil {
		t.Fatalf("admin delete user: %v", err)
	}
	if _, err := owner.Me(ctx); client.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected deleted user's token to be rejected, got %v", err)
	}

	deleted, err := admin.ActionsByType(ctx, types.ActionUserDeleted)
	if err != nil {
		t.Fatalf("actions by type: %v", err)
	}
	if len(client.FilterActionsByUserName(deleted, adminUser.FirstName)) == 0 {
		t.Fatalf("expected a USER_DELETED entry by the admin")
	}

	// The log has no foreign keys, so entries about the deleted owner stay.
	all, err := admin.UserActions(ctx)
	if err != nil {
		t.Fatalf("user actions: %v", err)
	}
	var createdByOwner bool
	for _, entry := range all {
		if entry.ActionType == types.ActionBookCreated && entry.TargetID == book.ID {
			createdByOwner = true
		}
	}
	if !createdByOwner {
		t.Fatalf("expected BOOK_CREATED entry for book %d to survive", book.ID)
	}
}

func TestActivityFanOut(t *testing.T) {
	cfg := config.LoadConfig()
	queue, err := mq.Open(context.Background(), cfg.MQ)
	if err != nil {
		t.Fatalf("open mq: %v", err)
	}
	defer queue.Close()

	owner, _ := newUser(t, "publisher")
	title := fmt.Sprintf("Fan-out %d", time.Now().UnixNano())
	if _, err := owner.CreateBook(context.Background(), client.BookInput{Title: title, Author: "Anon", Category: "FICTION"}); err != nil {
		t.Fatalf("create book: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	err = queue.Subscribe(ctx, cfg.MQ.ActivityChannel, func(ctx context.Context, msg mq.Message) error {
		var entry types.UserActionLog
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			return nil
		}
		if entry.ActionType == types.ActionBookCreated && strings.HasSuffix(entry.Description, title) {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("expected BOOK_CREATED for %q on %s, got %v", title, cfg.MQ.ActivityChannel, err)
	}
}

func TestDeletingBorrowerReleasesBooks(t *testing.T) {
	ctx := context.Background()
	owner, _ := newUser(t, "owner")
	holder, holderUser := newUser(t, "holder")
	reader, _ := newUser(t, "reader")
	admin, adminUser := newUser(t, "admin")
	if err := promoteUserToAdmin(adminUser.Username); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	var ids []int
	for _, title := range []string{"Borrowed", "Reserved"} {
		book, err := owner.CreateBook(ctx, client.BookInput{Title: fmt.Sprintf("%s %d", title, time.Now().UnixNano()), Author: "Anon", Category: "FICTION"})
		if err != nil {
			t.Fatalf("create book: %v", err)
		}
		ids = append(ids, book.ID)
	}
	if _, err := holder.Borrow(ctx, ids[0]); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := holder.Reserve(ctx, ids[1]); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := admin.AdminDeleteUser(ctx, holderUser.ID); err != nil {
		t.Fatalf("admin delete user: %v", err)
	}

	for _, id := range ids {
		book, err := reader.Book(ctx, id)
		if err != nil {
			t.Fatalf("get book %d: %v", id, err)
		}
		if book.Status != types.BookStatusAvailable {
			t.Fatalf("expected book %d to be AVAILABLE after deleting its holder, got %s", id, book.Status)
		}
		if _, err := reader.Borrow(ctx, id); err != nil {
			t.Fatalf("borrow released book %d: %v", id, err)
		}
	}
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	owner, _ := newUser(t, "owner")
	reader, _ := newUser(t, "reader")

	tag := fmt.Sprintf("zq%d", time.Now().UnixNano())
	dune, emma := 1965, 1815
	inputs := []client.BookInput{
		{Title: "Dune " + tag, Author: "Frank Herbert", Category: "SCIENCE_FICTION", Description: "Desert planet", PublicationYear: &dune},
		{Title: "Emma " + tag, Author: "Jane Austen", Category: "ROMANCE", Description: "Matchmaking", PublicationYear: &emma},
		{Title: "Notebook " + tag, Author: "Anon", Category: "FICTION", Description: "Quotes from Herbert"},
	}
	byTitle := map[int]string{}
	for _, in := range inputs {
		book, err := owner.CreateBook(ctx, in)
		if err != nil {
			t.Fatalf("create book: %v", err)
		}
		byTitle[book.ID] = strings.Fields(in.Title)[0]
	}
	for id, name := range byTitle {
		if name == "Emma" {
			if _, err := reader.Borrow(ctx, id); err != nil {
				t.Fatalf("borrow: %v", err)
			}
		}
	}

	from, to := 1900, 1970
	cases := []struct {
		name   string
		params client.SearchParams
		want   string
	}{
		{"query spans title author and description", client.SearchParams{Query: "herbert"}, "Dune,Notebook"},
		{"author only", client.SearchParams{Author: "HERBERT"}, "Dune"},
		{"category", client.SearchParams{Category: "Romance"}, "Emma"},
		{"status", client.SearchParams{Status: "BORROWED"}, "Emma"},
		{"year from keeps undated books", client.SearchParams{YearFrom: &from}, "Dune,Notebook"},
		{"year to keeps undated books", client.SearchParams{YearTo: &from}, "Emma,Notebook"},
		{"filters combine", client.SearchParams{Category: "SCIENCE_FICTION", YearFrom: &from, YearTo: &to, Status: "AVAILABLE"}, "Dune"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := reader.SearchBooks(ctx, tc.params)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			var got []string
			for _, b := range found {
				if name, ok := byTitle[b.ID]; ok {
					got = append(got, name)
				}
			}
			sort.Strings(got)
			if strings.Join(got, ",") != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, got)
			}
		})
	}
}
