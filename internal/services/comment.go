package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bookx-exchange/apiserver/internal/store"
	"github.com/bookx-exchange/apiserver/types"
)

// maxThreadDepth bounds parent-chain walks in case of corrupted data.
const maxThreadDepth = 1000

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Get(ctx context.Context, id int) (types.Comment, error)
	ListByBook(ctx context.Context, bookID int) ([]types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	UpdateContent(ctx context.Context, id int, content string) (types.Comment, error)
	MarkDeleted(ctx context.Context, id int) error
}

// CommentService encapsulates comment threads on books.
type CommentService struct {
	repo     CommentRepository
	books    BookReader
	activity *ActivityService
}

func NewCommentService(repo CommentRepository, books BookReader, activity *ActivityService) *CommentService {
	return &CommentService{repo: repo, books: books, activity: activity}
}

// Create adds a top-level comment to a book.
func (s *CommentService) Create(ctx context.Context, author types.User, bookID int, content string) (types.Comment, error) {
	content, err := commentContent(content)
	if err != nil {
		return types.Comment{}, err
	}
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return types.Comment{}, err
	}
	return s.create(ctx, author, book, nil, 0, content)
}

// Reply answers an existing comment. The reply belongs to the parent's
// book.
func (s *CommentService) Reply(ctx context.Context, author types.User, parentID int, content string) (types.Comment, error) {
	content, err := commentContent(content)
	if err != nil {
		return types.Comment{}, err
	}
	parent, err := s.live(ctx, parentID)
	if err != nil {
		return types.Comment{}, err
	}
	book, err := s.books.Get(ctx, parent.BookID)
	if err != nil {
		return types.Comment{}, err
	}
	depth, err := s.depth(ctx, parent)
	if err != nil {
		return types.Comment{}, err
	}
	return s.create(ctx, author, book, &parent.ID, depth+1, content)
}

func (s *CommentService) create(ctx context.Context, author types.User, book types.Book, parentID *int, depth int, content string) (types.Comment, error) {
	comment, err := s.repo.Create(ctx, types.Comment{
		Content:         content,
		AuthorID:        author.ID,
		BookID:          book.ID,
		ParentCommentID: parentID,
	})
	if err != nil {
		return types.Comment{}, err
	}
	comment.AuthorName = author.FullName()
	comment.Depth = depth

	s.activity.Record(ctx, types.CommentAddedAction(author, comment, book))
	return comment, nil
}

// Get returns a comment, deleted or not, with its depth filled in.
func (s *CommentService) Get(ctx context.Context, id int) (types.Comment, error) {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Comment{}, err
	}
	comment.Depth, err = s.depth(ctx, comment)
	if err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

// Tree returns the comment forest of a book.
func (s *CommentService) Tree(ctx context.Context, bookID int) ([]*types.Comment, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return buildCommentTree(comments), nil
}

// Update replaces the content of the author's own comment.
func (s *CommentService) Update(ctx context.Context, actor types.User, id int, content string) (types.Comment, error) {
	content, err := commentContent(content)
	if err != nil {
		return types.Comment{}, err
	}
	comment, err := s.authored(ctx, actor, id)
	if err != nil {
		return types.Comment{}, err
	}
	updated, err := s.repo.UpdateContent(ctx, comment.ID, content)
	if err != nil {
		return types.Comment{}, err
	}
	updated.Depth, err = s.depth(ctx, updated)
	if err != nil {
		return types.Comment{}, err
	}
	return updated, nil
}

// Delete soft-deletes the author's own comment.
func (s *CommentService) Delete(ctx context.Context, actor types.User, id int) error {
	comment, err := s.authored(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.MarkDeleted(ctx, comment.ID)
}

func (s *CommentService) authored(ctx context.Context, actor types.User, id int) (types.Comment, error) {
	comment, err := s.live(ctx, id)
	if err != nil {
		return types.Comment{}, err
	}
	if comment.AuthorID != actor.ID {
		return types.Comment{}, forbidden("only the author can modify this comment")
	}
	return comment, nil
}

func (s *CommentService) live(ctx context.Context, id int) (types.Comment, error) {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Comment{}, err
	}
	if comment.IsDeleted {
		return types.Comment{}, fmt.Errorf("%w: comment %d is deleted", store.ErrNotFound, id)
	}
	return comment, nil
}

// depth counts the ancestors of comment.
func (s *CommentService) depth(ctx context.Context, comment types.Comment) (int, error) {
	depth := 0
	for comment.ParentCommentID != nil {
		if depth >= maxThreadDepth {
			return 0, fmt.Errorf("comment %d: parent chain too deep", comment.ID)
		}
		parent, err := s.repo.Get(ctx, *comment.ParentCommentID)
		if err != nil {
			return 0, err
		}
		comment = parent
		depth++
	}
	return depth, nil
}

func commentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalidInput("content is required")
	}
	return content, nil
}

// buildCommentTree nests replies under their parents ordered oldest
// first at every level. Deleted comments without live replies are
// dropped; deleted comments that still have replies are kept with their
// content blanked.
func buildCommentTree(comments []types.Comment) []*types.Comment {
	nodes := make(map[int]*types.Comment, len(comments))
	ordered := make([]*types.Comment, 0, len(comments))
	for i := range comments {
		c := comments[i]
		c.Replies = nil
		nodes[c.ID] = &c
		ordered = append(ordered, &c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	roots := make([]*types.Comment, 0)
	for _, c := range ordered {
		if c.ParentCommentID != nil {
			if parent, ok := nodes[*c.ParentCommentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return pruneComments(roots, 0)
}

func pruneComments(list []*types.Comment, depth int) []*types.Comment {
	kept := make([]*types.Comment, 0, len(list))
	for _, c := range list {
		c.Depth = depth
		c.Replies = pruneComments(c.Replies, depth+1)
		if c.IsDeleted {
			if len(c.Replies) == 0 {
				continue
			}
			c.Content = ""
		}
		kept = append(kept, c)
	}
	return kept
}
