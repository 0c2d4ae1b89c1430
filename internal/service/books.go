package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/bookshelf/internal/events"
	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/models"
	"github.com/Skotchmaster/bookshelf/internal/repo"
	"github.com/Skotchmaster/bookshelf/internal/util"
)

type ExternalCatalog interface {
	Search(ctx context.Context, query string) ([]models.Book, error)
}

type BookIndex interface {
	IndexBook(ctx context.Context, b *models.Book) error
	DeleteBook(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Book, error)
}

type BookService struct {
	Repo     *repo.GormRepo
	External ExternalCatalog
	// Index is optional; catalog search falls back to the database without it.
	Index  BookIndex
	Events events.Publisher
}

type BookInput struct {
	Title       *string
	Author      *string
	Description *string
}

func (in BookInput) clean() (title, author, description string, err error) {
	if in.Title == nil || in.Author == nil || in.Description == nil {
		return "", "", "", fmt.Errorf("%w: invalid book data", ErrValidation)
	}
	if title, err = requireText("title", *in.Title, maxTitleLen); err != nil {
		return
	}
	if author, err = requireText("author", *in.Author, maxAuthorLen); err != nil {
		return
	}
	description, err = requireText("description", *in.Description, maxDescriptionLen)
	return
}

type CatalogPage struct {
	Data []models.Book `json:"data"`
	Meta util.Meta     `json:"meta"`
}

func (s *BookService) List(ctx context.Context) ([]models.Book, error) {
	return s.Repo.ListBooks(ctx)
}

func (s *BookService) Get(ctx context.Context, id uint) (*models.Book, error) {
	b, err := s.Repo.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: book not found", ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

func (s *BookService) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	title, author, description, err := in.clean()
	if err != nil {
		return nil, err
	}

	if _, err := s.Repo.FindBookByTitle(ctx, title); err == nil {
		return nil, fmt.Errorf("%w: book with the same title already exists", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find book: %w", err)
	}

	b := &models.Book{Title: title, Author: author, Description: description}
	if err := s.Repo.CreateBook(ctx, b); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: book with the same title already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.index(ctx, b)
	s.publish(ctx, b.ID, "book_created", map[string]any{"title": b.Title})
	return b, nil
}

func (s *BookService) Update(ctx context.Context, id uint, in BookInput) (*models.Book, error) {
	title, author, description, err := in.clean()
	if err != nil {
		return nil, err
	}

	b, err := s.Repo.UpdateBook(ctx, id, title, author, description)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("%w: book not found", ErrNotFound)
		case errors.Is(err, repo.ErrDuplicate):
			return nil, fmt.Errorf("%w: book with the same title already exists", ErrConflict)
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.index(ctx, b)
	s.publish(ctx, b.ID, "book_updated", map[string]any{"title": b.Title})
	return b, nil
}

func (s *BookService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: book not found", ErrNotFound)
		}
		return fmt.Errorf("delete book: %w", err)
	}

	if s.Index != nil {
		if err := s.Index.DeleteBook(ctx, id); err != nil {
			logging.FromContext(ctx).Error("index_delete_failed", "book_id", id, "error", err)
		}
	}
	s.publish(ctx, id, "book_deleted", nil)
	return nil
}

// SearchExternal looks a query up in the external catalog without saving anything.
func (s *BookService) SearchExternal(ctx context.Context, query string) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrValidation)
	}

	books, err := s.External.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return books, nil
}

func (s *BookService) SearchCatalog(ctx context.Context, query string, page, size int) (*CatalogPage, error) {
	l := logging.FromContext(ctx).With("svc", "books.catalog")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrValidation)
	}
	if page > util.MaxPage {
		return nil, fmt.Errorf("%w: page must not exceed %d", ErrValidation, util.MaxPage)
	}
	from, limit := util.Calculate(page, size)

	if s.Index != nil {
		total, books, err := s.Index.Search(ctx, query, from, limit)
		if err == nil {
			return &CatalogPage{Data: books, Meta: util.NewMeta(page, limit, total)}, nil
		}
		l.Warn("index_search_failed", "reason", "falling back to database", "error", err)
	}

	total, books, err := s.Repo.SearchBooks(ctx, query, from, limit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return &CatalogPage{Data: books, Meta: util.NewMeta(page, limit, total)}, nil
}

func (s *BookService) index(ctx context.Context, b *models.Book) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexBook(ctx, b); err != nil {
		logging.FromContext(ctx).Error("index_book_failed", "book_id", b.ID, "error", err)
	}
}

func (s *BookService) publish(ctx context.Context, id uint, typ string, data map[string]any) {
	if s.Events == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["book_id"] = id
	key := strconv.FormatUint(uint64(id), 10)
	if err := s.Events.Publish(ctx, events.TopicBooks, key, events.New(typ, data)); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicBooks, "type", typ, "error", err)
	}
}
