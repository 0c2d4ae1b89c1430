package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/service"
	"github.com/Skotchmaster/bookshelf/internal/transport"
	"github.com/Skotchmaster/bookshelf/internal/util"
)

type BookHTTP struct {
	Svc *service.BookService
}

func (h *BookHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.list")

	books, err := h.Svc.List(ctx)
	if err != nil {
		return serviceError(l, "list_books_failed", err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *BookHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.get")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "get_book_failed", "invalid book id", err)
	}

	book, err := h.Svc.Get(ctx, id)
	if err != nil {
		return serviceError(l, "get_book_failed", err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.create")

	var req transport.BookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_book_failed", "invalid body", err)
	}

	book, err := h.Svc.Create(ctx, bookInput(req))
	if err != nil {
		return serviceError(l, "create_book_failed", err)
	}

	l.Info("create_book_successful", "book_id", book.ID)
	return c.JSON(http.StatusCreated, book)
}

func (h *BookHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.update")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "update_book_failed", "invalid book id", err)
	}

	var req transport.BookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_book_failed", "invalid body", err)
	}

	book, err := h.Svc.Update(ctx, id, bookInput(req))
	if err != nil {
		return serviceError(l, "update_book_failed", err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.delete")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "delete_book_failed", "invalid book id", err)
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return serviceError(l, "delete_book_failed", err)
	}

	l.Info("delete_book_successful", "book_id", id)
	return c.NoContent(http.StatusNoContent)
}

// Search proxies a query to Open Library.
func (h *BookHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.search")

	books, err := h.Svc.SearchExternal(ctx, c.QueryParam("query"))
	if err != nil {
		return serviceError(l, "search_books_failed", err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *BookHTTP) Catalog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.catalog")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.SearchCatalog(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return serviceError(l, "catalog_search_failed", err)
	}
	return c.JSON(http.StatusOK, res)
}

func bookInput(req transport.BookRequest) service.BookInput {
	return service.BookInput{Title: req.Title, Author: req.Author, Description: req.Description}
}
