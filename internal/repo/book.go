package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/bookshelf/internal/models"
)

func (r *GormRepo) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *GormRepo) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.DB.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

func (r *GormRepo) FindBookByTitle(ctx context.Context, title string) (*models.Book, error) {
	var book models.Book
	if err := r.DB.WithContext(ctx).Where("title = ?", title).First(&book).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

func (r *GormRepo) CreateBook(ctx context.Context, b *models.Book) error {
	return translate(r.DB.WithContext(ctx).Create(b).Error)
}

func (r *GormRepo) UpdateBook(ctx context.Context, id uint, title, author, description string) (*models.Book, error) {
	book, err := r.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	book.Title = title
	book.Author = author
	book.Description = description

	if err := r.DB.WithContext(ctx).Save(book).Error; err != nil {
		return nil, translate(err)
	}
	return book, nil
}

func (r *GormRepo) DeleteBook(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchBooks is the database fallback for catalog search when no index is configured.
func (r *GormRepo) SearchBooks(ctx context.Context, q string, offset, limit int) (int64, []models.Book, error) {
	pattern := "%" + strings.ToLower(q) + "%"
	where := "LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(description) LIKE ?"

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Book{}).
		Where(where, pattern, pattern, pattern).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	books := make([]models.Book, 0, limit)
	if err := r.DB.WithContext(ctx).Model(&models.Book{}).
		Where(where, pattern, pattern, pattern).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error; err != nil {
		return 0, nil, err
	}
	return total, books, nil
}
