package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/bookshelf/internal/models"
)

func (r *GormRepo) CreateToken(ctx context.Context, t *models.Token) error {
	return translate(r.DB.WithContext(ctx).Create(t).Error)
}

func (r *GormRepo) FindTokenByValue(ctx context.Context, value string) (*models.Token, error) {
	var token models.Token
	if err := r.DB.WithContext(ctx).Where("value = ?", value).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// InvalidateToken reports whether a token with the given value exists.
func (r *GormRepo) InvalidateToken(ctx context.Context, value string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Token{}).
		Where("value = ?", value).
		Update("valid", false)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// some drivers report zero affected rows when the value did not change
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Token{}).Where("value = ?", value).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) DeleteTokensExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", t.UTC()).Delete(&models.Token{})
	return res.RowsAffected, res.Error
}
