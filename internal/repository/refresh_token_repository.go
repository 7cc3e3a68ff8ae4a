package repository

import (
	"errors"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	DB *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{DB: db}
}

func (r *RefreshTokenRepository) Create(token *model.RefreshToken) error {
	return pkgerrors.Wrap(r.DB.Create(token).Error, "create refresh token")
}

func (r *RefreshTokenRepository) FindByID(id string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.DB.Where("id = ?", id).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find refresh token")
	}
	return &token, nil
}

// Rotate 吊销旧令牌并写入新令牌。
// 旧令牌已被并发请求吊销时返回 ErrRefreshTokenReused。
func (r *RefreshTokenRepository) Rotate(oldID string, next *model.RefreshToken) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", oldID).
			Updates(map[string]interface{}{
				"revoked_at":  time.Now(),
				"replaced_by": next.ID,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "revoke refresh token")
		}
		if res.RowsAffected == 0 {
			return util.ErrRefreshTokenReused
		}
		return pkgerrors.Wrap(tx.Create(next).Error, "create refresh token")
	})
}

func (r *RefreshTokenRepository) RevokeFamily(family string) error {
	err := r.DB.Model(&model.RefreshToken{}).
		Where("family = ? AND revoked_at IS NULL", family).
		Update("revoked_at", time.Now()).Error
	return pkgerrors.Wrap(err, "revoke token family")
}

// DeleteExpired 清理过期令牌
func (r *RefreshTokenRepository) DeleteExpired(before time.Time) (int64, error) {
	res := r.DB.Where("expires_at < ?", before).Delete(&model.RefreshToken{})
	return res.RowsAffected, pkgerrors.Wrap(res.Error, "delete expired refresh tokens")
}
