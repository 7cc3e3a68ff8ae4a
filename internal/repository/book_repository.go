package repository

import (
	"readsy_backend/internal/model"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type BookRepository struct {
	DB *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{DB: db}
}

func (r *BookRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Book{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "count books")
	}
	return count > 0, nil
}
