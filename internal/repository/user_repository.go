package repository

import (
	"errors"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	now := time.Now()
	if user.LastLogin.IsZero() {
		user.LastLogin = now
	}
	if user.LastSeen.IsZero() {
		user.LastSeen = now
	}
	return pkgerrors.Wrap(r.DB.Create(user).Error, "create user")
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	return r.first(&user, r.DB.Where("id = ?", id))
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	return r.first(&user, r.DB.Where("email = ?", email))
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	return r.first(&user, r.DB.Where("username = ?", username))
}

// FindByIDs 排行榜补全用户名
func (r *UserRepository) FindByIDs(ids []uint) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, pkgerrors.Wrap(err, "find users by ids")
}

func (r *UserRepository) UpdateLastLogin(id uint, at time.Time) error {
	err := r.DB.Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_login": at, "last_seen": at}).Error
	return pkgerrors.Wrap(err, "update last login")
}

func (r *UserRepository) UpdateLastSeen(id uint) error {
	err := r.DB.Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("last_seen", time.Now()).Error
	return pkgerrors.Wrap(err, "update last seen")
}

func (r *UserRepository) FindTopByXP(limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("disabled = ?", false).Order("xp DESC").Order("id ASC").Limit(limit).Find(&users).Error
	return users, pkgerrors.Wrap(err, "find top users")
}

func (r *UserRepository) first(user *model.User, query *gorm.DB) (*model.User, error) {
	err := query.First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find user")
	}
	return user, nil
}
