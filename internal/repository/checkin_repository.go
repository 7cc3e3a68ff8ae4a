package repository

import (
	"errors"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakBuilder 持有用户行锁时调用，根据最近一次打卡（可能为 nil）生成新打卡。
// consumeFreeze 与写入在同一事务内，写入失败时道具不会被扣除。
type StreakBuilder func(latest *model.Checkin, consumeFreeze func() (bool, error)) (*model.Checkin, error)

type CheckinRepository struct {
	DB *gorm.DB
}

// NewCheckinRepository 创建新的打卡仓库实例
func NewCheckinRepository(db *gorm.DB) *CheckinRepository {
	return &CheckinRepository{DB: db}
}

// CreateWithStreak 锁住用户行后读取最近打卡、结算连签并写入新打卡，同一用户的打卡串行执行
func (r *CheckinRepository) CreateWithStreak(userID uint, build StreakBuilder) (*model.Checkin, error) {
	var created *model.Checkin

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", userID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		if err != nil {
			return pkgerrors.Wrap(err, "lock user")
		}

		latest, err := latestCheckin(tx, userID)
		if err != nil {
			return err
		}

		checkin, err := build(latest, func() (bool, error) {
			return consumeItem(tx, userID, model.StreakFreezeItem)
		})
		if err != nil {
			return err
		}
		checkin.UserID = userID
		if err := tx.Create(checkin).Error; err != nil {
			return pkgerrors.Wrap(err, "create checkin")
		}
		created = checkin
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *CheckinRepository) UpdateXPAwarded(id uint, xp int64) error {
	err := r.DB.Model(&model.Checkin{}).Where("id = ?", id).Update("xp_awarded", xp).Error
	return pkgerrors.Wrap(err, "update checkin xp")
}

// FindLatestByUser 获取用户最近的打卡记录，没有时返回 nil
func (r *CheckinRepository) FindLatestByUser(userID uint) (*model.Checkin, error) {
	return latestCheckin(r.DB, userID)
}

func latestCheckin(db *gorm.DB, userID uint) (*model.Checkin, error) {
	var checkin model.Checkin
	err := db.Where("user_id = ?", userID).Order("checkin_at DESC").Order("id DESC").First(&checkin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find latest checkin")
	}
	return &checkin, nil
}

// ListByUser bookID 为 0 时不过滤书籍
func (r *CheckinRepository) ListByUser(userID, bookID uint, page, limit int) ([]model.Checkin, int64, error) {
	var (
		checkins []model.Checkin
		total    int64
	)

	query := r.DB.Model(&model.Checkin{}).Where("user_id = ?", userID)
	if bookID > 0 {
		query = query.Where("book_id = ?", bookID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count checkins")
	}

	err := query.Order("checkin_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&checkins).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list checkins")
	}
	return checkins, total, nil
}
