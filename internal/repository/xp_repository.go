package repository

import (
	"errors"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XPGrant 一次经验发放
type XPGrant struct {
	UserID        uint
	Amount        int64
	Reason        string
	Source        string
	LevelFor      func(xp int64) int // 由当前等级曲线提供
	CoinsPerLevel int64
}

type XPRepository struct {
	DB *gorm.DB
}

func NewXPRepository(db *gorm.DB) *XPRepository {
	return &XPRepository{DB: db}
}

// Grant 在同一事务内增加经验、结算升级金币并写入流水
func (r *XPRepository) Grant(g XPGrant) (*model.XPEvent, error) {
	var event *model.XPEvent

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "xp", "coins").
			Where("id = ?", g.UserID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		if err != nil {
			return pkgerrors.Wrap(err, "lock user")
		}

		after := user.XP + g.Amount
		from, to := g.LevelFor(user.XP), g.LevelFor(after)
		var coins int64
		if to > from {
			coins = int64(to-from) * g.CoinsPerLevel
		}

		err = tx.Model(&model.User{}).Where("id = ?", g.UserID).Updates(map[string]interface{}{
			"xp":    after,
			"coins": gorm.Expr("coins + ?", coins),
		}).Error
		if err != nil {
			return pkgerrors.Wrap(err, "update user xp")
		}

		event = &model.XPEvent{
			UserID:       g.UserID,
			Amount:       g.Amount,
			Reason:       g.Reason,
			Source:       g.Source,
			XPAfter:      after,
			LevelFrom:    from,
			LevelTo:      to,
			CoinsAwarded: coins,
		}
		return pkgerrors.Wrap(tx.Create(event).Error, "create xp event")
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *XPRepository) ListEvents(userID uint, page, limit int) ([]model.XPEvent, int64, error) {
	var (
		events []model.XPEvent
		total  int64
	)

	query := r.DB.Model(&model.XPEvent{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count xp events")
	}

	err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&events).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list xp events")
	}
	return events, total, nil
}
