package repository

import (
	"errors"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShopRepository struct {
	DB *gorm.DB
}

func NewShopRepository(db *gorm.DB) *ShopRepository {
	return &ShopRepository{DB: db}
}

func (r *ShopRepository) ListItems() ([]model.ShopItem, error) {
	var items []model.ShopItem
	err := r.DB.Order("price ASC").Order("id ASC").Find(&items).Error
	return items, pkgerrors.Wrap(err, "list shop items")
}

func (r *ShopRepository) FindItem(id uint) (*model.ShopItem, error) {
	var item model.ShopItem
	err := r.DB.First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrShopItemNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find shop item")
	}
	return &item, nil
}

// Purchase 扣减金币并增加库存，返回购买后的库存与剩余金币
func (r *ShopRepository) Purchase(userID, itemID uint) (*model.UserInventory, int64, error) {
	var (
		inv  model.UserInventory
		left int64
	)

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "coins", "is_premium").
			Where("id = ?", userID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		if err != nil {
			return pkgerrors.Wrap(err, "lock user")
		}

		var item model.ShopItem
		err = tx.First(&item, itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrShopItemNotFound
		}
		if err != nil {
			return pkgerrors.Wrap(err, "find shop item")
		}

		if item.PremiumOnly && !user.IsPremium {
			return util.ErrPremiumOnly
		}
		if user.Coins < item.Price {
			return util.ErrNotEnoughCoins
		}

		left = user.Coins - item.Price
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Update("coins", left).Error; err != nil {
			return pkgerrors.Wrap(err, "update coins")
		}

		err = tx.Where("user_id = ? AND shop_item_id = ?", userID, itemID).First(&inv).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			inv = model.UserInventory{UserID: userID, ShopItemID: itemID, Quantity: 1}
			if err := tx.Create(&inv).Error; err != nil {
				return pkgerrors.Wrap(err, "create inventory")
			}
		case err != nil:
			return pkgerrors.Wrap(err, "find inventory")
		default:
			inv.Quantity++
			if err := tx.Model(&inv).Update("quantity", inv.Quantity).Error; err != nil {
				return pkgerrors.Wrap(err, "update inventory")
			}
		}
		inv.ShopItem = item
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &inv, left, nil
}

func (r *ShopRepository) Inventory(userID uint) ([]model.UserInventory, error) {
	var items []model.UserInventory
	err := r.DB.Preload("ShopItem").
		Where("user_id = ? AND quantity > 0", userID).
		Order("id ASC").
		Find(&items).Error
	return items, pkgerrors.Wrap(err, "list inventory")
}

// consumeItem 按商品名消耗一件库存，没有库存时返回 false，需在事务内调用
func consumeItem(tx *gorm.DB, userID uint, itemName string) (bool, error) {
	var inv model.UserInventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Joins("JOIN shop_items ON shop_items.id = user_inventories.shop_item_id").
		Where("user_inventories.user_id = ? AND shop_items.name = ? AND user_inventories.quantity > 0", userID, itemName).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(err, "find inventory")
	}

	err = tx.Model(&model.UserInventory{}).Where("id = ?", inv.ID).
		Update("quantity", gorm.Expr("quantity - 1")).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "consume inventory")
	}
	return true, nil
}
