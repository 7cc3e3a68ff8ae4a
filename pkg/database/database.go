package database

import (
	"readsy_backend/internal/config"
	"readsy_backend/internal/model"
	appLogger "readsy_backend/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	appLogger.Log.Info("Database connection established")
	return db, nil
}

// Migrate 建表并写入默认商品
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Book{},
		&model.Checkin{},
		&model.RefreshToken{},
		&model.XPEvent{},
		&model.LeaderboardEntry{},
		&model.ShopItem{},
		&model.UserInventory{},
	)
	if err != nil {
		return err
	}

	appLogger.Log.Info("Database migration completed")

	var count int64
	if err := db.Model(&model.ShopItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		for _, item := range DefaultShopItems() {
			item := item
			if err := db.Create(&item).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// DefaultShopItems 商店初始商品
func DefaultShopItems() []model.ShopItem {
	return []model.ShopItem{
		{Name: "Owl Avatar", Type: model.ShopItemAvatar, Price: 120, Description: "A wise owl for night readers"},
		{Name: "Gilded Frame", Type: model.ShopItemFrame, Price: 300, Description: "Golden border around your avatar"},
		{Name: "Old Library", Type: model.ShopItemBackground, Price: 250, Description: "Profile background with dusty shelves"},
		{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 150, Description: "Keeps your streak alive for one missed day"},
		{Name: "Reading Lamp", Type: model.ShopItemFrame, Price: 400, Description: "Warm lamp glow frame", PremiumOnly: true},
		{Name: "Bookstore Coupon", Type: model.ShopItemCoupon, Price: 1000, Description: "10% off at partner bookstores", PremiumOnly: true},
	}
}
