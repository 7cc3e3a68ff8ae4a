package repository

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// users 表的默认值用了 MySQL 的 CURRENT_TIMESTAMP(3)，这里手写建表语句
const usersDDL = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at DATETIME,
	updated_at DATETIME,
	deleted_at DATETIME,
	email VARCHAR(191) NOT NULL UNIQUE,
	username VARCHAR(64) NOT NULL UNIQUE,
	password VARCHAR(100) NOT NULL,
	display_name VARCHAR(100),
	avatar VARCHAR(255),
	language VARCHAR(10) DEFAULT 'en',
	role VARCHAR(16) DEFAULT 'user',
	is_premium NUMERIC DEFAULT 0,
	xp INTEGER DEFAULT 0,
	coins INTEGER DEFAULT 0,
	disabled NUMERIC DEFAULT 0,
	last_login DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
)`

var day = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "readsy.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接，事务天然串行
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(usersDDL).Error)
	require.NoError(t, db.AutoMigrate(
		&model.Checkin{},
		&model.ShopItem{},
		&model.UserInventory{},
		&model.XPEvent{},
		&model.RefreshToken{},
	))
	return db
}

func insertUser(t *testing.T, db *gorm.DB, username string, xp, coins int64, premium bool) uint {
	t.Helper()
	err := db.Exec(
		"INSERT INTO users (email, username, password, xp, coins, is_premium, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		username+"@example.com", username, "hash", xp, coins, premium, day, day,
	).Error
	require.NoError(t, err)

	var id uint
	require.NoError(t, db.Raw("SELECT id FROM users WHERE username = ?", username).Scan(&id).Error)
	require.NotZero(t, id)
	return id
}

func userBalance(t *testing.T, db *gorm.DB, id uint) (xp, coins int64) {
	t.Helper()
	var row struct {
		XP    int64
		Coins int64
	}
	require.NoError(t, db.Raw("SELECT xp, coins FROM users WHERE id = ?", id).Scan(&row).Error)
	return row.XP, row.Coins
}

func inventoryQty(t *testing.T, db *gorm.DB, userID, itemID uint) int {
	t.Helper()
	var inv model.UserInventory
	err := db.Where("user_id = ? AND shop_item_id = ?", userID, itemID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return inv.Quantity
}

func createItem(t *testing.T, db *gorm.DB, item model.ShopItem) model.ShopItem {
	t.Helper()
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestRefreshTokenRepository_RotateTwice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefreshTokenRepository(db)

	old := &model.RefreshToken{ID: "jti-1", UserID: 1, Family: "fam", TokenHash: "h1", ExpiresAt: day.Add(time.Hour)}
	require.NoError(t, repo.Create(old))

	next := &model.RefreshToken{ID: "jti-2", UserID: 1, Family: "fam", TokenHash: "h2", ExpiresAt: day.Add(time.Hour)}
	require.NoError(t, repo.Rotate("jti-1", next))

	stored, err := repo.FindByID("jti-1")
	require.NoError(t, err)
	assert.True(t, stored.Revoked())
	assert.Equal(t, "jti-2", stored.ReplacedBy)

	// 同一个 jti 第二次轮换
	again := &model.RefreshToken{ID: "jti-3", UserID: 1, Family: "fam", TokenHash: "h3", ExpiresAt: day.Add(time.Hour)}
	err = repo.Rotate("jti-1", again)
	assert.ErrorIs(t, err, util.ErrRefreshTokenReused)

	_, err = repo.FindByID("jti-3")
	assert.ErrorIs(t, err, util.ErrInvalidRefreshToken)

	require.NoError(t, repo.RevokeFamily("fam"))
	latest, err := repo.FindByID("jti-2")
	require.NoError(t, err)
	assert.True(t, latest.Revoked())
}

func TestXPRepository_GrantAcrossTwoLevels(t *testing.T) {
	db := setupTestDB(t)
	repo := NewXPRepository(db)
	userID := insertUser(t, db, "reader", 50, 10, false)

	levelFor := func(xp int64) int { return int(xp/100) + 1 }
	event, err := repo.Grant(XPGrant{
		UserID:        userID,
		Amount:        200,
		Reason:        "checkin #1",
		Source:        model.XPSourceCheckin,
		LevelFor:      levelFor,
		CoinsPerLevel: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, event.LevelFrom)
	assert.Equal(t, 3, event.LevelTo)
	assert.Equal(t, int64(250), event.XPAfter)
	assert.Equal(t, int64(50), event.CoinsAwarded)

	xp, coins := userBalance(t, db, userID)
	assert.Equal(t, int64(250), xp)
	assert.Equal(t, int64(60), coins)

	events, total, err := repo.ListEvents(userID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, int64(50), events[0].CoinsAwarded)

	_, err = repo.Grant(XPGrant{UserID: 999, Amount: 1, LevelFor: levelFor})
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestShopRepository_Purchase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewShopRepository(db)

	freeze := createItem(t, db, model.ShopItem{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 50})
	frame := createItem(t, db, model.ShopItem{Name: "Golden Frame", Type: model.ShopItemFrame, Price: 300, PremiumOnly: true})

	testCases := []struct {
		name      string
		coins     int64
		premium   bool
		itemID    uint
		wantErr   error
		wantLeft  int64
		wantQty   int
		buyTwice  bool
		wantCoins int64
	}{
		{name: "premium gate", coins: 1000, itemID: frame.ID, wantErr: util.ErrPremiumOnly, wantCoins: 1000},
		{name: "not enough coins", coins: 40, itemID: freeze.ID, wantErr: util.ErrNotEnoughCoins, wantCoins: 40},
		{name: "unknown item", coins: 40, itemID: 99, wantErr: util.ErrShopItemNotFound, wantCoins: 40},
		{name: "premium buys frame", coins: 300, premium: true, itemID: frame.ID, wantLeft: 0, wantQty: 1, wantCoins: 0},
		{name: "second purchase stacks", coins: 120, itemID: freeze.ID, buyTwice: true, wantLeft: 20, wantQty: 2, wantCoins: 20},
	}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			userID := insertUser(t, db, "buyer"+string(rune('a'+i)), 0, tc.coins, tc.premium)

			if tc.buyTwice {
				_, _, err := repo.Purchase(userID, tc.itemID)
				require.NoError(t, err)
			}
			inv, left, err := repo.Purchase(userID, tc.itemID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantLeft, left)
				assert.Equal(t, tc.wantQty, inv.Quantity)
				assert.Equal(t, tc.itemID, inv.ShopItem.ID)
			}

			_, coins := userBalance(t, db, userID)
			assert.Equal(t, tc.wantCoins, coins)
			assert.Equal(t, tc.wantQty, inventoryQty(t, db, userID, tc.itemID))
		})
	}

	_, _, err := repo.Purchase(999, freeze.ID)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestConsumeItem(t *testing.T) {
	db := setupTestDB(t)
	shop := NewShopRepository(db)
	freeze := createItem(t, db, model.ShopItem{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 50})
	owl := createItem(t, db, model.ShopItem{Name: "Night Owl", Type: model.ShopItemAvatar, Price: 80})
	userID := insertUser(t, db, "reader", 0, 180, false)

	_, _, err := shop.Purchase(userID, owl.ID)
	require.NoError(t, err)
	_, _, err = shop.Purchase(userID, freeze.ID)
	require.NoError(t, err)

	consume := func() bool {
		var used bool
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			var err error
			used, err = consumeItem(tx, userID, model.StreakFreezeItem)
			return err
		}))
		return used
	}

	assert.True(t, consume())
	assert.False(t, consume())
	assert.Equal(t, 0, inventoryQty(t, db, userID, freeze.ID))
	assert.Equal(t, 1, inventoryQty(t, db, userID, owl.ID))

	inv, err := shop.Inventory(userID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "Night Owl", inv[0].ShopItem.Name)
}

// freezeBuilder 上次打卡在两天前时消耗道具续上连签，否则沿用上次的天数
func freezeBuilder(now time.Time) StreakBuilder {
	return func(latest *model.Checkin, consumeFreeze func() (bool, error)) (*model.Checkin, error) {
		streak := 1
		if latest != nil {
			streak = latest.StreakDays
			if now.Sub(latest.CheckinAt) > 36*time.Hour {
				used, err := consumeFreeze()
				if err != nil {
					return nil, err
				}
				if used {
					streak++
				} else {
					streak = 1
				}
			}
		}
		return &model.Checkin{BookID: 1, PagesRead: 10, StreakDays: streak, CheckinAt: now}, nil
	}
}

func TestCheckinRepository_CreateWithStreak(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckinRepository(db)
	shop := NewShopRepository(db)
	freeze := createItem(t, db, model.ShopItem{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 50})
	userID := insertUser(t, db, "reader", 0, 50, false)
	_, _, err := shop.Purchase(userID, freeze.ID)
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.Checkin{UserID: userID, BookID: 1, PagesRead: 5, StreakDays: 5, CheckinAt: day.AddDate(0, 0, -2)}).Error)

	// 写入前失败，道具不会被扣除
	_, err = repo.CreateWithStreak(userID, func(latest *model.Checkin, consumeFreeze func() (bool, error)) (*model.Checkin, error) {
		used, err := consumeFreeze()
		require.NoError(t, err)
		require.True(t, used)
		return nil, errors.New("validation failed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, inventoryQty(t, db, userID, freeze.ID))

	created, err := repo.CreateWithStreak(userID, freezeBuilder(day))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, userID, created.UserID)
	assert.Equal(t, 6, created.StreakDays)
	assert.Equal(t, 0, inventoryQty(t, db, userID, freeze.ID))

	latest, err := repo.FindLatestByUser(userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, latest.ID)

	require.NoError(t, repo.UpdateXPAwarded(created.ID, 42))
	rows, total, err := repo.ListByUser(userID, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(42), rows[0].XPAwarded)

	_, err = repo.CreateWithStreak(999, freezeBuilder(day))
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestCheckinRepository_ConcurrentCreateUsesOneFreeze(t *testing.T) {
	const n = 6
	db := setupTestDB(t)
	repo := NewCheckinRepository(db)
	shop := NewShopRepository(db)
	freeze := createItem(t, db, model.ShopItem{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 50})
	userID := insertUser(t, db, "reader", 0, 100, false)
	for i := 0; i < 2; i++ {
		_, _, err := shop.Purchase(userID, freeze.ID)
		require.NoError(t, err)
	}
	require.NoError(t, db.Create(&model.Checkin{UserID: userID, BookID: 1, PagesRead: 5, StreakDays: 5, CheckinAt: day.AddDate(0, 0, -2)}).Error)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := repo.CreateWithStreak(userID, freezeBuilder(day))
			if assert.NoError(t, err) {
				assert.Equal(t, 6, c.StreakDays)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inventoryQty(t, db, userID, freeze.ID))
	_, total, err := repo.ListByUser(userID, 0, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), total)
}
