package service

import (
	"context"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/repository"
)

// 服务层依赖的存储接口，由 internal/repository 中的实现满足

type UserStore interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	FindByIDs(ids []uint) ([]model.User, error)
	FindTopByXP(limit int) ([]model.User, error)
	UpdateLastLogin(id uint, at time.Time) error
}

type RefreshTokenStore interface {
	Create(token *model.RefreshToken) error
	FindByID(id string) (*model.RefreshToken, error)
	Rotate(oldID string, next *model.RefreshToken) error
	RevokeFamily(family string) error
	DeleteExpired(before time.Time) (int64, error)
}

type CheckinStore interface {
	CreateWithStreak(userID uint, build repository.StreakBuilder) (*model.Checkin, error)
	UpdateXPAwarded(id uint, xp int64) error
	FindLatestByUser(userID uint) (*model.Checkin, error)
	ListByUser(userID, bookID uint, page, limit int) ([]model.Checkin, int64, error)
}

type BookStore interface {
	Exists(id uint) (bool, error)
}

type XPLedger interface {
	Grant(g repository.XPGrant) (*model.XPEvent, error)
	ListEvents(userID uint, page, limit int) ([]model.XPEvent, int64, error)
}

type ScoreBoard interface {
	Incr(ctx context.Context, season string, userID uint, amount int64) error
	Top(ctx context.Context, season string, limit int) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, season string, userID uint) (*model.LeaderboardEntry, error)
	SaveSnapshot(season string, entries []model.LeaderboardEntry) error
	FindSnapshot(season string, limit int) ([]model.LeaderboardEntry, error)
	FindSnapshotEntry(season string, userID uint) (*model.LeaderboardEntry, error)
	HasSnapshot(season string) (bool, error)
}

type ShopStore interface {
	ListItems() ([]model.ShopItem, error)
	FindItem(id uint) (*model.ShopItem, error)
	Purchase(userID, itemID uint) (*model.UserInventory, int64, error)
	Inventory(userID uint) ([]model.UserInventory, error)
}

var (
	_ UserStore         = (*repository.UserRepository)(nil)
	_ RefreshTokenStore = (*repository.RefreshTokenRepository)(nil)
	_ CheckinStore      = (*repository.CheckinRepository)(nil)
	_ BookStore         = (*repository.BookRepository)(nil)
	_ XPLedger          = (*repository.XPRepository)(nil)
	_ ScoreBoard        = (*repository.LeaderboardRepository)(nil)
	_ ShopStore         = (*repository.ShopRepository)(nil)
)
