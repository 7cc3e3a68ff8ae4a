package service

import (
	"testing"
	"time"

	"readsy_backend/internal/config"
	"readsy_backend/internal/model"
	"readsy_backend/internal/repository/memrepo"

	"github.com/stretchr/testify/require"
)

func testGamificationConfig() config.GamificationConfig {
	return config.GamificationConfig{
		MaxLevel:       10,
		MaxXP:          5500,
		Curve:          "linear",
		XPPerPage:      1,
		XPPerMinute:    1,
		StreakBonusXP:  5,
		StreakBonusCap: 7,
		CoinsPerLevel:  50,
		StartingCoins:  100,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret-for-tests",
			RefreshSecret: "refresh-secret-for-tests",
			AccessExpire:  15 * time.Minute,
			RefreshExpire: 24 * time.Hour,
		},
		Gamification: testGamificationConfig(),
	}
}

const (
	freezeItemID uint = 1
	frameItemID  uint = 2
	owlItemID    uint = 3
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users     *memrepo.Users
	checkins  *memrepo.Checkins
	xp        *memrepo.XP
	scores    *memrepo.Scores
	shop      *memrepo.Shop
	publisher *memrepo.Publisher

	gamification *GamificationService
	checkin      *CheckinService
	leaderboard  *LeaderboardService
}

// newFixture 所有服务共享同一个时钟
func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		users:     memrepo.NewUsers(),
		scores:    memrepo.NewScores(),
		publisher: &memrepo.Publisher{},
	}
	f.xp = memrepo.NewXP(f.users)
	f.shop = memrepo.NewShop(f.users,
		model.ShopItem{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 50},
		model.ShopItem{Name: "Golden Frame", Type: model.ShopItemFrame, Price: 300, PremiumOnly: true},
		model.ShopItem{Name: "Night Owl", Type: model.ShopItemAvatar, Price: 80},
	)
	f.checkins = memrepo.NewCheckins(f.users, f.shop)

	clock := func() time.Time { return now }

	g, err := NewGamificationService(testGamificationConfig(), f.xp, f.scores, f.users, f.publisher)
	require.NoError(t, err)
	g.now = clock
	f.gamification = g

	f.checkin = NewCheckinService(f.checkins, memrepo.Books{1: true, 2: true}, g, testGamificationConfig())
	f.checkin.now = clock

	f.leaderboard = NewLeaderboardService(f.scores, f.users, 20)
	f.leaderboard.now = clock
	return f
}
