package app

import (
	"testing"

	"readsy_backend/internal/config"
	"readsy_backend/internal/model"
	"readsy_backend/internal/repository/memrepo"
	"readsy_backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gamificationConfig() config.GamificationConfig {
	return config.GamificationConfig{
		MaxLevel:       10,
		MaxXP:          5500,
		Curve:          "linear",
		XPPerPage:      1,
		XPPerMinute:    1,
		StreakBonusXP:  5,
		StreakBonusCap: 7,
		CoinsPerLevel:  50,
	}
}

func newReloadServices(t *testing.T) (*services, *memrepo.Shop) {
	t.Helper()
	users := memrepo.NewUsers()
	shopStore := memrepo.NewShop(users, model.ShopItem{Name: model.StreakFreezeItem, Type: model.ShopItemPowerup, Price: 50})

	gam, err := service.NewGamificationService(gamificationConfig(), memrepo.NewXP(users), memrepo.NewScores(), users, &memrepo.Publisher{})
	require.NoError(t, err)
	shop, err := service.NewShopService(shopStore)
	require.NoError(t, err)
	t.Cleanup(shop.Close)

	return &services{
		gamification: gam,
		checkin:      service.NewCheckinService(memrepo.NewCheckins(users, shopStore), memrepo.Books{}, gam, gamificationConfig()),
		shop:         shop,
	}, shopStore
}

func TestApplyConfig(t *testing.T) {
	s, shopStore := newReloadServices(t)

	_, err := s.shop.Items()
	require.NoError(t, err)
	_, err = s.shop.Items()
	require.NoError(t, err)
	require.Equal(t, 1, shopStore.ListCalls)

	cfg := &config.Config{Gamification: gamificationConfig()}
	cfg.Gamification.MaxLevel = 20
	cfg.Gamification.MaxXP = 21000
	cfg.Gamification.XPPerPage = 3
	applyConfig(s, cfg)

	assert.Equal(t, 20, s.gamification.Levels().MaxLevel)
	assert.Equal(t, 3, s.checkin.Rules().XPPerPage)

	// 重载后重新读取商品目录
	_, err = s.shop.Items()
	require.NoError(t, err)
	assert.Equal(t, 2, shopStore.ListCalls)
}

func TestApplyConfig_RejectsBadCurve(t *testing.T) {
	s, _ := newReloadServices(t)

	cfg := &config.Config{Gamification: gamificationConfig()}
	cfg.Gamification.Curve = "zigzag"
	cfg.Gamification.XPPerPage = 9
	applyConfig(s, cfg)

	assert.Equal(t, "linear", s.gamification.Levels().Curve)
	assert.Equal(t, 1, s.checkin.Rules().XPPerPage)
}
