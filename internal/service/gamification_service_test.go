package service

import (
	"context"
	"errors"
	"testing"

	"readsy_backend/internal/model"
	"readsy_backend/internal/repository/memrepo"
	"readsy_backend/internal/util"
	"readsy_backend/pkg/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddXP_LevelUpAwardsCoinsAndPublishes(t *testing.T) {
	f := newFixture(t, testNow)
	user := f.users.Put(model.User{Username: "reader"})

	res, err := f.gamification.AddXP(context.Background(), user.ID, 1300, "marathon", model.XPSourceAdmin)
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 3, res.Progress.Level)
	assert.Equal(t, 1, res.Event.LevelFrom)
	assert.Equal(t, 3, res.Event.LevelTo)
	assert.Equal(t, int64(100), res.Event.CoinsAwarded)

	stored, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1300), stored.XP)
	assert.Equal(t, int64(100), stored.Coins)

	require.Len(t, f.publisher.Keys, 1)
	assert.Equal(t, mq.RoutingKeyLevelUp, f.publisher.Keys[0])
	payload, ok := f.publisher.Payloads[0].(LevelUpEvent)
	require.True(t, ok)
	assert.Equal(t, user.ID, payload.UserID)
	assert.Equal(t, 3, payload.LevelTo)
	assert.Equal(t, testNow, payload.OccurredAt)

	top, err := f.scores.Top(context.Background(), "2026-10", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1300), top[0].Score)

	// 未升级不发布事件
	res, err = f.gamification.AddXP(context.Background(), user.ID, 10, "page", model.XPSourceCheckin)
	require.NoError(t, err)
	assert.False(t, res.LeveledUp)
	assert.Len(t, f.publisher.Keys, 1)
}

func TestAddXP_RejectsNonPositive(t *testing.T) {
	f := newFixture(t, testNow)
	user := f.users.Put(model.User{Username: "reader"})

	_, err := f.gamification.AddXP(context.Background(), user.ID, 0, "nothing", model.XPSourceAdmin)
	assert.ErrorIs(t, err, util.ErrInvalidXPAmount)
	_, err = f.gamification.AddXP(context.Background(), user.ID, -5, "nothing", model.XPSourceAdmin)
	assert.ErrorIs(t, err, util.ErrInvalidXPAmount)
}

func TestAddXP_UnknownUser(t *testing.T) {
	f := newFixture(t, testNow)
	_, err := f.gamification.AddXP(context.Background(), 42, 10, "x", model.XPSourceAdmin)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestAddXP_SideEffectFailuresDoNotFail(t *testing.T) {
	f := newFixture(t, testNow)
	user := f.users.Put(model.User{Username: "reader"})
	f.scores.Err = errors.New("redis down")
	f.publisher.Err = errors.New("broker down")

	res, err := f.gamification.AddXP(context.Background(), user.ID, 700, "x", model.XPSourceAdmin)
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)

	stored, _ := f.users.FindByID(user.ID)
	assert.Equal(t, int64(700), stored.XP)
}

func TestGamificationService_UpdateConfig(t *testing.T) {
	f := newFixture(t, testNow)
	user := f.users.Put(model.User{Username: "reader", XP: 2750})

	p, err := f.gamification.Progress(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Level)
	assert.InDelta(t, 0.5, p.Progress, 1e-9)

	cfg := testGamificationConfig()
	cfg.MaxLevel = 1
	assert.Error(t, f.gamification.UpdateConfig(cfg))
	assert.Equal(t, 10, f.gamification.Levels().MaxLevel)

	cfg = testGamificationConfig()
	cfg.MaxLevel = 4
	cfg.MaxXP = 300
	require.NoError(t, f.gamification.UpdateConfig(cfg))

	levels := f.gamification.Levels()
	assert.Equal(t, []int64{0, 100, 200, 300}, levels.Thresholds)
	p, err = f.gamification.Progress(user.ID)
	require.NoError(t, err)
	assert.True(t, p.IsMaxLevel)
}

func TestNewGamificationService_NilPublisher(t *testing.T) {
	users := memrepo.NewUsers()
	g, err := NewGamificationService(testGamificationConfig(), memrepo.NewXP(users), memrepo.NewScores(), users, nil)
	require.NoError(t, err)
	user := users.Put(model.User{Username: "reader"})

	_, err = g.AddXP(context.Background(), user.ID, 5000, "x", model.XPSourceAdmin)
	assert.NoError(t, err)
}

func TestSeasonOf(t *testing.T) {
	assert.Equal(t, "2026-10", SeasonOf(testNow))
	assert.Equal(t, "2026-09", SeasonOf(testNow.AddDate(0, -1, 0)))
}
