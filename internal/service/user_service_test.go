package service

import (
	"testing"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfile(t *testing.T) {
	f := newFixture(t, testNow)
	svc := NewUserService(f.users, f.checkin, f.gamification)

	user := f.users.Put(model.User{Username: "reader", XP: 2750, Coins: 40})
	f.checkins.Put(model.Checkin{UserID: user.ID, BookID: 1, StreakDays: 3, CheckinAt: testNow})

	p, err := svc.Profile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "reader", p.Username)
	assert.Equal(t, 5, p.Progress.Level)
	assert.Equal(t, 3, p.Streak)
	assert.True(t, p.CheckedInToday)

	_, err = svc.Profile(999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
