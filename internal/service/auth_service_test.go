package service

import (
	"testing"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/repository/memrepo"
	"readsy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *memrepo.Users, *memrepo.RefreshTokens) {
	t.Helper()
	users := memrepo.NewUsers()
	tokens := memrepo.NewRefreshTokens()
	svc := NewAuthService(users, tokens, testConfig())

	_, err := svc.Register(RegisterInput{
		Email:    "Reader@Example.com",
		Username: "reader",
		Password: "password123",
	})
	require.NoError(t, err)
	return svc, users, tokens
}

func TestRegister(t *testing.T) {
	svc, users, _ := newAuthService(t)

	u, err := users.FindByEmail("reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, "reader", u.DisplayName)
	assert.Equal(t, "en", u.Language)
	assert.Equal(t, int64(100), u.Coins)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEqual(t, "password123", u.Password)

	_, err = svc.Register(RegisterInput{Email: "reader@example.com", Username: "other", Password: "password123"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = svc.Register(RegisterInput{Email: "other@example.com", Username: "reader", Password: "password123"})
	assert.ErrorIs(t, err, util.ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	svc, users, tokens := newAuthService(t)

	pair, user, err := svc.Login("READER@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.Equal(t, 1, tokens.Len())

	claims, err := util.ParseJWT(pair.AccessToken, testConfig().JWT.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = svc.Login("reader@example.com", "wrong-password")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = svc.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	u, _ := users.FindByID(user.ID)
	u.Disabled = true
	users.Put(*u)
	_, _, err = svc.Login("reader@example.com", "password123")
	assert.ErrorIs(t, err, util.ErrUserDisabled)
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	svc, _, _ := newAuthService(t)

	first, _, err := svc.Login("reader@example.com", "password123")
	require.NoError(t, err)

	second, err := svc.Refresh(first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	third, err := svc.Refresh(second.RefreshToken)
	require.NoError(t, err)

	// 重放已轮换的令牌，整个 family 失效
	_, err = svc.Refresh(first.RefreshToken)
	assert.ErrorIs(t, err, util.ErrRefreshTokenReused)

	_, err = svc.Refresh(third.RefreshToken)
	assert.ErrorIs(t, err, util.ErrRefreshTokenReused)
}

func TestRefresh_Invalid(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.Refresh("not-a-jwt")
	assert.ErrorIs(t, err, util.ErrInvalidRefreshToken)

	pair, _, err := svc.Login("reader@example.com", "password123")
	require.NoError(t, err)

	// 访问令牌不能当作刷新令牌
	_, err = svc.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, util.ErrInvalidRefreshToken)

	// 库里没有记录的 jti
	forged, err := util.GenerateRefreshJWT(1, "unknown-jti", "fam", testConfig().JWT.RefreshSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Refresh(forged)
	assert.ErrorIs(t, err, util.ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredRecord(t *testing.T) {
	svc, _, _ := newAuthService(t)
	pair, _, err := svc.Login("reader@example.com", "password123")
	require.NoError(t, err)

	// 签名仍有效，但数据库记录按服务端时钟已过期
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, util.ErrInvalidRefreshToken)
}

func TestLogout_RevokesFamily(t *testing.T) {
	svc, _, _ := newAuthService(t)
	pair, _, err := svc.Login("reader@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(pair.RefreshToken))
	require.NoError(t, svc.Logout(pair.RefreshToken))

	_, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, util.ErrRefreshTokenReused)
}

func TestPurgeExpiredTokens(t *testing.T) {
	svc, _, tokens := newAuthService(t)
	_, _, err := svc.Login("reader@example.com", "password123")
	require.NoError(t, err)

	n, err := svc.PurgeExpiredTokens()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err = svc.PurgeExpiredTokens()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, tokens.Len())
}
