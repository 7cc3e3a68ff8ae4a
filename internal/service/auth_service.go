package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"readsy_backend/internal/config"
	"readsy_backend/internal/model"
	"readsy_backend/internal/util"
	"readsy_backend/pkg/logger"
	"readsy_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair 登录与刷新返回的令牌
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"` // 访问令牌有效期（秒）
}

type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
	Language    string
}

type AuthService struct {
	Users  UserStore
	Tokens RefreshTokenStore
	Cfg    *config.Config

	now func() time.Time
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, cfg *config.Config) *AuthService {
	return &AuthService{
		Users:  users,
		Tokens: tokens,
		Cfg:    cfg,
		now:    time.Now,
	}
}

func (s *AuthService) Register(in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if _, err := s.Users.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.Users.FindByUsername(username); err == nil {
		return nil, util.ErrUsernameTaken
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	language := in.Language
	if language == "" {
		language = "en"
	}
	displayName := in.DisplayName
	if displayName == "" {
		displayName = username
	}

	user := &model.User{
		Email:       email,
		Username:    username,
		Password:    string(hashedPassword),
		DisplayName: displayName,
		Language:    language,
		Role:        model.RoleUser,
		Coins:       int64(s.Cfg.Gamification.StartingCoins),
	}
	if err := s.Users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(email, password string) (*TokenPair, *model.User, error) {
	user, err := s.Users.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, util.ErrUserNotFound) {
		return nil, nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, nil, util.ErrUserDisabled
	}

	pair, record, err := s.issue(user, uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	if err := s.Tokens.Create(record); err != nil {
		return nil, nil, err
	}

	if err := s.Users.UpdateLastLogin(user.ID, s.now()); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("userID", user.ID), zap.Error(err))
	}
	return pair, user, nil
}

// Refresh 轮换刷新令牌：旧 jti 被吊销，同一 family 下签发新令牌。
// 出示已吊销的令牌视为泄露，整个 family 失效。
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := util.ParseRefreshJWT(refreshToken, s.Cfg.JWT.RefreshSecret)
	if err != nil {
		monitoring.TokenRefreshes.WithLabelValues("invalid").Inc()
		return nil, util.ErrInvalidRefreshToken
	}

	stored, err := s.Tokens.FindByID(claims.ID)
	if err != nil {
		monitoring.TokenRefreshes.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(stored.TokenHash), []byte(hashToken(refreshToken))) != 1 {
		monitoring.TokenRefreshes.WithLabelValues("invalid").Inc()
		return nil, util.ErrInvalidRefreshToken
	}
	if stored.Revoked() {
		return nil, s.revokeReused(stored)
	}
	if s.now().After(stored.ExpiresAt) {
		monitoring.TokenRefreshes.WithLabelValues("expired").Inc()
		return nil, util.ErrInvalidRefreshToken
	}

	user, err := s.Users.FindByID(stored.UserID)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		_ = s.Tokens.RevokeFamily(stored.Family)
		return nil, util.ErrUserDisabled
	}

	pair, next, err := s.issue(user, stored.Family)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Rotate(stored.ID, next); err != nil {
		if errors.Is(err, util.ErrRefreshTokenReused) {
			return nil, s.revokeReused(stored)
		}
		return nil, err
	}

	monitoring.TokenRefreshes.WithLabelValues("success").Inc()
	return pair, nil
}

// Logout 吊销该刷新令牌所在的整个 family，重复调用无副作用
func (s *AuthService) Logout(refreshToken string) error {
	claims, err := util.ParseRefreshJWT(refreshToken, s.Cfg.JWT.RefreshSecret)
	if err != nil {
		return util.ErrInvalidRefreshToken
	}
	return s.Tokens.RevokeFamily(claims.Family)
}

// PurgeExpiredTokens 由定时任务调用
func (s *AuthService) PurgeExpiredTokens() (int64, error) {
	return s.Tokens.DeleteExpired(s.now())
}

func (s *AuthService) revokeReused(stored *model.RefreshToken) error {
	monitoring.TokenRefreshes.WithLabelValues("reused").Inc()
	logger.Log.Warn("refresh token reuse detected",
		zap.Uint("userID", stored.UserID),
		zap.String("family", stored.Family),
	)
	if err := s.Tokens.RevokeFamily(stored.Family); err != nil {
		return err
	}
	return util.ErrRefreshTokenReused
}

func (s *AuthService) issue(user *model.User, family string) (*TokenPair, *model.RefreshToken, error) {
	now := s.now()
	access, err := util.GenerateJWT(user, s.Cfg.JWT.AccessSecret, s.Cfg.JWT.AccessExpire)
	if err != nil {
		return nil, nil, err
	}

	jti := uuid.NewString()
	expiresAt := now.Add(s.Cfg.JWT.RefreshExpire)
	refresh, err := util.GenerateRefreshJWT(user.ID, jti, family, s.Cfg.JWT.RefreshSecret, expiresAt)
	if err != nil {
		return nil, nil, err
	}

	record := &model.RefreshToken{
		ID:        jti,
		UserID:    user.ID,
		Family:    family,
		TokenHash: hashToken(refresh),
		ExpiresAt: expiresAt,
	}
	pair := &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Cfg.JWT.AccessExpire / time.Second),
	}
	return pair, record, nil
}

// 数据库只保存刷新令牌的摘要
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
