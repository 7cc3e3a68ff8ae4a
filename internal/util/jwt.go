package util

import (
	"errors"
	"time"

	"readsy_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextUserKey = "user"

// Claims 访问令牌声明
type Claims struct {
	UserID uint           `json:"user_id"`
	Role   model.UserRole `json:"role"`
	Email  string         `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims 刷新令牌声明，ID 即 jti
type RefreshClaims struct {
	UserID uint   `json:"user_id"`
	Family string `json:"family"`
	jwt.RegisteredClaims
}

var errUnexpectedClaims = errors.New("unexpected token claims")

func GenerateJWT(user *model.User, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parseHS256(tokenString, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateRefreshJWT 签发刷新令牌，jti 与 family 由调用方生成
func GenerateRefreshJWT(userID uint, jti, family, secret string, expiresAt time.Time) (string, error) {
	claims := &RefreshClaims{
		UserID: userID,
		Family: family,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseRefreshJWT(tokenString, secret string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parseHS256(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Family == "" {
		return nil, errUnexpectedClaims
	}
	return claims, nil
}

func parseHS256(tokenString, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errUnexpectedClaims
	}
	return nil
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
