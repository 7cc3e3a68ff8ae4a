package util

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserDisabled        = errors.New("user disabled")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenReused  = errors.New("refresh token reuse detected")
	ErrBookNotFound        = errors.New("book not found")
	ErrInvalidCheckin      = errors.New("invalid checkin")
	ErrInvalidXPAmount     = errors.New("xp amount must be positive")
	ErrShopItemNotFound    = errors.New("shop item not found")
	ErrNotEnoughCoins      = errors.New("not enough coins")
	ErrPremiumOnly         = errors.New("item is available to premium users only")
	ErrInvalidSeason       = errors.New("invalid season, expected YYYY-MM")
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrFileTooLarge        = errors.New("file too large")
)
