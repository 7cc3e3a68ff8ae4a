package model

import "time"

// RefreshToken 刷新令牌记录，只保存哈希
// 同一次登录派生出的令牌属于同一个 Family，轮换时旧令牌被吊销
type RefreshToken struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"` // jti
	UserID     uint       `gorm:"index;not null" json:"userId"`
	Family     string     `gorm:"index;type:varchar(36);not null" json:"family"`
	TokenHash  string     `gorm:"size:64;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expiresAt"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	ReplacedBy string     `gorm:"type:varchar(36)" json:"replacedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}
