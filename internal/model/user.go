package model

import (
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Email       string    `gorm:"size:191;unique;not null" json:"email"`
	Username    string    `gorm:"size:64;unique;not null" json:"username"`
	Password    string    `gorm:"size:100;not null" json:"-"`
	DisplayName string    `gorm:"size:100" json:"displayName"`
	Avatar      string    `gorm:"size:255" json:"avatar"`
	Language    string    `gorm:"size:10;default:'en'" json:"language"`
	Role        UserRole  `gorm:"size:16;default:'user'" json:"role"`
	IsPremium   bool      `gorm:"default:false" json:"isPremium"`
	XP          int64     `gorm:"default:0" json:"xp"`    // 累计经验
	Coins       int64     `gorm:"default:0" json:"coins"` // 虚拟货币
	Disabled    bool      `gorm:"default:false" json:"disabled"`
	LastLogin   time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen    time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
