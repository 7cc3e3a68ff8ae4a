package model

import "time"

const (
	XPSourceCheckin = "checkin"
	XPSourceAdmin   = "admin"
)

// XPEvent 经验流水
type XPEvent struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"userId"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Reason       string    `gorm:"size:255" json:"reason"`
	Source       string    `gorm:"size:32;index" json:"source"`
	XPAfter      int64     `gorm:"not null" json:"xpAfter"`
	LevelFrom    int       `json:"levelFrom"`
	LevelTo      int       `json:"levelTo"`
	CoinsAwarded int64     `gorm:"default:0" json:"coinsAwarded"` // 升级奖励的金币
	CreatedAt    time.Time `json:"createdAt"`
}

func (XPEvent) TableName() string {
	return "xp_events"
}

func (e *XPEvent) LeveledUp() bool {
	return e.LevelTo > e.LevelFrom
}
