package model

import (
	"time"
)

// Checkin 一次阅读进度打卡
// swagger:model Checkin
type Checkin struct {
	BaseModel
	UserID        uint      `gorm:"index:idx_checkin_user_time;not null" json:"userId"`
	BookID        uint      `gorm:"index;not null" json:"bookId"`
	PagesRead     int       `gorm:"not null;default:0" json:"pagesRead"`
	CurrentPage   int       `gorm:"not null;default:0" json:"currentPage"`
	MinutesSpent  int       `gorm:"not null;default:0" json:"minutesSpent"`
	AudioNoteURL  string    `gorm:"size:255" json:"audioNoteUrl,omitempty"`
	AudioDuration float64   `gorm:"default:0" json:"audioDurationSeconds,omitempty"`
	StreakDays    int       `gorm:"default:1" json:"streakDays"` // 连续打卡天数
	XPAwarded     int64     `gorm:"default:0" json:"xpAwarded"`
	CheckinAt     time.Time `gorm:"index:idx_checkin_user_time;not null" json:"checkinAt"`
}

func (Checkin) TableName() string {
	return "checkins"
}
