package model

import "time"

// LeaderboardEntry 赛季结束后的排行快照
type LeaderboardEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Season    string    `gorm:"size:16;uniqueIndex:idx_season_user;index:idx_season_rank" json:"season"`
	UserID    uint      `gorm:"uniqueIndex:idx_season_user" json:"userId"`
	Username  string    `gorm:"size:64" json:"username"`
	Score     int64     `json:"score"`
	Rank      int       `gorm:"index:idx_season_rank" json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
