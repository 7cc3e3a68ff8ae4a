package service

import (
	"readsy_backend/internal/gamification"
	"readsy_backend/internal/model"
)

// Profile GET /users/me 的返回
type Profile struct {
	*model.User
	Progress       gamification.Progress `json:"progress"`
	Streak         int                   `json:"streak"`
	CheckedInToday bool                  `json:"checkedInToday"`
}

// UserService 处理用户相关的业务逻辑
type UserService struct {
	Users        UserStore
	Checkins     *CheckinService
	Gamification *GamificationService
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(users UserStore, checkins *CheckinService, gamification *GamificationService) *UserService {
	return &UserService{
		Users:        users,
		Checkins:     checkins,
		Gamification: gamification,
	}
}

func (s *UserService) Profile(userID uint) (*Profile, error) {
	user, err := s.Users.FindByID(userID)
	if err != nil {
		return nil, err
	}

	streak, today, err := s.Checkins.Streak(userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:           user,
		Progress:       s.Gamification.Engine().Compute(user.XP),
		Streak:         streak,
		CheckedInToday: today,
	}, nil
}
