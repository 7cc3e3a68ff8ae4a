package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"readsy_backend/internal/config"
	"readsy_backend/internal/model"
	"readsy_backend/internal/util"
	"readsy_backend/pkg/logger"
	"readsy_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// XPAwarder 由 GamificationService 实现
type XPAwarder interface {
	AddXP(ctx context.Context, userID uint, amount int64, reason, source string) (*XPResult, error)
}

type CheckinInput struct {
	BookID        uint
	PagesRead     int
	CurrentPage   int
	MinutesSpent  int
	AudioNoteURL  string
	AudioDuration float64
}

type CheckinResult struct {
	Checkin          *model.Checkin `json:"checkin"`
	XP               *XPResult      `json:"xp,omitempty"`
	StreakFreezeUsed bool           `json:"streakFreezeUsed"`
}

// CheckinRules 打卡经验规则
type CheckinRules struct {
	XPPerPage      int
	XPPerMinute    int
	StreakBonusXP  int
	StreakBonusCap int
}

func RulesFromConfig(cfg config.GamificationConfig) CheckinRules {
	return CheckinRules{
		XPPerPage:      cfg.XPPerPage,
		XPPerMinute:    cfg.XPPerMinute,
		StreakBonusXP:  cfg.StreakBonusXP,
		StreakBonusCap: cfg.StreakBonusCap,
	}
}

// XPFor 当天第一次打卡才有连续打卡奖励
func (r CheckinRules) XPFor(in CheckinInput, streak int, firstToday bool) int64 {
	xp := int64(in.PagesRead)*int64(r.XPPerPage) + int64(in.MinutesSpent)*int64(r.XPPerMinute)
	if firstToday && streak > 0 {
		days := streak
		if r.StreakBonusCap > 0 && days > r.StreakBonusCap {
			days = r.StreakBonusCap
		}
		xp += int64(r.StreakBonusXP) * int64(days)
	}
	return xp
}

type CheckinService struct {
	Checkins CheckinStore
	Books    BookStore
	XP       XPAwarder

	mu    sync.RWMutex
	rules CheckinRules

	now func() time.Time
}

func NewCheckinService(checkins CheckinStore, books BookStore, xp XPAwarder, cfg config.GamificationConfig) *CheckinService {
	return &CheckinService{
		Checkins: checkins,
		Books:    books,
		XP:       xp,
		rules:    RulesFromConfig(cfg),
		now:      time.Now,
	}
}

func (s *CheckinService) UpdateRules(cfg config.GamificationConfig) {
	s.mu.Lock()
	s.rules = RulesFromConfig(cfg)
	s.mu.Unlock()
}

func (s *CheckinService) Rules() CheckinRules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

func (s *CheckinService) Create(ctx context.Context, userID uint, in CheckinInput) (*CheckinResult, error) {
	if err := validateCheckin(in); err != nil {
		return nil, err
	}

	exists, err := s.Books.Exists(in.BookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrBookNotFound
	}

	// 连签按 UTC 自然日计算
	now := s.now().UTC()
	rules := s.Rules()
	freezeUsed := false

	checkin, err := s.Checkins.CreateWithStreak(userID, func(latest *model.Checkin, consumeFreeze func() (bool, error)) (*model.Checkin, error) {
		streak, firstToday, used, err := nextStreak(latest, now, consumeFreeze)
		if err != nil {
			return nil, err
		}
		freezeUsed = used
		return &model.Checkin{
			UserID:        userID,
			BookID:        in.BookID,
			PagesRead:     in.PagesRead,
			CurrentPage:   in.CurrentPage,
			MinutesSpent:  in.MinutesSpent,
			AudioNoteURL:  in.AudioNoteURL,
			AudioDuration: in.AudioDuration,
			StreakDays:    streak,
			XPAwarded:     rules.XPFor(in, streak, firstToday),
			CheckinAt:     now,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.Checkins.Inc()

	result := &CheckinResult{Checkin: checkin, StreakFreezeUsed: freezeUsed}
	if checkin.XPAwarded <= 0 {
		return result, nil
	}

	xpResult, err := s.XP.AddXP(ctx, userID, checkin.XPAwarded, fmt.Sprintf("checkin #%d", checkin.ID), model.XPSourceCheckin)
	if err != nil {
		// 打卡已保存，经验发放失败时记为 0
		logger.Log.Error("award checkin xp failed",
			zap.Uint("userID", userID),
			zap.Uint("checkinID", checkin.ID),
			zap.Error(err),
		)
		checkin.XPAwarded = 0
		if uerr := s.Checkins.UpdateXPAwarded(checkin.ID, 0); uerr != nil {
			logger.Log.Error("reset checkin xp failed", zap.Uint("checkinID", checkin.ID), zap.Error(uerr))
		}
		return result, nil
	}
	result.XP = xpResult
	return result, nil
}

// Streak 返回当前连续天数以及今天是否已打卡，断签时为 0
func (s *CheckinService) Streak(userID uint) (int, bool, error) {
	latest, err := s.Checkins.FindLatestByUser(userID)
	if err != nil || latest == nil {
		return 0, false, err
	}

	switch gap := daysBetween(latest.CheckinAt, s.now().UTC()); {
	case gap <= 0:
		return latest.StreakDays, true, nil
	case gap == 1:
		return latest.StreakDays, false, nil
	default:
		return 0, false, nil
	}
}

func (s *CheckinService) List(userID, bookID uint, page, limit int) ([]model.Checkin, int64, error) {
	return s.Checkins.ListByUser(userID, bookID, page, limit)
}

// nextStreak 昨天打过卡 +1，今天打过卡不变，只漏一天时尝试消耗一个连签保护道具
func nextStreak(latest *model.Checkin, now time.Time, consumeFreeze func() (bool, error)) (streak int, firstToday, freezeUsed bool, err error) {
	if latest == nil {
		return 1, true, false, nil
	}

	switch gap := daysBetween(latest.CheckinAt, now); {
	case gap <= 0:
		return latest.StreakDays, false, false, nil
	case gap == 1:
		return latest.StreakDays + 1, true, false, nil
	case gap == 2:
		used, err := consumeFreeze()
		if err != nil {
			return 0, false, false, err
		}
		if used {
			return latest.StreakDays + 1, true, true, nil
		}
	}
	return 1, true, false, nil
}

func validateCheckin(in CheckinInput) error {
	if in.BookID == 0 {
		return util.ErrInvalidCheckin
	}
	if in.PagesRead < 0 || in.CurrentPage < 0 || in.MinutesSpent < 0 || in.AudioDuration < 0 {
		return util.ErrInvalidCheckin
	}
	if in.PagesRead == 0 && in.MinutesSpent == 0 && in.AudioNoteURL == "" {
		return util.ErrInvalidCheckin
	}
	return nil
}

// daysBetween 按 to 所在时区的自然日计算间隔
func daysBetween(from, to time.Time) int {
	loc := to.Location()
	f := from.In(loc)
	a := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(b.Sub(a).Hours() / 24))
}
