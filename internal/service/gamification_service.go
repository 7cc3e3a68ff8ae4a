package service

import (
	"context"
	"sync"
	"time"

	"readsy_backend/internal/config"
	"readsy_backend/internal/gamification"
	"readsy_backend/internal/model"
	"readsy_backend/internal/repository"
	"readsy_backend/internal/util"
	"readsy_backend/pkg/logger"
	"readsy_backend/pkg/monitoring"
	"readsy_backend/pkg/mq"
	"readsy_backend/pkg/tracing"

	"go.uber.org/zap"
)

// LevelUpEvent 发布到 readsy.level.up
type LevelUpEvent struct {
	UserID       uint      `json:"userId"`
	LevelFrom    int       `json:"levelFrom"`
	LevelTo      int       `json:"levelTo"`
	TotalXP      int64     `json:"totalXp"`
	CoinsAwarded int64     `json:"coinsAwarded"`
	Source       string    `json:"source"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// XPResult 一次加经验的结果
type XPResult struct {
	Event     *model.XPEvent        `json:"event"`
	Progress  gamification.Progress `json:"progress"`
	LeveledUp bool                  `json:"leveledUp"`
}

// LevelTable 客户端渲染等级条使用
type LevelTable struct {
	MaxLevel   int     `json:"maxLevel"`
	MaxXP      int64   `json:"maxXp"`
	Curve      string  `json:"curve"`
	Thresholds []int64 `json:"thresholds"`
}

type GamificationService struct {
	Ledger XPLedger
	Scores ScoreBoard
	Users  UserStore
	Events mq.EventPublisher

	mu            sync.RWMutex
	engine        *gamification.Engine
	coinsPerLevel int64

	now func() time.Time
}

func NewGamificationService(cfg config.GamificationConfig, ledger XPLedger, scores ScoreBoard, users UserStore, events mq.EventPublisher) (*GamificationService, error) {
	if events == nil {
		events = mq.NopPublisher{}
	}
	s := &GamificationService{
		Ledger: ledger,
		Scores: scores,
		Users:  users,
		Events: events,
		now:    time.Now,
	}
	if err := s.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateConfig 配置热更新时重建等级引擎，新配置非法时保留旧引擎
func (s *GamificationService) UpdateConfig(cfg config.GamificationConfig) error {
	engine, err := gamification.NewEngine(gamification.Config{
		MaxLevel: cfg.MaxLevel,
		MaxXP:    cfg.MaxXP,
		Curve:    cfg.Curve,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = engine
	s.coinsPerLevel = int64(cfg.CoinsPerLevel)
	s.mu.Unlock()
	return nil
}

func (s *GamificationService) Engine() *gamification.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *GamificationService) Progress(userID uint) (gamification.Progress, error) {
	user, err := s.Users.FindByID(userID)
	if err != nil {
		return gamification.Progress{}, err
	}
	return s.Engine().Compute(user.XP), nil
}

func (s *GamificationService) Levels() LevelTable {
	engine := s.Engine()
	cfg := engine.Config()
	return LevelTable{
		MaxLevel:   cfg.MaxLevel,
		MaxXP:      cfg.MaxXP,
		Curve:      cfg.Curve,
		Thresholds: engine.Thresholds(),
	}
}

// AddXP 增加经验，升级时发放金币并发布事件，同时累计当前赛季排行榜
func (s *GamificationService) AddXP(ctx context.Context, userID uint, amount int64, reason, source string) (_ *XPResult, err error) {
	if amount <= 0 {
		return nil, util.ErrInvalidXPAmount
	}
	ctx, span := tracing.Start(ctx, "gamification.AddXP", userID)
	defer func() { tracing.End(span, err) }()

	s.mu.RLock()
	engine, coinsPerLevel := s.engine, s.coinsPerLevel
	s.mu.RUnlock()

	event, err := s.Ledger.Grant(repository.XPGrant{
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		Source:        source,
		LevelFor:      engine.LevelFor,
		CoinsPerLevel: coinsPerLevel,
	})
	if err != nil {
		return nil, err
	}
	monitoring.XPAwarded.WithLabelValues(source).Add(float64(amount))

	now := s.now()
	if event.LeveledUp() {
		monitoring.LevelUps.Add(float64(event.LevelTo - event.LevelFrom))
		s.publishLevelUp(ctx, event, now)
	}

	if err := s.Scores.Incr(ctx, SeasonOf(now), userID, amount); err != nil {
		logger.Log.Warn("update leaderboard failed", zap.Uint("userID", userID), zap.Error(err))
	}

	return &XPResult{
		Event:     event,
		Progress:  engine.Compute(event.XPAfter),
		LeveledUp: event.LeveledUp(),
	}, nil
}

func (s *GamificationService) ListEvents(userID uint, page, limit int) ([]model.XPEvent, int64, error) {
	return s.Ledger.ListEvents(userID, page, limit)
}

// 事件发布失败只记录日志，经验已经落库
func (s *GamificationService) publishLevelUp(ctx context.Context, event *model.XPEvent, now time.Time) {
	payload := LevelUpEvent{
		UserID:       event.UserID,
		LevelFrom:    event.LevelFrom,
		LevelTo:      event.LevelTo,
		TotalXP:      event.XPAfter,
		CoinsAwarded: event.CoinsAwarded,
		Source:       event.Source,
		OccurredAt:   now,
	}
	if err := s.Events.PublishJSON(ctx, mq.RoutingKeyLevelUp, payload); err != nil {
		logger.Log.Warn("publish level up event failed", zap.Uint("userID", event.UserID), zap.Error(err))
	}
}

// SeasonOf 赛季按 UTC 自然月划分
func SeasonOf(t time.Time) string {
	return t.UTC().Format(util.SeasonFormat)
}
