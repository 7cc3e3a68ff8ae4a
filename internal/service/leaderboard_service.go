package service

import (
	"context"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/util"
	"readsy_backend/pkg/logger"
	"readsy_backend/pkg/tracing"

	"go.uber.org/zap"
)

const (
	SourceLive     = "live"
	SourceSnapshot = "snapshot"
	SourceXP       = "xp" // Redis 无数据时按总经验排序
)

type LeaderboardView struct {
	Season  string                   `json:"season"`
	Source  string                   `json:"source"`
	Entries []model.LeaderboardEntry `json:"entries"`
}

type LeaderboardService struct {
	Scores       ScoreBoard
	Users        UserStore
	DefaultLimit int

	now func() time.Time
}

func NewLeaderboardService(scores ScoreBoard, users UserStore, defaultLimit int) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = util.DefaultLimit
	}
	return &LeaderboardService{
		Scores:       scores,
		Users:        users,
		DefaultLimit: defaultLimit,
		now:          time.Now,
	}
}

func (s *LeaderboardService) CurrentSeason() string {
	return SeasonOf(s.now())
}

// PreviousSeason 上一个自然月
func (s *LeaderboardService) PreviousSeason() string {
	now := s.now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return SeasonOf(firstOfMonth.AddDate(0, 0, -1))
}

// ResolveSeason 空值表示当前赛季
func (s *LeaderboardService) ResolveSeason(season string) (string, error) {
	if season == "" {
		return s.CurrentSeason(), nil
	}
	if _, err := time.Parse(util.SeasonFormat, season); err != nil {
		return "", util.ErrInvalidSeason
	}
	return season, nil
}

func (s *LeaderboardService) Top(ctx context.Context, season string, limit int) (*LeaderboardView, error) {
	season, err := s.ResolveSeason(season)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if limit > util.MaxLimit {
		limit = util.MaxLimit
	}

	current := season == s.CurrentSeason()
	if !current {
		entries, err := s.Scores.FindSnapshot(season, limit)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return &LeaderboardView{Season: season, Source: SourceSnapshot, Entries: entries}, nil
		}
	}

	entries, err := s.Scores.Top(ctx, season, limit)
	if err != nil {
		logger.Log.Warn("read live leaderboard failed", zap.String("season", season), zap.Error(err))
		entries = nil
	}
	if len(entries) > 0 {
		if err := s.fillUsernames(entries); err != nil {
			return nil, err
		}
		return &LeaderboardView{Season: season, Source: SourceLive, Entries: entries}, nil
	}

	if !current {
		return &LeaderboardView{Season: season, Source: SourceSnapshot, Entries: []model.LeaderboardEntry{}}, nil
	}
	return s.topByXP(season, limit)
}

// Me 用户未上榜时 Rank 为 0
func (s *LeaderboardService) Me(ctx context.Context, userID uint, season string) (*model.LeaderboardEntry, error) {
	season, err := s.ResolveSeason(season)
	if err != nil {
		return nil, err
	}

	if season != s.CurrentSeason() {
		entry, err := s.Scores.FindSnapshotEntry(season, userID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}
	}

	entry, err := s.Scores.Rank(ctx, season, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = &model.LeaderboardEntry{Season: season, UserID: userID}
	}
	if user, err := s.Users.FindByID(userID); err == nil {
		entry.Username = user.Username
	}
	return entry, nil
}

// Snapshot 将赛季的有序集合完整写入 leaderboard_entries，返回条数
func (s *LeaderboardService) Snapshot(ctx context.Context, season string) (_ int, err error) {
	season, err = s.ResolveSeason(season)
	if err != nil {
		return 0, err
	}
	ctx, span := tracing.Start(ctx, "leaderboard.Snapshot", 0)
	defer func() { tracing.End(span, err) }()

	entries, err := s.Scores.Top(ctx, season, 0)
	if err != nil {
		return 0, err
	}
	if err := s.fillUsernames(entries); err != nil {
		return 0, err
	}
	if err := s.Scores.SaveSnapshot(season, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *LeaderboardService) HasSnapshot(season string) (bool, error) {
	return s.Scores.HasSnapshot(season)
}

func (s *LeaderboardService) topByXP(season string, limit int) (*LeaderboardView, error) {
	users, err := s.Users.FindTopByXP(limit)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, model.LeaderboardEntry{
			Season:   season,
			UserID:   u.ID,
			Username: u.Username,
			Score:    u.XP,
			Rank:     i + 1,
		})
	}
	return &LeaderboardView{Season: season, Source: SourceXP, Entries: entries}, nil
}

func (s *LeaderboardService) fillUsernames(entries []model.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := s.Users.FindByIDs(ids)
	if err != nil {
		return err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
	}
	return nil
}
