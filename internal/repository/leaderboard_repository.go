package repository

import (
	"context"
	"strconv"
	"time"

	"readsy_backend/internal/model"

	"github.com/go-redis/redis/v8"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// 当前赛季保留到下个赛季结束之后，快照落库前不会丢失
const seasonKeyTTL = 62 * 24 * time.Hour

func SeasonKey(season string) string {
	return "leaderboard:season:" + season
}

// LeaderboardRepository 当前赛季在 Redis 有序集合中累计，结束的赛季快照到 MySQL
type LeaderboardRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewLeaderboardRepository(db *gorm.DB, rdb *redis.Client) *LeaderboardRepository {
	return &LeaderboardRepository{DB: db, Redis: rdb}
}

func (r *LeaderboardRepository) Incr(ctx context.Context, season string, userID uint, amount int64) error {
	key := SeasonKey(season)
	pipe := r.Redis.TxPipeline()
	pipe.ZIncrBy(ctx, key, float64(amount), member(userID))
	pipe.Expire(ctx, key, seasonKeyTTL)
	_, err := pipe.Exec(ctx)
	return pkgerrors.Wrap(err, "incr leaderboard score")
}

// Top limit <= 0 时返回整个赛季
func (r *LeaderboardRepository) Top(ctx context.Context, season string, limit int) ([]model.LeaderboardEntry, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}

	zs, err := r.Redis.ZRevRangeWithScores(ctx, SeasonKey(season), 0, stop).Result()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read leaderboard")
	}

	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		id, err := strconv.ParseUint(z.Member.(string), 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Season: season,
			UserID: uint(id),
			Score:  int64(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}

// Rank 用户不在榜上时返回 nil
func (r *LeaderboardRepository) Rank(ctx context.Context, season string, userID uint) (*model.LeaderboardEntry, error) {
	key := SeasonKey(season)
	rank, err := r.Redis.ZRevRank(ctx, key, member(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read leaderboard rank")
	}

	score, err := r.Redis.ZScore(ctx, key, member(userID)).Result()
	if err != nil && err != redis.Nil {
		return nil, pkgerrors.Wrap(err, "read leaderboard score")
	}

	return &model.LeaderboardEntry{
		Season: season,
		UserID: userID,
		Score:  int64(score),
		Rank:   int(rank) + 1,
	}, nil
}

// SaveSnapshot 覆盖写入某赛季的快照
func (r *LeaderboardRepository) SaveSnapshot(season string, entries []model.LeaderboardEntry) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("season = ?", season).Delete(&model.LeaderboardEntry{}).Error; err != nil {
			return pkgerrors.Wrap(err, "clear snapshot")
		}
		if len(entries) == 0 {
			return nil
		}
		return pkgerrors.Wrap(tx.CreateInBatches(entries, 200).Error, "save snapshot")
	})
}

func (r *LeaderboardRepository) FindSnapshot(season string, limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	query := r.DB.Where("season = ?", season).Order("`rank` ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, pkgerrors.Wrap(err, "find snapshot")
}

// FindSnapshotEntry 不在快照中时返回 nil
func (r *LeaderboardRepository) FindSnapshotEntry(season string, userID uint) (*model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.DB.Where("season = ? AND user_id = ?", season, userID).Limit(1).Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find snapshot entry")
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *LeaderboardRepository) HasSnapshot(season string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.LeaderboardEntry{}).Where("season = ?", season).Count(&count).Error
	return count > 0, pkgerrors.Wrap(err, "count snapshot")
}

func member(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
