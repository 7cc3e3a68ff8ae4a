package job

import (
	"context"
	"errors"
	"time"

	"readsy_backend/pkg/logger"

	"github.com/go-redsync/redsync/v4"
	"go.uber.org/zap"
)

// ErrSnapshotRunning 其他实例持有快照锁
var ErrSnapshotRunning = errors.New("season snapshot already running")

// SeasonSnapshotter 由 LeaderboardService 实现
type SeasonSnapshotter interface {
	PreviousSeason() string
	HasSnapshot(season string) (bool, error)
	Snapshot(ctx context.Context, season string) (int, error)
}

type SeasonSnapshotJob struct {
	leaderboard SeasonSnapshotter
	locker      Locker
	timeout     time.Duration
}

func NewSeasonSnapshotJob(leaderboard SeasonSnapshotter, locker Locker) *SeasonSnapshotJob {
	return &SeasonSnapshotJob{
		leaderboard: leaderboard,
		locker:      locker,
		timeout:     10 * time.Minute,
	}
}

// Run 快照刚结束的赛季，已有快照时跳过
func (j *SeasonSnapshotJob) Run() {
	season := j.leaderboard.PreviousSeason()
	done, err := j.leaderboard.HasSnapshot(season)
	if err != nil {
		logger.Log.Error("check season snapshot failed", zap.String("season", season), zap.Error(err))
		return
	}
	if done {
		logger.Log.Debug("season already snapshotted", zap.String("season", season))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.RunFor(ctx, season); err != nil && !errors.Is(err, ErrSnapshotRunning) {
		logger.Log.Error("season snapshot failed", zap.String("season", season), zap.Error(err))
	}
}

// RunFor 持锁快照指定赛季，管理员手动触发也走这里
func (j *SeasonSnapshotJob) RunFor(ctx context.Context, season string) (int, error) {
	mutex := j.locker.NewMutex("readsy:lock:season-snapshot:"+season,
		redsync.WithExpiry(j.timeout),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		logger.Log.Info("season snapshot lock held by another instance", zap.String("season", season))
		return 0, ErrSnapshotRunning
	}
	defer func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			logger.Log.Warn("release season snapshot lock failed", zap.Error(err))
		}
	}()

	n, err := j.leaderboard.Snapshot(ctx, season)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("season snapshot saved", zap.String("season", season), zap.Int("entries", n))
	return n, nil
}
