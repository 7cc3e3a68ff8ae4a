// Package job 定时任务：赛季排行快照与过期令牌清理
package job

import (
	"context"
	"time"

	"readsy_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger 让 cron 的日志走 zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Locker 多实例部署时保证同一任务只有一个实例在执行
type Locker interface {
	NewMutex(name string, options ...redsync.Option) *redsync.Mutex
}

type Scheduler struct {
	cron *cron.Cron
	rs   *redsync.Redsync
}

// NewScheduler 按 UTC 调度，与赛季划分一致
func NewScheduler(rdb *redis.Client) *Scheduler {
	log := cronLogger{log: logger.Log.Sugar().Named("cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(log),
			cron.WithChain(cron.SkipIfStillRunning(log), cron.Recover(log)),
		),
		rs: redsync.New(goredis.NewPool(rdb)),
	}
}

func (s *Scheduler) Locker() *redsync.Redsync {
	return s.rs
}

func (s *Scheduler) Add(spec string, job cron.Job) error {
	_, err := s.cron.AddJob(spec, job)
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
