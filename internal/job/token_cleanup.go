package job

import (
	"readsy_backend/pkg/logger"

	"go.uber.org/zap"
)

type TokenPurger interface {
	PurgeExpiredTokens() (int64, error)
}

// TokenCleanupJob 删除过期的刷新令牌
type TokenCleanupJob struct {
	auth TokenPurger
}

func NewTokenCleanupJob(auth TokenPurger) *TokenCleanupJob {
	return &TokenCleanupJob{auth: auth}
}

func (j *TokenCleanupJob) Run() {
	n, err := j.auth.PurgeExpiredTokens()
	if err != nil {
		logger.Log.Error("purge expired refresh tokens failed", zap.Error(err))
		return
	}
	logger.Log.Debug("purged expired refresh tokens", zap.Int64("rows", n))
}
