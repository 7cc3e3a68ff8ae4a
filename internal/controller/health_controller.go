package controller

import (
	"context"
	"net/http"
	"time"

	"readsy_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 与 ffmpeg
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}

	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			// 排行榜可以退回按经验排序，Redis 不可用不算整体故障
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}

	// 语音笔记时长依赖 ffmpeg
	if version, err := util.GetFFmpegVersion(); err != nil {
		components["ffmpeg"] = "unavailable"
	} else {
		components["ffmpeg"] = version
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
