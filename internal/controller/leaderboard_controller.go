package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"readsy_backend/internal/job"
	"readsy_backend/internal/service"
	"readsy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// SnapshotRunner 由 job.SeasonSnapshotJob 实现
type SnapshotRunner interface {
	RunFor(ctx context.Context, season string) (int, error)
}

type LeaderboardController struct {
	Service  *service.LeaderboardService
	Snapshot SnapshotRunner
}

func NewLeaderboardController(s *service.LeaderboardService, snapshot SnapshotRunner) *LeaderboardController {
	return &LeaderboardController{Service: s, Snapshot: snapshot}
}

// Top godoc
// @Summary 赛季排行榜
// @Tags 排行榜
// @Produce  json
// @Param season query string false "赛季 YYYY-MM，默认当前赛季"
// @Param limit query int false "条数"
// @Success 200 {object} util.Response{data=service.LeaderboardView} "成功"
// @Failure 400 {object} util.Response "赛季格式错误"
// @Router /api/v1/leaderboard [get]
func (c *LeaderboardController) Top(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	view, err := c.Service.Top(ctx.Request.Context(), ctx.Query("season"), limit)
	if err != nil {
		if errors.Is(err, util.ErrInvalidSeason) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Me godoc
// @Summary 我的排名
// @Tags 排行榜
// @Produce  json
// @Security BearerAuth
// @Param season query string false "赛季 YYYY-MM"
// @Success 200 {object} util.Response{data=model.LeaderboardEntry} "成功"
// @Router /api/v1/leaderboard/me [get]
func (c *LeaderboardController) Me(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	entry, err := c.Service.Me(ctx.Request.Context(), claims.UserID, ctx.Query("season"))
	if err != nil {
		if errors.Is(err, util.ErrInvalidSeason) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entry)
}

// TriggerSnapshot godoc
// @Summary 手动快照赛季排行
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Param season query string false "赛季 YYYY-MM，默认上一个赛季"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 409 {object} util.Response "快照正在进行"
// @Router /api/v1/admin/leaderboard/snapshot [post]
func (c *LeaderboardController) TriggerSnapshot(ctx *gin.Context) {
	season := ctx.Query("season")
	if season == "" {
		season = c.Service.PreviousSeason()
	}
	season, err := c.Service.ResolveSeason(season)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	n, err := c.Snapshot.RunFor(ctx.Request.Context(), season)
	if err != nil {
		if errors.Is(err, job.ErrSnapshotRunning) {
			util.Error(ctx, http.StatusConflict, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"season": season, "entries": n})
}
