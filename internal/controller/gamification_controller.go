package controller

import (
	"errors"

	"readsy_backend/internal/model"
	"readsy_backend/internal/service"
	"readsy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	Service *service.GamificationService
}

func NewGamificationController(s *service.GamificationService) *GamificationController {
	return &GamificationController{Service: s}
}

// Progress godoc
// @Summary 当前等级进度
// @Tags 成长
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/v1/gamification/progress [get]
func (c *GamificationController) Progress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.Service.Progress(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// Levels godoc
// @Summary 等级经验阈值表
// @Tags 成长
// @Produce  json
// @Success 200 {object} util.Response{data=service.LevelTable} "成功"
// @Router /api/v1/gamification/levels [get]
func (c *GamificationController) Levels(ctx *gin.Context) {
	util.Success(ctx, c.Service.Levels())
}

// XPEvents godoc
// @Summary 经验流水
// @Tags 成长
// @Produce  json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/v1/gamification/xp-events [get]
func (c *GamificationController) XPEvents(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"))
	events, total, err := c.Service.ListEvents(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Page(ctx, events, total, page, limit)
}

// AddXpRequest 管理员手动发放经验
// swagger:model AddXpRequest
type AddXpRequest struct {
	UserID uint   `json:"userId" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=255"`
}

// AddXP godoc
// @Summary 发放经验
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body AddXpRequest true "发放信息"
// @Success 200 {object} util.Response{data=service.XPResult} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/v1/admin/gamification/xp [post]
func (c *GamificationController) AddXP(ctx *gin.Context) {
	var req AddXpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "admin grant"
	}

	result, err := c.Service.AddXP(ctx.Request.Context(), req.UserID, req.Amount, reason, model.XPSourceAdmin)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidXPAmount):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}
