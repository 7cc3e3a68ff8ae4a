package controller

import (
	"errors"
	"net/http"

	"readsy_backend/internal/service"
	"readsy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CheckinController struct {
	CheckinService *service.CheckinService
	AudioService   *service.AudioService
}

func NewCheckinController(checkins *service.CheckinService, audio *service.AudioService) *CheckinController {
	return &CheckinController{CheckinService: checkins, AudioService: audio}
}

// swagger:model CheckinRequest
type CheckinRequest struct {
	BookID               uint    `json:"bookId" binding:"required"`
	PagesRead            int     `json:"pagesRead" binding:"min=0,max=2000"`
	CurrentPage          int     `json:"currentPage" binding:"min=0"`
	MinutesSpent         int     `json:"minutesSpent" binding:"min=0,max=1440"`
	AudioNoteURL         string  `json:"audioNoteUrl" binding:"max=255"`
	AudioDurationSeconds float64 `json:"audioDurationSeconds" binding:"min=0"`
}

// Create godoc
// @Summary 阅读打卡
// @Description 记录阅读进度，维护连续打卡并发放经验
// @Tags 打卡
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CheckinRequest true "打卡内容"
// @Success 201 {object} util.Response{data=service.CheckinResult} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "书籍不存在"
// @Router /api/v1/checkins [post]
func (c *CheckinController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CheckinService.Create(ctx.Request.Context(), claims.UserID, service.CheckinInput{
		BookID:        req.BookID,
		PagesRead:     req.PagesRead,
		CurrentPage:   req.CurrentPage,
		MinutesSpent:  req.MinutesSpent,
		AudioNoteURL:  req.AudioNoteURL,
		AudioDuration: req.AudioDurationSeconds,
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidCheckin):
			util.BadRequest(ctx, "pagesRead or minutesSpent required")
		case errors.Is(err, util.ErrBookNotFound), errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, result)
}

// List godoc
// @Summary 我的打卡记录
// @Tags 打卡
// @Produce  json
// @Security BearerAuth
// @Param bookId query int false "书籍ID"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/v1/checkins [get]
func (c *CheckinController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.ParsePagination(ctx.Query("page"), ctx.Query("limit"))
	bookID := util.MustParseUint(ctx.Query("bookId"))

	checkins, total, err := c.CheckinService.List(claims.UserID, bookID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Page(ctx, checkins, total, page, limit)
}

// UploadAudio godoc
// @Summary 上传语音笔记
// @Tags 打卡
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param file formData file true "音频文件"
// @Success 201 {object} util.Response{data=service.AudioNote} "上传成功"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/v1/checkins/audio [post]
func (c *CheckinController) UploadAudio(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	note, err := c.AudioService.UploadNote(ctx.Request.Context(), claims.UserID, fh)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidFileType):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrFileTooLarge):
			util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, note)
}
