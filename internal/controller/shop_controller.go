package controller

import (
	"errors"
	"net/http"

	"readsy_backend/internal/service"
	"readsy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ShopController struct {
	ShopService *service.ShopService
}

func NewShopController(s *service.ShopService) *ShopController {
	return &ShopController{ShopService: s}
}

// Items godoc
// @Summary 商品列表
// @Tags 商店
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.ShopItem} "成功"
// @Router /api/v1/shop/items [get]
func (c *ShopController) Items(ctx *gin.Context) {
	items, err := c.ShopService.Items()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// Purchase godoc
// @Summary 购买商品
// @Tags 商店
// @Produce  json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} util.Response{data=service.PurchaseResult} "成功"
// @Failure 402 {object} util.Response "金币不足"
// @Failure 403 {object} util.Response "仅限会员"
// @Failure 404 {object} util.Response "商品不存在"
// @Router /api/v1/shop/items/{id}/purchase [post]
func (c *ShopController) Purchase(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	itemID := util.MustParseUint(ctx.Param("id"))
	if itemID == 0 {
		util.BadRequest(ctx, "invalid item id")
		return
	}

	result, err := c.ShopService.Purchase(claims.UserID, itemID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrShopItemNotFound), errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, err.Error())
		case errors.Is(err, util.ErrNotEnoughCoins):
			util.PaymentRequired(ctx, err.Error())
		case errors.Is(err, util.ErrPremiumOnly):
			util.Error(ctx, http.StatusForbidden, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// Inventory godoc
// @Summary 我的物品
// @Tags 商店
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.UserInventory} "成功"
// @Router /api/v1/shop/inventory [get]
func (c *ShopController) Inventory(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	items, err := c.ShopService.Inventory(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}
