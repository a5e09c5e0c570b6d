package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/feudal-economy/internal/merchant"
)

// MerchantHandler 商人处理器
type MerchantHandler struct {
	merchants *merchant.Service
}

// NewMerchantHandler 创建商人处理器
func NewMerchantHandler(merchants *merchant.Service) *MerchantHandler {
	return &MerchantHandler{merchants: merchants}
}

// BuyRequest 购买
type BuyRequest struct {
	Slot *int `json:"slot" binding:"required"`
}

// SaveShopRequest 保存商店
type SaveShopRequest struct {
	Title string          `json:"title"`
	Size  int             `json:"size"`
	Items []merchant.Item `json:"items"`
}

// Get 商店内容
// @Summary 商店
// @Tags Merchant
// @Security Bearer
// @Param id path int true "NPC编号"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/merchants/{id} [get]
func (h *MerchantHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	respondOK(c, h.merchants.Shop(id))
}

// Buy 购买指定格子的商品
// @Summary 购买
// @Tags Merchant
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body BuyRequest true "格子"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/merchants/{id}/buy [post]
func (h *MerchantHandler) Buy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	receipt, err := h.merchants.Purchase(caller(c), id, *req.Slot)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, receipt)
}

// Save 覆盖商店内容，需要管理权限
// @Summary 保存商店
// @Tags Merchant
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body SaveShopRequest true "商店"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/merchants/{id} [put]
func (h *MerchantHandler) Save(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SaveShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.merchants.Catalog().Save(&merchant.Shop{NPCID: id, Title: req.Title, Size: req.Size, Items: req.Items}); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.merchants.Shop(id))
}
