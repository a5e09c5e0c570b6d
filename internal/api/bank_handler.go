package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
)

// BankHandler 金库与农奴交付处理器
type BankHandler struct {
	membership service.MembershipService
	tax        service.TaxService
	clock      utils.Clock
}

// NewBankHandler 创建金库处理器
func NewBankHandler(membership service.MembershipService, tax service.TaxService, clock utils.Clock) *BankHandler {
	return &BankHandler{membership: membership, tax: tax, clock: clock}
}

// WithdrawRequest 取款
type WithdrawRequest struct {
	Amount int `json:"amount" binding:"required"`
}

// DeliverRequest 农奴交付积分
type DeliverRequest struct {
	Points int `json:"points" binding:"required"`
}

// Balance 家族金库余额
// @Summary 金库余额
// @Tags Bank
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /api/v1/bank [get]
func (h *BankHandler) Balance(c *gin.Context) {
	fid, ok := requireFamily(c, h.membership)
	if !ok {
		return
	}
	balance, err := h.tax.Balance(c.Request.Context(), fid)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"family_id": fid, "balance": balance})
}

// Withdraw KING取出货币到背包
// @Summary 取款
// @Tags Bank
// @Security Bearer
// @Param request body WithdrawRequest true "数量"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/bank/withdraw [post]
func (h *BankHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	balance, err := h.tax.WithdrawToHost(c.Request.Context(), caller(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"withdrawn": req.Amount, "balance": balance})
}

// Ledger 金库流水，按时间倒序分页
// @Summary 金库流水
// @Tags Bank
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} PageResponse
// @Router /api/v1/bank/ledger [get]
func (h *BankHandler) Ledger(c *gin.Context) {
	fid, ok := requireFamily(c, h.membership)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page = max(page, 1)
	pageSize = min(max(pageSize, 1), 100)

	items, total, err := h.tax.Ledger(c.Request.Context(), fid, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, PageResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Deliver 农奴交付积分换取减税
// @Summary 交付积分
// @Tags Serf
// @Security Bearer
// @Param request body DeliverRequest true "积分"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/serfs/deliver [post]
func (h *BankHandler) Deliver(c *gin.Context) {
	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	sub := caller(c)
	rewards, err := h.tax.AddDeliverPoints(ctx, sub, req.Points, h.clock.NowMs())
	if err != nil {
		respondError(c, err)
		return
	}
	status, err := h.tax.SerfStatus(ctx, sub)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"rewards": rewards, "status": status})
}
