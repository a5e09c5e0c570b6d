package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/npc"
)

// NPCHandler NPC配置处理器
type NPCHandler struct {
	traits *npc.TraitService
}

// NewNPCHandler 创建NPC处理器
func NewNPCHandler(traits *npc.TraitService) *NPCHandler {
	return &NPCHandler{traits: traits}
}

// RoleRequest 设置角色
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// TaxRequest 配置征税官
type TaxRequest struct {
	FamilyID uint  `json:"family_id" binding:"required"`
	Amount   int   `json:"amount" binding:"required"`
	Interval int64 `json:"interval_seconds" binding:"required"`
}

// NPCFamilyRequest 归入家族，省略时使用调用者的家族
type NPCFamilyRequest struct {
	FamilyID uint `json:"family_id"`
}

// NPCSerfRequest 设置NPC农奴
type NPCSerfRequest struct {
	On bool `json:"on"`
}

// NPCJobRequest 设置NPC职业
type NPCJobRequest struct {
	Job string `json:"job" binding:"required"`
}

// Get NPC概况
// @Summary NPC信息
// @Tags NPC
// @Security Bearer
// @Param id path int true "NPC编号"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/npcs/{id} [get]
func (h *NPCHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.traits.Info(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, info)
}

// Role 设置NPC角色，需要管理权限
// @Summary 设置NPC角色
// @Tags NPC
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body RoleRequest true "角色"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/npcs/{id}/role [put]
func (h *NPCHandler) Role(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := models.ParseNPCRole(req.Role)
	if err != nil {
		badRequest(c, err)
		return
	}
	trait, err := h.traits.SetRole(c.Request.Context(), id, role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, trait)
}

// Tax 配置征税官，需要管理权限
// @Summary 配置征税官
// @Tags NPC
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body TaxRequest true "征税参数"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/npcs/{id}/tax [put]
func (h *NPCHandler) Tax(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trait, err := h.traits.SetTax(c.Request.Context(), id, req.FamilyID, req.Amount, time.Duration(req.Interval)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, trait)
}

// Family KING把NPC归入家族
// @Summary NPC归入家族
// @Tags NPC
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body NPCFamilyRequest false "家族"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/npcs/{id}/family [put]
func (h *NPCHandler) Family(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req NPCFamilyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	familyID := req.FamilyID
	if familyID == 0 {
		fid, ok := requireFamily(c, h.traits.Membership())
		if !ok {
			return
		}
		familyID = fid
	}
	if err := h.traits.SetFamily(c.Request.Context(), caller(c), id, familyID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"npc_id": id, "family_id": familyID})
}

// Serf KING设置NPC农奴
// @Summary NPC农奴
// @Tags NPC
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body NPCSerfRequest true "开关"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/npcs/{id}/serf [put]
func (h *NPCHandler) Serf(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req NPCSerfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.traits.SetSerf(c.Request.Context(), caller(c), id, req.On); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"npc_id": id, "serf": req.On})
}

// Job KING设置NPC职业
// @Summary NPC职业
// @Tags NPC
// @Security Bearer
// @Param id path int true "NPC编号"
// @Param request body NPCJobRequest true "职业"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/npcs/{id}/job [put]
func (h *NPCHandler) Job(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req NPCJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	job, err := models.ParseJob(req.Job)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.traits.SetJob(c.Request.Context(), caller(c), id, job); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"npc_id": id, "job": job})
}
