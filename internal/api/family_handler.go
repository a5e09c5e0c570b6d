package api

import (
	"context"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/middleware"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/service"
)

// FamilyHandler 家族与成员处理器
type FamilyHandler struct {
	membership service.MembershipService
	invites    service.InviteService
	tax        service.TaxService
}

// NewFamilyHandler 创建家族处理器
func NewFamilyHandler(membership service.MembershipService, invites service.InviteService, tax service.TaxService) *FamilyHandler {
	return &FamilyHandler{membership: membership, invites: invites, tax: tax}
}

// CreateFamilyRequest 创建家族请求
type CreateFamilyRequest struct {
	Name string `json:"name" binding:"required"`
}

// TargetRequest 指定目标身份
type TargetRequest struct {
	Target string `json:"target" binding:"required"`
}

// SerfRequest 设置农奴
type SerfRequest struct {
	Target string `json:"target" binding:"required"`
	On     bool   `json:"on"`
}

// JobRequest 设置职业
type JobRequest struct {
	Target string `json:"target" binding:"required"`
	Job    string `json:"job" binding:"required"`
}

// FamilyDetail 家族详情
type FamilyDetail struct {
	*service.FamilyInfo
	Members []models.Subject `json:"members"`
}

// MemberProfile 调用者的成员信息
type MemberProfile struct {
	Subject  models.Subject      `json:"subject"`
	FamilyID *uint               `json:"family_id,omitempty"`
	Rank     models.Rank         `json:"rank"`
	Job      models.Job          `json:"job"`
	Status   *service.SerfStatus `json:"status"`
	Invite   *service.Invitation `json:"invite,omitempty"`
}

// Create 创建家族，创建者成为KING
// @Summary 创建家族
// @Tags Family
// @Security Bearer
// @Param request body CreateFamilyRequest true "家族名"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/families [post]
func (h *FamilyHandler) Create(c *gin.Context) {
	var req CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	family, err := h.membership.CreateFamily(c.Request.Context(), req.Name, caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, family)
}

// Get 家族概况与成员列表
// @Summary 家族详情
// @Tags Family
// @Security Bearer
// @Param id path int true "家族ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/families/{id} [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	info, err := h.membership.FamilyInfo(ctx, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	members, err := h.membership.MembersOf(ctx, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, FamilyDetail{FamilyInfo: info, Members: members})
}

// Invite KING邀请目标加入家族
// @Summary 邀请成员
// @Tags Family
// @Security Bearer
// @Param request body TargetRequest true "被邀请者"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/families/invite [post]
func (h *FamilyHandler) Invite(c *gin.Context) {
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	target, ok := parseSubject(c, req.Target)
	if !ok {
		return
	}
	inv, err := h.invites.Invite(c.Request.Context(), caller(c), target)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, inv)
}

// Accept 接受待处理的邀请
// @Summary 接受邀请
// @Tags Family
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/families/accept [post]
func (h *FamilyHandler) Accept(c *gin.Context) {
	inv, err := h.invites.Accept(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, inv)
}

// Promote 晋升成员
// @Summary 晋升
// @Tags Member
// @Security Bearer
// @Param request body TargetRequest true "目标"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/members/promote [post]
func (h *FamilyHandler) Promote(c *gin.Context) {
	h.changeRank(c, h.membership.PromoteMember)
}

// Demote 降级成员
// @Summary 降级
// @Tags Member
// @Security Bearer
// @Param request body TargetRequest true "目标"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/members/demote [post]
func (h *FamilyHandler) Demote(c *gin.Context) {
	h.changeRank(c, h.membership.DemoteMember)
}

type rankFunc func(ctx context.Context, actor models.Subject, privileged bool, target models.Subject) (*service.RankChange, error)

func (h *FamilyHandler) changeRank(c *gin.Context, fn rankFunc) {
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	target, ok := parseSubject(c, req.Target)
	if !ok {
		return
	}
	change, err := fn(c.Request.Context(), caller(c), middleware.IsAdmin(c), target)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, change)
}

// Serf KING设置农奴标记
// @Summary 设置农奴
// @Tags Member
// @Security Bearer
// @Param request body SerfRequest true "目标与开关"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/members/serf [post]
func (h *FamilyHandler) Serf(c *gin.Context) {
	var req SerfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	target, ok := parseSubject(c, req.Target)
	if !ok {
		return
	}
	if err := h.membership.AssignSerf(c.Request.Context(), caller(c), target, req.On); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"target": target, "serf": req.On})
}

// Job KING设置职业
// @Summary 设置职业
// @Tags Member
// @Security Bearer
// @Param request body JobRequest true "目标与职业"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/members/job [post]
func (h *FamilyHandler) Job(c *gin.Context) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	target, ok := parseSubject(c, req.Target)
	if !ok {
		return
	}
	job, err := models.ParseJob(req.Job)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.membership.AssignJob(c.Request.Context(), caller(c), target, job); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"target": target, "job": job})
}

// Me 调用者的成员信息与农奴状态
// @Summary 我的成员信息
// @Tags Member
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /api/v1/members/me [get]
func (h *FamilyHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	sub := caller(c)

	rank, err := h.membership.RankOf(ctx, sub)
	if err != nil {
		respondError(c, err)
		return
	}
	job, err := h.membership.JobOf(ctx, sub)
	if err != nil {
		respondError(c, err)
		return
	}
	status, err := h.tax.SerfStatus(ctx, sub)
	if err != nil {
		respondError(c, err)
		return
	}

	profile := MemberProfile{Subject: sub, Rank: rank, Job: job, Status: status}
	if fid, ok, err := h.membership.FamilyOf(ctx, sub); err != nil {
		respondError(c, err)
		return
	} else if ok {
		profile.FamilyID = &fid
	}
	if inv, ok := h.invites.Pending(sub); ok {
		profile.Invite = inv
	}
	respondOK(c, profile)
}

// requireFamily 调用者所在家族，未加入时写入错误响应
func requireFamily(c *gin.Context, membership service.MembershipService) (uint, bool) {
	fid, ok, err := membership.FamilyOf(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	if !ok {
		respondError(c, apperrors.New(apperrors.ErrNoFamily))
		return 0, false
	}
	return fid, true
}
