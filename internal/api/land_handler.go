package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/middleware"
	"github.com/wfunc/feudal-economy/internal/service"
)

// LandHandler 领地处理器
type LandHandler struct {
	membership service.MembershipService
	territory  service.TerritoryService
}

// NewLandHandler 创建领地处理器
func NewLandHandler(membership service.MembershipService, territory service.TerritoryService) *LandHandler {
	return &LandHandler{membership: membership, territory: territory}
}

// ClaimLandRequest 圈定领地
type ClaimLandRequest struct {
	World  string `json:"world" binding:"required"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	Radius int    `json:"radius"`
}

// RadiusRequest 修改半径
type RadiusRequest struct {
	Radius int `json:"radius"`
}

// EnabledRequest 启用或停用
type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// Get 调用者家族的领地
// @Summary 领地信息
// @Tags Land
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/land [get]
func (h *LandHandler) Get(c *gin.Context) {
	fid, ok := requireFamily(c, h.membership)
	if !ok {
		return
	}
	land, ok, err := h.territory.LandOf(c.Request.Context(), fid)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, apperrors.New(apperrors.ErrLandNotConfigured))
		return
	}
	respondOK(c, land)
}

// Claim KING以指定坐标为中心圈定领地
// @Summary 圈定领地
// @Tags Land
// @Security Bearer
// @Param request body ClaimLandRequest true "中心与半径"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/land [put]
func (h *LandHandler) Claim(c *gin.Context) {
	var req ClaimLandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	land, err := h.territory.ClaimLand(c.Request.Context(), caller(c), req.World, req.X, req.Y, req.Z, req.Radius)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, land)
}

// Radius 修改领地半径
// @Summary 修改半径
// @Tags Land
// @Security Bearer
// @Param request body RadiusRequest true "半径"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/land/radius [patch]
func (h *LandHandler) Radius(c *gin.Context) {
	var req RadiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.territory.ResizeLand(c.Request.Context(), caller(c), req.Radius); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"radius": req.Radius})
}

// Enabled 启用或停用领地保护
// @Summary 开关领地
// @Tags Land
// @Security Bearer
// @Param request body EnabledRequest true "开关"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/land/enabled [patch]
func (h *LandHandler) Enabled(c *gin.Context) {
	var req EnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.territory.ToggleLand(c.Request.Context(), caller(c), req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"enabled": req.Enabled})
}

// CanBuild 调用者能否在指定位置建造
// @Summary 建造许可
// @Tags Land
// @Security Bearer
// @Param world query string true "世界"
// @Param x query number true "X"
// @Param z query number true "Z"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/land/can-build [get]
func (h *LandHandler) CanBuild(c *gin.Context) {
	world := c.Query("world")
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	z, errZ := strconv.ParseFloat(c.Query("z"), 64)
	if world == "" || errX != nil || errZ != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, "需要world、x、z"))
		return
	}
	allowed, err := h.territory.CanBuild(c.Request.Context(), caller(c), middleware.IsAdmin(c), world, x, z)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"allowed": allowed})
}
