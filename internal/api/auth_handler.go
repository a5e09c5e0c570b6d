package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/feudal-economy/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// TokenRequest 签发令牌请求
type TokenRequest struct {
	HostKey  string `json:"host_key" binding:"required"`
	Identity string `json:"identity" binding:"required"`
	Admin    bool   `json:"admin"`
}

// Token 宿主使用主机密钥为身份签发令牌
// @Summary 签发令牌
// @Description 宿主凭主机密钥为玩家或NPC签发JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "签发信息"
// @Success 200 {object} service.TokenInfo
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sub, ok := parseSubject(c, req.Identity)
	if !ok {
		return
	}

	info, err := h.authService.IssueToken(c.Request.Context(), req.HostKey, sub, req.Admin)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, info)
}
