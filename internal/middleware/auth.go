package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/service"
)

// 上下文键
const (
	ContextSubject = "subject"
	ContextAdmin   = "admin"
	ContextToken   = "token"
)

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireAdmin 需要宿主管理权限
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		if !IsAdmin(c) {
			abort(c, apperrors.New(apperrors.ErrPermissionDenied, "需要管理权限"))
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选认证的中间件
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token != "" {
			if claims, err := m.authService.ValidateToken(c.Request.Context(), token); err == nil {
				if sub, err := models.ParseSubject(claims.Identity); err == nil {
					c.Set(ContextSubject, sub)
					c.Set(ContextAdmin, claims.Admin)
					c.Set(ContextToken, token)
				}
			}
		}
		c.Next()
	}
}

// authenticate 校验令牌并写入上下文，失败时已中止请求
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	token := ExtractToken(c)
	if token == "" {
		abort(c, apperrors.New(apperrors.ErrAuthentication, "缺少认证令牌"))
		return false
	}

	claims, err := m.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		abort(c, err)
		return false
	}

	sub, err := models.ParseSubject(claims.Identity)
	if err != nil {
		abort(c, apperrors.New(apperrors.ErrTokenInvalid, err.Error()))
		return false
	}

	c.Set(ContextSubject, sub)
	c.Set(ContextAdmin, claims.Admin)
	c.Set(ContextToken, token)
	return true
}

func abort(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
		"code":     appErr.Code,
		"category": apperrors.CategoryOf(appErr),
		"message":  appErr.Message,
		"details":  appErr.Details,
	})
}

// ExtractToken 从请求中提取令牌
func ExtractToken(c *gin.Context) string {
	// 1. Authorization Header (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. X-Access-Token Header
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. Query参数，WebSocket握手使用
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetSubject 从上下文获取调用者身份
func GetSubject(c *gin.Context) (models.Subject, bool) {
	if v, exists := c.Get(ContextSubject); exists {
		if sub, ok := v.(models.Subject); ok {
			return sub, true
		}
	}
	return models.Subject{}, false
}

// IsAdmin 是否拥有宿主管理权限
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextAdmin)
}

// IsAuthenticated 检查是否已认证
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ContextSubject)
	return exists
}
