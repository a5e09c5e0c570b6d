package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/logger"
	"github.com/wfunc/feudal-economy/internal/middleware"
	"github.com/wfunc/feudal-economy/internal/models"
	"go.uber.org/zap"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code      apperrors.ErrorCode `json:"code"`
	Category  apperrors.Category  `json:"category"`
	Message   string              `json:"message"`
	Details   string              `json:"details,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应
type PageResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// respondError 按错误码映射HTTP状态，服务端错误记录调用栈
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.GetModuleLogger("api").Error("请求处理失败",
			zap.String("path", c.FullPath()),
			zap.Int("code", int(appErr.Code)),
			zap.String("details", appErr.Details),
			zap.Any("stack", appErr.Stack),
		)
	}
	c.JSON(status, ErrorResponse{
		Code:      appErr.Code,
		Category:  apperrors.CategoryOf(appErr),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Retryable: apperrors.IsRetryable(appErr),
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Message: "ok", Data: data})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apperrors.New(apperrors.ErrInvalidParam, err.Error()))
}

// caller 当前请求的身份，RequireAuth之后必然存在
func caller(c *gin.Context) models.Subject {
	sub, _ := middleware.GetSubject(c)
	return sub
}

// parseSubject 解析请求体中的身份字段
func parseSubject(c *gin.Context, raw string) (models.Subject, bool) {
	sub, err := models.ParseSubject(raw)
	if err != nil {
		badRequest(c, err)
		return models.Subject{}, false
	}
	return sub, true
}

// pathID 解析路径参数中的编号
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		respondError(c, apperrors.Newf(apperrors.ErrInvalidParam, "无效的%s: %s", name, c.Param(name)))
		return 0, false
	}
	return id, true
}
