package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005

	// 封建规则错误 (2000-2999)
	ErrSerfJobRestricted ErrorCode = 2000
	ErrRankAuthority     ErrorCode = 2001
	ErrNotSameFamily     ErrorCode = 2002
	ErrAlreadyInFamily   ErrorCode = 2003
	ErrInviteNotFound    ErrorCode = 2004
	ErrInsufficientFunds ErrorCode = 2005
	ErrRankUnchanged     ErrorCode = 2006
	ErrSerfNeedsFamily   ErrorCode = 2007
	ErrLandNotConfigured ErrorCode = 2008
	ErrNoFamily          ErrorCode = 2009

	// 宿主世界错误 (3000-3999)
	ErrEntityNotFound ErrorCode = 3000
	ErrEntityOffline  ErrorCode = 3001

	// 通信错误 (4000-4999)
	ErrMessageFormat ErrorCode = 4002

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002
	ErrDatabaseUpdate  ErrorCode = 5003

	// 配置错误 (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigParse    ErrorCode = 6001
	ErrConfigValidate ErrorCode = 6002

	// 安全错误 (7000-7999)
	ErrAuthentication ErrorCode = 7000
	ErrTokenExpired   ErrorCode = 7002
	ErrTokenInvalid   ErrorCode = 7003
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",

	ErrSerfJobRestricted: "农奴只能从事 FARMER、MINER、GUARD",
	ErrRankAuthority:     "爵位权限不足",
	ErrNotSameFamily:     "不属于同一家族",
	ErrAlreadyInFamily:   "已经加入家族",
	ErrInviteNotFound:    "邀请不存在或已过期",
	ErrInsufficientFunds: "余额不足",
	ErrRankUnchanged:     "爵位已到达边界",
	ErrSerfNeedsFamily:   "设为农奴前必须先指定家族",
	ErrLandNotConfigured: "家族领地尚未设置",
	ErrNoFamily:          "没有所属家族",

	ErrEntityNotFound: "实体不存在",
	ErrEntityOffline:  "实体不在线",

	ErrMessageFormat: "消息格式错误",

	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",

	ErrConfigLoad:     "配置加载失败",
	ErrConfigParse:    "配置解析失败",
	ErrConfigValidate: "配置验证失败",

	ErrAuthentication: "认证失败",
	ErrTokenExpired:   "令牌已过期",
	ErrTokenInvalid:   "无效的令牌",
}

// Category 错误分类
type Category string

// 错误分类定义
const (
	CategoryValidation  Category = "validation"
	CategoryRestriction Category = "restriction"
	CategoryNotFound    Category = "not_found"
	CategoryStorage     Category = "storage"
	CategoryInternal    Category = "internal"
)

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`            // 错误码
	Message string       `json:"message"`         // 错误消息
	Details string       `json:"details"`         // 详细信息
	Cause   error        `json:"-"`               // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误，已经是AppError时保留原始错误码
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if len(details) > 0 {
			if appErr.Details != "" {
				appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
			} else {
				appErr.Details = strings.Join(details, "; ")
			}
		}
		return appErr
	}

	appErr = New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}

	return ErrUnknown
}

// As 转换为AppError，非AppError时包装为未知错误
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrUnknown)
}

// CategoryOf 返回错误所属分类
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}

	code := GetCode(err)
	switch {
	case code == ErrInvalidParam, code == ErrAlreadyExists, code == ErrMessageFormat,
		code == ErrConfigValidate:
		return CategoryValidation
	case code == ErrNotFound, code == ErrInviteNotFound, code == ErrEntityNotFound,
		code == ErrLandNotConfigured, code == ErrNoFamily:
		return CategoryNotFound
	case code >= 2000 && code <= 2999, code == ErrPermissionDenied, code == ErrEntityOffline:
		return CategoryRestriction
	case code >= 5000 && code <= 5999:
		return CategoryStorage
	default:
		return CategoryInternal
	}
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()

		// 跳过runtime和本包的调用
		if strings.Contains(frame.Function, "runtime.") ||
			strings.Contains(frame.Function, "feudal-economy/internal/errors.") {
			if !more {
				break
			}
			continue
		}

		e.Stack = append(e.Stack, StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})

		if !more || len(e.Stack) >= 10 {
			break
		}
	}
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrInvalidParam, e.Code == ErrMessageFormat:
		return 400
	case e.Code == ErrAlreadyExists:
		return 409
	case e.Code == ErrNotFound, e.Code == ErrInviteNotFound, e.Code == ErrEntityNotFound,
		e.Code == ErrLandNotConfigured, e.Code == ErrNoFamily:
		return 404
	case e.Code == ErrPermissionDenied, e.Code == ErrRankAuthority, e.Code == ErrNotSameFamily:
		return 403
	case e.Code >= 2000 && e.Code <= 2999, e.Code == ErrEntityOffline:
		return 422
	case e.Code == ErrTimeout:
		return 408
	case e.Code == ErrAuthentication, e.Code == ErrTokenExpired, e.Code == ErrTokenInvalid:
		return 401
	case e.Code >= 5000 && e.Code <= 5999:
		return 503
	default:
		return 500
	}
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case ErrTimeout,
		ErrDatabaseConnect,
		ErrDatabaseQuery,
		ErrEntityOffline:
		return true
	default:
		return false
	}
}
