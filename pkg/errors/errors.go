// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 排班生成相关
	CodeAIService           Code = "AI_SERVICE_ERROR"
	CodeInsufficientStaff   Code = "INSUFFICIENT_STAFF"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"
	CodeScheduleGeneration  Code = "SCHEDULE_GENERATION_FAILED"
	CodeNoShifts            Code = "NO_SHIFTS_IN_RANGE"

	// 外部依赖相关
	CodeExternalAPI  Code = "EXTERNAL_API_ERROR"
	CodeNotification Code = "NOTIFICATION_ERROR"
	CodeDatabase     Code = "DATABASE_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// Is 检查错误是否为特定错误码
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInsufficientStaff, CodeNoShifts, CodeConstraintViolation:
		return http.StatusUnprocessableEntity
	case CodeAIService, CodeExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrNotFound     = New(CodeNotFound, "资源不存在")
	ErrInvalidInput = New(CodeInvalidInput, "输入参数无效")
	ErrInternal     = New(CodeInternal, "内部错误")
	ErrTimeout      = New(CodeTimeout, "操作超时")
)

// AIService 创建AI服务错误（推荐器超时/出错/输出不合法）
func AIService(reason string) *AppError {
	return New(CodeAIService, fmt.Sprintf("AI推荐服务不可用: %s", reason))
}

// InsufficientStaff 创建人手不足错误
// 携带缺失技能与可用/所需人数，供调用方展示
func InsufficientStaff(skill string, available, required int) *AppError {
	return New(CodeInsufficientStaff, fmt.Sprintf("技能 '%s' 无足够可用员工", skill)).
		WithField("required_skills", []string{skill}).
		WithField("available_count", available).
		WithField("required_count", required)
}

// ConstraintViolation 创建约束违反错误
func ConstraintViolation(details string) *AppError {
	return New(CodeConstraintViolation, "无法满足当前生效的约束").WithDetails(details)
}

// ScheduleGeneration 创建排班生成错误（运行级兜底包装）
func ScheduleGeneration(err error, stage string) *AppError {
	return Wrap(err, CodeScheduleGeneration, fmt.Sprintf("排班生成失败于阶段 '%s'", stage))
}

// NoShifts 创建日期范围内无班次错误
func NoShifts(startDate, endDate string) *AppError {
	return New(CodeNoShifts, fmt.Sprintf("日期范围 %s ~ %s 内没有待排班次", startDate, endDate))
}
