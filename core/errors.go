package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），基于 errors.As，可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 目录错误：NOT_FOUND（空间/风格名称无法解析、候选集为空、商品不存在）
//   - 标签错误：INVALID_CATALOG_STATE（目标标签集为空，配置错误，不重试）
//   - 校验错误：VALIDATION（类别不在固定标签集内，Allowed 给出允许值）
//   - 服务错误：UNAVAILABLE（嵌入模型推理超时/失败，由上层重试）
type DomainError struct {
	Code    string   // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string   // 错误消息
	Module  string   // 模块名称（如 "store", "embedding", "recommend"）
	Allowed []string // VALIDATION 错误时的允许值集合
	Err     error    // 原始错误（可选）
}

// Error 只返回 Message；底层原因（驱动、SQL、网络细节）不出现在调用方可见的文本中，
// 通过 Unwrap 或 Detail 获取。
func (e *DomainError) Error() string {
	return e.Message
}

// Detail 返回带底层原因的完整描述，供日志使用。
func (e *DomainError) Detail() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound            = "NOT_FOUND"             // 资源不存在
	ErrorCodeInvalidCatalogState = "INVALID_CATALOG_STATE" // 标签目录状态非法（空目标集）
	ErrorCodeValidation          = "VALIDATION"            // 字段校验失败
	ErrorCodeUnavailable         = "UNAVAILABLE"           // 服务不可用
	ErrorCodeNotSupported        = "NOT_SUPPORTED"         // 操作不支持
)

// 模块名称常量
const (
	ModuleStore      = "store"
	ModuleEmbedding  = "embedding"
	ModuleLabel      = "label"
	ModuleCategorize = "categorize"
	ModuleRecommend  = "recommend"
	ModuleCatalog    = "catalog"
	ModuleConfig     = "config"
)

// NotFound 创建 NOT_FOUND 错误。
func NotFound(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeNotFound, fmt.Sprintf(format, args...))
}

// InvalidCatalogState 创建 INVALID_CATALOG_STATE 错误。
func InvalidCatalogState(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidCatalogState, fmt.Sprintf(format, args...))
}

// Validation 创建 VALIDATION 错误，allowed 会附在消息末尾。
func Validation(module, message string, allowed []string) *DomainError {
	e := NewDomainError(module, ErrorCodeValidation, message)
	if len(allowed) > 0 {
		e.Allowed = append([]string(nil), allowed...)
		e.Message = fmt.Sprintf("%s (allowed: %s)", message, strings.Join(allowed, ", "))
	}
	return e
}

// Unavailable 创建 UNAVAILABLE 错误并包装原始错误。
func Unavailable(module, message string, err error) *DomainError {
	e := NewDomainError(module, ErrorCodeUnavailable, message)
	e.Err = err
	return e
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsInvalidCatalogState 检查错误是否为 INVALID_CATALOG_STATE
func IsInvalidCatalogState(err error) bool { return hasCode(err, ErrorCodeInvalidCatalogState) }

// IsValidation 检查错误是否为 VALIDATION
func IsValidation(err error) bool { return hasCode(err, ErrorCodeValidation) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// Propagate 处理来自存储/外部协作方的错误：
//   - 已是 NOT_FOUND / UNAVAILABLE 领域错误、或上下文超时/取消：原样返回
//   - 其它领域错误（VALIDATION 等）：原样返回
//   - 未知错误：包装为 UNAVAILABLE，避免泄漏存储层细节
func Propagate(module string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return Unavailable(module, module+": backend failure", err)
}
