// Package errs 提供统一的业务错误分类，供应用层与接口层映射 HTTP 状态码。
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindValidation Kind = "VALIDATION" // 输入不合法
	KindNotFound   Kind = "NOT_FOUND"  // 目标不存在
	KindConflict   Kind = "CONFLICT"   // 状态冲突，重试同样失败
	KindTransient  Kind = "TRANSIENT"  // 下游暂时不可用，可重试
	KindInternal   Kind = "INTERNAL"   // 内部错误
)

// Error 携带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建指定类别的错误
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf 创建指定类别的格式化错误
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并赋予类别
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 返回错误的类别；非 *Error 一律视为内部错误。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 将错误类别映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
