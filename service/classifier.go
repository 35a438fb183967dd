package service

import (
	"context"
	"errors"

	"github.com/BerniceZTT/leads_end/repository"
)

// Category 面向用户的错误分类
type Category string

const (
	CategoryOffline          Category = "offline"
	CategoryPermissionDenied Category = "permission-denied"
	CategoryUnavailable      Category = "unavailable"
	CategoryTimeout          Category = "timeout"
	CategoryNotFound         Category = "not-found"
	CategoryInvalidArgument  Category = "invalid-argument"
	CategoryUnknown          Category = "unknown"
)

const (
	MsgOffline          = "You appear to be offline. Please check your internet connection and try again."
	MsgPermissionDenied = "We could not save your information. Please try again or contact us directly."
	MsgUnavailable      = "Our service is temporarily unavailable. Please try again or contact us directly."
	MsgTimeout          = "The request timed out. Please check your connection and try again."
	MsgNotFound         = "The requested record could not be found."
	MsgInvalidArgument  = "Some of the submitted information is invalid. Please review it and try again."
	MsgUnknown          = "An unexpected error occurred. Please try again or contact us directly."
)

// ErrNotSubscribed 退订时没有有效订阅
var ErrNotSubscribed = errors.New("email is not subscribed")

// OfflineError 客户端检测到无网络连接
type OfflineError struct {
	Err error
}

func (e *OfflineError) Error() string {
	if e.Err != nil {
		return "offline: " + e.Err.Error()
	}
	return "offline"
}

func (e *OfflineError) Unwrap() error {
	return e.Err
}

// ClassifiedError 分类后的错误
type ClassifiedError struct {
	Category Category
	Message  string
	Raw      string
}

// Classifier 将底层错误映射为用户可读的分类与提示
type Classifier struct {
	probe NetworkProbe
}

// NewClassifier probe 可为 nil，表示总是在线
func NewClassifier(probe NetworkProbe) *Classifier {
	return &Classifier{probe: probe}
}

// Classify 校验错误直接返回，其余先判断离线，再按错误类型与存储错误码匹配
func (c *Classifier) Classify(err error) ClassifiedError {
	raw := ""
	if err != nil {
		raw = err.Error()
	}
	result := func(cat Category, msg string) ClassifiedError {
		return ClassifiedError{Category: cat, Message: msg, Raw: raw}
	}

	// 输入校验失败发生在任何 I/O 之前，与网络状态无关
	var validation *ValidationError
	if errors.As(err, &validation) {
		return result(CategoryInvalidArgument, validation.Message)
	}

	var offline *OfflineError
	if errors.As(err, &offline) || (c != nil && c.probe != nil && !c.probe.IsOnline()) {
		return result(CategoryOffline, MsgOffline)
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) {
		return result(CategoryTimeout, MsgTimeout)
	}
	if errors.Is(err, ErrNotSubscribed) {
		return result(CategoryNotFound, "This email is not subscribed to our newsletter.")
	}

	switch repository.CodeOf(err) {
	case repository.CodePermissionDenied:
		return result(CategoryPermissionDenied, MsgPermissionDenied)
	case repository.CodeUnavailable, repository.CodeNotInitialized:
		return result(CategoryUnavailable, MsgUnavailable)
	case repository.CodeNotFound:
		return result(CategoryNotFound, MsgNotFound)
	case repository.CodeInvalidArgument:
		return result(CategoryInvalidArgument, MsgInvalidArgument)
	}

	if raw != "" {
		return result(CategoryUnknown, raw)
	}
	return result(CategoryUnknown, MsgUnknown)
}
