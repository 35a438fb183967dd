package repository

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorCode 存储层错误码
type ErrorCode string

const (
	CodeNotInitialized   ErrorCode = "not-initialized"
	CodePermissionDenied ErrorCode = "permission-denied"
	CodeUnavailable      ErrorCode = "unavailable"
	CodeNotFound         ErrorCode = "not-found"
	CodeInvalidArgument  ErrorCode = "invalid-argument"
	CodeUnknown          ErrorCode = "unknown"
)

// StoreError 归一化后的存储层错误
type StoreError struct {
	Code       ErrorCode
	Op         string
	Collection string
	Err        error
}

// Error 实现error接口
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store %s %s: %s", e.Op, e.Collection, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 返回底层错误
func (e *StoreError) Unwrap() error {
	return e.Err
}

// CodeOf 返回错误链中的存储错误码，非存储错误返回空串
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newStoreError(code ErrorCode, op, collection string, err error) *StoreError {
	return &StoreError{Code: code, Op: op, Collection: collection, Err: err}
}

// MongoDB 错误代码分组
var (
	// 可重试 / 暂时不可用
	unavailableCodes = []int{
		6,     // HostUnreachable
		7,     // HostNotFound
		50,    // MaxTimeMSExpired
		89,    // NetworkTimeout
		91,    // ShutdownInProgress
		189,   // PrimarySteppedDown
		262,   // ExceededTimeLimit
		10107, // NotWritablePrimary
		13436, // NotPrimaryNoSecondaryOk
		11600, // InterruptedAtShutdown
		11602, // InterruptedDueToReplStateChange
		10058, // ConnectionReset
	}

	permissionCodes = []int{
		13,   // Unauthorized
		18,   // AuthenticationFailed
		8000, // AtlasError
	}

	invalidArgumentCodes = []int{
		2,     // BadValue
		9,     // FailedToParse
		14,    // TypeMismatch
		121,   // DocumentValidationFailure
		11000, // DuplicateKey
	}
)

// normalizeError 将 mongo-driver 错误按类型和错误码映射为 StoreError
func normalizeError(op, collection string, err error) error {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return newStoreError(CodeNotFound, op, collection, err)
	case errors.Is(err, mongo.ErrClientDisconnected):
		return newStoreError(CodeUnavailable, op, collection, err)
	case errors.Is(err, mongo.ErrNilDocument), errors.Is(err, primitive.ErrInvalidHex):
		return newStoreError(CodeInvalidArgument, op, collection, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return newStoreError(CodeUnavailable, op, collection, err)
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		switch {
		case hasAnyCode(serverErr, permissionCodes):
			return newStoreError(CodePermissionDenied, op, collection, err)
		case hasAnyCode(serverErr, unavailableCodes), serverErr.HasErrorLabel("RetryableWriteError"):
			return newStoreError(CodeUnavailable, op, collection, err)
		case hasAnyCode(serverErr, invalidArgumentCodes):
			return newStoreError(CodeInvalidArgument, op, collection, err)
		}
	}

	return newStoreError(CodeUnknown, op, collection, err)
}

func hasAnyCode(err mongo.ServerError, codes []int) bool {
	for _, code := range codes {
		if err.HasErrorCode(code) {
			return true
		}
	}
	return false
}
