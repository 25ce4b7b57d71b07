package service

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError 输入校验错误：字段缺失、数量非法、超出剩余量等。
// 校验失败立即返回，不会触发任何持久化调用。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// QuantityMismatchError 序列号提交时数量不一致
type QuantityMismatchError struct {
	Expected int
	Got      int
}

func (e *QuantityMismatchError) Error() string {
	return fmt.Sprintf("serial count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// DuplicateSerialError 序列号重复（大小写不敏感）
type DuplicateSerialError struct {
	Serials []string
}

func (e *DuplicateSerialError) Error() string {
	return "duplicate serial numbers: " + strings.Join(e.Serials, ", ")
}

// LimitExceededError 超出可录入的剩余名额
type LimitExceededError struct {
	Limit   int
	Dropped []string
}

func (e *LimitExceededError) Error() string {
	if len(e.Dropped) > 0 {
		return fmt.Sprintf("limit of %d reached, dropped: %s", e.Limit, strings.Join(e.Dropped, ", "))
	}
	return fmt.Sprintf("limit of %d reached", e.Limit)
}

// IsValidationError 判断是否为本地可修正的校验类错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	var qe *QuantityMismatchError
	var de *DuplicateSerialError
	var le *LimitExceededError
	return errors.As(err, &ve) || errors.As(err, &qe) || errors.As(err, &de) || errors.As(err, &le)
}
