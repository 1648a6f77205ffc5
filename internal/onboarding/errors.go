package onboarding

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized 调用方对记录没有操作权限
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRecordNotFound 记录不存在
	ErrRecordNotFound = errors.New("onboarding record not found")
	// ErrInvalidTransition 非法的状态迁移
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrValidation 输入缺失或不合法
	ErrValidation = errors.New("validation error")
	// ErrAlreadyConfirmed 一次性字段已被设置
	ErrAlreadyConfirmed = errors.New("already confirmed")
	// ErrConcurrentModification 乐观并发冲突
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrAlreadyExists 同一候选人和申请已存在记录
	ErrAlreadyExists = errors.New("onboarding record already exists")
)

// TransitionError 非法迁移错误，携带 from/to
type TransitionError struct {
	Section Section
	From    Status
	To      Status
	Role    Role
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s (role %s)", e.Section, e.From, e.To, e.Role)
}

// Unwrap 支持 errors.Is(err, ErrInvalidTransition)
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
