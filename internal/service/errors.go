package service

import (
	"errors"
	"fmt"
)

// 错误类别，具体错误都包装其中之一，处理器据此映射响应码
var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStoreOperation      = errors.New("store operation failed")
)

// 具体错误
var (
	ErrAlreadySelf      = fmt.Errorf("%w: cannot befriend yourself", ErrValidation)
	ErrAlreadyRequested = fmt.Errorf("%w: friend request already pending", ErrConflict)
	ErrAlreadyFriends   = fmt.Errorf("%w: already friends", ErrConflict)
	ErrNoSuchRequest    = fmt.Errorf("%w: no pending friend request", ErrNotFound)
	ErrProfileNotFound  = fmt.Errorf("%w: profile not found", ErrNotFound)
	ErrEntryNotFound    = fmt.Errorf("%w: library entry not found", ErrNotFound)
	ErrReviewNotFound   = fmt.Errorf("%w: review not found", ErrNotFound)
	ErrImportInProgress = fmt.Errorf("%w: import already running", ErrConflict)
	ErrBadCredentials   = fmt.Errorf("%w: invalid email or password", ErrNotAuthenticated)
	ErrEmailTaken       = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken    = fmt.Errorf("%w: username already taken", ErrValidation)
)

// invalid 构造参数校验错误
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr 包装存储层错误，保留驱动错误以便 errors.Is 判断
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreOperation, op, err)
}
