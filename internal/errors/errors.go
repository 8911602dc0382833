package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeConfig    ErrCode = "CONFIG_ERROR"
	ErrCodeAuth      ErrCode = "AUTH_ERROR"
	ErrCodeDiscovery ErrCode = "DISCOVERY_ERROR"
	ErrCodeProvision ErrCode = "PROVISION_FAILED"
	ErrCodeClone     ErrCode = "CLONE_FAILED"
	ErrCodePush      ErrCode = "PUSH_FAILED"
	ErrCodeBackup    ErrCode = "BACKUP_FAILED"
	ErrCodeLocked    ErrCode = "ALREADY_LOCKED"
	ErrCodeInternal  ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a pre-run configuration error
func NewConfigError(message string) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: message}
}

// NewAuthError creates a whole-run authentication error
func NewAuthError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeAuth, Message: message, Err: err}
}

// NewDiscoveryError creates a fatal repository-discovery error
func NewDiscoveryError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeDiscovery, Message: message, Err: err}
}

// NewProvisionError creates a per-repository provisioning error
func NewProvisionError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeProvision, Message: message, Err: err}
}

// NewCloneError creates a per-repository clone error
func NewCloneError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeClone, Message: message, Err: err}
}

// NewPushError creates a per-repository mirror-push error
func NewPushError(message string, err error) *AppError {
	return &AppError{Code: ErrCodePush, Message: message, Err: err}
}

// NewBackupError creates a per-repository local-backup error
func NewBackupError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeBackup, Message: message, Err: err}
}

// NewLockedError creates an error for a run lock held by another process
func NewLockedError(message string) *AppError {
	return &AppError{Code: ErrCodeLocked, Message: message}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Err: err}
}

// Code extracts the error code, or ErrCodeInternal for unclassified errors
func Code(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsAuth checks if the error is an authentication error
func IsAuth(err error) bool {
	return Code(err) == ErrCodeAuth
}

// IsLocked checks if the error indicates a run lock held elsewhere
func IsLocked(err error) bool {
	return Code(err) == ErrCodeLocked
}
