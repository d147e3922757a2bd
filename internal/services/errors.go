package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/exam-delivery-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Test catalogue errors
	ErrTestNotFound     = errors.New("test not found")
	ErrTestNotPublished = errors.New("test is not published")
	ErrModuleNotFound   = errors.New("module not found")
	ErrNoModules        = errors.New("no modules available")

	// Attempt specific errors
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrActiveAttemptNotFound = errors.New("active attempt not found")
	ErrNoCurrentModule       = errors.New("no current module")
	ErrModuleMismatch        = errors.New("module does not match current module")
	ErrModuleAlreadyScored   = errors.New("module already submitted")
	ErrSubmissionInProgress  = errors.New("module submission already in progress")
	ErrAttemptNotReviewable  = errors.New("review is only available for completed or abandoned attempts")
	ErrSelectedModuleMissing = errors.New("selected module not found in this test")

	// User/Permission errors
	ErrUserNotFound = errors.New("user not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// Unwrap lets callers match the sentinel stored under Context["cause"].
func (bre *BusinessRuleError) Unwrap() error {
	if cause, ok := bre.Context["cause"].(error); ok {
		return cause
	}
	return nil
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrModuleNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrActiveAttemptNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	var pe *PermissionError
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre) ||
		errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrTestNotPublished) ||
		errors.Is(err, ErrNoModules) ||
		errors.Is(err, ErrNoCurrentModule) ||
		errors.Is(err, ErrModuleMismatch) ||
		errors.Is(err, ErrAttemptNotReviewable) ||
		errors.Is(err, ErrSelectedModuleMissing)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrModuleAlreadyScored) ||
		errors.Is(err, ErrSubmissionInProgress)
}
