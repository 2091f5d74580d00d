// Package errors provides the structured error type used across the council API.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeUnknownMember  ErrorCode = "UNKNOWN_MEMBER"

	ErrCodeMemberUnreachable     ErrorCode = "MEMBER_UNREACHABLE"
	ErrCodeMemberProtocolError   ErrorCode = "MEMBER_PROTOCOL_ERROR"
	ErrCodeMemberEmptyCompletion ErrorCode = "MEMBER_EMPTY_COMPLETION"
	ErrCodeAllMembersFailed      ErrorCode = "ALL_MEMBERS_FAILED"

	ErrCodeSearchFailed    ErrorCode = "SEARCH_FAILED"
	ErrCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidRequestError reports a request body that failed validation.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request body",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownMemberError reports a member id that is not in the registry.
func NewUnknownMemberError(memberID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownMember,
		Message:   "Invalid council member",
		Details:   fmt.Sprintf("memberId: %s", memberID),
		Retryable: false,
		Metadata:  map[string]interface{}{"memberId": memberID},
		Timestamp: time.Now().UTC(),
	}
}

// NewMemberFailedError wraps a single member's upstream failure.
func NewMemberFailedError(code ErrorCode, memberID, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("Failed to get response from %s", memberID),
		Details:   details,
		Retryable: code == ErrCodeMemberUnreachable,
		Metadata:  map[string]interface{}{"memberId": memberID},
		Timestamp: time.Now().UTC(),
	}
}

// NewAllMembersFailedError reports that no council member produced an answer.
func NewAllMembersFailedError(memberCount int) *StandardError {
	return &StandardError{
		Code:      ErrCodeAllMembersFailed,
		Message:   "No council member responded",
		Details:   fmt.Sprintf("all %d council member(s) failed", memberCount),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchFailedError is logged only; search failures are never returned to callers.
func NewSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   "Web search failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSynthesisFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Consensus synthesis failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeUnknownMember:
		return http.StatusBadRequest
	case ErrCodeAllMembersFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNKNOWN"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "MEMBER") || strings.HasPrefix(codeStr, "ALL_MEMBERS"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "SYNTHESIS"):
		return "SYNTHESIS"
	default:
		return "OTHER"
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return NewInternalError(err)
}
