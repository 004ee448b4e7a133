// internal/common/errors/errors.go

// Package errors provides standardized error handling for the matcher pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNameResolutionFailed ErrorCode = "NAME_RESOLUTION_FAILED"
	ErrCodeProviderRateLimited  ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrCodeProviderUnavailable  ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeScoringFailed        ErrorCode = "SCORING_FAILED"
	ErrCodeNoProviders          ErrorCode = "NO_PROVIDERS_CONFIGURED"
	ErrCodeRepositoryFailed     ErrorCode = "REPOSITORY_OPERATION_FAILED"
	ErrCodeInvalidJobPayload    ErrorCode = "INVALID_JOB_PAYLOAD"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// RateLimitError is raised by a provider when the upstream API throttles us.
// The job processor aborts the row loop when it sees one, so it must stay
// distinguishable from ordinary provider failures.
type RateLimitError struct {
	ProviderID string
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("RateLimitError[%s]: %s", e.ProviderID, e.Message)
}

// NewRateLimitError creates a rate-limit error for the given provider.
func NewRateLimitError(providerID, message string) *RateLimitError {
	if message == "" {
		message = "provider rate limit reached"
	}
	return &RateLimitError{ProviderID: providerID, Message: message}
}

// IsRateLimit reports whether err is (or wraps) a provider rate-limit error.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// NewNameResolutionError creates a non-retryable row error for rows
// that have no usable product name column.
func NewNameResolutionError(availableColumns []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNameResolutionFailed,
		Message:   "No product name could be resolved from the row",
		Details:   fmt.Sprintf("available columns: %v", availableColumns),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderUnavailableError creates a retryable provider error.
func NewProviderUnavailableError(providerID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   "Provider search failed",
		Details:   fmt.Sprintf("providerId: %s, error: %s", providerID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringError wraps an exception raised while scoring/costing a row.
func NewScoringError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Match scoring failed for row",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoProvidersError creates the orchestration-level error for a job
// submitted with no resolvable providers.
func NewNoProvidersError(requested []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoProviders,
		Message:   "No search providers configured for job",
		Details:   fmt.Sprintf("requested: %v", requested),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRepositoryError creates a retryable persistence error.
func NewRepositoryError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRepositoryFailed,
		Message:   "Repository operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidJobPayloadError creates a non-retryable submission error.
func NewInvalidJobPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJobPayload,
		Message:   "Job submission payload is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
