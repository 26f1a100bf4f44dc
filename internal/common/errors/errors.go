// Package errors provides standardized error handling for the placeholder
// resolution pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeParseError      ErrorCode = "PARSE_ERROR"
	ErrCodeUnknownType     ErrorCode = "UNKNOWN_PLACEHOLDER_TYPE"
	ErrCodeNestingTooDeep  ErrorCode = "NESTING_TOO_DEEP"
	ErrCodeDuplicateParam  ErrorCode = "DUPLICATE_PARAMETER"

	ErrCodeSemanticInferenceFailed ErrorCode = "SEMANTIC_INFERENCE_FAILED"
	ErrCodeContextUnavailable      ErrorCode = "CONTEXT_UNAVAILABLE"
	ErrCodeWeightConfigInvalid     ErrorCode = "WEIGHT_CONFIG_INVALID"

	ErrCodeSchemaMismatch       ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout         ErrorCode = "QUERY_TIMEOUT"
	ErrCodeEmptyResult          ErrorCode = "EMPTY_RESULT"
	ErrCodeResultShapeMismatch  ErrorCode = "RESULT_SHAPE_MISMATCH"
	ErrCodeRetryBudgetExhausted ErrorCode = "RETRY_BUDGET_EXHAUSTED"

	ErrCodeOrchestrationTimeout ErrorCode = "ORCHESTRATION_TIMEOUT"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"
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

// ==========================
// 2. Error Constructors
// ==========================

// NewParseError creates a non-retryable parse error for a malformed token.
func NewParseError(token, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Malformed placeholder token",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"token": token},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownTypeError creates a non-retryable error for an unrecognized TYPE token.
func NewUnknownTypeError(typeToken string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownType,
		Message:   "Unknown placeholder type",
		Details:   fmt.Sprintf("type: %s", typeToken),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNestingTooDeepError creates a non-retryable error for over-nested composites.
func NewNestingTooDeepError(depth, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNestingTooDeep,
		Message:   "Composite placeholder nested too deep",
		Details:   fmt.Sprintf("depth: %d, max: %d", depth, max),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateParamError creates a non-retryable validation error.
func NewDuplicateParamError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateParam,
		Message:   "Parameter key repeated within one placeholder",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWeightConfigInvalidError creates a fatal configuration error.
func NewWeightConfigInvalidError(sum float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeWeightConfigInvalid,
		Message:   "Aggregation weights must sum to 1.0",
		Details:   fmt.Sprintf("sum: %.4f", sum),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaMismatchError creates a retryable error for an unknown identifier.
func NewSchemaMismatchError(identifier string, err error) *StandardError {
	details := fmt.Sprintf("identifier: %s", identifier)
	if err != nil {
		details = fmt.Sprintf("identifier: %s, error: %s", identifier, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeSchemaMismatch,
		Message:   "Query references an identifier not present in the schema",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"identifier": identifier},
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable execution error.
func NewQueryExecutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Data source query execution error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Data source query timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyResultError creates a non-retryable data error.
func NewEmptyResultError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyResult,
		Message:   "Query returned no data",
		Details:   fmt.Sprintf("query: %s", query),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultShapeMismatchError creates a recoverable shape validation error.
func NewResultShapeMismatchError(intent, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultShapeMismatch,
		Message:   "Result shape does not match the expected form for the intent",
		Details:   fmt.Sprintf("intent: %s, %s", intent, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetryBudgetExhaustedError marks an agent session that ran out of attempts.
func NewRetryBudgetExhaustedError(attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetryBudgetExhausted,
		Message:   "Retry budget exhausted before resolution succeeded",
		Details:   fmt.Sprintf("attempts: %d", attempts),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOrchestrationTimeoutError marks a placeholder or document deadline hit.
func NewOrchestrationTimeoutError(scope string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrchestrationTimeout,
		Message:   "Processing deadline exceeded",
		Details:   fmt.Sprintf("scope: %s", scope),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error. The pipeline
// degrades to recomputation when the cache is down.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSchemaMismatch,
		ErrCodeQueryExecutionFailed,
		ErrCodeResultShapeMismatch:
		return 3 // Bounded by the agent's per-placeholder budget

	case ErrCodeQueryTimeout,
		ErrCodeCacheUnavailable:
		return 2

	default:
		return 0 // Parse, validation and data errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PARSE") || strings.Contains(codeStr, "NESTING") ||
		strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "PLACEHOLDER_TYPE"):
		return "PARSER"
	case strings.Contains(codeStr, "SEMANTIC") || strings.Contains(codeStr, "CONTEXT"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "WEIGHT"):
		return "CONFIG"
	case strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "SCHEMA") ||
		strings.Contains(codeStr, "RESULT") || strings.Contains(codeStr, "RETRY"):
		return "QUERY"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "ORCHESTRATION"):
		return "ORCHESTRATION"
	default:
		return "OTHER"
	}
}
