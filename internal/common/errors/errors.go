// Package errors provides standardized error handling for BPMN workflow integration.
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

// Sync / file exchange errors
const (
	ErrCodeConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeAckParseFailed     ErrorCode = "ACK_PARSE_FAILED"
	ErrCodeResolutionFailed   ErrorCode = "RESOLUTION_FAILED"
	ErrCodeRowBuildFailed     ErrorCode = "ROW_BUILD_FAILED"
	ErrCodeTransportFailed    ErrorCode = "TRANSPORT_FAILED"
	ErrCodeLayoutMismatch     ErrorCode = "LAYOUT_MISMATCH"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseUpdateFailed     ErrorCode = "DATABASE_UPDATE_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeLockNotAcquired ErrorCode = "LOCK_NOT_ACQUIRED"

	ErrCodeAuditIndexFailed ErrorCode = "AUDIT_INDEX_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeUnknownModuleType     ErrorCode = "UNKNOWN_MODULE_TYPE"
	ErrCodeUnknownTradingPartner ErrorCode = "UNKNOWN_TRADING_PARTNER"
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
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewConfigurationError creates a non-retryable configuration error. It is
// raised before any file I/O happens, so the message is the whole story.
func NewConfigurationError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationError,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAckParseFailedError creates a non-retryable whole-file parse error.
// The raw content is kept in the metadata so the operator digest can quote it.
func NewAckParseFailedError(fileName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAckParseFailed,
		Message:   "Acknowledgment file could not be parsed",
		Details:   fmt.Sprintf("file: %s, error: %s", fileName, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResolutionFailedError creates a non-fatal resolution error for one ack row.
func NewResolutionFailedError(label, key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResolutionFailed,
		Message:   fmt.Sprintf("%s %s confirmed, but it was never sent.", label, key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRowBuildFailedError creates a non-fatal render error for one outbound row.
func NewRowBuildFailedError(entityKey string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRowBuildFailed,
		Message:   "Outbound row could not be rendered",
		Details:   fmt.Sprintf("entityKey: %s, error: %s", entityKey, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailedError creates a retryable transport error. No sync state
// is mutated when transport fails, so a retry is always safe.
func NewTransportFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailed,
		Message:   "File transport operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLayoutMismatchError creates a non-retryable layout/value alignment error.
func NewLayoutMismatchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLayoutMismatch,
		Message:   "Record layout and value count do not align",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseUpdateFailedError creates a retryable update/upsert error.
func NewDatabaseUpdateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseUpdateFailed,
		Message:   "Database update operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLockNotAcquiredError signals another run already holds the batch lock.
// Retryable: the BPMN timer cycle simply tries again later.
func NewLockNotAcquiredError(lockKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLockNotAcquired,
		Message:   "Another sync run holds the batch lock",
		Details:   fmt.Sprintf("lockKey: %s", lockKey),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownModuleTypeError creates a non-retryable registry lookup error.
func NewUnknownModuleTypeError(moduleType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownModuleType,
		Message:   "No resolver registered for module type",
		Details:   fmt.Sprintf("moduleType: %s", moduleType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownTradingPartnerError creates a non-retryable partner lookup error.
func NewUnknownTradingPartnerError(syncCode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownTradingPartner,
		Message:   "No trading partner configured for sync code",
		Details:   fmt.Sprintf("syncCode: %s", syncCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (identical
// on both sides so the process models stay readable).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfigurationError:       "CONFIGURATION_ERROR",
	ErrCodeAckParseFailed:           "ACK_PARSE_FAILED",
	ErrCodeResolutionFailed:         "RESOLUTION_FAILED",
	ErrCodeRowBuildFailed:           "ROW_BUILD_FAILED",
	ErrCodeTransportFailed:          "TRANSPORT_FAILED",
	ErrCodeLayoutMismatch:           "LAYOUT_MISMATCH",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeDatabaseUpdateFailed:     "DATABASE_UPDATE_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeLockNotAcquired:          "LOCK_NOT_ACQUIRED",
	ErrCodeAuditIndexFailed:         "AUDIT_INDEX_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeUnknownModuleType:        "UNKNOWN_MODULE_TYPE",
	ErrCodeUnknownTradingPartner:    "UNKNOWN_TRADING_PARTNER",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTransportFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseUpdateFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeLockNotAcquired:
		return 2 // Partial retry for timeouts and lock contention

	default:
		return 0 // Business/configuration errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "PARSE") || strings.Contains(codeStr, "LAYOUT") || strings.Contains(codeStr, "ROW_BUILD"):
		return "FILE_FORMAT"
	case strings.Contains(codeStr, "RESOLUTION") || strings.Contains(codeStr, "MODULE") || strings.Contains(codeStr, "PARTNER"):
		return "RECONCILIATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "TRANSPORT"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "LOCK"):
		return "CONCURRENCY"
	case strings.Contains(codeStr, "AUDIT"):
		return "AUDIT"
	default:
		return "OTHER"
	}
}
