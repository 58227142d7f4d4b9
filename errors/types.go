package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Invocation errors
	ErrCodeUsage ErrorCode = "USAGE"

	// Lookup errors
	ErrCodeAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionUntracked ErrorCode = "SESSION_UNTRACKED"
	ErrCodeSessionNotReady  ErrorCode = "SESSION_NOT_READY"

	// Configuration errors
	ErrCodeConfigNotFound        ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid         ErrorCode = "CONFIG_INVALID"
	ErrCodeExecutionModeNotFound ErrorCode = "EXECUTION_MODE_NOT_FOUND"
	ErrCodeExecutorNotFound      ErrorCode = "EXECUTOR_NOT_FOUND"

	// Process errors
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"

	// Persistence and stream errors. These are reported as warnings and never
	// abort a command.
	ErrCodeStoreCorrupt ErrorCode = "STORE_CORRUPT"
	ErrCodeStreamParse  ErrorCode = "STREAM_PARSE"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AgentError represents a structured error with context
type AgentError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AgentError) WithDetail(key string, value interface{}) *AgentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *AgentError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new AgentError
func New(code ErrorCode, message string) *AgentError {
	return &AgentError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AgentError
func Wrap(err error, code ErrorCode, message string) *AgentError {
	return &AgentError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific AgentError code
func Is(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error, walking the Unwrap chain.
func GetCode(err error) ErrorCode {
	for err != nil {
		if agentErr, ok := err.(*AgentError); ok {
			return agentErr.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}

// IsFatal reports whether an error of this code should stop the command.
// Store corruption and stream parse problems degrade to warnings.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeStoreCorrupt, ErrCodeStreamParse:
		return false
	}
	return err != nil
}
