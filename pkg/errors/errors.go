// Package errors provides standardized error types for the approval pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Error codes used across the pipeline and its surfaces.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeEmptyQuery            = "EMPTY_QUERY"
	CodeNotASelect            = "NOT_A_SELECT"
	CodeForbiddenKeyword      = "FORBIDDEN_KEYWORD"
	CodeMultipleStatements    = "MULTIPLE_STATEMENTS"
	CodeQueryFailed           = "QUERY_FAILED"
	CodeNoDataToExport        = "NO_DATA_TO_EXPORT"
	CodeNoDataToChart         = "NO_DATA_TO_CHART"
	CodeColumnNotFound        = "COLUMN_NOT_FOUND"
	CodeUnsupportedFormat     = "UNSUPPORTED_FORMAT"
	CodeRenderFailed          = "RENDER_FAILED"
	CodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"
	CodeSchemaUnavailable     = "SCHEMA_UNAVAILABLE"
	CodeArtifactFailed        = "ARTIFACT_FAILED"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeNoPendingAction       = "NO_PENDING_ACTION"
	CodeConnectionFailed      = "CONNECTION_FAILED"
	CodeUnavailable           = "UNAVAILABLE"
	CodeDeadlineExceeded      = "DEADLINE_EXCEEDED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
)

// PipelineError represents a pipeline error with code, message, and optional details.
type PipelineError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails adds details to the error.
func (e *PipelineError) WithDetails(details map[string]interface{}) *PipelineError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors. Rejection messages are reported to the user verbatim.
var (
	ErrEmptyQuery         = &PipelineError{Code: CodeEmptyQuery, Message: "Empty SQL query"}
	ErrNotASelect         = &PipelineError{Code: CodeNotASelect, Message: "Only SELECT queries are allowed"}
	ErrForbiddenKeyword   = &PipelineError{Code: CodeForbiddenKeyword, Message: "Forbidden SQL keyword detected"}
	ErrMultipleStatements = &PipelineError{Code: CodeMultipleStatements, Message: "Multiple SQL statements are not allowed"}
	ErrNoDataToExport     = &PipelineError{Code: CodeNoDataToExport, Message: "No data to export"}
	ErrNoDataToChart      = &PipelineError{Code: CodeNoDataToChart, Message: "No data to chart"}
	ErrColumnNotFound     = &PipelineError{Code: CodeColumnNotFound, Message: "column not found in result set"}
	ErrUnsupportedFormat  = &PipelineError{Code: CodeUnsupportedFormat, Message: "unsupported export format"}
	ErrSessionNotFound    = &PipelineError{Code: CodeSessionNotFound, Message: "session not found"}
	ErrNoPendingAction    = &PipelineError{Code: CodeNoPendingAction, Message: "no pending action awaiting approval"}
	ErrConnectionFailed   = &PipelineError{Code: CodeConnectionFailed, Message: "database connection failed"}
	ErrQueryTimeout       = &PipelineError{Code: CodeDeadlineExceeded, Message: "query execution timeout"}
	ErrUnauthorized       = &PipelineError{Code: CodeUnauthorized, Message: "authentication required"}
)

// New creates a new PipelineError with the given code and message.
func New(code, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new PipelineError with a formatted message.
func Newf(code, format string, args ...interface{}) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a PipelineError.
func Wrap(err error, code, message string) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsValidationRejection checks if an error is one of the validator rejection codes.
func IsValidationRejection(err error) bool {
	switch GetCode(err) {
	case CodeEmptyQuery, CodeNotASelect, CodeForbiddenKeyword, CodeMultipleStatements:
		return true
	}
	return false
}

// IsDispatchError checks if an error belongs to the dispatch taxonomy.
func IsDispatchError(err error) bool {
	switch GetCode(err) {
	case CodeNoDataToExport, CodeNoDataToChart, CodeColumnNotFound, CodeUnsupportedFormat, CodeRenderFailed:
		return true
	}
	return false
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	code := GetCode(err)
	return code == CodeSessionNotFound || code == CodeColumnNotFound
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr.Message
	}
	return err.Error()
}

// CauseMessage walks the pipeline error chain and returns the message of
// the deepest external cause. User-facing surfaces use it to show driver
// errors without the wrapping added at each layer.
func CauseMessage(err error) string {
	if err == nil {
		return ""
	}
	cur := err
	for {
		pipeErr, ok := cur.(*PipelineError)
		if !ok {
			return cur.Error()
		}
		if pipeErr.Cause == nil {
			return pipeErr.Message
		}
		cur = pipeErr.Cause
	}
}
