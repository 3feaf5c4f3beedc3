/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"net/http"
	"strings"
	"unicode"
)

// Error represents an error details.
type Error struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error codes.
var (
	ErrCodeInternal           = "internalError"
	ErrCodeNotFound           = "notFound"
	ErrCodeMethodNotAllowed   = "methodNotAllowed"
	ErrCodeValidationFailed   = "validationFailed"
	ErrCodeUnknownKind        = "unknownRecordKind"
	ErrCodeRequestAborted     = "requestAborted"
	ErrCodeScreenNotMounted   = "screenNotMounted"
	ErrCodeBackendUnavailable = "backendUnavailable"
	ErrCodeTooManyRequests    = "tooManyRequests"
)

// Error messages.
var (
	ErrMessageInternal           = "Internal error."
	ErrMessageNotFound           = "Not found."
	ErrMessageMethodNotAllowed   = "Method not allowed."
	ErrMessageRequestAborted     = "Request was aborted because the screen was left."
	ErrMessageScreenNotMounted   = "Screen is not mounted."
	ErrMessageBackendUnavailable = "Backend is temporarily unavailable."
	ErrMessageTooManyRequests    = "Too many requests."
)

// NewError creates a new Error with specified params.
func NewError(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewInternalError creates a new internal error with specified domain.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, ErrMessageInternal)
}

// AddContext adds value to error context.
func (e *Error) AddContext(field string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[field] = value
	return e
}

// httpCode2ErrorCode converts status text into lower camel case ("Unsupported Media Type" -> "unsupportedMediaType").
func httpCode2ErrorCode(httpCode int) string {
	if httpCode == http.StatusInternalServerError {
		return ErrCodeInternal
	}
	var builder strings.Builder
	capitalizeNext := false
	for _, char := range http.StatusText(httpCode) {
		if unicode.IsSpace(char) {
			capitalizeNext = true
			continue
		}
		if capitalizeNext {
			builder.WriteRune(unicode.ToTitle(char))
			capitalizeNext = false
			continue
		}
		builder.WriteRune(unicode.ToLower(char))
	}
	return builder.String()
}
