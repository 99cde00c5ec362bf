// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-wsframe.

package api

import (
	"errors"
	"fmt"
	"maps"
)

// Common errors used across the library.
var (
	ErrTransportClosed     = fmt.Errorf("transport is closed")
	ErrHandshakeIncomplete = fmt.Errorf("handshake not complete")
	ErrConnectionClosed    = &Error{Code: ErrCodeClosed, Message: "connection is closed"}
)

// Kind sentinels, matched by code through errors.Is.
var (
	ErrProtocol = &Error{Code: ErrCodeProtocol, Message: "protocol error"}
	ErrData     = &Error{Code: ErrCodeData, Message: "data error"}
	ErrTooLarge = &Error{Code: ErrCodeTooLarge, Message: "payload too large"}

	ErrInvalidArgument = &Error{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeProtocol
	ErrCodeData
	ErrCodeTooLarge
	ErrCodeClosed
	ErrCodeInvalidArgument
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeProtocol:
		return "protocol"
	case ErrCodeData:
		return "data"
	case ErrCodeTooLarge:
		return "too_large"
	case ErrCodeClosed:
		return "closed"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewProtocolError reports a violation of the framing contract.
func NewProtocolError(message string) *Error {
	return NewError(ErrCodeProtocol, message)
}

// NewDataError reports a well-formed header with invalid content.
func NewDataError(message string) *Error {
	return NewError(ErrCodeData, message)
}

// WithContext returns a copy of e with key set in its context. The receiver
// is left as is, so package sentinels can be decorated safely.
func (e *Error) WithContext(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	maps.Copy(ctx, e.Context)
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsProtocolError reports whether err is a framing contract violation.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}

// IsDataError reports whether err is a semantic content error.
func IsDataError(err error) bool {
	return errors.Is(err, ErrData)
}
