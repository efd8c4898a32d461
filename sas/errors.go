// Package sas holds the error taxonomy shared by the attestation registry packages.
package sas

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/Code rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindInvalidAccounts            Kind = "InvalidAccounts"
	KindInvalidInstructionData     Kind = "InvalidInstructionData"
	KindInvalidCredential          Kind = "InvalidCredential"
	KindInvalidSchema              Kind = "InvalidSchema"
	KindAlreadyExists              Kind = "AlreadyExists"
	KindUnauthorized               Kind = "Unauthorized"
	KindAddressDerivationExhausted Kind = "AddressDerivationExhausted"
	KindDecode                     Kind = "Decode"
	KindSchemaPaused               Kind = "SchemaPaused"
	KindExpired                    Kind = "Expired"
	KindInsufficientFunds          Kind = "InsufficientFunds"
	KindStorage                    Kind = "Storage"
)

// Error is the registry's structured error type.
//
// Code is a stable identifier (e.g. SAS-ACC-001, SAS-DEC-003) naming the
// violated rule. Message is for humans; do not match on it.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, code, msg string) error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, code, format string, args ...any) error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a structured error carrying cause.
func Wrap(kind Kind, code, msg string, cause error) error {
	if cause == nil {
		return New(kind, code, msg)
	}
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// Code returns the stable code for a structured error, or "" if unknown.
func Code(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
