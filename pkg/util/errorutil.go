package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to callers.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInvalidState      = "INVALID_STATE"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeAlreadyUsed       = "ALREADY_USED"
	CodeExpired           = "EXPIRED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. Matching is by Code, so any DomainError
// carrying the same code matches regardless of message or details.
var (
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrUnauthorized      = &DomainError{Code: CodeUnauthorized}
	ErrForbidden         = &DomainError{Code: CodeForbidden}
	ErrConflict          = &DomainError{Code: CodeConflict}
	ErrInvalidState      = &DomainError{Code: CodeInvalidState}
	ErrInsufficientFunds = &DomainError{Code: CodeInsufficientFunds}
	ErrInvalidAmount     = &DomainError{Code: CodeInvalidAmount}
	ErrAlreadyUsed       = &DomainError{Code: CodeAlreadyUsed}
	ErrExpired           = &DomainError{Code: CodeExpired}
	ErrValidation        = &DomainError{Code: CodeValidation}
	ErrInternal          = &DomainError{Code: CodeInternal}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInvalidState(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidState, message, http.StatusConflict, details)
}

// NewInsufficientFunds reports a ledger underflow.
func NewInsufficientFunds(balance, required int64) error {
	return NewDomainError(CodeInsufficientFunds, "insufficient credits", http.StatusPaymentRequired, map[string]any{
		"balance":  balance,
		"required": required,
	})
}

func NewInvalidAmount(amount int64) error {
	return NewDomainError(CodeInvalidAmount, "amount must be positive", http.StatusBadRequest, map[string]any{
		"amount": amount,
	})
}

// NewAmountTooLarge reports a credit the balance cannot hold.
func NewAmountTooLarge(amount int64) error {
	return NewDomainError(CodeInvalidAmount, "amount exceeds the maximum balance", http.StatusBadRequest, map[string]any{
		"amount": amount,
	})
}

func NewAlreadyUsed(resource string) error {
	return NewDomainError(CodeAlreadyUsed, fmt.Sprintf("%s already used", resource), http.StatusConflict, nil)
}

func NewExpired(resource string) error {
	return NewDomainError(CodeExpired, fmt.Sprintf("%s expired", resource), http.StatusGone, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.HTTPStatus == 0 {
			return &DomainError{
				Code:       domainErr.Code,
				Message:    domainErr.Error(),
				HTTPStatus: http.StatusInternalServerError,
				Err:        domainErr.Err,
			}
		}
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
