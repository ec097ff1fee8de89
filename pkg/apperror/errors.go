package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Ingestion (ING) ----

func ErrMissingToken() *AppError {
	return New("ING_001", "Missing invoice_token", http.StatusBadRequest)
}

func ErrMalformedPayload() *AppError {
	return New("ING_002", "Malformed webhook payload", http.StatusBadRequest)
}

// ---- Webhook Dispatch (DSP) ----

func ErrDeliveryNotFound() *AppError {
	return New("DSP_001", "Delivery not found or not pending", http.StatusNotFound)
}

func ErrWebhookNotFound() *AppError {
	return New("DSP_002", "Webhook subscription not found", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidServiceToken() *AppError {
	return New("AUTH_001", "Invalid or expired service token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a 400 validation error.
func Validation(message string) *AppError {
	return New("ING_002", message, http.StatusBadRequest)
}
