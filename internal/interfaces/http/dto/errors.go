package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Billing error codes
const (
	ErrCodeBillNotFound          = "ERR_BILL_NOT_FOUND"
	ErrCodeReadingNotFound       = "ERR_READING_NOT_FOUND"
	ErrCodeConnectionNotFound    = "ERR_CONNECTION_NOT_FOUND"
	ErrCodeTariffNotFound        = "ERR_TARIFF_NOT_FOUND"
	ErrCodePaymentNotFound       = "ERR_PAYMENT_NOT_FOUND"
	ErrCodeAlreadyBilled         = "ERR_ALREADY_BILLED"
	ErrCodeDuplicateReading      = "ERR_DUPLICATE_READING"
	ErrCodeOverPayment           = "ERR_OVER_PAYMENT"
	ErrCodeNegativeConsumption   = "ERR_NEGATIVE_CONSUMPTION"
	ErrCodeNoActiveTariff        = "ERR_NO_ACTIVE_TARIFF"
	ErrCodeAmbiguousTariff       = "ERR_AMBIGUOUS_TARIFF"
	ErrCodeInvalidTariff         = "ERR_INVALID_TARIFF"
	ErrCodeConnectionInactive    = "ERR_CONNECTION_INACTIVE"
	ErrCodeInvalidAmount         = "ERR_INVALID_AMOUNT"
	ErrCodeInvalidPeriod         = "ERR_INVALID_PERIOD"
	ErrCodeInvalidReading        = "ERR_INVALID_READING"
	ErrCodeInvalidIdempotencyKey = "ERR_INVALID_IDEMPOTENCY_KEY"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeTimeout         = "ERR_TIMEOUT"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	// Billing
	ErrCodeBillNotFound:          http.StatusNotFound,
	ErrCodeReadingNotFound:       http.StatusNotFound,
	ErrCodeConnectionNotFound:    http.StatusNotFound,
	ErrCodeTariffNotFound:        http.StatusNotFound,
	ErrCodePaymentNotFound:       http.StatusNotFound,
	ErrCodeAlreadyBilled:         http.StatusConflict,
	ErrCodeDuplicateReading:      http.StatusConflict,
	ErrCodeOverPayment:           http.StatusUnprocessableEntity,
	ErrCodeNegativeConsumption:   http.StatusUnprocessableEntity,
	ErrCodeNoActiveTariff:        http.StatusUnprocessableEntity,
	ErrCodeAmbiguousTariff:       http.StatusUnprocessableEntity,
	ErrCodeInvalidTariff:         http.StatusUnprocessableEntity,
	ErrCodeConnectionInactive:    http.StatusUnprocessableEntity,
	ErrCodeInvalidAmount:         http.StatusBadRequest,
	ErrCodeInvalidPeriod:         http.StatusBadRequest,
	ErrCodeInvalidReading:        http.StatusBadRequest,
	ErrCodeInvalidIdempotencyKey: http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorStatus returns the HTTP status for a normalized domain error code.
// Domain codes without an entry are rule violations: INVALID_* codes map to
// 400 and everything else to 422.
func DomainErrorStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// LegacyErrorCodeMapping maps domain error codes to the standardized API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the ERR_ format.
// Codes already in that format are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	if code == "" || strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
