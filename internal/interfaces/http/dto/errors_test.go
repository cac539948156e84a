package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestBillingErrorStatuses(t *testing.T) {
	tests := []struct {
		domainCode string
		expected   int
	}{
		{"BILL_NOT_FOUND", http.StatusNotFound},
		{"READING_NOT_FOUND", http.StatusNotFound},
		{"CONNECTION_NOT_FOUND", http.StatusNotFound},
		{"ALREADY_BILLED", http.StatusConflict},
		{"DUPLICATE_READING", http.StatusConflict},
		{"OVER_PAYMENT", http.StatusUnprocessableEntity},
		{"NEGATIVE_CONSUMPTION", http.StatusUnprocessableEntity},
		{"NO_ACTIVE_TARIFF", http.StatusUnprocessableEntity},
		{"AMBIGUOUS_TARIFF", http.StatusUnprocessableEntity},
		{"INVALID_TARIFF", http.StatusUnprocessableEntity},
		{"INVALID_STATE", http.StatusUnprocessableEntity},
		{"INVALID_AMOUNT", http.StatusBadRequest},
		{"INVALID_PERIOD", http.StatusBadRequest},
		// unmapped domain codes
		{"INVALID_PAYMENT_METHOD", http.StatusBadRequest},
		{"CONNECTION_INACTIVE", http.StatusUnprocessableEntity},
		{"SOME_RULE", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.domainCode, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorStatus(NormalizeErrorCode(tt.domainCode)))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"INTERNAL_ERROR", ErrCodeInternal},
		{"OVER_PAYMENT", ErrCodeOverPayment},
		{"ALREADY_BILLED", ErrCodeAlreadyBilled},
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeValidation, ErrCodeValidation},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorCodeConstants(t *testing.T) {
	allCodes := []string{
		ErrCodeUnknown,
		ErrCodeInternal,
		ErrCodeValidation,
		ErrCodeNotFound,
		ErrCodeConflict,
		ErrCodeInvalidState,
		ErrCodeBillNotFound,
		ErrCodeAlreadyBilled,
		ErrCodeDuplicateReading,
		ErrCodeOverPayment,
		ErrCodeNegativeConsumption,
		ErrCodeNoActiveTariff,
		ErrCodeAmbiguousTariff,
		ErrCodeInvalidTariff,
		ErrCodeInvalidIdempotencyKey,
		ErrCodeTimeout,
	}

	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			status, ok := ErrorCodeHTTPStatus[code]
			assert.True(t, ok, "Error code %s should be in ErrorCodeHTTPStatus map", code)
			assert.Greater(t, status, 0)
			assert.Contains(t, code, "ERR_")
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Resource not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Resource not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeBillNotFound, "Bill not found", "req-123-456")

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBillNotFound, resp.Error.Code)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "This field is required"},
		{Field: "method", Message: "Must be one of: CASH CARD BANK_TRANSFER ONLINE CHEQUE"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	help := "https://docs.example.com/errors/over-payment"
	resp := NewErrorResponseWithHelp(ErrCodeOverPayment, "Payment exceeds balance", "req-001", help)

	require.NotNil(t, resp.Error)
	assert.Equal(t, help, resp.Error.Help)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeOverPayment, "Payment exceeds balance", "req-test-123")
	resp.Error.Context = map[string]any{"outstanding": "10.00"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeOverPayment, decoded.Error.Code)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
	assert.Equal(t, "10.00", decoded.Error.Context["outstanding"])
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"bill_number": "BILL-202403-0001"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		page          int
		pageSize      int
		expectedPages int
		expectedSize  int
		expectedPage  int
	}{
		{100, 1, 10, 10, 10, 1},
		{101, 2, 10, 11, 10, 2},
		{0, 1, 10, 0, 10, 1},
		{9, 1, 10, 1, 10, 1},
		{11, 1, 10, 2, 10, 1},
		{100, 1, 0, 5, 20, 1},
		{100, 0, -1, 5, 20, 1},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, tt.page, tt.pageSize)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
		assert.Equal(t, tt.expectedPage, resp.Meta.Page)
	}
}
