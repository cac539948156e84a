package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/utilitybill/backend/internal/application/billing"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/interfaces/http/dto"
	"github.com/utilitybill/backend/internal/interfaces/http/middleware"
)

// MaxIdempotencyKeyLength matches the payments.idempotency_key column
const MaxIdempotencyKeyLength = 128

// BillingHandler serves meter readings, bills, payments and overdue sweeps
type BillingHandler struct {
	BaseHandler
	billingService *appbilling.BillingService
	now            func() time.Time
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *appbilling.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		now:            time.Now,
	}
}

// RegisterRoutes mounts the billing API under rg (normally /api/v1)
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/billing")

	g.POST("/readings", h.RecordMeterReading)
	g.GET("/readings", h.ListMeterReadings)
	g.GET("/readings/:id", h.GetMeterReading)
	g.PUT("/readings/:id", h.CorrectMeterReading)
	g.POST("/readings/:id/bill", h.GenerateBill)

	g.POST("/cycles/:period/bills", h.GenerateBulkBills)

	g.GET("/bills", h.ListBills)
	g.GET("/bills/:id", h.GetBill)
	g.GET("/bills/:id/payments", h.ListPayments)
	g.POST("/bills/:id/payments", h.ApplyPayment)

	g.POST("/overdue-sweeps", h.SweepOverdue)
	g.GET("/summary", h.GetBillingSummary)
	g.GET("/connections/:id/tariff", h.ResolveTariff)
}

// ListMeterReadingsQuery holds the reading list query string
type ListMeterReadingsQuery struct {
	ConnectionID string `form:"connection_id" binding:"omitempty,uuid"`
	Period       string `form:"period" binding:"omitempty,billing_period"`
	Unbilled     *bool  `form:"unbilled"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by" binding:"omitempty,oneof=reading_date period_year period_month created_at updated_at"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ListBillsQuery holds the bill list query string
type ListBillsQuery struct {
	Status       string `form:"status" binding:"omitempty,oneof=DUE PAID OVERDUE"`
	ConnectionID string `form:"connection_id" binding:"omitempty,uuid"`
	ConsumerID   string `form:"consumer_id" binding:"omitempty,uuid"`
	Period       string `form:"period" binding:"omitempty,billing_period"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by" binding:"omitempty,oneof=bill_number bill_date due_date total_amount status created_at"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// GenerateBulkBillsQuery holds the bulk generation query string
type GenerateBulkBillsQuery struct {
	UtilityTypeID string `form:"utility_type_id" binding:"omitempty,uuid"`
}

// SweepOverdueQuery holds the overdue sweep query string.
// as_of accepts RFC 3339 or a plain YYYY-MM-DD date.
type SweepOverdueQuery struct {
	AsOf string `form:"as_of"`
}

// SummaryQuery holds the summary query string
type SummaryQuery struct {
	Period string `form:"period" binding:"omitempty,billing_period"`
}

// RecordMeterReading captures a new reading
func (h *BillingHandler) RecordMeterReading(c *gin.Context) {
	var req appbilling.RecordMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	reading, err := h.billingService.RecordMeterReading(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, reading)
}

// ListMeterReadings lists readings filtered by connection, period and billed flag
func (h *BillingHandler) ListMeterReadings(c *gin.Context) {
	var q ListMeterReadingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := appbilling.MeterReadingListFilter{
		ConnectionID: optionalUUID(q.ConnectionID),
		Period:       q.Period,
		Unbilled:     q.Unbilled,
		Page:         q.Page,
		PageSize:     q.PageSize,
		OrderBy:      q.OrderBy,
		OrderDir:     q.OrderDir,
	}
	readings, total, err := h.billingService.ListMeterReadings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, readings, total, q.Page, q.PageSize)
}

// GetMeterReading returns one reading
func (h *BillingHandler) GetMeterReading(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	reading, err := h.billingService.GetMeterReading(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reading)
}

// CorrectMeterReading replaces the values of an unbilled reading
func (h *BillingHandler) CorrectMeterReading(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.CorrectMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	reading, err := h.billingService.CorrectMeterReading(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reading)
}

// GenerateBill turns one unbilled reading into a DUE bill
func (h *BillingHandler) GenerateBill(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	bill, err := h.billingService.GenerateBill(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bill)
}

// GenerateBulkBills bills every unbilled reading of the period. Per-reading
// failures are reported in the body; the request itself still succeeds.
func (h *BillingHandler) GenerateBulkBills(c *gin.Context) {
	period, err := billing.ParseBillingPeriod(c.Param("period"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var q GenerateBulkBillsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.billingService.GenerateBulkBills(c.Request.Context(), appbilling.BillingCycle{
		Period:        period,
		UtilityTypeID: optionalUUID(q.UtilityTypeID),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListBills lists bills filtered by status, connection, consumer and period
func (h *BillingHandler) ListBills(c *gin.Context) {
	var q ListBillsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := appbilling.BillListFilter{
		Status:       q.Status,
		ConnectionID: optionalUUID(q.ConnectionID),
		ConsumerID:   optionalUUID(q.ConsumerID),
		Period:       q.Period,
		Page:         q.Page,
		PageSize:     q.PageSize,
		OrderBy:      q.OrderBy,
		OrderDir:     q.OrderDir,
	}
	bills, total, err := h.billingService.ListBills(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, bills, total, q.Page, q.PageSize)
}

// GetBill returns one bill with its outstanding balance
func (h *BillingHandler) GetBill(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	bill, err := h.billingService.GetBill(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// ListPayments returns the payments recorded against a bill
func (h *BillingHandler) ListPayments(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.billingService.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// ApplyPayment records a payment against a bill. A replayed Idempotency-Key
// answers 200 with the original payment; a new payment answers 201.
func (h *BillingHandler) ApplyPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if len(key) > MaxIdempotencyKeyLength {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidIdempotencyKey,
			"Idempotency-Key must be at most 128 characters")
		return
	}

	var req appbilling.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.BillID = id
	req.IdempotencyKey = key

	payment, err := h.billingService.ApplyPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if payment.Replayed {
		h.Success(c, payment)
		return
	}
	h.Created(c, payment)
}

// SweepOverdue moves DUE bills past their due date to OVERDUE
func (h *BillingHandler) SweepOverdue(c *gin.Context) {
	var q SweepOverdueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	asOf := h.now()
	if q.AsOf != "" {
		parsed, ok := parseAsOf(q.AsOf)
		if !ok {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput,
				"as_of must be RFC 3339 or YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	result, err := h.billingService.SweepOverdue(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetBillingSummary returns billed, paid and outstanding totals
func (h *BillingHandler) GetBillingSummary(c *gin.Context) {
	var q SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	var period *billing.BillingPeriod
	if q.Period != "" {
		p, err := billing.ParseBillingPeriod(q.Period)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		period = &p
	}

	summary, err := h.billingService.GetBillingSummary(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// ResolveTariff returns the tariff plan that applies to a connection
func (h *BillingHandler) ResolveTariff(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	resolution, err := h.billingService.ResolveTariff(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resolution)
}

// optionalUUID parses s, which binding has already checked; empty gives nil
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func parseAsOf(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
