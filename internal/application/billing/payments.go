package billing

import (
	"context"

	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ApplyPayment records a COMPLETED payment and applies it to the bill in one
// transaction, with the bill row locked. Overpayments are rejected, never
// clipped. A repeated idempotency key returns the payment recorded the first
// time instead of paying again.
func (s *BillingService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "apply_payment",
		telemetry.WithAttribute(telemetry.SpanAttrBillID, req.BillID),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentMethod, req.Method),
	)
	defer span.End()

	resp, err := s.applyPayment(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, resp.Amount,
		telemetry.SpanAttrReplayed, resp.Replayed,
	)
	return resp, nil
}

func (s *BillingService) applyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResponse, error) {
	if req.Amount == nil || !req.Amount.IsPositive() {
		amount := "missing"
		if req.Amount != nil {
			amount = req.Amount.String()
		}
		return nil, shared.ErrInvalidAmount.
			WithDetail("bill_id", req.BillID.String()).
			WithDetail("amount", amount)
	}
	// amounts finer than the currency unit would round away in storage
	if scale := s.composer.CurrencyScale(); billing.ExceedsScale(*req.Amount, scale) {
		return nil, shared.ErrInvalidAmount.
			WithDetail("bill_id", req.BillID.String()).
			WithDetail("amount", req.Amount.String()).
			WithDetail("max_decimal_places", scale)
	}
	method := billing.PaymentMethod(req.Method)
	if !method.IsValid() {
		return nil, shared.ErrInvalidInput.WithDetail("method", req.Method)
	}

	if replay, err := s.findReplay(ctx, s.paymentRepo, s.billRepo, req); err != nil || replay != nil {
		return replay, err
	}

	paidAt := s.now()
	if req.PaymentDate != nil {
		paidAt = *req.PaymentDate
	}

	var (
		resp   *PaymentResponse
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		bill, err := repos.BillRepo().FindByIDForUpdate(ctx, req.BillID)
		if err != nil {
			return err
		}

		// a concurrent request with the same key may have committed while we waited for the lock
		replay, err := s.findReplay(ctx, repos.PaymentRepo(), repos.BillRepo(), req)
		if err != nil {
			return err
		}
		if replay != nil {
			resp = replay
			return nil
		}

		if err := bill.ApplyPayment(*req.Amount, paidAt); err != nil {
			return err
		}
		payment, err := billing.NewCompletedPayment(bill.ID, *req.Amount, method, req.Reference, req.IdempotencyKey, paidAt)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return err
		}
		if err := repos.BillRepo().SaveWithLock(ctx, bill); err != nil {
			return err
		}

		events = append(events, billing.NewPaymentRecordedEvent(payment))
		events = append(events, bill.PullDomainEvents()...)

		r := ToPaymentResponse(payment)
		billResp := ToBillResponse(bill)
		r.Bill = &billResp
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !resp.Replayed {
		s.logger.Info("payment recorded",
			zap.String("payment_id", resp.ID.String()),
			zap.String("bill_id", resp.BillID.String()),
			zap.String("amount", resp.Amount.String()),
			zap.String("bill_status", resp.Bill.Status.String()),
		)
	}
	s.publishEvents(ctx, events)
	return resp, nil
}

// findReplay returns the earlier payment for the request's idempotency key, or nil
func (s *BillingService) findReplay(
	ctx context.Context,
	payments billing.PaymentRepository,
	bills billing.BillRepository,
	req ApplyPaymentRequest,
) (*PaymentResponse, error) {
	if req.IdempotencyKey == "" {
		return nil, nil
	}
	existing, err := payments.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.BillID != req.BillID || !existing.Amount.Equal(*req.Amount) {
		return nil, shared.ErrAlreadyExists.
			WithDetail("idempotency_key", req.IdempotencyKey).
			WithDetail("payment_id", existing.ID.String())
	}

	bill, err := bills.FindByID(ctx, existing.BillID)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(existing)
	billResp := ToBillResponse(bill)
	resp.Bill = &billResp
	resp.Replayed = true
	return &resp, nil
}
