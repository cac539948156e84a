package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GenerateBill prices an unbilled meter reading and issues a DUE bill.
// The reading row is locked for the duration of the transaction, so of two
// concurrent calls for one reading exactly one succeeds and the other gets
// ALREADY_BILLED.
func (s *BillingService) GenerateBill(ctx context.Context, readingID uuid.UUID) (*BillResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "generate_bill",
		telemetry.WithAttribute(telemetry.SpanAttrMeterReadingID, readingID))
	defer span.End()

	bill, err := s.generateBill(ctx, readingID, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillID, bill.ID,
		telemetry.SpanAttrBillNumber, bill.BillNumber,
	)
	resp := ToBillResponse(bill)
	return &resp, nil
}

func (s *BillingService) generateBill(ctx context.Context, readingID uuid.UUID, billDate time.Time) (*billing.Bill, error) {
	var (
		bill   *billing.Bill
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reading, err := repos.ReadingRepo().FindByIDForUpdate(ctx, readingID)
		if err != nil {
			return err
		}
		if reading.Billed {
			return alreadyBilled(reading)
		}

		resolver := billing.NewTariffResolver(repos.ConnectionRepo(), repos.TariffRepo())
		conn, tariff, err := resolver.Resolve(ctx, reading.ConnectionID)
		if err != nil {
			return billing.ErrInvalidTariff.
				WithDetail("meter_reading_id", reading.ID.String()).
				WithDetail("connection_id", reading.ConnectionID.String()).
				WithDetail("cause", errorCode(err)).
				WithCause(err)
		}

		composed, err := s.composer.Compose(reading, conn, tariff, billDate)
		if err != nil {
			return err
		}
		if err := repos.BillRepo().Create(ctx, composed); err != nil {
			return err
		}
		if err := repos.ReadingRepo().SaveWithLock(ctx, reading); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				return alreadyBilled(reading).WithCause(err)
			}
			return err
		}

		bill = composed
		events = composed.PullDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bill generated",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("meter_reading_id", readingID.String()),
		zap.String("total_amount", bill.TotalAmount.String()),
	)
	s.publishEvents(ctx, events)
	return bill, nil
}

func alreadyBilled(reading *billing.MeterReading) *shared.DomainError {
	err := billing.ErrAlreadyBilled.WithDetail("meter_reading_id", reading.ID.String())
	if reading.BillID != nil {
		err = err.WithDetail("bill_id", reading.BillID.String())
	}
	return err
}

// GenerateBulkBills bills every unbilled reading of a cycle. Each reading is
// composed in its own transaction, so one failure never affects the others.
// Connections are processed concurrently and the readings of one connection
// in order. Nothing is retried. When ctx is cancelled, readings not yet
// attempted are reported as CANCELLED; bills already committed stay.
func (s *BillingService) GenerateBulkBills(ctx context.Context, cycle BillingCycle) (*BulkGenerationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "generate_bulk_bills",
		telemetry.WithAttribute(telemetry.SpanAttrPeriod, cycle.Period))
	defer span.End()

	if err := cycle.Period.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	billDate := cycle.BillDate
	if billDate.IsZero() {
		billDate = s.now()
	}

	readings, err := s.readingRepo.FindUnbilled(ctx, cycle.Period, cycle.UtilityTypeID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// outcomes are written by index so the result order follows the reading order
	type outcome struct {
		bill    *billing.Bill
		failure *BulkFailure
	}
	outcomes := make([]outcome, len(readings))
	position := make(map[uuid.UUID]int, len(readings))
	for i := range readings {
		position[readings[i].ID] = i
	}

	groups := lo.GroupBy(readings, func(r billing.MeterReading) uuid.UUID { return r.ConnectionID })
	connectionOrder := lo.Uniq(lo.Map(readings, func(r billing.MeterReading, _ int) uuid.UUID { return r.ConnectionID }))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(s.bulkConcurrency)

	for _, connID := range connectionOrder {
		group := groups[connID]
		g.Go(func() error {
			for _, reading := range group {
				var o outcome
				if ctx.Err() != nil {
					o.failure = &BulkFailure{
						MeterReadingID: reading.ID,
						ConnectionID:   reading.ConnectionID,
						Code:           FailureCodeCancelled,
						Reason:         ctx.Err().Error(),
					}
				} else if bill, err := s.generateBill(ctx, reading.ID, billDate); err != nil {
					o.failure = bulkFailure(reading, err)
				} else {
					o.bill = bill
				}

				mu.Lock()
				outcomes[position[reading.ID]] = o
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkGenerationResult{
		Period:    cycle.Period.String(),
		Attempted: len(readings),
		Bills:     make([]BillResponse, 0, len(readings)),
		Failures:  make([]BulkFailure, 0),
	}
	for _, o := range outcomes {
		switch {
		case o.bill != nil:
			result.Bills = append(result.Bills, ToBillResponse(o.bill))
		case o.failure != nil:
			result.Failures = append(result.Failures, *o.failure)
		}
	}

	telemetry.SetAttributes(span,
		"attempted", result.Attempted,
		"generated", len(result.Bills),
		"failed", len(result.Failures),
	)
	s.logger.Info("bulk bill generation finished",
		zap.String("period", result.Period),
		zap.Int("attempted", result.Attempted),
		zap.Int("generated", len(result.Bills)),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func bulkFailure(reading billing.MeterReading, err error) *BulkFailure {
	f := &BulkFailure{
		MeterReadingID: reading.ID,
		ConnectionID:   reading.ConnectionID,
		Code:           FailureCodeInternal,
		Reason:         err.Error(),
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		f.Code = de.Code
		if cause := de.Unwrap(); cause != nil {
			f.CauseCode = errorCode(cause)
			f.Reason = de.Error() + ": " + cause.Error()
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		f.Code = FailureCodeCancelled
	}
	return f
}
