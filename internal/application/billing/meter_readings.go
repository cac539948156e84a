package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/utilitybill/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// RecordMeterReading stores a new unbilled reading for a connection and period
func (s *BillingService) RecordMeterReading(ctx context.Context, req RecordMeterReadingRequest) (*MeterReadingResponse, error) {
	period, err := billing.ParseBillingPeriod(req.Period)
	if err != nil {
		return nil, err
	}
	if req.CurrentReading == nil {
		return nil, billing.ErrInvalidReading.WithDetail("current_reading", "missing")
	}

	conn, err := s.connectionRepo.FindByID(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}
	if !conn.Active {
		return nil, billing.ErrConnectionInactive.WithDetail("connection_id", conn.ID.String())
	}

	previous := decimal.Zero
	if req.PreviousReading != nil {
		previous = *req.PreviousReading
	} else {
		latest, err := s.readingRepo.FindLatestForConnection(ctx, conn.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			previous = latest.CurrentReading
		}
	}

	readingDate := s.now()
	if req.ReadingDate != nil {
		readingDate = *req.ReadingDate
	}

	reading, err := billing.NewMeterReading(conn.ID, period, previous, *req.CurrentReading, readingDate)
	if err != nil {
		return nil, err
	}

	exists, err := s.readingRepo.ExistsUnbilled(ctx, conn.ID, period, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, billing.ErrDuplicateReading.
			WithDetail("connection_id", conn.ID.String()).
			WithDetail("period", period.String())
	}
	// the partial unique index still rejects a concurrent duplicate
	if err := s.readingRepo.Create(ctx, reading); err != nil {
		return nil, err
	}

	s.logger.Info("meter reading recorded",
		zap.String("meter_reading_id", reading.ID.String()),
		zap.String("connection_id", conn.ID.String()),
		zap.String("period", period.String()),
	)

	resp := ToMeterReadingResponse(reading)
	return &resp, nil
}

// CorrectMeterReading replaces the values of an unbilled reading
func (s *BillingService) CorrectMeterReading(ctx context.Context, readingID uuid.UUID, req CorrectMeterReadingRequest) (*MeterReadingResponse, error) {
	if req.CurrentReading == nil {
		return nil, billing.ErrInvalidReading.WithDetail("current_reading", "missing")
	}

	var corrected *billing.MeterReading
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reading, err := repos.ReadingRepo().FindByIDForUpdate(ctx, readingID)
		if err != nil {
			return err
		}

		previous := reading.PreviousReading
		if req.PreviousReading != nil {
			previous = *req.PreviousReading
		}
		readingDate := reading.ReadingDate
		if req.ReadingDate != nil {
			readingDate = *req.ReadingDate
		}

		if err := reading.Correct(previous, *req.CurrentReading, readingDate); err != nil {
			return err
		}
		reading.Touch(s.now())
		if err := repos.ReadingRepo().SaveWithLock(ctx, reading); err != nil {
			return err
		}
		corrected = reading
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToMeterReadingResponse(corrected)
	return &resp, nil
}

// GetMeterReading retrieves a meter reading by ID
func (s *BillingService) GetMeterReading(ctx context.Context, readingID uuid.UUID) (*MeterReadingResponse, error) {
	reading, err := s.readingRepo.FindByID(ctx, readingID)
	if err != nil {
		return nil, err
	}
	resp := ToMeterReadingResponse(reading)
	return &resp, nil
}

// ListMeterReadings lists meter readings with filtering and pagination
func (s *BillingService) ListMeterReadings(ctx context.Context, filter MeterReadingListFilter) ([]MeterReadingResponse, int64, error) {
	domainFilter := billing.MeterReadingFilter{
		Filter:       toSharedFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir),
		ConnectionID: filter.ConnectionID,
	}
	if filter.Period != "" {
		period, err := billing.ParseBillingPeriod(filter.Period)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Period = &period
	}
	if filter.Unbilled != nil {
		billed := !*filter.Unbilled
		domainFilter.Billed = &billed
	}

	readings, total, err := s.readingRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]MeterReadingResponse, len(readings))
	for i := range readings {
		items[i] = ToMeterReadingResponse(&readings[i])
	}
	return items, total, nil
}
