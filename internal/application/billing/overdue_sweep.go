package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SweepOverdue moves every DUE bill whose due date is before asOf to OVERDUE
// and adds its late penalty. Each bill is locked and updated in its own
// transaction; a bill that was paid or swept concurrently is left unchanged,
// so the penalty is never applied twice. A zero asOf means now.
func (s *BillingService) SweepOverdue(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "sweep_overdue",
		telemetry.WithAttribute("as_of", asOf.Format(time.RFC3339)))
	defer span.End()

	result, err := s.sweepOverdue(ctx, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	telemetry.SetAttributes(span,
		"examined", result.Examined,
		"transitioned", result.Transitioned,
		"failed", len(result.Failures),
	)
	return result, err
}

func (s *BillingService) sweepOverdue(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	result := &SweepResult{AsOf: asOf, Failures: make([]SweepFailure, 0)}
	var cursor *billing.OverdueCandidate

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		// bills that fail stay DUE; the cursor moves past them so the next batch starts after them
		batch, err := s.billRepo.FindOverdueCandidates(ctx, asOf, cursor, s.sweepBatchSize)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			break
		}

		for _, candidate := range batch {
			result.Examined++

			changed, err := s.markOverdue(ctx, candidate.ID, asOf)
			if err != nil {
				code := errorCode(err)
				if code == "" {
					code = FailureCodeInternal
				}
				result.Failures = append(result.Failures, SweepFailure{BillID: candidate.ID, Code: code, Reason: err.Error()})
				s.logger.Warn("overdue sweep failed for bill", zap.String("bill_id", candidate.ID.String()), zap.Error(err))
				continue
			}
			if changed {
				result.Transitioned++
			}
		}

		last := batch[len(batch)-1]
		cursor = &last
		if len(batch) < s.sweepBatchSize {
			break
		}
	}

	s.logger.Info("overdue sweep finished",
		zap.Time("as_of", asOf),
		zap.Int("examined", result.Examined),
		zap.Int("transitioned", result.Transitioned),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func (s *BillingService) markOverdue(ctx context.Context, billID uuid.UUID, asOf time.Time) (bool, error) {
	var (
		changed bool
		events  []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		bill, err := repos.BillRepo().FindByIDForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		changed, err = bill.MarkOverdue(asOf)
		if err != nil || !changed {
			return err
		}
		if err := repos.BillRepo().SaveWithLock(ctx, bill); err != nil {
			return err
		}
		events = bill.PullDomainEvents()
		return nil
	})
	if err != nil {
		return false, err
	}
	s.publishEvents(ctx, events)
	return changed, nil
}
