package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appbilling "github.com/utilitybill/backend/internal/application/billing"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/tests/testutil"
	"go.uber.org/zap"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyBillStatus(ctx context.Context, n appbilling.BillStatusNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestBillStatusNotifier_EventTypes(t *testing.T) {
	h := appbilling.NewBillStatusNotifier(zap.NewNop())

	assert.ElementsMatch(t, []string{
		billing.EventTypeBillGenerated,
		billing.EventTypeBillPaid,
		billing.EventTypeBillOverdue,
	}, h.EventTypes())
}

func TestBillStatusNotifier_NotifiesLifecycle(t *testing.T) {
	env := newServiceEnv(t)
	bill := env.seedBilledScenario(t)
	_, err := env.svc.SweepOverdue(t.Context(), bill.DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	_, err = env.pay(t, bill.ID, "355", "")
	require.NoError(t, err)

	n := &mockNotifier{}
	var received []appbilling.BillStatusNotification
	n.On("NotifyBillStatus", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			received = append(received, args.Get(1).(appbilling.BillStatusNotification))
		}).
		Return(nil)
	h := appbilling.NewBillStatusNotifier(zap.NewNop()).WithNotifier(n)

	for _, e := range env.publisher.Events() {
		if e.EventType() == billing.EventTypePaymentRecorded {
			continue
		}
		require.NoError(t, h.Handle(t.Context(), e))
	}

	require.Len(t, received, 3)
	assert.Equal(t, "DUE", received[0].Status)
	assert.Equal(t, "330", received[0].Outstanding)
	assert.Equal(t, bill.DueDate, received[0].DueDate)
	assert.Equal(t, "OVERDUE", received[1].Status)
	assert.Equal(t, "355", received[1].TotalAmount)
	assert.Equal(t, "PAID", received[2].Status)
	assert.Equal(t, "0", received[2].Outstanding)
	for _, r := range received {
		assert.Equal(t, bill.ID.String(), r.BillID)
		assert.Equal(t, bill.ConsumerID.String(), r.ConsumerID)
	}
	n.AssertNumberOfCalls(t, "NotifyBillStatus", 3)
}

func TestBillStatusNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	env := newServiceEnv(t)
	env.seedBilledScenario(t)
	events := env.publisher.Events()
	require.Len(t, events, 1)

	n := &mockNotifier{}
	n.On("NotifyBillStatus", mock.Anything, mock.Anything).Return(assert.AnError)
	h := appbilling.NewBillStatusNotifier(zap.NewNop()).WithNotifier(n)

	assert.NoError(t, h.Handle(t.Context(), events[0]))
	n.AssertExpectations(t)
}

func TestBillStatusNotifier_RejectsOtherEvents(t *testing.T) {
	h := appbilling.NewBillStatusNotifier(zap.NewNop()).WithNotifier(appbilling.NewLoggingNotifier(zap.NewNop()))

	err := h.Handle(t.Context(), testutil.NewTestEvent("SomethingElse"))

	assert.Error(t, err)
}

func TestLoggingNotifier(t *testing.T) {
	n := appbilling.NewLoggingNotifier(zap.NewNop())

	assert.NoError(t, n.NotifyBillStatus(t.Context(), appbilling.BillStatusNotification{BillID: "b-1", Status: "DUE"}))
}
