package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatus_Transitions(t *testing.T) {
	allowed := []struct {
		from, to RequestStatus
	}{
		{RequestStatusPending, RequestStatusAwaitingPayment},
		{RequestStatusPending, RequestStatusDeclined},
		{RequestStatusPending, RequestStatusCancelled},
		{RequestStatusAwaitingPayment, RequestStatusInProgress},
		{RequestStatusAwaitingPayment, RequestStatusCancelled},
		{RequestStatusInProgress, RequestStatusUnderReview},
		{RequestStatusInProgress, RequestStatusDisputed},
		{RequestStatusUnderReview, RequestStatusCompleted},
		{RequestStatusUnderReview, RequestStatusRevisionRequested},
		{RequestStatusUnderReview, RequestStatusDisputed},
		{RequestStatusRevisionRequested, RequestStatusUnderReview},
		{RequestStatusRevisionRequested, RequestStatusDisputed},
		{RequestStatusDisputed, RequestStatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s должен быть разрешён", tc.from, tc.to)
	}

	forbidden := []struct {
		from, to RequestStatus
	}{
		{RequestStatusPending, RequestStatusInProgress},   // минуя оплату
		{RequestStatusPending, RequestStatusCompleted},    // минуя весь цикл
		{RequestStatusAwaitingPayment, RequestStatusDeclined},
		{RequestStatusInProgress, RequestStatusCancelled}, // средства уже в escrow
		{RequestStatusUnderReview, RequestStatusInProgress},
		{RequestStatusCompleted, RequestStatusDisputed},   // спор после завершения недопустим
		{RequestStatusCancelled, RequestStatusPending},
		{RequestStatusDeclined, RequestStatusPending},
		{RequestStatusDisputed, RequestStatusUnderReview},
	}
	for _, tc := range forbidden {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s должен быть запрещён", tc.from, tc.to)
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	for _, s := range []RequestStatus{RequestStatusCompleted, RequestStatusCancelled, RequestStatusDeclined} {
		assert.True(t, s.IsTerminal(), "%s терминальный", s)
	}
	for _, s := range []RequestStatus{
		RequestStatusPending, RequestStatusAwaitingPayment, RequestStatusInProgress,
		RequestStatusUnderReview, RequestStatusRevisionRequested, RequestStatusDisputed,
	} {
		assert.False(t, s.IsTerminal(), "%s не терминальный", s)
	}
	assert.False(t, RequestStatus("unknown").IsTerminal())
	assert.False(t, RequestStatus("unknown").IsValid())
}

func TestTransactionStatus_Transitions(t *testing.T) {
	assert.True(t, TransactionStatusPendingPayment.CanTransitionTo(TransactionStatusEscrowed))
	assert.True(t, TransactionStatusPendingPayment.CanTransitionTo(TransactionStatusFailed))
	assert.True(t, TransactionStatusEscrowed.CanTransitionTo(TransactionStatusPendingApproval))
	assert.True(t, TransactionStatusEscrowed.CanTransitionTo(TransactionStatusDisputed))
	assert.True(t, TransactionStatusPendingApproval.CanTransitionTo(TransactionStatusCompleted))
	assert.True(t, TransactionStatusPendingApproval.CanTransitionTo(TransactionStatusDisputed))
	assert.True(t, TransactionStatusDisputed.CanTransitionTo(TransactionStatusCompleted))
	assert.True(t, TransactionStatusDisputed.CanTransitionTo(TransactionStatusRefunded))

	// Деньги не возвращаются в предыдущие состояния.
	assert.False(t, TransactionStatusEscrowed.CanTransitionTo(TransactionStatusPendingPayment))
	assert.False(t, TransactionStatusPendingApproval.CanTransitionTo(TransactionStatusEscrowed))
	assert.False(t, TransactionStatusCompleted.CanTransitionTo(TransactionStatusRefunded))
	assert.False(t, TransactionStatusRefunded.CanTransitionTo(TransactionStatusCompleted))
	assert.False(t, TransactionStatusPendingPayment.CanTransitionTo(TransactionStatusCompleted))
	assert.False(t, TransactionStatusFailed.CanTransitionTo(TransactionStatusEscrowed))
}

func TestTransactionStatus_Disputable(t *testing.T) {
	assert.True(t, TransactionStatusEscrowed.Disputable())
	assert.True(t, TransactionStatusPendingApproval.Disputable())
	assert.False(t, TransactionStatusPendingPayment.Disputable())
	assert.False(t, TransactionStatusCompleted.Disputable())
	assert.False(t, TransactionStatusRefunded.Disputable())
	assert.False(t, TransactionStatusDisputed.Disputable())
}

func TestDisputeStatus_Resolution(t *testing.T) {
	assert.True(t, DisputeStatusOpen.CanTransitionTo(DisputeStatusUnderReview))
	for outcome := range ValidDisputeOutcomes {
		assert.True(t, DisputeStatusOpen.CanTransitionTo(outcome))
		assert.True(t, DisputeStatusUnderReview.CanTransitionTo(outcome))
		assert.True(t, outcome.IsResolved())
	}
	assert.False(t, DisputeStatusOpen.IsResolved())
	assert.False(t, DisputeStatusUnderReview.IsResolved())
	assert.False(t, DisputeStatusResolvedClient.CanTransitionTo(DisputeStatusClosed))
	assert.False(t, DisputeStatusUnderReview.CanTransitionTo(DisputeStatusOpen))

	_, ok := ValidDisputeOutcomes[DisputeStatusOpen]
	assert.False(t, ok)
	_, ok = ValidDisputeOutcomes[DisputeStatusUnderReview]
	assert.False(t, ok)
}

func TestRequest_RevisionsLeft(t *testing.T) {
	r := &Request{MaxRevisions: DefaultMaxRevisions}
	assert.Equal(t, 3, r.RevisionsLeft())
	r.RevisionCount = 2
	assert.Equal(t, 1, r.RevisionsLeft())
	r.RevisionCount = 3
	assert.Equal(t, 0, r.RevisionsLeft())
	r.RevisionCount = 5
	assert.Equal(t, 0, r.RevisionsLeft())
}
