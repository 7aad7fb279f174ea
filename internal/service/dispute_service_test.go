package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
)

var (
	disputeReason   = strings.Repeat("Результат не соответствует требованиям заявки. ", 2)
	resolutionNotes = "Доказательства клиента подтвердились полностью"
)

// seedDispute создаёт оплаченную заявку со сданной работой и открытым спором.
func seedDispute(t *testing.T, svc *EngagementService, ds *DisputeService, clientID, professionalID uuid.UUID, price string) (requestID, disputeID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	requestID = seedPaid(t, svc, clientID, professionalID, price)
	_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"result.zip"}, nil)
	require.NoError(t, err)

	_, _, err = svc.OpenDispute(ctx, clientID, requestID, disputeReason, []string{"proof.png"})
	require.NoError(t, err)

	// Идентификатор присваивается при сохранении.
	stored, err := ds.repo.GetAggregate(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, stored.Dispute)
	return requestID, stored.Dispute.ID
}

func newDisputeFixture(t *testing.T) (*EngagementService, *DisputeService, *fakeEngagementRepo) {
	t.Helper()
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	return svc, NewDisputeService(repo, nil, svc), repo
}

func TestSubmitEvidence_MovesDisputeToUnderReview(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	_, disputeID := seedDispute(t, svc, ds, clientID, professionalID, "400.00")

	d, intents, err := ds.SubmitEvidence(ctx, professionalID, disputeID, "работа сдана по ТЗ, вот переписка", []string{"chat.pdf"})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, d.Status)
	assert.Equal(t, []string{"chat.pdf"}, []string(d.ProfessionalFiles))
	require.NotNil(t, d.ProfessionalEvidence)
	require.Len(t, intents, 1)
	assert.Equal(t, clientID, intents[0].UserID)

	// Чужой специалист не может отвечать на спор.
	_, _, err = ds.SubmitEvidence(ctx, uuid.New(), disputeID, "я тут ни при чём", nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestResolveDispute_ClientWins(t *testing.T) {
	svc, ds, repo := newDisputeFixture(t)
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID, disputeID := seedDispute(t, svc, ds, clientID, professionalID, "400.00")

	adminID := uuid.New()
	agg, intents, err := ds.ResolveDispute(ctx, adminID, models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedClient,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("400.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusResolvedClient, agg.Dispute.Status)
	assert.True(t, agg.Dispute.RefundAmount.Equal(decimal.RequireFromString("400.00")))
	require.NotNil(t, agg.Dispute.ResolvedBy)
	assert.Equal(t, adminID, *agg.Dispute.ResolvedBy)
	require.NotNil(t, agg.Dispute.ResolvedAt)

	assert.Equal(t, models.TransactionStatusRefunded, agg.Transaction.Status)
	assert.Nil(t, agg.Transaction.ReleasedAt)
	assert.Equal(t, models.RequestStatusCompleted, agg.Request.Status)
	assert.Len(t, intents, 2)

	stored, err := repo.GetAggregate(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusRefunded, stored.Transaction.Status)
}

func TestResolveDispute_PartialRefund(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	_, disputeID := seedDispute(t, svc, ds, uuid.New(), uuid.New(), "400.00")

	agg, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedPartial,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("150.00"),
	})
	require.NoError(t, err)
	assert.True(t, agg.Dispute.RefundAmount.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, models.TransactionStatusRefunded, agg.Transaction.Status)
}

func TestResolveDispute_ProfessionalWins(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	_, disputeID := seedDispute(t, svc, ds, uuid.New(), uuid.New(), "400.00")

	// Возврат в пользу специалиста принудительно обнуляется, даже если указан.
	agg, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedProfessional,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	assert.True(t, agg.Dispute.RefundAmount.IsZero())
	assert.Equal(t, models.TransactionStatusCompleted, agg.Transaction.Status)
	require.NotNil(t, agg.Transaction.ReleasedAt)
	assert.Equal(t, models.RequestStatusCompleted, agg.Request.Status)
}

func TestResolveDispute_ClosedWithoutRefund(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	_, disputeID := seedDispute(t, svc, ds, uuid.New(), uuid.New(), "400.00")

	agg, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome: models.DisputeStatusClosed,
		Notes:   resolutionNotes,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusClosed, agg.Dispute.Status)
	assert.True(t, agg.Dispute.RefundAmount.IsZero())
	assert.Equal(t, models.TransactionStatusCompleted, agg.Transaction.Status)
}

func TestResolveDispute_Guards(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	_, disputeID := seedDispute(t, svc, ds, uuid.New(), uuid.New(), "400.00")

	// Только администратор.
	_, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleClient, disputeID, ResolveInput{
		Outcome: models.DisputeStatusClosed,
		Notes:   resolutionNotes,
	})
	assert.True(t, apperror.IsForbidden(err))

	// Неизвестный исход.
	_, _, err = ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome: models.DisputeStatusOpen,
		Notes:   resolutionNotes,
	})
	assert.True(t, apperror.IsValidation(err))

	// Короткий комментарий к решению.
	_, _, err = ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome: models.DisputeStatusClosed,
		Notes:   "коротко",
	})
	assert.True(t, apperror.IsValidation(err))

	// Возврат больше суммы транзакции.
	_, _, err = ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedClient,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("500.00"),
	})
	assert.True(t, apperror.IsValidation(err))

	// Отрицательный возврат.
	_, _, err = ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedClient,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("-1.00"),
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestResolveDispute_SecondResolutionRejected(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	_, disputeID := seedDispute(t, svc, ds, uuid.New(), uuid.New(), "400.00")

	_, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedClient,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("400.00"),
	})
	require.NoError(t, err)

	_, _, err = ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome: models.DisputeStatusResolvedProfessional,
		Notes:   resolutionNotes,
	})
	assert.True(t, apperror.IsAlreadyResolved(err))
}

func TestSubmitEvidence_AfterResolutionRejected(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	professionalID := uuid.New()
	_, disputeID := seedDispute(t, svc, ds, uuid.New(), professionalID, "400.00")

	_, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome: models.DisputeStatusClosed,
		Notes:   resolutionNotes,
	})
	require.NoError(t, err)

	_, _, err = ds.SubmitEvidence(ctx, professionalID, disputeID, "поздние доказательства", nil)
	assert.True(t, apperror.IsAlreadyResolved(err))
}

func TestListDisputes_AdminOnlyWithStatusFilter(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	_, disputeID := seedDispute(t, svc, ds, uuid.New(), uuid.New(), "400.00")
	seedDispute(t, svc, ds, uuid.New(), uuid.New(), "700.00")

	_, _, err := ds.ResolveDispute(ctx, uuid.New(), models.RoleAdmin, disputeID, ResolveInput{
		Outcome:      models.DisputeStatusResolvedClient,
		Notes:        resolutionNotes,
		RefundAmount: decimal.RequireFromString("400.00"),
	})
	require.NoError(t, err)

	all, err := ds.ListDisputes(ctx, models.RoleAdmin, "", 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := ds.ListDisputes(ctx, models.RoleAdmin, models.DisputeStatusOpen, 20, 0)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = ds.ListDisputes(ctx, models.RoleClient, "", 20, 0)
	assert.True(t, apperror.IsForbidden(err))

	_, err = ds.ListDisputes(ctx, models.RoleAdmin, models.DisputeStatus("bogus"), 20, 0)
	assert.True(t, apperror.IsValidation(err))
}

func TestGetDispute_AccessControl(t *testing.T) {
	svc, ds, _ := newDisputeFixture(t)
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	_, disputeID := seedDispute(t, svc, ds, clientID, professionalID, "400.00")

	_, err := ds.GetDispute(ctx, clientID, models.RoleClient, disputeID)
	assert.NoError(t, err)
	_, err = ds.GetDispute(ctx, professionalID, models.RoleProfessional, disputeID)
	assert.NoError(t, err)
	_, err = ds.GetDispute(ctx, uuid.New(), models.RoleAdmin, disputeID)
	assert.NoError(t, err)

	_, err = ds.GetDispute(ctx, uuid.New(), models.RoleClient, disputeID)
	assert.True(t, apperror.IsForbidden(err))

	_, err = ds.GetDispute(ctx, clientID, models.RoleClient, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}
