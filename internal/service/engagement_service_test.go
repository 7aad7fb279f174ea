package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/prolink-backend/internal/gateway"
	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/repository"
)

// fakeEngagementRepo хранит агрегаты в памяти и повторяет контракт Atomic:
// изменения применяются только если fn завершилась без ошибки.
type fakeEngagementRepo struct {
	mu   sync.Mutex
	aggs map[uuid.UUID]*models.Aggregate
}

func newFakeEngagementRepo() *fakeEngagementRepo {
	return &fakeEngagementRepo{aggs: make(map[uuid.UUID]*models.Aggregate)}
}

func cloneRequest(src *models.Request) *models.Request {
	if src == nil {
		return nil
	}
	dst := *src
	dst.AttachedFiles = append([]string(nil), src.AttachedFiles...)
	dst.DeliverableFiles = append([]string(nil), src.DeliverableFiles...)
	return &dst
}

func cloneTransaction(src *models.Transaction) *models.Transaction {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}

func cloneDispute(src *models.Dispute) *models.Dispute {
	if src == nil {
		return nil
	}
	dst := *src
	dst.ClientFiles = append([]string(nil), src.ClientFiles...)
	dst.ProfessionalFiles = append([]string(nil), src.ProfessionalFiles...)
	return &dst
}

func cloneAggregate(src *models.Aggregate) *models.Aggregate {
	return &models.Aggregate{
		Request:     cloneRequest(src.Request),
		Transaction: cloneTransaction(src.Transaction),
		Dispute:     cloneDispute(src.Dispute),
	}
}

func (r *fakeEngagementRepo) CreateRequest(_ context.Context, req *models.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	r.aggs[req.ID] = &models.Aggregate{Request: cloneRequest(req)}
	return nil
}

func (r *fakeEngagementRepo) GetRequest(_ context.Context, id uuid.UUID) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggs[id]
	if !ok {
		return nil, apperror.ErrRequestNotFound
	}
	return cloneRequest(agg.Request), nil
}

func (r *fakeEngagementRepo) GetAggregate(_ context.Context, requestID uuid.UUID) (*models.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggs[requestID]
	if !ok {
		return nil, apperror.ErrRequestNotFound
	}
	return cloneAggregate(agg), nil
}

func (r *fakeEngagementRepo) RequestIDByDispute(_ context.Context, disputeID uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, agg := range r.aggs {
		if agg.Dispute != nil && agg.Dispute.ID == disputeID {
			return id, nil
		}
	}
	return uuid.Nil, apperror.ErrDisputeNotFound
}

func (r *fakeEngagementRepo) RequestIDByGatewayReference(_ context.Context, reference string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, agg := range r.aggs {
		if agg.Transaction != nil && agg.Transaction.GatewayReference != nil &&
			*agg.Transaction.GatewayReference == reference {
			return id, nil
		}
	}
	return uuid.Nil, apperror.ErrTransactionNotFound
}

func (r *fakeEngagementRepo) ListByActor(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var requests []models.Request
	for _, agg := range r.aggs {
		req := agg.Request
		switch params.Role {
		case models.RoleProfessional:
			if req.ProfessionalID == nil || *req.ProfessionalID != params.UserID {
				continue
			}
		default:
			if req.ClientID != params.UserID {
				continue
			}
		}
		if params.Status != "" && req.Status != params.Status {
			continue
		}
		requests = append(requests, *cloneRequest(req))
	}
	return &repository.ListResult{
		Requests: requests,
		Total:    len(requests),
		Limit:    params.Limit,
		Offset:   params.Offset,
	}, nil
}

func (r *fakeEngagementRepo) ListDisputes(_ context.Context, status models.DisputeStatus, limit, offset int) ([]models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var disputes []models.Dispute
	for _, agg := range r.aggs {
		if agg.Dispute == nil {
			continue
		}
		if status != "" && agg.Dispute.Status != status {
			continue
		}
		disputes = append(disputes, *cloneDispute(agg.Dispute))
	}
	return disputes, nil
}

func (r *fakeEngagementRepo) ListAutoApprovable(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uuid.UUID
	for id, agg := range r.aggs {
		req := agg.Request
		if req.Status == models.RequestStatusUnderReview && req.AutoApproveAt != nil && !req.AutoApproveAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeEngagementRepo) Atomic(_ context.Context, requestID uuid.UUID, fn func(agg *models.Aggregate) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.aggs[requestID]
	if !ok {
		return apperror.ErrRequestNotFound
	}

	working := cloneAggregate(stored)
	if err := fn(working); err != nil {
		return err
	}

	if working.Transaction != nil && working.Transaction.ID == uuid.Nil {
		working.Transaction.ID = uuid.New()
		working.Transaction.CreatedAt = time.Now()
	}
	if working.Dispute != nil && working.Dispute.ID == uuid.Nil {
		working.Dispute.ID = uuid.New()
		working.Dispute.CreatedAt = time.Now()
		working.Dispute.TransactionID = working.Transaction.ID
	}
	working.Request.UpdatedAt = time.Now()
	r.aggs[requestID] = working
	return nil
}

// fakeGateway всегда возвращает одну и ту же checkout-сессию.
type fakeGateway struct {
	sessionID string
	calls     int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, _ gateway.CheckoutParams) (*gateway.CheckoutSession, error) {
	g.calls++
	return &gateway.CheckoutSession{ID: g.sessionID, CheckoutURL: "https://checkout.test/" + g.sessionID}, nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *fakeEngagementRepo, gw PaymentGateway) *EngagementService {
	svc := NewEngagementService(repo, gw, nil, Policy{MaxRevisions: 3, AutoApproveDays: 7})
	svc.now = func() time.Time { return testNow }
	return svc
}

func validCreateInput() CreateRequestInput {
	return CreateRequestInput{
		Title:        "Настройка CI/CD",
		Description:  strings.Repeat("Нужно настроить пайплайн сборки и деплоя. ", 3),
		TimelineDays: 14,
	}
}

// seedPaid доводит новую заявку до оплаченного состояния in_progress/escrowed.
func seedPaid(t *testing.T, svc *EngagementService, clientID, professionalID uuid.UUID, price string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)

	_, _, err = svc.AcceptRequest(ctx, professionalID, req.ID, decimal.RequireFromString(price))
	require.NoError(t, err)

	_, _, err = svc.ConfirmPayment(ctx, req.ID, "cs_seed_"+req.ID.String())
	require.NoError(t, err)

	return req.ID
}

func TestEngagementLifecycle_HappyPath(t *testing.T) {
	repo := newFakeEngagementRepo()
	gw := &fakeGateway{sessionID: "cs_test_123"}
	svc := newTestService(repo, gw)
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()

	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 3, req.MaxRevisions)

	agg, intents, err := svc.AcceptRequest(ctx, professionalID, req.ID, decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAwaitingPayment, agg.Request.Status)
	require.NotNil(t, agg.Transaction)
	assert.Equal(t, models.TransactionStatusPendingPayment, agg.Transaction.Status)
	assert.True(t, agg.Transaction.PlatformFee.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, agg.Transaction.ProfessionalPayout.Equal(decimal.RequireFromString("900.00")))
	assert.True(t, agg.Transaction.PlatformFee.Add(agg.Transaction.ProfessionalPayout).Equal(agg.Transaction.Amount))
	require.Len(t, intents, 1)
	assert.Equal(t, clientID, intents[0].UserID)

	session, err := svc.CreateCheckout(ctx, clientID, req.ID, "https://ok", "https://cancel")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)

	foundID, err := svc.RequestIDByGatewayReference(ctx, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, req.ID, foundID)

	agg, intents, err = svc.ConfirmPayment(ctx, req.ID, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, agg.Request.Status)
	assert.Equal(t, models.TransactionStatusEscrowed, agg.Transaction.Status)
	require.NotNil(t, agg.Transaction.PaidAt)
	assert.Len(t, intents, 2)

	agg, _, err = svc.SubmitWork(ctx, professionalID, req.ID, []string{"result.zip"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusUnderReview, agg.Request.Status)
	assert.Equal(t, models.TransactionStatusPendingApproval, agg.Transaction.Status)
	require.NotNil(t, agg.Request.AutoApproveAt)
	assert.Equal(t, testNow.AddDate(0, 0, 7), *agg.Request.AutoApproveAt)

	agg, _, err = svc.ApproveWork(ctx, clientID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, agg.Request.Status)
	assert.Equal(t, models.TransactionStatusCompleted, agg.Transaction.Status)
	require.NotNil(t, agg.Transaction.ReleasedAt)
	require.NotNil(t, agg.Request.CompletedAt)
}

func TestCreateRequest_Validation(t *testing.T) {
	svc := newTestService(newFakeEngagementRepo(), &fakeGateway{})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateRequestInput)
	}{
		{"короткий заголовок", func(in *CreateRequestInput) { in.Title = "CI" }},
		{"короткое описание", func(in *CreateRequestInput) { in.Description = "мало" }},
		{"нулевой срок", func(in *CreateRequestInput) { in.TimelineDays = 0 }},
		{"срок больше года", func(in *CreateRequestInput) { in.TimelineDays = 400 }},
		{"слишком много файлов", func(in *CreateRequestInput) {
			in.AttachedFiles = make([]string, 11)
			for i := range in.AttachedFiles {
				in.AttachedFiles[i] = "f"
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput()
			tc.mutate(&in)
			_, err := svc.CreateRequest(ctx, uuid.New(), in)
			assert.True(t, apperror.IsValidation(err), "ожидалась ошибка валидации, получено: %v", err)
		})
	}

	negative := decimal.RequireFromString("-10")
	in := validCreateInput()
	in.Price = &negative
	_, err := svc.CreateRequest(ctx, uuid.New(), in)
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdateRequest_OnlyWhilePending(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)

	newTitle := "Настройка CI/CD и мониторинга"
	updated, err := svc.UpdateRequest(ctx, clientID, req.ID, UpdateRequestInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)

	// Чужой клиент не может редактировать.
	_, err = svc.UpdateRequest(ctx, uuid.New(), req.ID, UpdateRequestInput{Title: &newTitle})
	assert.True(t, apperror.IsForbidden(err))

	_, _, err = svc.AcceptRequest(ctx, uuid.New(), req.ID, decimal.RequireFromString("500.00"))
	require.NoError(t, err)

	_, err = svc.UpdateRequest(ctx, clientID, req.ID, UpdateRequestInput{Title: &newTitle})
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestDeclineRequest_Terminal(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)

	declined, intents, err := svc.DeclineRequest(ctx, professionalID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDeclined, declined.Status)
	require.Len(t, intents, 1)

	// Терминальный статус: принять уже нельзя.
	_, _, err = svc.AcceptRequest(ctx, professionalID, req.ID, decimal.RequireFromString("100.00"))
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestCancelRequest_BeforeEscrowOnly(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()

	// До оплаты отмена разрешена, транзакция уходит в failed.
	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)
	_, _, err = svc.AcceptRequest(ctx, professionalID, req.ID, decimal.RequireFromString("300.00"))
	require.NoError(t, err)

	cancelled, _, err := svc.CancelRequest(ctx, clientID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, cancelled.Status)
	agg, err := repo.GetAggregate(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, agg.Transaction.Status)

	// После оплаты отмена запрещена.
	paidID := seedPaid(t, svc, clientID, professionalID, "300.00")
	_, _, err = svc.CancelRequest(ctx, clientID, paidID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestConfirmPayment_SecondDeliveryRejected(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	requestID := seedPaid(t, svc, uuid.New(), uuid.New(), "250.00")

	_, _, err := svc.ConfirmPayment(ctx, requestID, "cs_retry")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestFailPayment_RequestStaysAwaiting(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)
	_, _, err = svc.AcceptRequest(ctx, uuid.New(), req.ID, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	agg, intents, err := svc.FailPayment(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, agg.Transaction.Status)
	assert.Equal(t, models.RequestStatusAwaitingPayment, agg.Request.Status)
	require.Len(t, intents, 1)
	assert.Equal(t, clientID, intents[0].UserID)
}

func TestSubmitWork_OnlyAssignedProfessional(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	professionalID := uuid.New()
	requestID := seedPaid(t, svc, uuid.New(), professionalID, "100.00")

	_, _, err := svc.SubmitWork(ctx, uuid.New(), requestID, []string{"a.zip"}, nil)
	assert.True(t, apperror.IsForbidden(err))

	_, _, err = svc.SubmitWork(ctx, professionalID, requestID, []string{"a.zip"}, nil)
	require.NoError(t, err)
}

func TestApproveWork_WrongClientForbidden(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")
	_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"a.zip"}, nil)
	require.NoError(t, err)

	_, _, err = svc.ApproveWork(ctx, uuid.New(), requestID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestApproveWork_SecondApproveRejected(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")
	_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"a.zip"}, nil)
	require.NoError(t, err)

	_, _, err = svc.ApproveWork(ctx, clientID, requestID)
	require.NoError(t, err)

	// Повторное подтверждение видит завершённое состояние под блокировкой.
	_, _, err = svc.ApproveWork(ctx, clientID, requestID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestRequestRevision_LimitEnforced(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")

	for i := 1; i <= 3; i++ {
		_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"v.zip"}, nil)
		require.NoError(t, err)

		updated, _, err := svc.RequestRevision(ctx, clientID, requestID, "нужно поправить вёрстку")
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusRevisionRequested, updated.Status)
		assert.Equal(t, i, updated.RevisionCount)
		assert.Nil(t, updated.AutoApproveAt)
	}

	_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"v4.zip"}, nil)
	require.NoError(t, err)

	_, _, err = svc.RequestRevision(ctx, clientID, requestID, "ещё раз")
	assert.True(t, apperror.IsValidation(err))

	// Состояние не изменилось: заявка всё ещё на проверке.
	agg, err := repo.GetAggregate(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusUnderReview, agg.Request.Status)
	assert.Equal(t, 3, agg.Request.RevisionCount)
}

func TestSubmitWork_TransactionStaysPendingApprovalAfterRevision(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")

	_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"v1.zip"}, nil)
	require.NoError(t, err)
	_, _, err = svc.RequestRevision(ctx, clientID, requestID, "поправьте отчёт")
	require.NoError(t, err)

	agg, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"v2.zip"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPendingApproval, agg.Transaction.Status)
}

func TestOpenDispute_OnlyOncePerTransaction(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")

	reason := strings.Repeat("Работа не соответствует описанию заявки. ", 2)
	d, _, err := svc.OpenDispute(ctx, clientID, requestID, reason, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	assert.True(t, d.RefundAmount.IsZero())

	agg, err := repo.GetAggregate(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDisputed, agg.Request.Status)
	assert.Equal(t, models.TransactionStatusDisputed, agg.Transaction.Status)
	assert.Nil(t, agg.Request.AutoApproveAt)

	_, _, err = svc.OpenDispute(ctx, clientID, requestID, reason, nil)
	assert.True(t, apperror.IsAlreadyExists(err))
}

func TestOpenDispute_RequiresEscrowedFunds(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	req, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)
	_, _, err = svc.AcceptRequest(ctx, uuid.New(), req.ID, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	reason := strings.Repeat("Работа не соответствует описанию заявки. ", 2)
	_, _, err = svc.OpenDispute(ctx, clientID, req.ID, reason, nil)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestAutoApprove_Sweep(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")
	_, _, err := svc.SubmitWork(ctx, professionalID, requestID, []string{"a.zip"}, nil)
	require.NoError(t, err)

	// Срок ещё не истёк: заявка не попадает в выборку.
	ids, err := svc.ListAutoApprovable(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Сдвигаем часы за срок автоподтверждения.
	svc.now = func() time.Time { return testNow.AddDate(0, 0, 8) }

	sweeper := NewAutoApproveSweeper(svc, time.Hour)
	sweeper.Sweep(ctx)

	agg, err := repo.GetAggregate(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, agg.Request.Status)
	assert.Equal(t, models.TransactionStatusCompleted, agg.Transaction.Status)
	require.NotNil(t, agg.Transaction.ReleasedAt)
}

func TestGetAggregate_AccessControl(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	requestID := seedPaid(t, svc, clientID, professionalID, "100.00")

	_, err := svc.GetAggregate(ctx, clientID, models.RoleClient, requestID)
	assert.NoError(t, err)
	_, err = svc.GetAggregate(ctx, professionalID, models.RoleProfessional, requestID)
	assert.NoError(t, err)
	_, err = svc.GetAggregate(ctx, uuid.New(), models.RoleAdmin, requestID)
	assert.NoError(t, err)

	_, err = svc.GetAggregate(ctx, uuid.New(), models.RoleClient, requestID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestListRequests_FiltersByRoleAndStatus(t *testing.T) {
	repo := newFakeEngagementRepo()
	svc := newTestService(repo, &fakeGateway{})
	ctx := context.Background()

	clientID := uuid.New()
	professionalID := uuid.New()
	seedPaid(t, svc, clientID, professionalID, "100.00")
	_, err := svc.CreateRequest(ctx, clientID, validCreateInput())
	require.NoError(t, err)

	asClient, err := svc.ListRequests(ctx, repository.ListParams{UserID: clientID, Role: models.RoleClient})
	require.NoError(t, err)
	assert.Len(t, asClient.Requests, 2)

	asProfessional, err := svc.ListRequests(ctx, repository.ListParams{UserID: professionalID, Role: models.RoleProfessional})
	require.NoError(t, err)
	assert.Len(t, asProfessional.Requests, 1)

	pending, err := svc.ListRequests(ctx, repository.ListParams{
		UserID: clientID, Role: models.RoleClient, Status: models.RequestStatusPending,
	})
	require.NoError(t, err)
	assert.Len(t, pending.Requests, 1)

	_, err = svc.ListRequests(ctx, repository.ListParams{UserID: clientID, Status: "bogus"})
	assert.True(t, apperror.IsValidation(err))
}
