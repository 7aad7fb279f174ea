package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/gateway"
	"github.com/ignatzorin/prolink-backend/internal/goroutine"
	"github.com/ignatzorin/prolink-backend/internal/ledger"
	"github.com/ignatzorin/prolink-backend/internal/logger"
	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/repository"
	"github.com/ignatzorin/prolink-backend/internal/validation"
)

// EngagementRepository описывает взаимодействие оркестратора с хранилищем агрегата.
type EngagementRepository interface {
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	GetAggregate(ctx context.Context, requestID uuid.UUID) (*models.Aggregate, error)
	RequestIDByDispute(ctx context.Context, disputeID uuid.UUID) (uuid.UUID, error)
	RequestIDByGatewayReference(ctx context.Context, reference string) (uuid.UUID, error)
	ListByActor(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	ListDisputes(ctx context.Context, status models.DisputeStatus, limit, offset int) ([]models.Dispute, error)
	ListAutoApprovable(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	Atomic(ctx context.Context, requestID uuid.UUID, fn func(agg *models.Aggregate) error) error
}

// PaymentGateway описывает внешний платёжный шлюз.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p gateway.CheckoutParams) (*gateway.CheckoutSession, error)
}

// Notifier доставляет уведомления. Доставка идёт лучшим усилием:
// ошибка доставки логируется и не откатывает уже применённое состояние.
type Notifier interface {
	Notify(ctx context.Context, intents []models.NotificationIntent) error
}

// Policy политика жизненного цикла заявки.
type Policy struct {
	MaxRevisions    int
	AutoApproveDays int
}

// DefaultPolicy значения по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		MaxRevisions:    models.DefaultMaxRevisions,
		AutoApproveDays: 7,
	}
}

// EngagementService оркестратор жизненного цикла заявки: каждое действие
// участника проверяет роль и guard-условия и применяет переходы заявки,
// транзакции и спора одной атомарной записью.
type EngagementService struct {
	repo     EngagementRepository
	gateway  PaymentGateway
	notifier Notifier
	policy   Policy
	now      func() time.Time
}

// NewEngagementService создаёт оркестратор.
func NewEngagementService(repo EngagementRepository, gw PaymentGateway, notifier Notifier, policy Policy) *EngagementService {
	if policy.MaxRevisions <= 0 {
		policy.MaxRevisions = models.DefaultMaxRevisions
	}
	if policy.AutoApproveDays <= 0 {
		policy.AutoApproveDays = 7
	}
	return &EngagementService{
		repo:     repo,
		gateway:  gw,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
	}
}

// CreateRequestInput данные новой заявки.
type CreateRequestInput struct {
	Title         string
	Description   string
	Price         *decimal.Decimal
	TimelineDays  int
	AttachedFiles []string
}

// CreateRequest создаёт заявку от имени клиента (статус pending).
func (s *EngagementService) CreateRequest(ctx context.Context, clientID uuid.UUID, in CreateRequestInput) (*models.Request, error) {
	if err := validation.ValidateRequestTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateRequestDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateTimeline(in.TimelineDays); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Price != nil {
		if err := validation.ValidatePrice(*in.Price); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if err := validation.ValidateAttachedFiles(in.AttachedFiles); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	req := &models.Request{
		Title:         in.Title,
		Description:   in.Description,
		ClientID:      clientID,
		Status:        models.RequestStatusPending,
		Price:         in.Price,
		TimelineDays:  in.TimelineDays,
		MaxRevisions:  s.policy.MaxRevisions,
		AttachedFiles: in.AttachedFiles,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequestInput изменяемые поля заявки (только пока статус pending).
type UpdateRequestInput struct {
	Title        *string
	Description  *string
	Price        *decimal.Decimal
	TimelineDays *int
}

// UpdateRequest изменяет заявку клиента, пока она не принята специалистом.
func (s *EngagementService) UpdateRequest(ctx context.Context, clientID, requestID uuid.UUID, in UpdateRequestInput) (*models.Request, error) {
	var updated *models.Request
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		if req.ClientID != clientID {
			return apperror.ErrForbidden
		}
		if req.Status != models.RequestStatusPending {
			return apperror.InvalidTransition("update", string(req.Status))
		}

		if in.Title != nil {
			if err := validation.ValidateRequestTitle(*in.Title); err != nil {
				return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
			}
			req.Title = *in.Title
		}
		if in.Description != nil {
			if err := validation.ValidateRequestDescription(*in.Description); err != nil {
				return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
			}
			req.Description = *in.Description
		}
		if in.Price != nil {
			if err := validation.ValidatePrice(*in.Price); err != nil {
				return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
			}
			req.Price = in.Price
		}
		if in.TimelineDays != nil {
			if err := validation.ValidateTimeline(*in.TimelineDays); err != nil {
				return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
			}
			req.TimelineDays = *in.TimelineDays
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetAggregate возвращает заявку со связанными сущностями для участника или администратора.
func (s *EngagementService) GetAggregate(ctx context.Context, userID uuid.UUID, role string, requestID uuid.UUID) (*models.Aggregate, error) {
	agg, err := s.repo.GetAggregate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !isParticipant(agg.Request, userID) {
		return nil, apperror.ErrForbidden
	}
	return agg, nil
}

// ListRequests возвращает заявки пользователя.
func (s *EngagementService) ListRequests(ctx context.Context, params repository.ListParams) (*repository.ListResult, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус заявки")
	}
	return s.repo.ListByActor(ctx, params)
}

// AcceptRequest принимает заявку: специалист фиксирует цену, создаётся
// escrow-транзакция со статусом pending_payment.
func (s *EngagementService) AcceptRequest(ctx context.Context, professionalID, requestID uuid.UUID, price decimal.Decimal) (*models.Aggregate, []models.NotificationIntent, error) {
	if err := validation.ValidatePrice(price); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	fee, payout, err := ledger.Split(price)
	if err != nil {
		return nil, nil, err
	}

	var (
		result  *models.Aggregate
		intents []models.NotificationIntent
	)
	err = s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		if req.ProfessionalID != nil && *req.ProfessionalID != professionalID {
			return apperror.ErrForbidden
		}
		if !req.Status.CanTransitionTo(models.RequestStatusAwaitingPayment) {
			return s.rejectTransition("accept", string(req.Status))
		}

		req.ProfessionalID = &professionalID
		req.Price = &price
		req.Status = models.RequestStatusAwaitingPayment

		agg.Transaction = &models.Transaction{
			RequestID:          req.ID,
			ClientID:           req.ClientID,
			ProfessionalID:     professionalID,
			Amount:             price,
			PlatformFee:        fee,
			ProfessionalPayout: payout,
			Status:             models.TransactionStatusPendingPayment,
		}

		result = agg
		intents = []models.NotificationIntent{{
			UserID:  req.ClientID,
			Event:   models.NotificationRequestAccepted,
			Title:   "Заявка принята",
			Message: fmt.Sprintf("Специалист принял заявку «%s», сумма к оплате %s", req.Title, price.StringFixed(2)),
			LinkURL: requestLink(req.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// DeclineRequest отклоняет заявку (терминально).
func (s *EngagementService) DeclineRequest(ctx context.Context, professionalID, requestID uuid.UUID) (*models.Request, []models.NotificationIntent, error) {
	var (
		result  *models.Request
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		if req.ProfessionalID != nil && *req.ProfessionalID != professionalID {
			return apperror.ErrForbidden
		}
		if !req.Status.CanTransitionTo(models.RequestStatusDeclined) {
			return s.rejectTransition("decline", string(req.Status))
		}

		req.Status = models.RequestStatusDeclined
		result = req
		intents = []models.NotificationIntent{{
			UserID:  req.ClientID,
			Event:   models.NotificationRequestDeclined,
			Title:   "Заявка отклонена",
			Message: fmt.Sprintf("Специалист отклонил заявку «%s»", req.Title),
			LinkURL: requestLink(req.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// CancelRequest отменяет заявку клиента. Допустимо только пока средства
// не попали в escrow (pending или awaiting_payment).
func (s *EngagementService) CancelRequest(ctx context.Context, clientID, requestID uuid.UUID) (*models.Request, []models.NotificationIntent, error) {
	var (
		result  *models.Request
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		if req.ClientID != clientID {
			return apperror.ErrForbidden
		}
		if !req.Status.CanTransitionTo(models.RequestStatusCancelled) {
			return s.rejectTransition("cancel", string(req.Status))
		}
		if agg.Transaction != nil && agg.Transaction.Status != models.TransactionStatusPendingPayment {
			return s.rejectTransition("cancel", string(agg.Transaction.Status))
		}

		req.Status = models.RequestStatusCancelled
		if agg.Transaction != nil {
			agg.Transaction.Status = models.TransactionStatusFailed
		}

		result = req
		if req.ProfessionalID != nil {
			intents = []models.NotificationIntent{{
				UserID:  *req.ProfessionalID,
				Event:   models.NotificationRequestCancelled,
				Title:   "Заявка отменена",
				Message: fmt.Sprintf("Клиент отменил заявку «%s»", req.Title),
				LinkURL: requestLink(req.ID),
			}}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// CreateCheckout создаёт checkout-сессию платёжного шлюза для оплаты заявки.
// Ошибка шлюза возвращается как EXTERNAL_SERVICE и не меняет состояние ядра.
func (s *EngagementService) CreateCheckout(ctx context.Context, clientID, requestID uuid.UUID, successURL, cancelURL string) (*gateway.CheckoutSession, error) {
	agg, err := s.repo.GetAggregate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req := agg.Request
	if req.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if req.Status != models.RequestStatusAwaitingPayment || agg.Transaction == nil ||
		agg.Transaction.Status != models.TransactionStatusPendingPayment {
		return nil, s.rejectTransition("checkout", string(req.Status))
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutParams{
		ReferenceID: req.ID.String(),
		Description: req.Title,
		Amount:      agg.Transaction.Amount,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})
	if err != nil {
		return nil, err
	}

	err = s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		if agg.Transaction == nil || agg.Transaction.Status != models.TransactionStatusPendingPayment {
			return s.rejectTransition("checkout", string(agg.Request.Status))
		}
		agg.Transaction.GatewayReference = &session.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ConfirmPayment подтверждает оплату (вызывается обработчиком вебхука шлюза).
func (s *EngagementService) ConfirmPayment(ctx context.Context, requestID uuid.UUID, gatewayReference string) (*models.Aggregate, []models.NotificationIntent, error) {
	var (
		result  *models.Aggregate
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		txn := agg.Transaction
		if txn == nil || !txn.Status.CanTransitionTo(models.TransactionStatusEscrowed) {
			return s.rejectTransition("confirm_payment", transactionState(txn))
		}
		if !req.Status.CanTransitionTo(models.RequestStatusInProgress) {
			return s.rejectTransition("confirm_payment", string(req.Status))
		}

		now := s.now()
		txn.Status = models.TransactionStatusEscrowed
		txn.PaidAt = &now
		if gatewayReference != "" && txn.GatewayReference == nil {
			txn.GatewayReference = &gatewayReference
		}
		req.Status = models.RequestStatusInProgress

		result = agg
		intents = []models.NotificationIntent{
			{
				UserID:  txn.ProfessionalID,
				Event:   models.NotificationPaymentReceived,
				Title:   "Оплата получена",
				Message: fmt.Sprintf("Средства по заявке «%s» зарезервированы, можно приступать к работе", req.Title),
				LinkURL: requestLink(req.ID),
			},
			{
				UserID:  txn.ClientID,
				Event:   models.NotificationPaymentReceived,
				Title:   "Платёж подтверждён",
				Message: fmt.Sprintf("Платёж по заявке «%s» на сумму %s принят", req.Title, txn.Amount.StringFixed(2)),
				LinkURL: requestLink(req.ID),
			},
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// FailPayment фиксирует неуспешную оплату: транзакция терминально переходит в
// failed, заявка остаётся в awaiting_payment для повторного принятия.
func (s *EngagementService) FailPayment(ctx context.Context, requestID uuid.UUID) (*models.Aggregate, []models.NotificationIntent, error) {
	var (
		result  *models.Aggregate
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		txn := agg.Transaction
		if txn == nil || !txn.Status.CanTransitionTo(models.TransactionStatusFailed) {
			return s.rejectTransition("fail_payment", transactionState(txn))
		}

		txn.Status = models.TransactionStatusFailed
		result = agg
		intents = []models.NotificationIntent{{
			UserID:  txn.ClientID,
			Event:   models.NotificationPaymentFailed,
			Title:   "Оплата не прошла",
			Message: fmt.Sprintf("Платёж по заявке «%s» отклонён шлюзом, попробуйте ещё раз", agg.Request.Title),
			LinkURL: requestLink(agg.Request.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// RequestIDByGatewayReference находит заявку по ссылке checkout-сессии.
func (s *EngagementService) RequestIDByGatewayReference(ctx context.Context, reference string) (uuid.UUID, error) {
	return s.repo.RequestIDByGatewayReference(ctx, reference)
}

// SubmitWork принимает результат работы специалиста. Заявка уходит на проверку
// клиенту, ставится срок автоподтверждения. Транзакция после первой отправки
// остаётся в pending_approval и при повторных отправках после доработок.
func (s *EngagementService) SubmitWork(ctx context.Context, professionalID, requestID uuid.UUID, files []string, notes *string) (*models.Aggregate, []models.NotificationIntent, error) {
	if err := validation.ValidateAttachedFiles(files); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNotes("комментарий к результату", notes); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var (
		result  *models.Aggregate
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		txn := agg.Transaction
		if req.ProfessionalID == nil || *req.ProfessionalID != professionalID {
			return apperror.ErrForbidden
		}
		if !req.Status.CanTransitionTo(models.RequestStatusUnderReview) {
			return s.rejectTransition("submit_work", string(req.Status))
		}
		if txn == nil || (txn.Status != models.TransactionStatusEscrowed && txn.Status != models.TransactionStatusPendingApproval) {
			return s.rejectTransition("submit_work", transactionState(txn))
		}

		now := s.now()
		if txn.Status == models.TransactionStatusEscrowed {
			txn.Status = models.TransactionStatusPendingApproval
		}
		req.Status = models.RequestStatusUnderReview
		req.DeliverableFiles = files
		req.DeliverableNotes = notes
		req.SubmittedAt = &now
		deadline := now.AddDate(0, 0, s.policy.AutoApproveDays)
		req.AutoApproveAt = &deadline

		result = agg
		intents = []models.NotificationIntent{{
			UserID:  req.ClientID,
			Event:   models.NotificationWorkSubmitted,
			Title:   "Работа сдана на проверку",
			Message: fmt.Sprintf("Специалист сдал работу по заявке «%s», проверьте результат", req.Title),
			LinkURL: requestLink(req.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// ApproveWork подтверждает результат от имени клиента и высвобождает escrow.
func (s *EngagementService) ApproveWork(ctx context.Context, clientID, requestID uuid.UUID) (*models.Aggregate, []models.NotificationIntent, error) {
	return s.approve(ctx, requestID, &clientID, false)
}

// AutoApprove подтверждает результат от имени системы по истечении срока.
func (s *EngagementService) AutoApprove(ctx context.Context, requestID uuid.UUID) (*models.Aggregate, []models.NotificationIntent, error) {
	return s.approve(ctx, requestID, nil, true)
}

func (s *EngagementService) approve(ctx context.Context, requestID uuid.UUID, clientID *uuid.UUID, auto bool) (*models.Aggregate, []models.NotificationIntent, error) {
	var (
		result  *models.Aggregate
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		txn := agg.Transaction
		if clientID != nil && req.ClientID != *clientID {
			return apperror.ErrForbidden
		}
		if !req.Status.CanTransitionTo(models.RequestStatusCompleted) || req.Status != models.RequestStatusUnderReview {
			return s.rejectTransition("approve_work", string(req.Status))
		}
		if txn == nil || !txn.Status.CanTransitionTo(models.TransactionStatusCompleted) {
			return s.rejectTransition("approve_work", transactionState(txn))
		}

		now := s.now()
		txn.Status = models.TransactionStatusCompleted
		txn.ReleasedAt = &now
		req.Status = models.RequestStatusCompleted
		req.CompletedAt = &now

		result = agg
		message := fmt.Sprintf("Клиент подтвердил работу по заявке «%s», выплата %s доступна",
			req.Title, txn.ProfessionalPayout.StringFixed(2))
		if auto {
			message = fmt.Sprintf("Работа по заявке «%s» подтверждена автоматически, выплата %s доступна",
				req.Title, txn.ProfessionalPayout.StringFixed(2))
		}
		intents = []models.NotificationIntent{{
			UserID:  txn.ProfessionalID,
			Event:   models.NotificationWorkApproved,
			Title:   "Работа подтверждена",
			Message: message,
			LinkURL: requestLink(req.ID),
		}}
		if auto {
			intents = append(intents, models.NotificationIntent{
				UserID:  txn.ClientID,
				Event:   models.NotificationWorkApproved,
				Title:   "Автоподтверждение",
				Message: fmt.Sprintf("Срок проверки по заявке «%s» истёк, работа подтверждена автоматически", req.Title),
				LinkURL: requestLink(req.ID),
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// RequestRevision отправляет работу на доработку. Лимит доработок проверяется
// до любых изменений: превышение возвращает ошибку валидации без мутации.
func (s *EngagementService) RequestRevision(ctx context.Context, clientID, requestID uuid.UUID, notes string) (*models.Request, []models.NotificationIntent, error) {
	if err := validation.ValidateNonEmpty("комментарий к доработке", notes); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var (
		result  *models.Request
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		if req.ClientID != clientID {
			return apperror.ErrForbidden
		}
		if !req.Status.CanTransitionTo(models.RequestStatusRevisionRequested) {
			return s.rejectTransition("request_revision", string(req.Status))
		}
		if req.RevisionCount >= req.MaxRevisions {
			return apperror.New(apperror.ErrCodeValidation,
				fmt.Sprintf("лимит доработок исчерпан (%d из %d)", req.RevisionCount, req.MaxRevisions))
		}

		req.Status = models.RequestStatusRevisionRequested
		req.RevisionCount++
		req.RevisionNotes = &notes
		req.AutoApproveAt = nil

		result = req
		intents = []models.NotificationIntent{{
			UserID:  *req.ProfessionalID,
			Event:   models.NotificationRevisionAsked,
			Title:   "Запрошена доработка",
			Message: fmt.Sprintf("Клиент запросил доработку по заявке «%s» (%d из %d)", req.Title, req.RevisionCount, req.MaxRevisions),
			LinkURL: requestLink(req.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// OpenDispute открывает спор по заявке. Спор допускается не более одного на
// транзакцию и только пока средства в escrow или ожидают подтверждения.
func (s *EngagementService) OpenDispute(ctx context.Context, clientID, requestID uuid.UUID, reason string, files []string) (*models.Dispute, []models.NotificationIntent, error) {
	if err := validation.ValidateDisputeReason(reason); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAttachedFiles(files); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var (
		result  *models.Dispute
		intents []models.NotificationIntent
	)
	err := s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		req := agg.Request
		txn := agg.Transaction
		if req.ClientID != clientID {
			return apperror.ErrForbidden
		}
		if agg.Dispute != nil {
			return apperror.New(apperror.ErrCodeAlreadyExists, "по этой транзакции спор уже открыт")
		}
		if txn == nil || !txn.Status.Disputable() {
			return s.rejectTransition("open_dispute", transactionState(txn))
		}
		if !req.Status.CanTransitionTo(models.RequestStatusDisputed) {
			return s.rejectTransition("open_dispute", string(req.Status))
		}

		txn.Status = models.TransactionStatusDisputed
		req.Status = models.RequestStatusDisputed
		req.AutoApproveAt = nil
		agg.Dispute = &models.Dispute{
			TransactionID: txn.ID,
			OpenedBy:      clientID,
			Reason:        reason,
			ClientFiles:   files,
			Status:        models.DisputeStatusOpen,
			RefundAmount:  decimal.Zero,
		}

		result = agg.Dispute
		intents = []models.NotificationIntent{{
			UserID:  txn.ProfessionalID,
			Event:   models.NotificationDisputeOpened,
			Title:   "Открыт спор",
			Message: fmt.Sprintf("Клиент открыл спор по заявке «%s», добавьте свои доказательства", req.Title),
			LinkURL: requestLink(req.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.dispatch(intents)
	return result, intents, nil
}

// ListAutoApprovable возвращает заявки с истёкшим сроком автоподтверждения.
func (s *EngagementService) ListAutoApprovable(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListAutoApprovable(ctx, s.now())
}

// rejectTransition логирует и возвращает ошибку запрещённого перехода.
func (s *EngagementService) rejectTransition(action, currentState string) error {
	logger.Log.WithField("action", action).WithField("state", currentState).
		Warn("переход отклонён guard-условием")
	return apperror.InvalidTransition(action, currentState)
}

// dispatch доставляет уведомления лучшим усилием в отдельной горутине.
func (s *EngagementService) dispatch(intents []models.NotificationIntent) {
	if s.notifier == nil || len(intents) == 0 {
		return
	}
	toSend := intents
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, toSend); err != nil {
			logger.Log.WithError(err).Warn("не удалось доставить уведомления")
		}
	})
}

func isParticipant(req *models.Request, userID uuid.UUID) bool {
	if req.ClientID == userID {
		return true
	}
	return req.ProfessionalID != nil && *req.ProfessionalID == userID
}

func transactionState(txn *models.Transaction) string {
	if txn == nil {
		return "no_transaction"
	}
	return string(txn.Status)
}

func requestLink(id uuid.UUID) string {
	return "/requests/" + id.String()
}
