package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/validation"
)

// DisputeService действия над открытым спором: доказательства специалиста и
// решение администратора. Пока спор не решён, только его исход управляет
// статусом транзакции.
type DisputeService struct {
	repo     EngagementRepository
	notifier Notifier
	svc      *EngagementService
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo EngagementRepository, notifier Notifier, svc *EngagementService) *DisputeService {
	return &DisputeService{repo: repo, notifier: notifier, svc: svc}
}

// GetDispute возвращает спор для участника сделки или администратора.
func (s *DisputeService) GetDispute(ctx context.Context, userID uuid.UUID, role string, disputeID uuid.UUID) (*models.Dispute, error) {
	requestID, err := s.repo.RequestIDByDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.GetAggregate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if agg.Dispute == nil {
		return nil, apperror.ErrDisputeNotFound
	}
	if role != models.RoleAdmin && !isParticipant(agg.Request, userID) {
		return nil, apperror.ErrForbidden
	}
	return agg.Dispute, nil
}

// ListDisputes возвращает споры для административной панели.
func (s *DisputeService) ListDisputes(ctx context.Context, role string, status models.DisputeStatus, limit, offset int) ([]models.Dispute, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if status != "" && !status.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус спора")
	}
	return s.repo.ListDisputes(ctx, status, limit, offset)
}

// SubmitEvidence добавляет контрдоказательства специалиста.
// Первая подача переводит спор из open в under_review.
func (s *DisputeService) SubmitEvidence(ctx context.Context, professionalID, disputeID uuid.UUID, evidence string, files []string) (*models.Dispute, []models.NotificationIntent, error) {
	if err := validation.ValidateEvidence(evidence); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAttachedFiles(files); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	requestID, err := s.repo.RequestIDByDispute(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}

	var (
		result  *models.Dispute
		intents []models.NotificationIntent
	)
	err = s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		d := agg.Dispute
		if d == nil {
			return apperror.ErrDisputeNotFound
		}
		if agg.Request.ProfessionalID == nil || *agg.Request.ProfessionalID != professionalID {
			return apperror.ErrForbidden
		}
		if d.Status.IsResolved() {
			return apperror.New(apperror.ErrCodeAlreadyResolved, "спор уже решён, доказательства не принимаются")
		}

		d.ProfessionalEvidence = &evidence
		d.ProfessionalFiles = append(d.ProfessionalFiles, files...)
		if d.Status == models.DisputeStatusOpen {
			d.Status = models.DisputeStatusUnderReview
		}

		result = d
		intents = []models.NotificationIntent{{
			UserID:  agg.Request.ClientID,
			Event:   models.NotificationDisputeEvidence,
			Title:   "Специалист ответил на спор",
			Message: fmt.Sprintf("По заявке «%s» добавлены контрдоказательства, спор на рассмотрении", agg.Request.Title),
			LinkURL: requestLink(agg.Request.ID),
		}}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.svc.dispatch(intents)
	return result, intents, nil
}

// ResolveInput решение администратора по спору.
type ResolveInput struct {
	Outcome      models.DisputeOutcome
	Notes        string
	RefundAmount decimal.Decimal
}

// ResolveDispute применяет решение администратора: исход детерминированно
// определяет финальные статусы транзакции и заявки. Повторное решение
// отклоняется с AlreadyResolved.
func (s *DisputeService) ResolveDispute(ctx context.Context, adminID uuid.UUID, role string, disputeID uuid.UUID, in ResolveInput) (*models.Aggregate, []models.NotificationIntent, error) {
	if role != models.RoleAdmin {
		return nil, nil, apperror.ErrForbidden
	}
	if _, ok := models.ValidDisputeOutcomes[in.Outcome]; !ok {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "неизвестный исход спора")
	}
	if err := validation.ValidateResolutionNotes(in.Notes); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.RefundAmount.IsNegative() {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "сумма возврата не может быть отрицательной")
	}

	requestID, err := s.repo.RequestIDByDispute(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}

	var (
		result  *models.Aggregate
		intents []models.NotificationIntent
	)
	err = s.repo.Atomic(ctx, requestID, func(agg *models.Aggregate) error {
		d := agg.Dispute
		txn := agg.Transaction
		req := agg.Request
		if d == nil || txn == nil {
			return apperror.ErrDisputeNotFound
		}
		if d.Status.IsResolved() {
			return apperror.New(apperror.ErrCodeAlreadyResolved, "спор уже решён")
		}
		if in.RefundAmount.GreaterThan(txn.Amount) {
			return apperror.New(apperror.ErrCodeValidation, "сумма возврата превышает сумму транзакции")
		}

		now := s.svc.now()
		refund := in.RefundAmount

		switch in.Outcome {
		case models.DisputeStatusResolvedClient, models.DisputeStatusResolvedPartial:
			// Возврат клиенту (полный или частичный).
			if !txn.Status.CanTransitionTo(models.TransactionStatusRefunded) {
				return s.svc.rejectTransition("resolve_dispute", string(txn.Status))
			}
			txn.Status = models.TransactionStatusRefunded
		case models.DisputeStatusResolvedProfessional, models.DisputeStatusClosed:
			// Выплата специалисту; closed это закрытие без движения денег в
			// пользу клиента, возврат принудительно обнуляется.
			if !txn.Status.CanTransitionTo(models.TransactionStatusCompleted) {
				return s.svc.rejectTransition("resolve_dispute", string(txn.Status))
			}
			txn.Status = models.TransactionStatusCompleted
			txn.ReleasedAt = &now
			refund = decimal.Zero
		}

		if !req.Status.CanTransitionTo(models.RequestStatusCompleted) {
			return s.svc.rejectTransition("resolve_dispute", string(req.Status))
		}
		req.Status = models.RequestStatusCompleted
		if req.CompletedAt == nil {
			req.CompletedAt = &now
		}

		d.Status = in.Outcome
		d.ResolvedBy = &adminID
		d.ResolutionNotes = &in.Notes
		d.RefundAmount = refund
		d.ResolvedAt = &now

		result = agg
		intents = []models.NotificationIntent{
			{
				UserID:  req.ClientID,
				Event:   models.NotificationDisputeResolved,
				Title:   "Спор решён",
				Message: fmt.Sprintf("Спор по заявке «%s» закрыт с исходом %s", req.Title, in.Outcome),
				LinkURL: requestLink(req.ID),
			},
			{
				UserID:  txn.ProfessionalID,
				Event:   models.NotificationDisputeResolved,
				Title:   "Спор решён",
				Message: fmt.Sprintf("Спор по заявке «%s» закрыт с исходом %s", req.Title, in.Outcome),
				LinkURL: requestLink(req.ID),
			},
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.svc.dispatch(intents)
	return result, intents, nil
}
