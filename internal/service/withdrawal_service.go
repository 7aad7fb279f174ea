package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/repository"
	"github.com/ignatzorin/prolink-backend/internal/validation"
)

// WithdrawalService вывод заработанных средств специалиста.
type WithdrawalService struct {
	withdrawals  *repository.WithdrawalRepository
	transactions *repository.TransactionRepository
	notifier     Notifier
	svc          *EngagementService
}

// NewWithdrawalService создаёт сервис выводов.
func NewWithdrawalService(wr *repository.WithdrawalRepository, tr *repository.TransactionRepository, notifier Notifier, svc *EngagementService) *WithdrawalService {
	return &WithdrawalService{withdrawals: wr, transactions: tr, notifier: notifier, svc: svc}
}

// GetBalance возвращает доступные для вывода средства специалиста.
func (s *WithdrawalService) GetBalance(ctx context.Context, professionalID uuid.UUID) (*models.Balance, error) {
	return s.transactions.AvailableBalance(ctx, professionalID)
}

// CreateWithdrawalInput данные заявки на вывод.
type CreateWithdrawalInput struct {
	Amount        decimal.Decimal
	PaymentMethod string
	AccountNumber string
	AccountName   *string
}

// CreateWithdrawal создаёт заявку на вывод. Достаточность баланса проверяется
// в репозитории под блокировкой, чтобы исключить двойной вывод одних средств.
func (s *WithdrawalService) CreateWithdrawal(ctx context.Context, professionalID uuid.UUID, in CreateWithdrawalInput) (*models.Withdrawal, error) {
	if !in.Amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма вывода должна быть положительной")
	}
	if in.Amount.Exponent() < -2 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма вывода указывается с точностью до цента")
	}
	if err := validation.ValidateNonEmpty("способ выплаты", in.PaymentMethod); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("номер счёта", in.AccountNumber); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	w := &models.Withdrawal{
		ProfessionalID: professionalID,
		Amount:         in.Amount,
		Status:         models.WithdrawalStatusPending,
		PaymentMethod:  in.PaymentMethod,
		AccountNumber:  in.AccountNumber,
		AccountName:    in.AccountName,
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ListMyWithdrawals возвращает заявки специалиста.
func (s *WithdrawalService) ListMyWithdrawals(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	return s.withdrawals.ListByProfessional(ctx, professionalID, limit, offset)
}

// ListPending возвращает необработанные заявки для администратора.
func (s *WithdrawalService) ListPending(ctx context.Context, role string, limit, offset int) ([]models.Withdrawal, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	return s.withdrawals.ListPending(ctx, limit, offset)
}

// Approve подтверждает выплату по заявке на вывод.
func (s *WithdrawalService) Approve(ctx context.Context, adminID uuid.UUID, role string, id uuid.UUID) (*models.Withdrawal, error) {
	return s.process(ctx, adminID, role, id, models.WithdrawalStatusCompleted, nil)
}

// Reject отклоняет заявку на вывод с указанием причины.
func (s *WithdrawalService) Reject(ctx context.Context, adminID uuid.UUID, role string, id uuid.UUID, reason string) (*models.Withdrawal, error) {
	if err := validation.ValidateNonEmpty("причина отклонения", reason); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return s.process(ctx, adminID, role, id, models.WithdrawalStatusRejected, &reason)
}

func (s *WithdrawalService) process(ctx context.Context, adminID uuid.UUID, role string, id uuid.UUID, status models.WithdrawalStatus, reason *string) (*models.Withdrawal, error) {
	if role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}

	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WithdrawalStatusPending && w.Status != models.WithdrawalStatusProcessing {
		return nil, apperror.New(apperror.ErrCodeAlreadyResolved, "заявка на вывод уже обработана")
	}

	if err := s.withdrawals.UpdateStatus(ctx, id, status, adminID, reason); err != nil {
		return nil, err
	}

	updated, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Выплата %s подтверждена", w.Amount.StringFixed(2))
	if status == models.WithdrawalStatusRejected {
		message = fmt.Sprintf("Заявка на вывод %s отклонена: %s", w.Amount.StringFixed(2), *reason)
	}
	s.svc.dispatch([]models.NotificationIntent{{
		UserID:  w.ProfessionalID,
		Event:   models.NotificationWithdrawal,
		Title:   "Вывод средств",
		Message: message,
	}})

	return updated, nil
}

// ListTransactions возвращает историю транзакций пользователя.
func (s *WithdrawalService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	return s.transactions.ListByUser(ctx, userID, limit, offset)
}
