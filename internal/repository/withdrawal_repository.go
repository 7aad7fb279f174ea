package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/repository/common"
)

// ErrInsufficientFunds возвращается, когда запрошенная сумма превышает баланс.
var ErrInsufficientFunds = apperror.New(apperror.ErrCodeValidation, "недостаточно средств для вывода")

type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create сохраняет заявку на вывод. Баланс пересчитывается внутри транзакции
// с блокировкой существующих заявок специалиста, чтобы два параллельных
// запроса не вывели одни и те же средства дважды.
func (r *WithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked []uuid.UUID
		if err := tx.SelectContext(ctx, &locked,
			`SELECT id FROM withdrawals WHERE professional_id = $1 FOR UPDATE`, w.ProfessionalID); err != nil {
			return fmt.Errorf("withdrawal repository: lock %w", err)
		}

		var available models.Balance
		query := `
			SELECT $1::uuid AS professional_id,
				COALESCE((SELECT SUM(professional_payout) FROM transactions
					WHERE professional_id = $1 AND status = $2), 0)
				-
				COALESCE((SELECT SUM(amount) FROM withdrawals
					WHERE professional_id = $1 AND status <> $3), 0)
			AS available
		`
		if err := tx.GetContext(ctx, &available, query,
			w.ProfessionalID, models.TransactionStatusCompleted, models.WithdrawalStatusRejected); err != nil {
			return fmt.Errorf("withdrawal repository: balance %w", err)
		}
		if available.Available.LessThan(w.Amount) {
			return ErrInsufficientFunds
		}

		insert := `
			INSERT INTO withdrawals (professional_id, amount, status, payment_method, account_number, account_name)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(
			ctx,
			insert,
			w.ProfessionalID,
			w.Amount,
			w.Status,
			w.PaymentMethod,
			w.AccountNumber,
			w.AccountName,
		).Scan(&w.ID, &w.CreatedAt); err != nil {
			return fmt.Errorf("withdrawal repository: create %w", err)
		}
		return nil
	})
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return common.GetByID[models.Withdrawal](ctx, r.db, "withdrawals", id, apperror.ErrWithdrawalNotFound)
}

// ListByProfessional возвращает заявки специалиста на вывод.
func (r *WithdrawalRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var withdrawals []models.Withdrawal
	query := `
		SELECT * FROM withdrawals
		WHERE professional_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &withdrawals, query, professionalID, limit, offset); err != nil {
		return nil, fmt.Errorf("withdrawal repository: list %w", err)
	}
	return withdrawals, nil
}

// ListPending возвращает необработанные заявки (для администратора).
func (r *WithdrawalRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Withdrawal, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var withdrawals []models.Withdrawal
	query := `
		SELECT * FROM withdrawals
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &withdrawals, query, models.WithdrawalStatusPending, limit, offset); err != nil {
		return nil, fmt.Errorf("withdrawal repository: list pending %w", err)
	}
	return withdrawals, nil
}

// UpdateStatus фиксирует решение администратора по заявке на вывод.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.WithdrawalStatus, processedBy uuid.UUID, rejectionReason *string) error {
	now := time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = $2, processed_by = $3, rejection_reason = $4, processed_at = $5
		WHERE id = $1
	`, id, status, processedBy, rejectionReason, now)
	if err != nil {
		return fmt.Errorf("withdrawal repository: update status %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("withdrawal repository: update status rows affected %w", err)
	}
	if rowsAffected == 0 {
		return apperror.ErrWithdrawalNotFound
	}
	return nil
}
