package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/repository/common"
)

// TransactionRepository читает историю транзакций и считает баланс специалиста.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return common.GetByID[models.Transaction](ctx, r.db, "transactions", id, apperror.ErrTransactionNotFound)
}

// GetByRequestID возвращает транзакцию заявки.
func (r *TransactionRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Transaction, error) {
	return common.GetByField[models.Transaction](ctx, r.db, "transactions", "request_id", requestID, apperror.ErrTransactionNotFound)
}

// ListByUser возвращает транзакции, в которых пользователь участвует любой стороной.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var transactions []models.Transaction
	query := `
		SELECT * FROM transactions
		WHERE client_id = $1 OR professional_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &transactions, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("transaction repository: list by user %w", err)
	}
	return transactions, nil
}

// AvailableBalance считает доступные средства специалиста: сумма выплат по
// завершённым транзакциям за вычетом уже запрошенных выводов (кроме отклонённых).
func (r *TransactionRepository) AvailableBalance(ctx context.Context, professionalID uuid.UUID) (*models.Balance, error) {
	balance := &models.Balance{ProfessionalID: professionalID}
	query := `
		SELECT
			COALESCE((SELECT SUM(professional_payout) FROM transactions
				WHERE professional_id = $1 AND status = $2), 0)
			-
			COALESCE((SELECT SUM(amount) FROM withdrawals
				WHERE professional_id = $1 AND status <> $3), 0)
		AS available
	`
	err := r.db.GetContext(ctx, &balance.Available, query,
		professionalID, models.TransactionStatusCompleted, models.WithdrawalStatusRejected)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction repository: available balance %w", err)
	}
	return balance, nil
}
