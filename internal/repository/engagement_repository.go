package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/repository/common"
)

// EngagementRepository отвечает за заявку вместе с её транзакцией и спором.
// Все мутации проходят через Atomic: строка заявки блокируется FOR UPDATE,
// и связанные сущности читаются и сохраняются в одной транзакции БД.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository создаёт новый экземпляр.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// CreateRequest сохраняет новую заявку.
func (r *EngagementRepository) CreateRequest(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO requests (title, description, client_id, status, price, timeline_days, max_revisions, attached_files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		req.Title,
		req.Description,
		req.ClientID,
		req.Status,
		req.Price,
		req.TimelineDays,
		req.MaxRevisions,
		req.AttachedFiles,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("engagement repository: create request %w", err)
	}
	return nil
}

// GetRequest возвращает заявку по идентификатору.
func (r *EngagementRepository) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return common.GetByID[models.Request](ctx, r.db, "requests", id, apperror.ErrRequestNotFound)
}

// GetAggregate возвращает заявку со связанной транзакцией и спором (без блокировки).
func (r *EngagementRepository) GetAggregate(ctx context.Context, requestID uuid.UUID) (*models.Aggregate, error) {
	req, err := r.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	agg := &models.Aggregate{Request: req}
	if agg.Transaction, err = r.transactionByRequest(ctx, r.db, requestID); err != nil {
		return nil, err
	}
	if agg.Transaction != nil {
		if agg.Dispute, err = r.disputeByTransaction(ctx, r.db, agg.Transaction.ID); err != nil {
			return nil, err
		}
	}
	return agg, nil
}

// RequestIDByDispute возвращает идентификатор заявки, к которой относится спор.
func (r *EngagementRepository) RequestIDByDispute(ctx context.Context, disputeID uuid.UUID) (uuid.UUID, error) {
	var requestID uuid.UUID
	query := `
		SELECT t.request_id
		FROM disputes d
		JOIN transactions t ON t.id = d.transaction_id
		WHERE d.id = $1
	`
	if err := r.db.GetContext(ctx, &requestID, query, disputeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, apperror.ErrDisputeNotFound
		}
		return uuid.Nil, fmt.Errorf("engagement repository: request by dispute %w", err)
	}
	return requestID, nil
}

// RequestIDByGatewayReference возвращает заявку по ссылке платёжного шлюза.
// Используется обработчиком вебхуков.
func (r *EngagementRepository) RequestIDByGatewayReference(ctx context.Context, reference string) (uuid.UUID, error) {
	var requestID uuid.UUID
	err := r.db.GetContext(ctx, &requestID,
		`SELECT request_id FROM transactions WHERE gateway_reference = $1`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, apperror.ErrTransactionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("engagement repository: request by gateway reference %w", err)
	}
	return requestID, nil
}

// ListParams параметры выборки заявок участника.
type ListParams struct {
	UserID uuid.UUID
	Role   string // client или professional
	Status models.RequestStatus
	Limit  int
	Offset int
}

// ListResult список заявок с метаданными пагинации.
type ListResult struct {
	Requests []models.Request
	Total    int
	Limit    int
	Offset   int
	HasMore  bool
}

// ListByActor возвращает заявки, в которых участвует пользователь.
func (r *EngagementRepository) ListByActor(ctx context.Context, params ListParams) (*ListResult, error) {
	countQuery := `SELECT COUNT(*) FROM requests WHERE 1=1`
	query := `SELECT * FROM requests WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	var clause string
	switch params.Role {
	case models.RoleProfessional:
		clause = fmt.Sprintf(" AND professional_id = $%d", argIndex)
	default:
		clause = fmt.Sprintf(" AND client_id = $%d", argIndex)
	}
	query += clause
	countQuery += clause
	args = append(args, params.UserID)
	argIndex++

	if params.Status != "" {
		clause = fmt.Sprintf(" AND status = $%d", argIndex)
		query += clause
		countQuery += clause
		args = append(args, params.Status)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("engagement repository: count %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("engagement repository: list %w", err)
	}

	return &ListResult{
		Requests: requests,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  offset+limit < total,
	}, nil
}

// ListDisputes возвращает споры для административной выборки,
// опционально отфильтрованные по статусу.
func (r *EngagementRepository) ListDisputes(ctx context.Context, status models.DisputeStatus, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var disputes []models.Dispute
	query := `SELECT * FROM disputes`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("engagement repository: list disputes %w", err)
	}
	return disputes, nil
}

// ListAutoApprovable возвращает заявки, у которых истёк срок автоподтверждения.
func (r *EngagementRepository) ListAutoApprovable(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id FROM requests
		WHERE status = $1 AND auto_approve_at IS NOT NULL AND auto_approve_at <= $2
		ORDER BY auto_approve_at
	`
	if err := r.db.SelectContext(ctx, &ids, query, models.RequestStatusUnderReview, now); err != nil {
		return nil, fmt.Errorf("engagement repository: list auto approvable %w", err)
	}
	return ids, nil
}

// Atomic выполняет мутацию агрегата под блокировкой строки заявки.
// fn получает согласованное состояние; любая ошибка из fn откатывает
// транзакцию целиком, так что частичных изменений не остаётся.
func (r *EngagementRepository) Atomic(ctx context.Context, requestID uuid.UUID, fn func(agg *models.Aggregate) error) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var req models.Request
		if err := tx.GetContext(ctx, &req, `SELECT * FROM requests WHERE id = $1 FOR UPDATE`, requestID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrRequestNotFound
			}
			return fmt.Errorf("engagement repository: lock request %w", err)
		}

		agg := &models.Aggregate{Request: &req}
		var err error
		if agg.Transaction, err = r.transactionByRequest(ctx, tx, requestID); err != nil {
			return err
		}
		if agg.Transaction != nil {
			if agg.Dispute, err = r.disputeByTransaction(ctx, tx, agg.Transaction.ID); err != nil {
				return err
			}
		}

		hadTransaction := agg.Transaction != nil
		hadDispute := agg.Dispute != nil

		if err := fn(agg); err != nil {
			return err
		}

		if err := r.saveRequest(ctx, tx, agg.Request); err != nil {
			return err
		}
		if agg.Transaction != nil {
			if hadTransaction {
				err = r.updateTransaction(ctx, tx, agg.Transaction)
			} else {
				err = r.insertTransaction(ctx, tx, agg.Transaction)
			}
			if err != nil {
				return err
			}
		}
		if agg.Dispute != nil {
			if hadDispute {
				err = r.updateDispute(ctx, tx, agg.Dispute)
			} else {
				err = r.insertDispute(ctx, tx, agg.Dispute)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type queryer interface {
	sqlx.QueryerContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (r *EngagementRepository) transactionByRequest(ctx context.Context, q queryer, requestID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := q.GetContext(ctx, &txn, `SELECT * FROM transactions WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engagement repository: get transaction %w", err)
	}
	return &txn, nil
}

func (r *EngagementRepository) disputeByTransaction(ctx context.Context, q queryer, transactionID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := q.GetContext(ctx, &d, `SELECT * FROM disputes WHERE transaction_id = $1`, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engagement repository: get dispute %w", err)
	}
	return &d, nil
}

func (r *EngagementRepository) saveRequest(ctx context.Context, tx *sqlx.Tx, req *models.Request) error {
	query := `
		UPDATE requests
		SET title = $2,
		    description = $3,
		    professional_id = $4,
		    status = $5,
		    price = $6,
		    timeline_days = $7,
		    revision_count = $8,
		    attached_files = $9,
		    deliverable_files = $10,
		    deliverable_notes = $11,
		    revision_notes = $12,
		    submitted_at = $13,
		    completed_at = $14,
		    auto_approve_at = $15,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := tx.QueryRowxContext(
		ctx,
		query,
		req.ID,
		req.Title,
		req.Description,
		req.ProfessionalID,
		req.Status,
		req.Price,
		req.TimelineDays,
		req.RevisionCount,
		req.AttachedFiles,
		req.DeliverableFiles,
		req.DeliverableNotes,
		req.RevisionNotes,
		req.SubmittedAt,
		req.CompletedAt,
		req.AutoApproveAt,
	).Scan(&req.UpdatedAt); err != nil {
		return fmt.Errorf("engagement repository: save request %w", err)
	}
	return nil
}

func (r *EngagementRepository) insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (request_id, client_id, professional_id, amount, platform_fee, professional_payout, status, gateway_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	if err := tx.QueryRowxContext(
		ctx,
		query,
		txn.RequestID,
		txn.ClientID,
		txn.ProfessionalID,
		txn.Amount,
		txn.PlatformFee,
		txn.ProfessionalPayout,
		txn.Status,
		txn.GatewayReference,
	).Scan(&txn.ID, &txn.CreatedAt); err != nil {
		return fmt.Errorf("engagement repository: insert transaction %w", err)
	}
	return nil
}

func (r *EngagementRepository) updateTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	// Суммы неизменны после создания, обновляются только статус и отметки.
	query := `
		UPDATE transactions
		SET status = $2,
		    gateway_reference = $3,
		    paid_at = $4,
		    released_at = $5
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, txn.ID, txn.Status, txn.GatewayReference, txn.PaidAt, txn.ReleasedAt); err != nil {
		return fmt.Errorf("engagement repository: update transaction %w", err)
	}
	return nil
}

func (r *EngagementRepository) insertDispute(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (transaction_id, opened_by, reason, client_evidence, professional_evidence, client_files, professional_files, status, refund_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	if err := tx.QueryRowxContext(
		ctx,
		query,
		d.TransactionID,
		d.OpenedBy,
		d.Reason,
		d.ClientEvidence,
		d.ProfessionalEvidence,
		d.ClientFiles,
		d.ProfessionalFiles,
		d.Status,
		d.RefundAmount,
	).Scan(&d.ID, &d.CreatedAt); err != nil {
		return fmt.Errorf("engagement repository: insert dispute %w", err)
	}
	return nil
}

func (r *EngagementRepository) updateDispute(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	query := `
		UPDATE disputes
		SET client_evidence = $2,
		    professional_evidence = $3,
		    client_files = $4,
		    professional_files = $5,
		    status = $6,
		    resolved_by = $7,
		    resolution_notes = $8,
		    refund_amount = $9,
		    resolved_at = $10
		WHERE id = $1
	`
	if _, err := tx.ExecContext(
		ctx,
		query,
		d.ID,
		d.ClientEvidence,
		d.ProfessionalEvidence,
		d.ClientFiles,
		d.ProfessionalFiles,
		d.Status,
		d.ResolvedBy,
		d.ResolutionNotes,
		d.RefundAmount,
		d.ResolvedAt,
	); err != nil {
		return fmt.Errorf("engagement repository: update dispute %w", err)
	}
	return nil
}
