package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DefaultMaxRevisions лимит доработок по умолчанию.
const DefaultMaxRevisions = 3

// Request представляет заявку клиента на услугу специалиста.
type Request struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description"`
	ClientID       uuid.UUID     `db:"client_id" json:"client_id"`
	ProfessionalID *uuid.UUID    `db:"professional_id" json:"professional_id,omitempty"`
	Status         RequestStatus `db:"status" json:"status"`

	// Цену задаёт клиент при создании; специалист фиксирует её при принятии.
	Price        *decimal.Decimal `db:"price" json:"price,omitempty"`
	TimelineDays int              `db:"timeline_days" json:"timeline_days"`

	RevisionCount int `db:"revision_count" json:"revision_count"`
	MaxRevisions  int `db:"max_revisions" json:"max_revisions"`

	AttachedFiles    pq.StringArray `db:"attached_files" json:"attached_files,omitempty"`
	DeliverableFiles pq.StringArray `db:"deliverable_files" json:"deliverable_files,omitempty"`
	DeliverableNotes *string        `db:"deliverable_notes" json:"deliverable_notes,omitempty"`
	RevisionNotes    *string        `db:"revision_notes" json:"revision_notes,omitempty"`

	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	SubmittedAt   *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	AutoApproveAt *time.Time `db:"auto_approve_at" json:"auto_approve_at,omitempty"`
}

// RevisionsLeft возвращает число оставшихся доработок.
func (r *Request) RevisionsLeft() int {
	left := r.MaxRevisions - r.RevisionCount
	if left < 0 {
		return 0
	}
	return left
}

// Aggregate объединяет заявку с её транзакцией и спором.
// Репозиторий загружает и сохраняет все три сущности под одной блокировкой,
// поэтому любое действие участника видит согласованное состояние.
type Aggregate struct {
	Request     *Request
	Transaction *Transaction
	Dispute     *Dispute
}
