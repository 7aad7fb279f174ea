package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Пороговые длины текстов спора.
const (
	MinDisputeReasonLength   = 50
	MinResolutionNotesLength = 20
)

// Dispute представляет спор по транзакции (не более одного на транзакцию).
// Пока спор не решён, только он управляет статусом транзакции.
type Dispute struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	OpenedBy      uuid.UUID `db:"opened_by" json:"opened_by"`

	Reason               string         `db:"reason" json:"reason"`
	ClientEvidence       *string        `db:"client_evidence" json:"client_evidence,omitempty"`
	ProfessionalEvidence *string        `db:"professional_evidence" json:"professional_evidence,omitempty"`
	ClientFiles          pq.StringArray `db:"client_files" json:"client_files,omitempty"`
	ProfessionalFiles    pq.StringArray `db:"professional_files" json:"professional_files,omitempty"`

	Status          DisputeStatus   `db:"status" json:"status"`
	ResolvedBy      *uuid.UUID      `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNotes *string         `db:"resolution_notes" json:"resolution_notes,omitempty"`
	RefundAmount    decimal.Decimal `db:"refund_amount" json:"refund_amount"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
