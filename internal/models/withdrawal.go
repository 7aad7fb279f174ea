package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal заявка специалиста на вывод заработанных средств.
type Withdrawal struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	ProfessionalID uuid.UUID        `db:"professional_id" json:"professional_id"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	Status         WithdrawalStatus `db:"status" json:"status"`

	PaymentMethod string  `db:"payment_method" json:"payment_method"`
	AccountNumber string  `db:"account_number" json:"account_number"`
	AccountName   *string `db:"account_name" json:"account_name,omitempty"`

	ProcessedBy     *uuid.UUID `db:"processed_by" json:"processed_by,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Balance доступные для вывода средства специалиста.
type Balance struct {
	ProfessionalID uuid.UUID       `db:"professional_id" json:"professional_id"`
	Available      decimal.Decimal `db:"available" json:"available"`
}
