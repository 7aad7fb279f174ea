package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction представляет escrow-платёж, привязанный к заявке 1:1.
// Суммы фиксируются при создании и далее неизменны: комиссия и выплата
// считаются один раз и не пересчитываются при смене статусов.
type Transaction struct {
	ID             uuid.UUID `db:"id" json:"id"`
	RequestID      uuid.UUID `db:"request_id" json:"request_id"`
	ClientID       uuid.UUID `db:"client_id" json:"client_id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`

	Amount             decimal.Decimal `db:"amount" json:"amount"`
	PlatformFee        decimal.Decimal `db:"platform_fee" json:"platform_fee"`
	ProfessionalPayout decimal.Decimal `db:"professional_payout" json:"professional_payout"`

	Status TransactionStatus `db:"status" json:"status"`

	// Ссылка на checkout-сессию платёжного шлюза.
	GatewayReference *string `db:"gateway_reference" json:"gateway_reference,omitempty"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	PaidAt     *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
}
