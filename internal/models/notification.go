package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений, порождаемых жизненным циклом заявки.
const (
	NotificationRequestCreated   = "request.created"
	NotificationRequestAccepted  = "request.accepted"
	NotificationRequestDeclined  = "request.declined"
	NotificationRequestCancelled = "request.cancelled"
	NotificationPaymentReceived  = "payment.received"
	NotificationPaymentFailed    = "payment.failed"
	NotificationWorkSubmitted    = "work.submitted"
	NotificationWorkApproved     = "work.approved"
	NotificationRevisionAsked    = "revision.requested"
	NotificationDisputeOpened    = "dispute.opened"
	NotificationDisputeEvidence  = "dispute.evidence"
	NotificationDisputeResolved  = "dispute.resolved"
	NotificationWithdrawal       = "withdrawal.processed"
)

// NotificationIntent намерение уведомить пользователя.
// Оркестратор возвращает список намерений после каждого действия; доставка
// выполняется отдельно и не откатывает уже применённое изменение состояния.
type NotificationIntent struct {
	UserID  uuid.UUID `json:"user_id"`
	Event   string    `json:"event"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	LinkURL string    `json:"link_url,omitempty"`
}

// Notification сохранённое уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
