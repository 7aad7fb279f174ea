package models

// RequestStatus статус заявки на услугу.
type RequestStatus string

const (
	RequestStatusPending           RequestStatus = "pending"
	RequestStatusAwaitingPayment   RequestStatus = "awaiting_payment"
	RequestStatusInProgress        RequestStatus = "in_progress"
	RequestStatusUnderReview       RequestStatus = "under_review"
	RequestStatusRevisionRequested RequestStatus = "revision_requested"
	RequestStatusCompleted         RequestStatus = "completed"
	RequestStatusCancelled         RequestStatus = "cancelled"
	RequestStatusDeclined          RequestStatus = "declined"
	RequestStatusDisputed          RequestStatus = "disputed"
)

// requestTransitions единственное место, где описаны допустимые переходы заявки.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:           {RequestStatusAwaitingPayment, RequestStatusDeclined, RequestStatusCancelled},
	RequestStatusAwaitingPayment:   {RequestStatusInProgress, RequestStatusCancelled},
	RequestStatusInProgress:        {RequestStatusUnderReview, RequestStatusDisputed},
	RequestStatusUnderReview:       {RequestStatusCompleted, RequestStatusRevisionRequested, RequestStatusDisputed},
	RequestStatusRevisionRequested: {RequestStatusUnderReview, RequestStatusDisputed},
	RequestStatusDisputed:          {RequestStatusCompleted},
	RequestStatusCompleted:         {},
	RequestStatusCancelled:         {},
	RequestStatusDeclined:          {},
}

func (s RequestStatus) IsValid() bool {
	_, ok := requestTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s RequestStatus) IsTerminal() bool {
	return len(requestTransitions[s]) == 0 && s.IsValid()
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransactionStatus статус escrow-транзакции.
type TransactionStatus string

const (
	TransactionStatusPendingPayment  TransactionStatus = "pending_payment"
	TransactionStatusEscrowed        TransactionStatus = "escrowed"
	TransactionStatusPendingApproval TransactionStatus = "pending_approval"
	TransactionStatusCompleted       TransactionStatus = "completed"
	TransactionStatusFailed          TransactionStatus = "failed"
	TransactionStatusRefunded        TransactionStatus = "refunded"
	TransactionStatusDisputed        TransactionStatus = "disputed"
)

// transactionTransitions: после первой отправки работы транзакция остаётся в
// pending_approval при повторных отправках и не возвращается в escrowed.
var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPendingPayment:  {TransactionStatusEscrowed, TransactionStatusFailed},
	TransactionStatusEscrowed:        {TransactionStatusPendingApproval, TransactionStatusDisputed},
	TransactionStatusPendingApproval: {TransactionStatusCompleted, TransactionStatusDisputed},
	TransactionStatusDisputed:        {TransactionStatusCompleted, TransactionStatusRefunded},
	TransactionStatusCompleted:       {},
	TransactionStatusFailed:          {},
	TransactionStatusRefunded:        {},
}

func (s TransactionStatus) IsValid() bool {
	_, ok := transactionTransitions[s]
	return ok
}

func (s TransactionStatus) IsTerminal() bool {
	return len(transactionTransitions[s]) == 0 && s.IsValid()
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Disputable сообщает, можно ли открыть спор при текущем статусе транзакции.
func (s TransactionStatus) Disputable() bool {
	return s == TransactionStatusEscrowed || s == TransactionStatusPendingApproval
}

// DisputeStatus статус спора.
type DisputeStatus string

const (
	DisputeStatusOpen                 DisputeStatus = "open"
	DisputeStatusUnderReview          DisputeStatus = "under_review"
	DisputeStatusResolvedClient       DisputeStatus = "resolved_client"
	DisputeStatusResolvedProfessional DisputeStatus = "resolved_professional"
	DisputeStatusResolvedPartial      DisputeStatus = "resolved_partial"
	DisputeStatusClosed               DisputeStatus = "closed"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen: {
		DisputeStatusUnderReview,
		DisputeStatusResolvedClient, DisputeStatusResolvedProfessional, DisputeStatusResolvedPartial, DisputeStatusClosed,
	},
	DisputeStatusUnderReview: {
		DisputeStatusResolvedClient, DisputeStatusResolvedProfessional, DisputeStatusResolvedPartial, DisputeStatusClosed,
	},
	DisputeStatusResolvedClient:       {},
	DisputeStatusResolvedProfessional: {},
	DisputeStatusResolvedPartial:      {},
	DisputeStatusClosed:               {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

// IsResolved сообщает, что спор уже получил окончательное решение.
func (s DisputeStatus) IsResolved() bool {
	return len(disputeTransitions[s]) == 0 && s.IsValid()
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	for _, allowed := range disputeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DisputeOutcome итог решения спора администратором.
type DisputeOutcome = DisputeStatus

// ValidDisputeOutcomes итоги, которые администратор может выбрать при решении спора.
var ValidDisputeOutcomes = map[DisputeOutcome]struct{}{
	DisputeStatusResolvedClient:       {},
	DisputeStatusResolvedProfessional: {},
	DisputeStatusResolvedPartial:      {},
	DisputeStatusClosed:               {},
}

// WithdrawalStatus статус заявки на вывод средств.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

// Роли участников.
const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)
