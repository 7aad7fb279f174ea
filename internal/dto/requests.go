package dto

// CreateRequestRequest тело запроса на создание заявки.
type CreateRequestRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Price         *string  `json:"price"`
	TimelineDays  int      `json:"timeline_days" binding:"required,gt=0"`
	AttachedFiles []string `json:"attached_files"`
}

// UpdateRequestRequest тело запроса на изменение заявки (частичное).
type UpdateRequestRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Price        *string `json:"price"`
	TimelineDays *int    `json:"timeline_days"`
}

// AcceptRequestRequest фиксация цены специалистом при принятии заявки.
type AcceptRequestRequest struct {
	Price string `json:"price" binding:"required"`
}

// SubmitWorkRequest сдача результата работы.
type SubmitWorkRequest struct {
	Files []string `json:"files" binding:"required,min=1"`
	Notes *string  `json:"notes"`
}

// RequestRevisionRequest запрос доработки.
type RequestRevisionRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// OpenDisputeRequest открытие спора клиентом.
type OpenDisputeRequest struct {
	Reason string   `json:"reason" binding:"required"`
	Files  []string `json:"files"`
}

// SubmitEvidenceRequest контрдоказательства специалиста.
type SubmitEvidenceRequest struct {
	Evidence string   `json:"evidence" binding:"required"`
	Files    []string `json:"files"`
}

// ResolveDisputeRequest решение администратора по спору.
type ResolveDisputeRequest struct {
	Outcome      string  `json:"outcome" binding:"required"`
	Notes        string  `json:"notes" binding:"required"`
	RefundAmount *string `json:"refund_amount"`
}

// CreateCheckoutRequest создание checkout-сессии для оплаты заявки.
type CreateCheckoutRequest struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CreateWithdrawalRequest заявка специалиста на вывод средств.
type CreateWithdrawalRequest struct {
	Amount        string  `json:"amount" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	AccountNumber string  `json:"account_number" binding:"required"`
	AccountName   *string `json:"account_name"`
}

// RejectWithdrawalRequest отклонение вывода администратором.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required"`
}
