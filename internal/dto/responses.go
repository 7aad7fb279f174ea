package dto

import (
	"github.com/ignatzorin/prolink-backend/internal/models"
)

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse стандартный успешный ответ с данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RequestListResponse список заявок с метаданными пагинации.
type RequestListResponse struct {
	Requests []models.Request `json:"requests"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"has_more"`
}

// AggregateResponse заявка вместе с транзакцией и спором.
type AggregateResponse struct {
	Request     *models.Request     `json:"request"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Dispute     *models.Dispute     `json:"dispute,omitempty"`
}

// NewAggregateResponse собирает ответ из агрегата.
func NewAggregateResponse(agg *models.Aggregate) AggregateResponse {
	return AggregateResponse{
		Request:     agg.Request,
		Transaction: agg.Transaction,
		Dispute:     agg.Dispute,
	}
}

// CheckoutResponse данные созданной checkout-сессии.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// UploadResponse результат загрузки вложения.
type UploadResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// UnreadCountResponse количество непрочитанных уведомлений.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
