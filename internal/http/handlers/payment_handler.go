package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/prolink-backend/internal/dto"
	"github.com/ignatzorin/prolink-backend/internal/gateway"
	"github.com/ignatzorin/prolink-backend/internal/http/handlers/common"
	"github.com/ignatzorin/prolink-backend/internal/logger"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
	"github.com/ignatzorin/prolink-backend/internal/service"
)

// PaymentHandler создание checkout-сессий и приём вебхуков платёжного шлюза.
type PaymentHandler struct {
	svc        *service.EngagementService
	gw         *gateway.Client
	successURL string
	cancelURL  string
}

// NewPaymentHandler создаёт платёжный хэндлер.
func NewPaymentHandler(svc *service.EngagementService, gw *gateway.Client, successURL, cancelURL string) *PaymentHandler {
	return &PaymentHandler{svc: svc, gw: gw, successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckout POST /requests/:id/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		common.RespondBadRequest(c, err.Error())
		return
	}
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = h.successURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = h.cancelURL
	}

	session, err := h.svc.CreateCheckout(c.Request.Context(), userID, requestID, successURL, cancelURL)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.CheckoutResponse{
		SessionID:   session.ID,
		CheckoutURL: session.CheckoutURL,
	})
}

// Webhook POST /payments/webhook
// Шлюз повторяет доставку при не-2xx ответе, поэтому события, которые ядро не
// обрабатывает, подтверждаются сразу.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело вебхука")
		return
	}

	signature := c.GetHeader("Paymongo-Signature")
	if err := h.gw.VerifyWebhookSignature(payload, signature); err != nil {
		c.Error(err)
		return
	}

	event, err := gateway.ParseWebhookEvent(payload)
	if err != nil {
		c.Error(err)
		return
	}

	switch event.Type {
	case gateway.EventPaymentPaid, gateway.EventPaymentFailed:
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	requestID, err := h.svc.RequestIDByGatewayReference(c.Request.Context(), event.Reference)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Сессия не из нашего ядра: подтверждаем, чтобы шлюз не ретраил.
			logger.Log.WithField("reference", event.Reference).
				Warn("вебхук по неизвестной checkout-сессии")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		c.Error(err)
		return
	}

	if event.Type == gateway.EventPaymentPaid {
		_, _, err = h.svc.ConfirmPayment(c.Request.Context(), requestID, event.Reference)
	} else {
		_, _, err = h.svc.FailPayment(c.Request.Context(), requestID)
	}
	if err != nil {
		// Повторная доставка уже применённого события упирается в guard:
		// подтверждаем, чтобы шлюз прекратил ретраи.
		if apperror.IsInvalidTransition(err) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
