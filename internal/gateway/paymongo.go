// Package gateway содержит тонкий клиент платёжного шлюза (PayMongo-совместимый
// API): создание checkout-сессии, запрос статуса платежа и проверка подписи
// вебхуков. Ошибки шлюза никогда не меняют состояние ядра.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
)

// Типы событий вебхука, которые обрабатывает ядро.
const (
	EventPaymentPaid   = "checkout_session.payment.paid"
	EventPaymentFailed = "checkout_session.payment.failed"
)

// Client клиент платёжного шлюза.
type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL, secretKey, webhookSecret string) *Client {
	if baseURL == "" {
		baseURL = "https://api.paymongo.com/v1"
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckoutParams параметры создания checkout-сессии.
type CheckoutParams struct {
	ReferenceID string // идентификатор заявки на нашей стороне
	Description string
	Amount      decimal.Decimal
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession созданная сессия оплаты.
type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckoutSession создаёт checkout-сессию на сумму заявки.
// Сумма передаётся шлюзу в минимальных единицах валюты (центах).
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	currency := p.Currency
	if currency == "" {
		currency = "PHP"
	}

	payload := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"reference_number":     p.ReferenceID,
				"description":          p.Description,
				"success_url":          p.SuccessURL,
				"cancel_url":           p.CancelURL,
				"send_email_receipt":   false,
				"show_line_items":      true,
				"payment_method_types": []string{"card", "gcash", "paymaya"},
				"line_items": []map[string]any{
					{
						"name":     p.Description,
						"amount":   p.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
						"currency": currency,
						"quantity": 1,
					},
				},
			},
		},
	}

	var result struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				CheckoutURL string `json:"checkout_url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkout_sessions", payload, &result); err != nil {
		return nil, err
	}
	if result.Data.ID == "" {
		return nil, apperror.New(apperror.ErrCodeExternalService, "платёжный шлюз вернул пустой ответ")
	}

	return &CheckoutSession{
		ID:          result.Data.ID,
		CheckoutURL: result.Data.Attributes.CheckoutURL,
	}, nil
}

// GetPaymentStatus возвращает статус платежа по идентификатору сессии.
func (c *Client) GetPaymentStatus(ctx context.Context, sessionID string) (string, error) {
	var result struct {
		Data struct {
			Attributes struct {
				PaymentIntent struct {
					Attributes struct {
						Status string `json:"status"`
					} `json:"attributes"`
				} `json:"payment_intent"`
				Payments []struct {
					Attributes struct {
						Status string `json:"status"`
					} `json:"attributes"`
				} `json:"payments"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/checkout_sessions/"+sessionID, nil, &result); err != nil {
		return "", err
	}

	if len(result.Data.Attributes.Payments) > 0 {
		return result.Data.Attributes.Payments[0].Attributes.Status, nil
	}
	return result.Data.Attributes.PaymentIntent.Attributes.Status, nil
}

// VerifyWebhookSignature проверяет подпись вебхука.
// Заголовок имеет вид "t=<timestamp>,te=<test-sig>,li=<live-sig>"; подпись
// считается как HMAC-SHA256(secret, "<timestamp>.<payload>").
func (c *Client) VerifyWebhookSignature(payload []byte, header string) error {
	if c.webhookSecret == "" {
		return apperror.New(apperror.ErrCodeInternal, "секрет вебхука не настроен")
	}

	var timestamp, testSig, liveSig string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "te":
			testSig = value
		case "li":
			liveSig = value
		}
	}
	if timestamp == "" {
		return apperror.New(apperror.ErrCodeUnauthorized, "некорректный заголовок подписи вебхука")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if hmac.Equal([]byte(expected), []byte(liveSig)) || hmac.Equal([]byte(expected), []byte(testSig)) {
		return nil
	}
	return apperror.New(apperror.ErrCodeUnauthorized, "подпись вебхука не прошла проверку")
}

// WebhookEvent разобранное событие вебхука.
type WebhookEvent struct {
	Type      string // см. EventPayment*
	Reference string // идентификатор checkout-сессии
}

// ParseWebhookEvent извлекает тип события и ссылку на сессию из тела вебхука.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var body struct {
		Data struct {
			Attributes struct {
				Type string `json:"type"`
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось разобрать тело вебхука")
	}
	if body.Data.Attributes.Type == "" || body.Data.Attributes.Data.ID == "" {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "вебхук без типа события или ссылки на сессию")
	}
	return &WebhookEvent{
		Type:      body.Data.Attributes.Type,
		Reference: body.Data.Attributes.Data.ID,
	}, nil
}

// do выполняет HTTP-запрос к шлюзу и декодирует ответ.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var reqBody *bytes.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("gateway: marshal %w", err)
		}
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("gateway: new request %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeExternalService, "платёжный шлюз недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errorBody)
		return apperror.Wrap(
			fmt.Errorf("gateway: код ответа %d: %v", resp.StatusCode, errorBody),
			apperror.ErrCodeExternalService,
			"платёжный шлюз отклонил запрос",
		)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeExternalService, "не удалось разобрать ответ шлюза")
		}
	}
	return nil
}
