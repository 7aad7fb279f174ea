package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"
	ErrCodeAlreadyResolved   ErrorCode = "ALREADY_RESOLVED"
	ErrCodeExternalService   ErrorCode = "EXTERNAL_SERVICE"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error

	// Заполняются для INVALID_TRANSITION: в каком состоянии находился
	// агрегат и какое действие было запрошено.
	CurrentState string
	Action       string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// InvalidTransition создаёт ошибку запрещённого перехода с диагностикой:
// текущее состояние и запрошенное действие попадают и в сообщение, и в поля.
func InvalidTransition(action, currentState string) *AppError {
	e := New(ErrCodeInvalidTransition,
		fmt.Sprintf("действие %q недоступно: текущий статус %q", action, currentState))
	e.CurrentState = currentState
	e.Action = action
	return e
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeAlreadyExists, ErrCodeAlreadyResolved:
		return http.StatusConflict
	case ErrCodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool          { return is(err, ErrCodeNotFound) }
func IsForbidden(err error) bool         { return is(err, ErrCodeForbidden) }
func IsValidation(err error) bool        { return is(err, ErrCodeValidation) }
func IsInvalidTransition(err error) bool { return is(err, ErrCodeInvalidTransition) }
func IsAlreadyExists(err error) bool     { return is(err, ErrCodeAlreadyExists) }
func IsAlreadyResolved(err error) bool   { return is(err, ErrCodeAlreadyResolved) }
func IsExternalService(err error) bool   { return is(err, ErrCodeExternalService) }

var (
	ErrRequestNotFound      = New(ErrCodeNotFound, "заявка не найдена")
	ErrTransactionNotFound  = New(ErrCodeNotFound, "транзакция не найдена")
	ErrDisputeNotFound      = New(ErrCodeNotFound, "спор не найден")
	ErrWithdrawalNotFound   = New(ErrCodeNotFound, "заявка на вывод не найдена")
	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")
)
