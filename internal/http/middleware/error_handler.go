package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/prolink-backend/internal/logger"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно: хэндлеры кладут ошибку в
// контекст через c.Error, а middleware переводит её в HTTP ответ. Внутренние
// ошибки маскируются, доменные возвращаются с кодом и сообщением.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			fields := logrus.Fields{
				"code":   appErr.Code,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}
			if appErr.CurrentState != "" {
				fields["state"] = appErr.CurrentState
				fields["action"] = appErr.Action
			}

			if appErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Log.WithFields(fields).WithError(err).Error("ошибка обработки запроса")
				c.JSON(appErr.HTTPStatus, gin.H{
					"error": "внутренняя ошибка сервера",
					"code":  appErr.Code,
				})
				return
			}

			logger.Log.WithFields(fields).Info(appErr.Message)
			body := gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			}
			if appErr.CurrentState != "" {
				body["current_state"] = appErr.CurrentState
				body["action"] = appErr.Action
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Log.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).WithError(err).Error("необработанная ошибка")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
	}
}
