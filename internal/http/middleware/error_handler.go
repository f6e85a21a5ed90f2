package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/logger"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// ErrorHandler отвечает за ошибки, добавленные через c.Error, если обработчик сам ничего не записал.
// Серверные ошибки логируются с путём и методом.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   apperror.CodeOf(err),
		})
		switch apperror.CodeOf(err) {
		case apperror.ErrCodeInternal, apperror.ErrCodeStoreUnavailable:
			entry.Error("ошибка запроса")
		default:
			entry.Debug("ошибка запроса")
		}

		if !c.Writer.Written() {
			response.Error(c, err)
		}
	}
}
