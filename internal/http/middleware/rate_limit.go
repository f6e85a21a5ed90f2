package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает частоту запросов. Авторизованные запросы считаются
// по пользователю, остальные по IP.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actorID, ok := ActorID(c); ok {
			key = "user:" + actorID.String()
		}

		state, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			_ = c.Error(apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось проверить лимит запросов"))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			response.TooManyRequests(c, "слишком много запросов, попробуйте позже")
			c.Abort()
			return
		}
		c.Next()
	}
}
