package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// RequireOwnership пропускает запрос, только если сущность из параметра пути принадлежит актору.
// Ставится после AuthMiddleware и UUIDValidator.
func RequireOwnership(authz repository.Authorizer, entityType repository.EntityType, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := ActorID(c)
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			c.Abort()
			return
		}
		entityID, err := uuid.Parse(c.Param(param))
		if err != nil {
			response.BadRequest(c, "параметр "+param+" должен быть валидным UUID")
			c.Abort()
			return
		}

		owns, err := authz.ActorOwns(c.Request.Context(), entityType, entityID, actorID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !owns {
			response.Error(c, apperror.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
