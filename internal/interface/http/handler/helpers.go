package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/http/middleware"
	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// actor возвращает пользователя запроса; при его отсутствии уже ответил 401.
func actor(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.ActorID(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
	}
	return id, ok
}

// pathUUID разбирает параметр пути; при ошибке уже ответил 400.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "некорректный параметр "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func pageFromQuery(c *gin.Context) proposal.Page {
	limit := parseIntQuery(c, "limit", defaultPageLimit)
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return proposal.Page{Limit: limit, Offset: offset}
}

type statusChange func(ctx context.Context, proposalID, actorID uuid.UUID) (*entity.Proposal, error)
