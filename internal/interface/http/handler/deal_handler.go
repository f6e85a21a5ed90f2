package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/deals-backend/internal/interface/http/dto"
	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/settlement"
)

type DealHandler struct {
	orchestrator *deal.Orchestrator
	deals        *settlement.Lifecycle
}

func NewDealHandler(orchestrator *deal.Orchestrator, deals *settlement.Lifecycle) *DealHandler {
	return &DealHandler{orchestrator: orchestrator, deals: deals}
}

func (h *DealHandler) List(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	deals, err := h.deals.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDealResponses(deals))
}

func (h *DealHandler) Get(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	dealID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.deals.Get(c.Request.Context(), dealID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDealResponse(d))
}

func (h *DealHandler) UpdateStatus(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	dealID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateDealStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	d, err := h.orchestrator.UpdateDealStatus(c.Request.Context(), dealID, req.Status, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDealResponse(d))
}
