package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/deals-backend/internal/interface/http/dto"
	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/negotiation"
)

type NegotiationHandler struct {
	orchestrator *deal.Orchestrator
	negotiations *negotiation.Lifecycle
}

func NewNegotiationHandler(orchestrator *deal.Orchestrator, negotiations *negotiation.Lifecycle) *NegotiationHandler {
	return &NegotiationHandler{orchestrator: orchestrator, negotiations: negotiations}
}

// ListForProposal: владелец видит все переговоры по предложению, покупатель только свои.
func (h *NegotiationHandler) ListForProposal(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	list, err := h.negotiations.ListForProposal(c.Request.Context(), proposalID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToNegotiationResponses(list))
}

// Submit обслуживает PUT /api/proposals/:id/negotiations/:buyerId.
// Ход делает автор запроса; buyerId определяет, о каких переговорах речь.
func (h *NegotiationHandler) Submit(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := pathUUID(c, "buyerId")
	if !ok {
		return
	}

	var req dto.SubmitNegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	sub, err := req.ToSubmission(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.orchestrator.SubmitNegotiation(c.Request.Context(), proposalID, buyerID, sub)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Created {
		response.Created(c, dto.ToSubmitNegotiationResponse(res))
		return
	}
	response.Success(c, dto.ToSubmitNegotiationResponse(res))
}

func (h *NegotiationHandler) ListMine(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.negotiations.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToNegotiationResponses(list))
}

func (h *NegotiationHandler) Get(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	negotiationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	n, err := h.negotiations.Get(c.Request.Context(), negotiationID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToNegotiationResponse(n))
}

// Withdraw переводит сторону автора запроса в archived или deleted.
func (h *NegotiationHandler) Withdraw(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	negotiationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.WithdrawNegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	n, err := h.orchestrator.WithdrawNegotiation(c.Request.Context(), negotiationID, userID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToNegotiationResponse(n))
}

// Settle доступен только участникам переговоров; повторный вызов возвращает ту же сделку.
func (h *NegotiationHandler) Settle(c *gin.Context) {
	if _, ok := actor(c); !ok {
		return
	}
	negotiationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.orchestrator.Settle(c.Request.Context(), negotiationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDealResponse(d))
}
