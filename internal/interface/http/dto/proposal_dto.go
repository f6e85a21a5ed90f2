package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
)

// ProposalRequest используется и при создании, и при редактировании предложения.
// Суммы принимаются строкой или числом и хранятся без потерь точности.
type ProposalRequest struct {
	Name              string           `json:"name" binding:"required"`
	Description       string           `json:"description"`
	StartDate         *string          `json:"start_date"`
	EndDate           *string          `json:"end_date"`
	Price             decimal.Decimal  `json:"price"`
	ImpressionsTarget int64            `json:"impressions_target" binding:"gte=0"`
	Budget            *decimal.Decimal `json:"budget"`
	AuctionType       string           `json:"auction_type" binding:"required"`
	Terms             string           `json:"terms"`
	SectionIDs        []int64          `json:"section_ids" binding:"required,min=1"`
}

func (r ProposalRequest) ToFields() (entity.ProposalFields, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return entity.ProposalFields{}, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return entity.ProposalFields{}, err
	}
	return entity.ProposalFields{
		Name:              r.Name,
		Description:       r.Description,
		StartDate:         start,
		EndDate:           end,
		Price:             r.Price,
		ImpressionsTarget: r.ImpressionsTarget,
		Budget:            r.Budget,
		AuctionType:       r.AuctionType,
		Terms:             r.Terms,
		SectionIDs:        r.SectionIDs,
	}, nil
}

type ProposalResponse struct {
	ID                uuid.UUID        `json:"id"`
	OwnerID           uuid.UUID        `json:"owner_id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Status            string           `json:"status"`
	StartDate         *time.Time       `json:"start_date"`
	EndDate           *time.Time       `json:"end_date"`
	Price             decimal.Decimal  `json:"price"`
	Currency          string           `json:"currency"`
	ImpressionsTarget int64            `json:"impressions_target"`
	Budget            *decimal.Decimal `json:"budget"`
	AuctionType       string           `json:"auction_type"`
	Terms             string           `json:"terms"`
	SectionIDs        []int64          `json:"section_ids"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func ToProposalResponse(p *entity.Proposal) ProposalResponse {
	resp := ProposalResponse{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Name:              p.Name,
		Description:       p.Description,
		Status:            string(p.Status),
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Price:             p.Price.Amount,
		Currency:          p.Price.Currency,
		ImpressionsTarget: p.ImpressionsTarget,
		AuctionType:       string(p.AuctionType),
		Terms:             p.Terms,
		SectionIDs:        p.SectionIDs.Int64s(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Budget != nil {
		budget := p.Budget.Amount
		resp.Budget = &budget
	}
	return resp
}

func ToProposalResponses(proposals []*entity.Proposal) []ProposalResponse {
	responses := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		responses = append(responses, ToProposalResponse(p))
	}
	return responses
}

// DeleteProposalResponse перечисляет переговоры, закрытые вместе с предложением.
type DeleteProposalResponse struct {
	Proposal     ProposalResponse      `json:"proposal"`
	Negotiations []NegotiationResponse `json:"negotiations"`
}

func ToDeleteProposalResponse(res *deal.DeleteProposalResult) DeleteProposalResponse {
	return DeleteProposalResponse{
		Proposal:     ToProposalResponse(res.Proposal),
		Negotiations: ToNegotiationResponses(res.Negotiations),
	}
}
