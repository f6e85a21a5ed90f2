package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/negotiation"
)

// SubmitNegotiationRequest: ход стороны. Незаполненные условия не меняются.
type SubmitNegotiationRequest struct {
	Position        string           `json:"position" binding:"required,oneof=active accepted rejected"`
	Price           *decimal.Decimal `json:"price"`
	StartDate       *string          `json:"start_date"`
	EndDate         *string          `json:"end_date"`
	Terms           *string          `json:"terms"`
	ExpectedVersion *int64           `json:"expected_version"`
}

func (r SubmitNegotiationRequest) ToSubmission(actorID uuid.UUID) (negotiation.Submission, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return negotiation.Submission{}, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return negotiation.Submission{}, err
	}
	return negotiation.Submission{
		ActorID:  actorID,
		Position: r.Position,
		Offer: entity.Offer{
			Price:     r.Price,
			StartDate: start,
			EndDate:   end,
			Terms:     r.Terms,
		},
		ExpectedVersion: r.ExpectedVersion,
	}, nil
}

type WithdrawNegotiationRequest struct {
	Status string `json:"status" binding:"required,oneof=archived deleted"`
}

type NegotiationResponse struct {
	ID            uuid.UUID        `json:"id"`
	ProposalID    uuid.UUID        `json:"proposal_id"`
	PublisherID   uuid.UUID        `json:"publisher_id"`
	BuyerID       uuid.UUID        `json:"buyer_id"`
	Price         *decimal.Decimal `json:"price"`
	Currency      *string          `json:"currency,omitempty"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	Terms         *string          `json:"terms"`
	Sender        string           `json:"sender"`
	Turn          string           `json:"turn"`
	OwnerStatus   string           `json:"owner_status"`
	PartnerStatus string           `json:"partner_status"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func ToNegotiationResponse(n *entity.Negotiation) NegotiationResponse {
	resp := NegotiationResponse{
		ID:            n.ID,
		ProposalID:    n.ProposalID,
		PublisherID:   n.PublisherID,
		BuyerID:       n.BuyerID,
		StartDate:     n.StartDate,
		EndDate:       n.EndDate,
		Terms:         n.Terms,
		Sender:        string(n.Sender),
		Turn:          string(n.Turn()),
		OwnerStatus:   string(n.OwnerStatus),
		PartnerStatus: string(n.PartnerStatus),
		Version:       n.Version,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
	if n.Price != nil {
		amount, currency := n.Price.Amount, n.Price.Currency
		resp.Price = &amount
		resp.Currency = &currency
	}
	return resp
}

func ToNegotiationResponses(negotiations []*entity.Negotiation) []NegotiationResponse {
	responses := make([]NegotiationResponse, 0, len(negotiations))
	for _, n := range negotiations {
		responses = append(responses, ToNegotiationResponse(n))
	}
	return responses
}

type SubmitNegotiationResponse struct {
	Negotiation NegotiationResponse `json:"negotiation"`
	Created     bool                `json:"created"`
	Deal        *DealResponse       `json:"deal,omitempty"`
}

func ToSubmitNegotiationResponse(res *deal.SubmitResult) SubmitNegotiationResponse {
	resp := SubmitNegotiationResponse{
		Negotiation: ToNegotiationResponse(res.Negotiation),
		Created:     res.Created,
	}
	if res.Deal != nil {
		d := ToDealResponse(res.Deal)
		resp.Deal = &d
	}
	return resp
}
