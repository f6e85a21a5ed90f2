package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

type UpdateDealStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type DealResponse struct {
	ID            uuid.UUID       `json:"id"`
	PublisherID   uuid.UUID       `json:"publisher_id"`
	DSPID         string          `json:"dsp_id"`
	Name          string          `json:"name"`
	AuctionType   string          `json:"auction_type"`
	Rate          decimal.Decimal `json:"rate"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	Terms         string          `json:"terms"`
	ExternalID    string          `json:"external_id"`
	Priority      int             `json:"priority"`
	SectionIDs    []int64         `json:"section_ids"`
	NegotiationID uuid.UUID       `json:"negotiation_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func ToDealResponse(d *entity.SettledDeal) DealResponse {
	return DealResponse{
		ID:            d.ID,
		PublisherID:   d.PublisherID,
		DSPID:         d.DSPID,
		Name:          d.Name,
		AuctionType:   string(d.AuctionType),
		Rate:          d.Rate.Amount,
		Currency:      d.Rate.Currency,
		Status:        string(d.Status),
		StartDate:     d.StartDate,
		EndDate:       d.EndDate,
		Terms:         d.Terms,
		ExternalID:    d.ExternalID,
		Priority:      d.Priority,
		SectionIDs:    d.SectionIDs.Int64s(),
		NegotiationID: d.NegotiationID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func ToDealResponses(deals []*entity.SettledDeal) []DealResponse {
	responses := make([]DealResponse, 0, len(deals))
	for _, d := range deals {
		responses = append(responses, ToDealResponse(d))
	}
	return responses
}
