package deal

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

const (
	EventNegotiationUpdated = "negotiation.updated"
	EventProposalDeleted    = "proposal.deleted"
	EventDealSettled        = "deal.settled"
	EventDealStatusChanged  = "deal.status_changed"
)

// Notifier доставляет событие пользователю. Ошибка доставки не влияет на результат операции.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// NegotiationEvent: краткое состояние переговоров; клиент перечитывает детали сам.
type NegotiationEvent struct {
	NegotiationID uuid.UUID `json:"negotiation_id"`
	ProposalID    uuid.UUID `json:"proposal_id"`
	Sender        string    `json:"sender"`
	Turn          string    `json:"turn"`
	OwnerStatus   string    `json:"owner_status"`
	PartnerStatus string    `json:"partner_status"`
	Version       int64     `json:"version"`
}

type DealEvent struct {
	DealID        uuid.UUID `json:"deal_id"`
	NegotiationID uuid.UUID `json:"negotiation_id"`
	ExternalID    string    `json:"external_id"`
	Status        string    `json:"status"`
}

func newNegotiationEvent(n *entity.Negotiation) NegotiationEvent {
	return NegotiationEvent{
		NegotiationID: n.ID,
		ProposalID:    n.ProposalID,
		Sender:        string(n.Sender),
		Turn:          string(n.Turn()),
		OwnerStatus:   string(n.OwnerStatus),
		PartnerStatus: string(n.PartnerStatus),
		Version:       n.Version,
	}
}

func newDealEvent(d *entity.SettledDeal) DealEvent {
	return DealEvent{
		DealID:        d.ID,
		NegotiationID: d.NegotiationID,
		ExternalID:    d.ExternalID,
		Status:        string(d.Status),
	}
}
