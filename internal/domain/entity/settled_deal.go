package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

const DefaultDealPriority = 5

// SettledDeal: итог взаимно принятых переговоров.
// NegotiationID служит только ссылкой на происхождение; статус сделки живёт независимо.
type SettledDeal struct {
	ID            uuid.UUID
	PublisherID   uuid.UUID
	DSPID         string
	Name          string
	AuctionType   valueobject.AuctionType
	Rate          valueobject.Money
	Status        valueobject.DealStatus
	StartDate     *time.Time
	EndDate       *time.Time
	Terms         string
	ExternalID    string
	Priority      int
	SectionIDs    valueobject.SectionSet
	NegotiationID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSettledDeal снимает итоговые условия переговоров в новую сделку и сразу активирует её.
func NewSettledDeal(proposal *Proposal, negotiation *Negotiation, dspID, externalID string) (*SettledDeal, error) {
	if !negotiation.IsMutuallyAccepted() {
		return nil, apperror.New(apperror.ErrCodeConflict, "переговоры не приняты обеими сторонами")
	}
	if negotiation.ProposalID != proposal.ID {
		return nil, apperror.New(apperror.ErrCodeValidation, "переговоры относятся к другому предложению")
	}
	if externalID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "внешний идентификатор сделки обязателен")
	}

	terms := negotiation.EffectiveTerms(proposal)
	now := time.Now()
	deal := &SettledDeal{
		ID:            uuid.New(),
		PublisherID:   negotiation.PublisherID,
		DSPID:         dspID,
		Name:          proposal.Name,
		AuctionType:   proposal.AuctionType,
		Rate:          terms.Price,
		Status:        valueobject.DealStatusNew,
		StartDate:     terms.StartDate,
		EndDate:       terms.EndDate,
		Terms:         terms.Terms,
		ExternalID:    externalID,
		Priority:      DefaultDealPriority,
		SectionIDs:    proposal.SectionIDs.Clone(),
		NegotiationID: negotiation.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := deal.ChangeStatus(valueobject.DealStatusActive); err != nil {
		return nil, err
	}
	return deal, nil
}

// ChangeStatus меняет статус сделки. Возвращает false, если статус не изменился.
func (d *SettledDeal) ChangeStatus(status valueobject.DealStatus) (bool, error) {
	if !status.IsValid() {
		return false, apperror.New(apperror.ErrCodeValidation, "некорректный статус сделки")
	}
	if d.Status == status {
		return false, nil
	}
	if !d.Status.CanTransitionTo(status) {
		return false, apperror.New(apperror.ErrCodeForbidden, "удалённую сделку нельзя восстановить")
	}
	d.Status = status
	d.UpdatedAt = time.Now()
	return true, nil
}

func (d *SettledDeal) IsOwnedBy(userID uuid.UUID) bool {
	return d.PublisherID == userID
}
