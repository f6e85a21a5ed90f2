package settlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// Lifecycle превращает взаимно принятые переговоры в сделку и ведёт статус сделки дальше.
type Lifecycle struct {
	proposals repository.ProposalRepository
	deals     repository.SettledDealRepository
	buyers    repository.BuyerRepository
}

func NewLifecycle(
	proposals repository.ProposalRepository,
	deals repository.SettledDealRepository,
	buyers repository.BuyerRepository,
) *Lifecycle {
	return &Lifecycle{proposals: proposals, deals: deals, buyers: buyers}
}

// Settle создаёт сделку по переговорам. Не более одной сделки на переговоры:
// повторная попытка завершается CONFLICT.
func (l *Lifecycle) Settle(ctx context.Context, negotiation *entity.Negotiation) (*entity.SettledDeal, error) {
	if !negotiation.IsMutuallyAccepted() {
		return nil, apperror.New(apperror.ErrCodeConflict, "переговоры не приняты обеими сторонами")
	}
	existing, err := l.deals.FindByNegotiationID(ctx, negotiation.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAlreadySettled
	}

	proposal, err := l.proposals.FindByID(ctx, negotiation.ProposalID)
	if err != nil {
		return nil, err
	}
	dspID, err := l.buyers.FindDSPID(ctx, negotiation.BuyerID)
	if err != nil {
		return nil, err
	}

	deal, err := entity.NewSettledDeal(proposal, negotiation, dspID, ExternalID(negotiation.ID))
	if err != nil {
		return nil, err
	}
	if err := l.deals.Create(ctx, deal); err != nil {
		return nil, err
	}
	return deal, nil
}

// FindByNegotiation возвращает nil, nil, если сделки по переговорам нет.
func (l *Lifecycle) FindByNegotiation(ctx context.Context, negotiationID uuid.UUID) (*entity.SettledDeal, error) {
	return l.deals.FindByNegotiationID(ctx, negotiationID)
}

// UpdateStatus меняет статус сделки. Только паблишер; удалённую сделку восстановить нельзя.
// Второй результат ложен, если статус уже был таким.
func (l *Lifecycle) UpdateStatus(ctx context.Context, dealID uuid.UUID, status string, actorID uuid.UUID) (*entity.SettledDeal, bool, error) {
	target, err := valueobject.NewDealStatus(status)
	if err != nil {
		return nil, false, err
	}
	deal, err := l.deals.FindByID(ctx, dealID)
	if err != nil {
		return nil, false, err
	}
	if !deal.IsOwnedBy(actorID) {
		return nil, false, apperror.ErrForbidden
	}

	changed, err := deal.ChangeStatus(target)
	if err != nil {
		return nil, false, err
	}
	if changed {
		if err := l.deals.Update(ctx, deal); err != nil {
			return nil, false, err
		}
	}
	return deal, changed, nil
}

func (l *Lifecycle) Get(ctx context.Context, dealID, actorID uuid.UUID) (*entity.SettledDeal, error) {
	deal, err := l.deals.FindByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsOwnedBy(actorID) {
		return nil, apperror.ErrForbidden
	}
	return deal, nil
}

func (l *Lifecycle) List(ctx context.Context, publisherID uuid.UUID) ([]*entity.SettledDeal, error) {
	return l.deals.FindByPublisherID(ctx, publisherID)
}
