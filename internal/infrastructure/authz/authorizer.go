// Package authz отвечает на вопрос «принадлежит ли сущность пользователю» по данным хранилища.
package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

type StoreAuthorizer struct {
	proposals    repository.ProposalRepository
	negotiations repository.NegotiationRepository
	deals        repository.SettledDealRepository
}

var _ repository.Authorizer = (*StoreAuthorizer)(nil)

func NewStoreAuthorizer(
	proposals repository.ProposalRepository,
	negotiations repository.NegotiationRepository,
	deals repository.SettledDealRepository,
) *StoreAuthorizer {
	return &StoreAuthorizer{proposals: proposals, negotiations: negotiations, deals: deals}
}

// ActorOwns возвращает NOT_FOUND, если сущности нет, и false, если она чужая.
func (a *StoreAuthorizer) ActorOwns(ctx context.Context, entityType repository.EntityType, entityID, actorID uuid.UUID) (bool, error) {
	switch entityType {
	case repository.EntityProposal:
		p, err := a.proposals.FindByID(ctx, entityID)
		if err != nil {
			return false, err
		}
		return p.IsOwnedBy(actorID), nil
	case repository.EntityNegotiation:
		n, err := a.negotiations.FindByID(ctx, entityID)
		if err != nil {
			return false, err
		}
		return n.IsParticipant(actorID), nil
	case repository.EntityDeal:
		d, err := a.deals.FindByID(ctx, entityID)
		if err != nil {
			return false, err
		}
		return d.IsOwnedBy(actorID), nil
	}
	return false, apperror.New(apperror.ErrCodeValidation, "неизвестный тип сущности")
}
