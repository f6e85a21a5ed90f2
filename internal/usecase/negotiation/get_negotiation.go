package negotiation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// Get доступен только участникам переговоров.
func (l *Lifecycle) Get(ctx context.Context, negotiationID, actorID uuid.UUID) (*entity.Negotiation, error) {
	n, err := l.negotiations.FindByID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if !n.IsParticipant(actorID) {
		return nil, apperror.ErrForbidden
	}
	return n, nil
}

// ListForProposal: владелец предложения видит все переговоры, покупатель только свои.
func (l *Lifecycle) ListForProposal(ctx context.Context, proposalID, actorID uuid.UUID) ([]*entity.Negotiation, error) {
	proposal, err := l.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	all, err := l.negotiations.FindByProposalID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.IsOwnedBy(actorID) {
		return all, nil
	}

	own := make([]*entity.Negotiation, 0, 1)
	for _, n := range all {
		if n.BuyerID == actorID {
			own = append(own, n)
		}
	}
	return own, nil
}

func (l *Lifecycle) ListMine(ctx context.Context, actorID uuid.UUID) ([]*entity.Negotiation, error) {
	return l.negotiations.FindByParticipant(ctx, actorID)
}
