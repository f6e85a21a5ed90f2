package proposal

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

type Page struct {
	Limit  int
	Offset int
}

// Get возвращает предложение. Чужие удалённые предложения не видны.
func (l *Lifecycle) Get(ctx context.Context, proposalID, actorID uuid.UUID) (*entity.Proposal, error) {
	p, err := l.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() && !p.IsOwnedBy(actorID) {
		return nil, apperror.ErrProposalNotFound
	}
	return p, nil
}

func (l *Lifecycle) ListMine(ctx context.Context, ownerID uuid.UUID, page Page) ([]*entity.Proposal, error) {
	return l.proposals.List(ctx, repository.ProposalFilter{
		OwnerID: &ownerID,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

// ListVisible возвращает покупателям активные и не истёкшие предложения.
func (l *Lifecycle) ListVisible(ctx context.Context, page Page) ([]*entity.Proposal, error) {
	now := l.now()
	return l.proposals.List(ctx, repository.ProposalFilter{
		Statuses:     []string{string(valueobject.ProposalStatusActive)},
		NotExpiredAt: &now,
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
}
