package proposal

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

func (l *Lifecycle) Pause(ctx context.Context, proposalID, actorID uuid.UUID) (*entity.Proposal, error) {
	return l.changeStatus(ctx, proposalID, actorID, (*entity.Proposal).Pause)
}

func (l *Lifecycle) Resume(ctx context.Context, proposalID, actorID uuid.UUID) (*entity.Proposal, error) {
	return l.changeStatus(ctx, proposalID, actorID, (*entity.Proposal).Resume)
}

func (l *Lifecycle) changeStatus(ctx context.Context, proposalID, actorID uuid.UUID, apply func(*entity.Proposal) error) (*entity.Proposal, error) {
	var proposal *entity.Proposal
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := l.lockOwned(ctx, proposalID, actorID)
		if err != nil {
			return err
		}
		if err := apply(p); err != nil {
			return err
		}
		if err := l.proposals.Update(ctx, p); err != nil {
			return err
		}
		proposal = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Delete удаляет предложение и в той же транзакции закрывает сторону паблишера
// во всех неурегулированных переговорах. Истёкшее предложение удаляется как обычно.
// Возвращает удалённое предложение и переговоры, у которых изменился ownerStatus.
func (l *Lifecycle) Delete(ctx context.Context, proposalID, actorID uuid.UUID) (*entity.Proposal, []*entity.Negotiation, error) {
	var (
		proposal     *entity.Proposal
		negotiations []*entity.Negotiation
	)
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := l.lockOwned(ctx, proposalID, actorID)
		if err != nil {
			return err
		}
		if err := p.Delete(); err != nil {
			return err
		}
		if err := l.proposals.Update(ctx, p); err != nil {
			return err
		}

		changed, err := l.cascade.CascadeOwnerDeleted(ctx, p.ID)
		if err != nil {
			return err
		}
		proposal, negotiations = p, changed
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return proposal, negotiations, nil
}
