package proposal

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

func (l *Lifecycle) Create(ctx context.Context, ownerID uuid.UUID, fields entity.ProposalFields) (*entity.Proposal, error) {
	proposal, err := entity.NewProposal(ownerID, fields)
	if err != nil {
		return nil, err
	}

	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := l.validateSections(ctx, ownerID, proposal); err != nil {
			return err
		}
		return l.proposals.Create(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Update заменяет поля предложения. Доступно только владельцу и не для удалённых предложений.
// Открытые переговоры, чьи итоговые условия изменились, теряют статус accepted.
func (l *Lifecycle) Update(ctx context.Context, proposalID, actorID uuid.UUID, fields entity.ProposalFields) (*entity.Proposal, error) {
	var proposal *entity.Proposal
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := l.lockOwned(ctx, proposalID, actorID)
		if err != nil {
			return err
		}
		before := *p
		if err := p.Update(fields); err != nil {
			return err
		}
		if err := l.validateSections(ctx, actorID, p); err != nil {
			return err
		}
		if err := l.proposals.Update(ctx, p); err != nil {
			return err
		}
		// Принятие относится к условиям, которые сторона видела; после правки его нужно подтвердить заново.
		if _, err := l.cascade.ReviewProposalChange(ctx, &before, p); err != nil {
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
