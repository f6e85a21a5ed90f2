package proposal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// NegotiationCascade переносит изменения предложения на его открытые переговоры.
type NegotiationCascade interface {
	CascadeOwnerDeleted(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error)
	ReviewProposalChange(ctx context.Context, before, after *entity.Proposal) ([]*entity.Negotiation, error)
}

// Lifecycle управляет статусами предложений: active ↔ paused, любой → deleted.
type Lifecycle struct {
	tx        repository.Transactor
	proposals repository.ProposalRepository
	sections  repository.SectionRepository
	cascade   NegotiationCascade
	now       func() time.Time
}

func NewLifecycle(
	tx repository.Transactor,
	proposals repository.ProposalRepository,
	sections repository.SectionRepository,
	cascade NegotiationCascade,
) *Lifecycle {
	return &Lifecycle{
		tx:        tx,
		proposals: proposals,
		sections:  sections,
		cascade:   cascade,
		now:       time.Now,
	}
}

// IsExpired истинно, когда дата окончания задана и строго раньше now.
func (l *Lifecycle) IsExpired(p *entity.Proposal, now time.Time) bool {
	return p.IsExpired(now)
}

// validateSections проверяет, что все секции принадлежат паблишеру.
func (l *Lifecycle) validateSections(ctx context.Context, ownerID uuid.UUID, p *entity.Proposal) error {
	missing, err := l.sections.MissingIDs(ctx, ownerID, p.SectionIDs.Int64s())
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("секции не найдены: %v", missing))
	}
	return nil
}

// lockOwned блокирует предложение и проверяет, что им владеет actorID.
func (l *Lifecycle) lockOwned(ctx context.Context, proposalID, actorID uuid.UUID) (*entity.Proposal, error) {
	p, err := l.proposals.LockByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(actorID) {
		return nil, apperror.ErrForbidden
	}
	return p, nil
}
