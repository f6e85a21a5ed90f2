package negotiation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// Submission описывает ход стороны: позицию и, возможно, новые условия.
// ExpectedVersion, если задан, должен совпасть с текущей версией переговоров.
type Submission struct {
	ActorID         uuid.UUID
	Position        string
	Offer           entity.Offer
	ExpectedVersion *int64
}

// Lifecycle ведёт состояние переговоров: очередь ходов и статусы сторон.
type Lifecycle struct {
	tx           repository.Transactor
	proposals    repository.ProposalRepository
	negotiations repository.NegotiationRepository
	now          func() time.Time
}

func NewLifecycle(
	tx repository.Transactor,
	proposals repository.ProposalRepository,
	negotiations repository.NegotiationRepository,
) *Lifecycle {
	return &Lifecycle{
		tx:           tx,
		proposals:    proposals,
		negotiations: negotiations,
		now:          time.Now,
	}
}

// CreateOrUpdate открывает переговоры покупателя buyerID по предложению или делает очередной ход.
// Второй результат истинен, если переговоры были созданы.
func (l *Lifecycle) CreateOrUpdate(ctx context.Context, proposalID, buyerID uuid.UUID, sub Submission) (*entity.Negotiation, bool, error) {
	position, err := valueobject.NewPartyStatus(sub.Position)
	if err != nil {
		return nil, false, err
	}

	var (
		result  *entity.Negotiation
		created bool
	)
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Блокировка строки предложения не даёт начать переговоры параллельно с его удалением.
		proposal, err := l.proposals.LockByID(ctx, proposalID)
		if err != nil {
			return err
		}

		existing, err := l.negotiations.FindByProposalAndBuyer(ctx, proposalID, buyerID)
		if err != nil {
			return err
		}
		if existing == nil {
			result, err = l.open(ctx, proposal, buyerID, position, sub)
			created = err == nil
			return err
		}
		result, err = l.move(ctx, proposal, existing, position, sub)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (l *Lifecycle) open(ctx context.Context, proposal *entity.Proposal, buyerID uuid.UUID, position valueobject.PartyStatus, sub Submission) (*entity.Negotiation, error) {
	if sub.ActorID != buyerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "переговоры открывает только покупатель")
	}
	if err := proposal.CheckOpenForNegotiation(l.now()); err != nil {
		return nil, err
	}
	if position != valueobject.PartyStatusActive {
		return nil, apperror.New(apperror.ErrCodeValidation, "первый ход покупателя может быть только active")
	}

	n, err := entity.NewNegotiation(proposal, buyerID, sub.Offer)
	if err != nil {
		return nil, err
	}
	if err := l.negotiations.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (l *Lifecycle) move(ctx context.Context, proposal *entity.Proposal, n *entity.Negotiation, position valueobject.PartyStatus, sub Submission) (*entity.Negotiation, error) {
	party, ok := n.PartyOf(sub.ActorID)
	if !ok {
		return nil, apperror.ErrForbidden
	}
	if proposal.IsDeleted() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "предложение удалено")
	}
	if sub.ExpectedVersion != nil && *sub.ExpectedVersion != n.Version {
		return nil, apperror.ErrStaleNegotiation
	}
	if err := n.Move(proposal, party, position, sub.Offer); err != nil {
		return nil, err
	}
	if err := l.negotiations.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// CascadeOwnerDeleted выставляет ownerStatus=deleted всем неурегулированным переговорам предложения.
// partnerStatus не меняется. Переговоры, по которым уже есть сделка, пропускаются.
func (l *Lifecycle) CascadeOwnerDeleted(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error) {
	return l.negotiations.MarkOwnerDeletedUnsettled(ctx, proposalID)
}

// ReviewProposalChange сбрасывает accepted в открытых переговорах, если правка предложения
// изменила их итоговые условия. Возвращает изменённые переговоры.
func (l *Lifecycle) ReviewProposalChange(ctx context.Context, before, after *entity.Proposal) ([]*entity.Negotiation, error) {
	list, err := l.negotiations.FindByProposalID(ctx, after.ID)
	if err != nil {
		return nil, err
	}
	var changed []*entity.Negotiation
	for _, n := range list {
		if !n.ReviewProposalChange(before, after) {
			continue
		}
		if err := l.negotiations.Update(ctx, n); err != nil {
			return nil, err
		}
		changed = append(changed, n)
	}
	return changed, nil
}

// CheckMutualAcceptance проверяет, что обе стороны в accepted. Только чтение, повторный вызов безопасен.
func (l *Lifecycle) CheckMutualAcceptance(ctx context.Context, negotiationID uuid.UUID) (bool, error) {
	n, err := l.negotiations.FindByID(ctx, negotiationID)
	if err != nil {
		return false, err
	}
	return n.IsMutuallyAccepted(), nil
}

// Withdraw выставляет стороне актора archived или deleted независимо от очереди.
func (l *Lifecycle) Withdraw(ctx context.Context, negotiationID, actorID uuid.UUID, status string) (*entity.Negotiation, error) {
	target, err := valueobject.NewPartyStatus(status)
	if err != nil {
		return nil, err
	}

	var result *entity.Negotiation
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := l.negotiations.LockByID(ctx, negotiationID)
		if err != nil {
			return err
		}
		party, ok := n.PartyOf(actorID)
		if !ok {
			return apperror.ErrForbidden
		}
		if err := n.Withdraw(party, target); err != nil {
			return err
		}
		if err := l.negotiations.Update(ctx, n); err != nil {
			return err
		}
		result = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
