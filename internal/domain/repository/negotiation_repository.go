package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

type NegotiationRepository interface {
	// Create возвращает CONFLICT, если переговоры для пары (предложение, покупатель) уже есть.
	Create(ctx context.Context, negotiation *entity.Negotiation) error
	// Update сохраняет переговоры, если версия в хранилище совпадает с negotiation.Version,
	// и увеличивает версию. Иначе возвращает apperror.ErrStaleNegotiation.
	Update(ctx context.Context, negotiation *entity.Negotiation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Negotiation, error)
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Negotiation, error)
	// FindByProposalAndBuyer возвращает nil, nil, если переговоров нет.
	FindByProposalAndBuyer(ctx context.Context, proposalID, buyerID uuid.UUID) (*entity.Negotiation, error)
	FindByProposalID(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error)
	FindByParticipant(ctx context.Context, userID uuid.UUID) ([]*entity.Negotiation, error)
	// MarkOwnerDeletedUnsettled выставляет owner_status=deleted всем переговорам предложения,
	// у которых он ещё не deleted и нет урегулированной сделки. Возвращает изменённые записи.
	MarkOwnerDeletedUnsettled(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error)
}
