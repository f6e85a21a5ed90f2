package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

type SettledDealRepository interface {
	// Create возвращает apperror.ErrAlreadySettled при нарушении уникальности negotiation_id.
	Create(ctx context.Context, deal *entity.SettledDeal) error
	Update(ctx context.Context, deal *entity.SettledDeal) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SettledDeal, error)
	// FindByNegotiationID возвращает nil, nil, если сделки нет.
	FindByNegotiationID(ctx context.Context, negotiationID uuid.UUID) (*entity.SettledDeal, error)
	FindByPublisherID(ctx context.Context, publisherID uuid.UUID) ([]*entity.SettledDeal, error)
}
