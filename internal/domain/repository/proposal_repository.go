package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

type ProposalRepository interface {
	Create(ctx context.Context, proposal *entity.Proposal) error
	Update(ctx context.Context, proposal *entity.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	// LockByID читает предложение с блокировкой строки до конца транзакции.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	List(ctx context.Context, filter ProposalFilter) ([]*entity.Proposal, error)
}

type ProposalFilter struct {
	OwnerID      *uuid.UUID
	Statuses     []string
	// NotExpiredAt оставляет предложения без даты окончания или с датой не раньше указанной.
	NotExpiredAt *time.Time
	Limit        int
	Offset       int
}
