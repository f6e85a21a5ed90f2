package repository

import (
	"context"

	"github.com/google/uuid"
)

// SectionRepository: справочник секций инвентаря паблишеров.
type SectionRepository interface {
	// MissingIDs возвращает идентификаторы из ids, которых нет у паблишера.
	MissingIDs(ctx context.Context, publisherID uuid.UUID, ids []int64) ([]int64, error)
}

// BuyerRepository: справочник покупателей и их DSP.
type BuyerRepository interface {
	FindDSPID(ctx context.Context, buyerID uuid.UUID) (string, error)
}
