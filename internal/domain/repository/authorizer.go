package repository

import (
	"context"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityProposal    EntityType = "proposal"
	EntityNegotiation EntityType = "negotiation"
	EntityDeal        EntityType = "deal"
)

// Authorizer отвечает, принадлежит ли сущность пользователю.
// Для переговоров владельцами считаются обе стороны.
type Authorizer interface {
	ActorOwns(ctx context.Context, entityType EntityType, entityID, actorID uuid.UUID) (bool, error)
}
