package valueobject

import "github.com/ignatzorin/deals-backend/internal/pkg/apperror"

type ProposalStatus string

const (
	ProposalStatusActive  ProposalStatus = "active"
	ProposalStatusPaused  ProposalStatus = "paused"
	ProposalStatusDeleted ProposalStatus = "deleted"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusActive, ProposalStatusPaused, ProposalStatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo проверяет переход по таблице active↔paused, любой→deleted.
// deleted терминален.
func (s ProposalStatus) CanTransitionTo(newStatus ProposalStatus) bool {
	transitions := map[ProposalStatus][]ProposalStatus{
		ProposalStatusActive:  {ProposalStatusPaused, ProposalStatusDeleted},
		ProposalStatusPaused:  {ProposalStatusActive, ProposalStatusDeleted},
		ProposalStatusDeleted: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewProposalStatus(status string) (ProposalStatus, error) {
	s := ProposalStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
	return s, nil
}

// PartyStatus: позиция одной стороны в переговорах.
type PartyStatus string

const (
	PartyStatusActive   PartyStatus = "active"
	PartyStatusArchived PartyStatus = "archived"
	PartyStatusDeleted  PartyStatus = "deleted"
	PartyStatusAccepted PartyStatus = "accepted"
	PartyStatusRejected PartyStatus = "rejected"
)

func (s PartyStatus) IsValid() bool {
	switch s {
	case PartyStatusActive, PartyStatusArchived, PartyStatusDeleted, PartyStatusAccepted, PartyStatusRejected:
		return true
	}
	return false
}

// IsPosition отбирает статусы, которые сторона может заявить своим ходом.
func (s PartyStatus) IsPosition() bool {
	switch s {
	case PartyStatusActive, PartyStatusAccepted, PartyStatusRejected:
		return true
	}
	return false
}

// IsWithdrawal отбирает статусы, которые сторона может выставить себе вне очереди.
func (s PartyStatus) IsWithdrawal() bool {
	return s == PartyStatusArchived || s == PartyStatusDeleted
}

func NewPartyStatus(status string) (PartyStatus, error) {
	s := PartyStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус переговоров")
	}
	return s, nil
}

type DealStatus string

const (
	DealStatusNew     DealStatus = "new"
	DealStatusActive  DealStatus = "active"
	DealStatusPaused  DealStatus = "paused"
	DealStatusDeleted DealStatus = "deleted"
)

func (s DealStatus) IsValid() bool {
	switch s {
	case DealStatusNew, DealStatusActive, DealStatusPaused, DealStatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo разрешает любой переход, кроме выхода из deleted.
func (s DealStatus) CanTransitionTo(newStatus DealStatus) bool {
	if !newStatus.IsValid() {
		return false
	}
	return s != DealStatusDeleted || newStatus == DealStatusDeleted
}

func NewDealStatus(status string) (DealStatus, error) {
	s := DealStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус сделки")
	}
	return s, nil
}

type AuctionType string

const (
	AuctionTypeFirst  AuctionType = "first"
	AuctionTypeSecond AuctionType = "second"
	AuctionTypeFixed  AuctionType = "fixed"
)

func (t AuctionType) IsValid() bool {
	switch t {
	case AuctionTypeFirst, AuctionTypeSecond, AuctionTypeFixed:
		return true
	}
	return false
}

func NewAuctionType(value string) (AuctionType, error) {
	t := AuctionType(value)
	if !t.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип аукциона")
	}
	return t, nil
}
