package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
	"github.com/ignatzorin/deals-backend/internal/validation"
)

// Negotiation: встречные предложения одного покупателя по одному предложению.
// Price, StartDate, EndDate и Terms переопределяют условия предложения; nil означает значение из предложения.
type Negotiation struct {
	ID            uuid.UUID
	ProposalID    uuid.UUID
	PublisherID   uuid.UUID
	BuyerID       uuid.UUID
	Price         *valueobject.Money
	StartDate     *time.Time
	EndDate       *time.Time
	Terms         *string
	Sender        valueobject.Party
	OwnerStatus   valueobject.PartyStatus
	PartnerStatus valueobject.PartyStatus
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Offer: поля, которые сторона может переопределить своим ходом.
type Offer struct {
	Price     *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
	Terms     *string
}

// DealTerms: итоговые условия переговоров с учётом значений предложения.
type DealTerms struct {
	Price     valueobject.Money
	StartDate *time.Time
	EndDate   *time.Time
	Terms     string
}

// NewNegotiation открывает переговоры от имени покупателя: ход покупателя, обе стороны active.
func NewNegotiation(proposal *Proposal, buyerID uuid.UUID, offer Offer) (*Negotiation, error) {
	if proposal.IsOwnedBy(buyerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя вести переговоры по собственному предложению")
	}

	now := time.Now()
	n := &Negotiation{
		ID:            uuid.New(),
		ProposalID:    proposal.ID,
		PublisherID:   proposal.OwnerID,
		BuyerID:       buyerID,
		Sender:        valueobject.PartyBuyer,
		OwnerStatus:   valueobject.PartyStatusActive,
		PartnerStatus: valueobject.PartyStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	n.seed(proposal)
	if _, err := n.applyOffer(proposal, offer); err != nil {
		return nil, err
	}
	return n, nil
}

// Turn возвращает явное состояние очереди, то есть чей ход следующий.
func (n *Negotiation) Turn() valueobject.Turn {
	return valueobject.TurnAfter(n.Sender)
}

// PartyOf определяет сторону пользователя в переговорах.
func (n *Negotiation) PartyOf(userID uuid.UUID) (valueobject.Party, bool) {
	switch userID {
	case n.PublisherID:
		return valueobject.PartyPublisher, true
	case n.BuyerID:
		return valueobject.PartyBuyer, true
	}
	return "", false
}

func (n *Negotiation) IsParticipant(userID uuid.UUID) bool {
	_, ok := n.PartyOf(userID)
	return ok
}

func (n *Negotiation) StatusOf(p valueobject.Party) valueobject.PartyStatus {
	if p == valueobject.PartyPublisher {
		return n.OwnerStatus
	}
	return n.PartnerStatus
}

func (n *Negotiation) setStatus(p valueobject.Party, s valueobject.PartyStatus) {
	if p == valueobject.PartyPublisher {
		n.OwnerStatus = s
		return
	}
	n.PartnerStatus = s
}

// IsMutuallyAccepted истинно, когда обе стороны одновременно в accepted.
func (n *Negotiation) IsMutuallyAccepted() bool {
	return n.OwnerStatus == valueobject.PartyStatusAccepted && n.PartnerStatus == valueobject.PartyStatusAccepted
}

func (n *Negotiation) IsDeleted() bool {
	return n.OwnerStatus == valueobject.PartyStatusDeleted || n.PartnerStatus == valueobject.PartyStatusDeleted
}

// checkOpen отклоняет ход в закрытых переговорах.
func (n *Negotiation) checkOpen() error {
	if n.IsDeleted() {
		return apperror.New(apperror.ErrCodeForbidden, "переговоры удалены")
	}
	if n.IsMutuallyAccepted() {
		return apperror.New(apperror.ErrCodeConflict, "переговоры уже завершены принятием")
	}
	for _, s := range []valueobject.PartyStatus{n.OwnerStatus, n.PartnerStatus} {
		if s == valueobject.PartyStatusRejected || s == valueobject.PartyStatusArchived {
			return apperror.New(apperror.ErrCodeForbidden, "переговоры закрыты")
		}
	}
	return nil
}

// Move применяет очередной ход стороны party с позицией position.
// Сторона, отправившая последний ход, не может ходить повторно.
// Статус другой стороны сбрасывается в active, если условия изменились или позиция является встречным предложением.
func (n *Negotiation) Move(proposal *Proposal, party valueobject.Party, position valueobject.PartyStatus, offer Offer) error {
	if !party.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "некорректная сторона переговоров")
	}
	if !position.IsPosition() {
		return apperror.New(apperror.ErrCodeValidation, "ходом можно заявить только active, accepted или rejected")
	}
	if err := n.checkOpen(); err != nil {
		return err
	}
	if !n.Turn().Awaits(party) {
		return apperror.New(apperror.ErrCodeConflict, "сейчас ход другой стороны")
	}

	changed, err := n.applyOffer(proposal, offer)
	if err != nil {
		return err
	}

	n.Sender = party
	n.setStatus(party, position)
	if changed || position == valueobject.PartyStatusActive {
		n.setStatus(party.Other(), valueobject.PartyStatusActive)
	}
	n.UpdatedAt = time.Now()
	return nil
}

// Withdraw выставляет собственной стороне archived или deleted вне очереди.
func (n *Negotiation) Withdraw(party valueobject.Party, status valueobject.PartyStatus) error {
	if !status.IsWithdrawal() {
		return apperror.New(apperror.ErrCodeValidation, "вне очереди можно выставить только archived или deleted")
	}
	if n.StatusOf(party) == valueobject.PartyStatusDeleted {
		return apperror.New(apperror.ErrCodeForbidden, "переговоры уже удалены этой стороной")
	}
	n.setStatus(party, status)
	n.UpdatedAt = time.Now()
	return nil
}

// MarkOwnerDeleted выставляет ownerStatus=deleted, не трогая partnerStatus.
// Возвращает false, если сторона паблишера уже удалена.
func (n *Negotiation) MarkOwnerDeleted() bool {
	if n.OwnerStatus == valueobject.PartyStatusDeleted {
		return false
	}
	n.OwnerStatus = valueobject.PartyStatusDeleted
	n.UpdatedAt = time.Now()
	return true
}

// seed копирует текущие условия предложения, чтобы последующие правки предложения их не меняли.
func (n *Negotiation) seed(proposal *Proposal) {
	price := proposal.Price
	terms := proposal.Terms
	n.Price = &price
	n.Terms = &terms
	n.StartDate = copyTime(proposal.StartDate)
	n.EndDate = copyTime(proposal.EndDate)
}

// ReviewProposalChange сбрасывает accepted обеих сторон в active, если правка предложения
// изменила итоговые условия открытых переговоров. Возвращает true, если статусы изменились.
func (n *Negotiation) ReviewProposalChange(before, after *Proposal) bool {
	if n.checkOpen() != nil {
		return false
	}
	if n.EffectiveTerms(before).Equal(n.EffectiveTerms(after)) {
		return false
	}
	reset := false
	for _, party := range []valueobject.Party{valueobject.PartyPublisher, valueobject.PartyBuyer} {
		if n.StatusOf(party) == valueobject.PartyStatusAccepted {
			n.setStatus(party, valueobject.PartyStatusActive)
			reset = true
		}
	}
	if reset {
		n.UpdatedAt = time.Now()
	}
	return reset
}

// EffectiveTerms накладывает переопределения на условия предложения.
func (n *Negotiation) EffectiveTerms(proposal *Proposal) DealTerms {
	terms := DealTerms{
		Price:     proposal.Price,
		StartDate: proposal.StartDate,
		EndDate:   proposal.EndDate,
		Terms:     proposal.Terms,
	}
	if n.Price != nil {
		terms.Price = *n.Price
	}
	if n.StartDate != nil {
		terms.StartDate = n.StartDate
	}
	if n.EndDate != nil {
		terms.EndDate = n.EndDate
	}
	if n.Terms != nil {
		terms.Terms = *n.Terms
	}
	return terms
}

// applyOffer записывает переопределения и сообщает, изменились ли итоговые условия.
func (n *Negotiation) applyOffer(proposal *Proposal, offer Offer) (bool, error) {
	before := n.EffectiveTerms(proposal)
	next := *n

	if offer.Price != nil {
		price, err := valueobject.NewMoney(*offer.Price, valueobject.DefaultCurrency)
		if err != nil {
			return false, err
		}
		next.Price = &price
	}
	if offer.StartDate != nil {
		next.StartDate = offer.StartDate
	}
	if offer.EndDate != nil {
		next.EndDate = offer.EndDate
	}
	if offer.Terms != nil {
		terms := *offer.Terms
		if err := validation.ValidateTerms(terms); err != nil {
			return false, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		next.Terms = &terms
	}

	after := next.EffectiveTerms(proposal)
	if err := validateDates(after.StartDate, after.EndDate); err != nil {
		return false, err
	}

	n.Price, n.StartDate, n.EndDate, n.Terms = next.Price, next.StartDate, next.EndDate, next.Terms
	return !before.Equal(after), nil
}

func (t DealTerms) Equal(other DealTerms) bool {
	return t.Price.Equal(other.Price) &&
		equalTime(t.StartDate, other.StartDate) &&
		equalTime(t.EndDate, other.EndDate) &&
		t.Terms == other.Terms
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
