package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
	"github.com/ignatzorin/deals-backend/internal/validation"
)

// Proposal: предложение паблишера, видимое покупателям.
type Proposal struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	Name              string
	Description       string
	Status            valueobject.ProposalStatus
	StartDate         *time.Time
	EndDate           *time.Time
	Price             valueobject.Money
	ImpressionsTarget int64
	Budget            *valueobject.Money
	AuctionType       valueobject.AuctionType
	Terms             string
	SectionIDs        valueobject.SectionSet
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProposalFields: редактируемые поля предложения.
type ProposalFields struct {
	Name              string
	Description       string
	StartDate         *time.Time
	EndDate           *time.Time
	Price             decimal.Decimal
	ImpressionsTarget int64
	Budget            *decimal.Decimal
	AuctionType       string
	Terms             string
	SectionIDs        []int64
}

func NewProposal(ownerID uuid.UUID, fields ProposalFields) (*Proposal, error) {
	if ownerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "владелец предложения обязателен")
	}
	now := time.Now()
	p := &Proposal{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    valueobject.ProposalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.apply(fields); err != nil {
		return nil, err
	}
	return p, nil
}

// Update заменяет редактируемые поля. Удалённое предложение не редактируется.
func (p *Proposal) Update(fields ProposalFields) error {
	if p.IsDeleted() {
		return apperror.New(apperror.ErrCodeForbidden, "предложение удалено")
	}
	if err := p.apply(fields); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Proposal) apply(fields ProposalFields) error {
	name := strings.TrimSpace(fields.Name)
	if err := validation.ValidateProposalName(name); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDescription(fields.Description); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateTerms(fields.Terms); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validateDates(fields.StartDate, fields.EndDate); err != nil {
		return err
	}
	// Новую дату окончания в прошлом задать нельзя; уже сохранённую можно оставить как есть.
	if fields.EndDate != nil && fields.EndDate.Before(time.Now()) && !equalTime(fields.EndDate, p.EndDate) {
		return apperror.New(apperror.ErrCodeValidation, "дата окончания не может быть в прошлом")
	}
	if fields.ImpressionsTarget < 0 {
		return apperror.New(apperror.ErrCodeValidation, "план показов не может быть отрицательным")
	}

	price, err := valueobject.NewMoney(fields.Price, valueobject.DefaultCurrency)
	if err != nil {
		return err
	}

	var budget *valueobject.Money
	if fields.Budget != nil {
		b, err := valueobject.NewMoney(*fields.Budget, valueobject.DefaultCurrency)
		if err != nil {
			return err
		}
		budget = &b
	}

	auctionType, err := valueobject.NewAuctionType(fields.AuctionType)
	if err != nil {
		return err
	}

	sections, err := valueobject.NewSectionSet(fields.SectionIDs)
	if err != nil {
		return err
	}

	p.Name = name
	p.Description = fields.Description
	p.StartDate = fields.StartDate
	p.EndDate = fields.EndDate
	p.Price = price
	p.ImpressionsTarget = fields.ImpressionsTarget
	p.Budget = budget
	p.AuctionType = auctionType
	p.Terms = fields.Terms
	p.SectionIDs = sections
	return nil
}

func (p *Proposal) Pause() error {
	return p.transition(valueobject.ProposalStatusPaused, "приостановить можно только активное предложение")
}

func (p *Proposal) Resume() error {
	return p.transition(valueobject.ProposalStatusActive, "возобновить можно только приостановленное предложение")
}

// Delete переводит предложение в терминальный статус deleted.
// Повторное удаление запрещено.
func (p *Proposal) Delete() error {
	if p.IsDeleted() {
		return apperror.New(apperror.ErrCodeForbidden, "предложение уже удалено")
	}
	return p.transition(valueobject.ProposalStatusDeleted, "невозможно удалить предложение в текущем статусе")
}

func (p *Proposal) transition(to valueobject.ProposalStatus, message string) error {
	if !p.Status.CanTransitionTo(to) {
		return apperror.New(apperror.ErrCodeForbidden, message)
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	return nil
}

// IsExpired истинно, когда дата окончания задана и строго раньше now.
func (p *Proposal) IsExpired(now time.Time) bool {
	return p.EndDate != nil && p.EndDate.Before(now)
}

// CheckOpenForNegotiation проверяет, можно ли начать по предложению новые переговоры.
func (p *Proposal) CheckOpenForNegotiation(now time.Time) error {
	switch {
	case p.IsDeleted():
		return apperror.New(apperror.ErrCodeForbidden, "предложение удалено")
	case p.Status != valueobject.ProposalStatusActive:
		return apperror.New(apperror.ErrCodeForbidden, "предложение приостановлено")
	case p.IsExpired(now):
		return apperror.New(apperror.ErrCodeForbidden, "срок действия предложения истёк")
	}
	return nil
}

func (p *Proposal) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerID == userID
}

func (p *Proposal) IsDeleted() bool {
	return p.Status == valueobject.ProposalStatusDeleted
}

// IsVisibleToBuyers истинно для активного и не истёкшего предложения.
func (p *Proposal) IsVisibleToBuyers(now time.Time) bool {
	return p.Status == valueobject.ProposalStatusActive && !p.IsExpired(now)
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperror.New(apperror.ErrCodeValidation, "дата окончания раньше даты начала")
	}
	return nil
}
