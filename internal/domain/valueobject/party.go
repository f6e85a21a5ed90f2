package valueobject

import "github.com/ignatzorin/deals-backend/internal/pkg/apperror"

// Party: сторона переговоров.
type Party string

const (
	PartyPublisher Party = "publisher"
	PartyBuyer     Party = "buyer"
)

func (p Party) IsValid() bool {
	return p == PartyPublisher || p == PartyBuyer
}

// Other возвращает противоположную сторону.
func (p Party) Other() Party {
	if p == PartyPublisher {
		return PartyBuyer
	}
	return PartyPublisher
}

func NewParty(value string) (Party, error) {
	p := Party(value)
	if !p.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная сторона переговоров")
	}
	return p, nil
}

// Turn показывает, чей ход в переговорах. Однозначно соответствует последнему отправителю.
type Turn string

const (
	TurnAwaitingBuyer     Turn = "awaiting_buyer"
	TurnAwaitingPublisher Turn = "awaiting_publisher"
)

// TurnAfter возвращает состояние очереди после хода отправителя sender.
func TurnAfter(sender Party) Turn {
	if sender == PartyPublisher {
		return TurnAwaitingBuyer
	}
	return TurnAwaitingPublisher
}

// Awaits проверяет, ожидается ли ход стороны p.
func (t Turn) Awaits(p Party) bool {
	switch t {
	case TurnAwaitingBuyer:
		return p == PartyBuyer
	case TurnAwaitingPublisher:
		return p == PartyPublisher
	}
	return false
}
