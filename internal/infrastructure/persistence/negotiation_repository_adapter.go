package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

const negotiationColumns = `id, proposal_id, publisher_id, buyer_id, price, currency, start_date, end_date, terms,
		sender, owner_status, partner_status, version, created_at, updated_at`

type NegotiationRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.NegotiationRepository = (*NegotiationRepositoryAdapter)(nil)

func NewNegotiationRepositoryAdapter(db *sqlx.DB) *NegotiationRepositoryAdapter {
	return &NegotiationRepositoryAdapter{db: db}
}

func (r *NegotiationRepositoryAdapter) Create(ctx context.Context, negotiation *entity.Negotiation) error {
	row := newNegotiationRow(negotiation)
	row.Version = 1
	query := `
		INSERT INTO negotiations (id, proposal_id, publisher_id, buyer_id, price, currency, start_date, end_date,
		terms, sender, owner_status, partner_status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.ProposalID, row.PublisherID, row.BuyerID, row.Price, row.Currency, row.StartDate, row.EndDate,
		row.Terms, row.Sender, row.OwnerStatus, row.PartnerStatus, row.Version, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "переговоры по этому предложению уже начаты")
		}
		return storeError(err, "не удалось создать переговоры")
	}
	negotiation.Version = row.Version
	return nil
}

// Update применяет оптимистичную блокировку: запись меняется, только если версия не сдвинулась.
func (r *NegotiationRepositoryAdapter) Update(ctx context.Context, negotiation *entity.Negotiation) error {
	row := newNegotiationRow(negotiation)
	query := `
		UPDATE negotiations SET price = $2, currency = $3, start_date = $4, end_date = $5, terms = $6,
		sender = $7, owner_status = $8, partner_status = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $11
	`
	res, err := executor(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.Price, row.Currency, row.StartDate, row.EndDate, row.Terms,
		row.Sender, row.OwnerStatus, row.PartnerStatus, row.UpdatedAt, row.Version,
	)
	if err != nil {
		return storeError(err, "не удалось обновить переговоры")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeError(err, "не удалось обновить переговоры")
	}
	if affected == 0 {
		return apperror.ErrStaleNegotiation
	}
	negotiation.Version++
	return nil
}

func (r *NegotiationRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Negotiation, error) {
	return r.findOne(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE id = $1`, id)
}

func (r *NegotiationRepositoryAdapter) LockByID(ctx context.Context, id uuid.UUID) (*entity.Negotiation, error) {
	return r.findOne(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE id = $1 FOR UPDATE`, id)
}

func (r *NegotiationRepositoryAdapter) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Negotiation, error) {
	var row negotiationRow
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, args...); err != nil {
		return nil, notFoundOr(err, apperror.ErrNegotiationNotFound, "не удалось получить переговоры")
	}
	return row.toEntity()
}

func (r *NegotiationRepositoryAdapter) FindByProposalAndBuyer(ctx context.Context, proposalID, buyerID uuid.UUID) (*entity.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE proposal_id = $1 AND buyer_id = $2 FOR UPDATE`
	n, err := r.findOne(ctx, query, proposalID, buyerID)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return n, err
}

func (r *NegotiationRepositoryAdapter) FindByProposalID(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE proposal_id = $1 ORDER BY created_at DESC`
	return r.findMany(ctx, query, proposalID)
}

func (r *NegotiationRepositoryAdapter) FindByParticipant(ctx context.Context, userID uuid.UUID) ([]*entity.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE publisher_id = $1 OR buyer_id = $1 ORDER BY created_at DESC`
	return r.findMany(ctx, query, userID)
}

// MarkOwnerDeletedUnsettled выполняет каскад удаления предложения.
// Урегулированные переговоры отсеиваются по отсутствию строки в settled_deals.
func (r *NegotiationRepositoryAdapter) MarkOwnerDeletedUnsettled(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error) {
	query := `
		UPDATE negotiations n SET owner_status = 'deleted', version = n.version + 1, updated_at = NOW()
		WHERE n.proposal_id = $1 AND n.owner_status <> 'deleted'
		AND NOT EXISTS (SELECT 1 FROM settled_deals d WHERE d.negotiation_id = n.id)
		RETURNING ` + negotiationColumns
	return r.findMany(ctx, query, proposalID)
}

func (r *NegotiationRepositoryAdapter) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Negotiation, error) {
	var rows []negotiationRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, storeError(err, "не удалось получить переговоры")
	}
	result := make([]*entity.Negotiation, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

type negotiationRow struct {
	ID            uuid.UUID           `db:"id"`
	ProposalID    uuid.UUID           `db:"proposal_id"`
	PublisherID   uuid.UUID           `db:"publisher_id"`
	BuyerID       uuid.UUID           `db:"buyer_id"`
	Price         decimal.NullDecimal `db:"price"`
	Currency      string              `db:"currency"`
	StartDate     *time.Time          `db:"start_date"`
	EndDate       *time.Time          `db:"end_date"`
	Terms         *string             `db:"terms"`
	Sender        string              `db:"sender"`
	OwnerStatus   string              `db:"owner_status"`
	PartnerStatus string              `db:"partner_status"`
	Version       int64               `db:"version"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at"`
}

func newNegotiationRow(n *entity.Negotiation) negotiationRow {
	row := negotiationRow{
		ID:            n.ID,
		ProposalID:    n.ProposalID,
		PublisherID:   n.PublisherID,
		BuyerID:       n.BuyerID,
		Currency:      valueobject.DefaultCurrency,
		StartDate:     n.StartDate,
		EndDate:       n.EndDate,
		Terms:         n.Terms,
		Sender:        string(n.Sender),
		OwnerStatus:   string(n.OwnerStatus),
		PartnerStatus: string(n.PartnerStatus),
		Version:       n.Version,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
	if n.Price != nil {
		row.Price = decimal.NullDecimal{Decimal: n.Price.Amount, Valid: true}
		row.Currency = n.Price.Currency
	}
	return row
}

func (n *negotiationRow) toEntity() (*entity.Negotiation, error) {
	sender, err := valueobject.NewParty(n.Sender)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректный отправитель")
	}
	owner, err := valueobject.NewPartyStatus(n.OwnerStatus)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректный статус паблишера")
	}
	partner, err := valueobject.NewPartyStatus(n.PartnerStatus)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректный статус покупателя")
	}

	negotiation := &entity.Negotiation{
		ID:            n.ID,
		ProposalID:    n.ProposalID,
		PublisherID:   n.PublisherID,
		BuyerID:       n.BuyerID,
		StartDate:     n.StartDate,
		EndDate:       n.EndDate,
		Terms:         n.Terms,
		Sender:        sender,
		OwnerStatus:   owner,
		PartnerStatus: partner,
		Version:       n.Version,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
	if n.Price.Valid {
		negotiation.Price = &valueobject.Money{Amount: n.Price.Decimal, Currency: n.Currency}
	}
	return negotiation, nil
}
