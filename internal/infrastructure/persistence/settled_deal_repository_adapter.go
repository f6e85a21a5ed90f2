package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

const (
	settledDealColumns = `id, publisher_id, dsp_id, name, auction_type, rate, currency, status, start_date, end_date,
		terms, external_id, priority, section_ids, negotiation_id, created_at, updated_at`

	negotiationUniqueConstraint = "settled_deals_negotiation_id_key"
)

type SettledDealRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.SettledDealRepository = (*SettledDealRepositoryAdapter)(nil)

func NewSettledDealRepositoryAdapter(db *sqlx.DB) *SettledDealRepositoryAdapter {
	return &SettledDealRepositoryAdapter{db: db}
}

func (r *SettledDealRepositoryAdapter) Create(ctx context.Context, deal *entity.SettledDeal) error {
	row := newSettledDealRow(deal)
	query := `
		INSERT INTO settled_deals (id, publisher_id, dsp_id, name, auction_type, rate, currency, status,
		start_date, end_date, terms, external_id, priority, section_ids, negotiation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.PublisherID, row.DSPID, row.Name, row.AuctionType, row.Rate, row.Currency, row.Status,
		row.StartDate, row.EndDate, row.Terms, row.ExternalID, row.Priority, row.SectionIDs, row.NegotiationID,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolationOn(err, negotiationUniqueConstraint) {
			return apperror.ErrAlreadySettled
		}
		return storeError(err, "не удалось сохранить сделку")
	}
	return nil
}

func (r *SettledDealRepositoryAdapter) Update(ctx context.Context, deal *entity.SettledDeal) error {
	query := `UPDATE settled_deals SET status = $2, priority = $3, updated_at = $4 WHERE id = $1`
	res, err := executor(ctx, r.db).ExecContext(ctx, query, deal.ID, string(deal.Status), deal.Priority, deal.UpdatedAt)
	if err != nil {
		return storeError(err, "не удалось обновить сделку")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeError(err, "не удалось обновить сделку")
	}
	if affected == 0 {
		return apperror.ErrDealNotFound
	}
	return nil
}

func (r *SettledDealRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.SettledDeal, error) {
	var row settledDealRow
	query := `SELECT ` + settledDealColumns + ` FROM settled_deals WHERE id = $1`
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrDealNotFound, "не удалось получить сделку")
	}
	return row.toEntity()
}

func (r *SettledDealRepositoryAdapter) FindByNegotiationID(ctx context.Context, negotiationID uuid.UUID) (*entity.SettledDeal, error) {
	var row settledDealRow
	query := `SELECT ` + settledDealColumns + ` FROM settled_deals WHERE negotiation_id = $1`
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, negotiationID); err != nil {
		err = notFoundOr(err, apperror.ErrDealNotFound, "не удалось получить сделку")
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity()
}

func (r *SettledDealRepositoryAdapter) FindByPublisherID(ctx context.Context, publisherID uuid.UUID) ([]*entity.SettledDeal, error) {
	var rows []settledDealRow
	query := `SELECT ` + settledDealColumns + ` FROM settled_deals WHERE publisher_id = $1 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, publisherID); err != nil {
		return nil, storeError(err, "не удалось получить сделки")
	}
	result := make([]*entity.SettledDeal, 0, len(rows))
	for i := range rows {
		d, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

type settledDealRow struct {
	ID            uuid.UUID       `db:"id"`
	PublisherID   uuid.UUID       `db:"publisher_id"`
	DSPID         string          `db:"dsp_id"`
	Name          string          `db:"name"`
	AuctionType   string          `db:"auction_type"`
	Rate          decimal.Decimal `db:"rate"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`
	StartDate     *time.Time      `db:"start_date"`
	EndDate       *time.Time      `db:"end_date"`
	Terms         string          `db:"terms"`
	ExternalID    string          `db:"external_id"`
	Priority      int             `db:"priority"`
	SectionIDs    pq.Int64Array   `db:"section_ids"`
	NegotiationID uuid.UUID       `db:"negotiation_id"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func newSettledDealRow(d *entity.SettledDeal) settledDealRow {
	return settledDealRow{
		ID:            d.ID,
		PublisherID:   d.PublisherID,
		DSPID:         d.DSPID,
		Name:          d.Name,
		AuctionType:   string(d.AuctionType),
		Rate:          d.Rate.Amount,
		Currency:      d.Rate.Currency,
		Status:        string(d.Status),
		StartDate:     d.StartDate,
		EndDate:       d.EndDate,
		Terms:         d.Terms,
		ExternalID:    d.ExternalID,
		Priority:      d.Priority,
		SectionIDs:    pq.Int64Array(d.SectionIDs.Int64s()),
		NegotiationID: d.NegotiationID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (d *settledDealRow) toEntity() (*entity.SettledDeal, error) {
	status, err := valueobject.NewDealStatus(d.Status)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректный статус сделки")
	}
	sections, err := valueobject.NewSectionSet(d.SectionIDs)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректные секции сделки")
	}
	return &entity.SettledDeal{
		ID:            d.ID,
		PublisherID:   d.PublisherID,
		DSPID:         d.DSPID,
		Name:          d.Name,
		AuctionType:   valueobject.AuctionType(d.AuctionType),
		Rate:          valueobject.Money{Amount: d.Rate, Currency: d.Currency},
		Status:        status,
		StartDate:     d.StartDate,
		EndDate:       d.EndDate,
		Terms:         d.Terms,
		ExternalID:    d.ExternalID,
		Priority:      d.Priority,
		SectionIDs:    sections,
		NegotiationID: d.NegotiationID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}
