package persistence

import (
	"context"
	"fmt"
	"strings"
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

const proposalColumns = `id, owner_id, name, description, status, start_date, end_date, price, currency,
		impressions_target, budget, auction_type, terms, section_ids, created_at, updated_at`

type ProposalRepositoryAdapter struct {
	db *sqlx.DB
}

var _ repository.ProposalRepository = (*ProposalRepositoryAdapter)(nil)

func NewProposalRepositoryAdapter(db *sqlx.DB) *ProposalRepositoryAdapter {
	return &ProposalRepositoryAdapter{db: db}
}

func (r *ProposalRepositoryAdapter) Create(ctx context.Context, proposal *entity.Proposal) error {
	row := newProposalRow(proposal)
	query := `
		INSERT INTO proposals (id, owner_id, name, description, status, start_date, end_date, price, currency,
		impressions_target, budget, auction_type, terms, section_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.OwnerID, row.Name, row.Description, row.Status, row.StartDate, row.EndDate,
		row.Price, row.Currency, row.ImpressionsTarget, row.Budget, row.AuctionType, row.Terms,
		row.SectionIDs, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return storeError(err, "не удалось создать предложение")
	}
	return nil
}

func (r *ProposalRepositoryAdapter) Update(ctx context.Context, proposal *entity.Proposal) error {
	row := newProposalRow(proposal)
	query := `
		UPDATE proposals SET name = $2, description = $3, status = $4, start_date = $5, end_date = $6,
		price = $7, currency = $8, impressions_target = $9, budget = $10, auction_type = $11, terms = $12,
		section_ids = $13, updated_at = $14
		WHERE id = $1
	`
	res, err := executor(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.Name, row.Description, row.Status, row.StartDate, row.EndDate, row.Price, row.Currency,
		row.ImpressionsTarget, row.Budget, row.AuctionType, row.Terms, row.SectionIDs, row.UpdatedAt,
	)
	if err != nil {
		return storeError(err, "не удалось обновить предложение")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeError(err, "не удалось обновить предложение")
	}
	if affected == 0 {
		return apperror.ErrProposalNotFound
	}
	return nil
}

func (r *ProposalRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	return r.findOne(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
}

func (r *ProposalRepositoryAdapter) LockByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	return r.findOne(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProposalRepositoryAdapter) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Proposal, error) {
	var row proposalRow
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrProposalNotFound, "не удалось получить предложение")
	}
	return row.toEntity()
}

func (r *ProposalRepositoryAdapter) List(ctx context.Context, filter repository.ProposalFilter) ([]*entity.Proposal, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(filter.Statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.NotExpiredAt != nil {
		args = append(args, *filter.NotExpiredAt)
		conditions = append(conditions, fmt.Sprintf("(end_date IS NULL OR end_date >= $%d)", len(args)))
	}

	query := `SELECT ` + proposalColumns + ` FROM proposals`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []proposalRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, storeError(err, "не удалось получить предложения")
	}
	return toProposalEntities(rows)
}

type proposalRow struct {
	ID                uuid.UUID           `db:"id"`
	OwnerID           uuid.UUID           `db:"owner_id"`
	Name              string              `db:"name"`
	Description       string              `db:"description"`
	Status            string              `db:"status"`
	StartDate         *time.Time          `db:"start_date"`
	EndDate           *time.Time          `db:"end_date"`
	Price             decimal.Decimal     `db:"price"`
	Currency          string              `db:"currency"`
	ImpressionsTarget int64               `db:"impressions_target"`
	Budget            decimal.NullDecimal `db:"budget"`
	AuctionType       string              `db:"auction_type"`
	Terms             string              `db:"terms"`
	SectionIDs        pq.Int64Array       `db:"section_ids"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

func newProposalRow(p *entity.Proposal) proposalRow {
	row := proposalRow{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Name:              p.Name,
		Description:       p.Description,
		Status:            string(p.Status),
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Price:             p.Price.Amount,
		Currency:          p.Price.Currency,
		ImpressionsTarget: p.ImpressionsTarget,
		AuctionType:       string(p.AuctionType),
		Terms:             p.Terms,
		SectionIDs:        pq.Int64Array(p.SectionIDs.Int64s()),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Budget != nil {
		row.Budget = decimal.NullDecimal{Decimal: p.Budget.Amount, Valid: true}
	}
	return row
}

func (p *proposalRow) toEntity() (*entity.Proposal, error) {
	status, err := valueobject.NewProposalStatus(p.Status)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректный статус предложения")
	}
	sections, err := valueobject.NewSectionSet(p.SectionIDs)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "в хранилище некорректные секции предложения")
	}

	proposal := &entity.Proposal{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Name:              p.Name,
		Description:       p.Description,
		Status:            status,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Price:             valueobject.Money{Amount: p.Price, Currency: p.Currency},
		ImpressionsTarget: p.ImpressionsTarget,
		AuctionType:       valueobject.AuctionType(p.AuctionType),
		Terms:             p.Terms,
		SectionIDs:        sections,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Budget.Valid {
		proposal.Budget = &valueobject.Money{Amount: p.Budget.Decimal, Currency: p.Currency}
	}
	return proposal, nil
}

func toProposalEntities(rows []proposalRow) ([]*entity.Proposal, error) {
	result := make([]*entity.Proposal, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}
