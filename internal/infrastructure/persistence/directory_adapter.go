package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// DirectoryAdapter читает справочники секций и покупателей.
type DirectoryAdapter struct {
	db *sqlx.DB
}

var (
	_ repository.SectionRepository = (*DirectoryAdapter)(nil)
	_ repository.BuyerRepository   = (*DirectoryAdapter)(nil)
)

func NewDirectoryAdapter(db *sqlx.DB) *DirectoryAdapter {
	return &DirectoryAdapter{db: db}
}

func (r *DirectoryAdapter) MissingIDs(ctx context.Context, publisherID uuid.UUID, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	query := `SELECT id FROM sections WHERE publisher_id = $1 AND id = ANY($2)`
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &found, query, publisherID, pq.Array(ids)); err != nil {
		return nil, storeError(err, "не удалось проверить секции")
	}

	known := make(map[int64]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *DirectoryAdapter) FindDSPID(ctx context.Context, buyerID uuid.UUID) (string, error) {
	var dspID string
	query := `SELECT dsp_id FROM buyers WHERE id = $1`
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &dspID, query, buyerID); err != nil {
		return "", notFoundOr(err, apperror.ErrBuyerNotFound, "не удалось получить покупателя")
	}
	return dspID, nil
}
