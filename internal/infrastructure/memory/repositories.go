package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

func unavailable(err error) error {
	return apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, "хранилище недоступно")
}

type ProposalRepository struct {
	store *Store
}

var _ repository.ProposalRepository = (*ProposalRepository)(nil)

func (r *ProposalRepository) Create(ctx context.Context, proposal *entity.Proposal) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.proposals[proposal.ID]; ok {
			return apperror.New(apperror.ErrCodeConflict, "предложение уже существует")
		}
		st.proposals[proposal.ID] = cloneProposal(*proposal)
		return nil
	})
}

func (r *ProposalRepository) Update(ctx context.Context, proposal *entity.Proposal) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.proposals[proposal.ID]; !ok {
			return apperror.ErrProposalNotFound
		}
		st.proposals[proposal.ID] = cloneProposal(*proposal)
		return nil
	})
}

func (r *ProposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var out *entity.Proposal
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.proposals[id]
		if !ok {
			return apperror.ErrProposalNotFound
		}
		c := cloneProposal(p)
		out = &c
		return nil
	})
	return out, err
}

// LockByID в памяти эквивалентен FindByID: транзакции и так сериализованы.
func (r *ProposalRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	return r.FindByID(ctx, id)
}

func (r *ProposalRepository) List(ctx context.Context, filter repository.ProposalFilter) ([]*entity.Proposal, error) {
	var out []*entity.Proposal
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.proposals {
			if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
				continue
			}
			if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, string(p.Status)) {
				continue
			}
			if filter.NotExpiredAt != nil && p.IsExpired(*filter.NotExpiredAt) {
				continue
			}
			c := cloneProposal(p)
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(out, func(p *entity.Proposal) int64 { return p.CreatedAt.UnixNano() })
	return paginate(out, filter.Limit, filter.Offset), nil
}

type NegotiationRepository struct {
	store *Store
}

var _ repository.NegotiationRepository = (*NegotiationRepository)(nil)

func (r *NegotiationRepository) Create(ctx context.Context, negotiation *entity.Negotiation) error {
	return r.store.write(ctx, func(st *state) error {
		for _, n := range st.negotiations {
			if n.ProposalID == negotiation.ProposalID && n.BuyerID == negotiation.BuyerID {
				return apperror.New(apperror.ErrCodeConflict, "переговоры по этому предложению уже начаты")
			}
		}
		negotiation.Version = 1
		st.negotiations[negotiation.ID] = cloneNegotiation(*negotiation)
		return nil
	})
}

func (r *NegotiationRepository) Update(ctx context.Context, negotiation *entity.Negotiation) error {
	return r.store.write(ctx, func(st *state) error {
		current, ok := st.negotiations[negotiation.ID]
		if !ok {
			return apperror.ErrNegotiationNotFound
		}
		if current.Version != negotiation.Version {
			return apperror.ErrStaleNegotiation
		}
		next := cloneNegotiation(*negotiation)
		next.Version++
		st.negotiations[negotiation.ID] = next
		negotiation.Version = next.Version
		return nil
	})
}

func (r *NegotiationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Negotiation, error) {
	var out *entity.Negotiation
	err := r.store.read(ctx, func(st *state) error {
		n, ok := st.negotiations[id]
		if !ok {
			return apperror.ErrNegotiationNotFound
		}
		c := cloneNegotiation(n)
		out = &c
		return nil
	})
	return out, err
}

func (r *NegotiationRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Negotiation, error) {
	return r.FindByID(ctx, id)
}

func (r *NegotiationRepository) FindByProposalAndBuyer(ctx context.Context, proposalID, buyerID uuid.UUID) (*entity.Negotiation, error) {
	var out *entity.Negotiation
	err := r.store.read(ctx, func(st *state) error {
		for _, n := range st.negotiations {
			if n.ProposalID == proposalID && n.BuyerID == buyerID {
				c := cloneNegotiation(n)
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *NegotiationRepository) FindByProposalID(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error) {
	return r.filter(ctx, func(n entity.Negotiation) bool { return n.ProposalID == proposalID })
}

func (r *NegotiationRepository) FindByParticipant(ctx context.Context, userID uuid.UUID) ([]*entity.Negotiation, error) {
	return r.filter(ctx, func(n entity.Negotiation) bool { return n.PublisherID == userID || n.BuyerID == userID })
}

func (r *NegotiationRepository) MarkOwnerDeletedUnsettled(ctx context.Context, proposalID uuid.UUID) ([]*entity.Negotiation, error) {
	var changed []*entity.Negotiation
	err := r.store.write(ctx, func(st *state) error {
		settled := make(map[uuid.UUID]struct{}, len(st.deals))
		for _, d := range st.deals {
			settled[d.NegotiationID] = struct{}{}
		}
		for id, n := range st.negotiations {
			if n.ProposalID != proposalID {
				continue
			}
			if _, ok := settled[id]; ok {
				continue
			}
			if !n.MarkOwnerDeleted() {
				continue
			}
			n.Version++
			st.negotiations[id] = n
			c := cloneNegotiation(n)
			changed = append(changed, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(changed, func(n *entity.Negotiation) int64 { return n.CreatedAt.UnixNano() })
	return changed, nil
}

func (r *NegotiationRepository) filter(ctx context.Context, keep func(entity.Negotiation) bool) ([]*entity.Negotiation, error) {
	var out []*entity.Negotiation
	err := r.store.read(ctx, func(st *state) error {
		for _, n := range st.negotiations {
			if keep(n) {
				c := cloneNegotiation(n)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(out, func(n *entity.Negotiation) int64 { return n.CreatedAt.UnixNano() })
	return out, nil
}

type SettledDealRepository struct {
	store *Store
}

var _ repository.SettledDealRepository = (*SettledDealRepository)(nil)

func (r *SettledDealRepository) Create(ctx context.Context, deal *entity.SettledDeal) error {
	return r.store.write(ctx, func(st *state) error {
		for _, d := range st.deals {
			if d.NegotiationID == deal.NegotiationID {
				return apperror.ErrAlreadySettled
			}
			if d.ExternalID == deal.ExternalID {
				return apperror.New(apperror.ErrCodeConflict, "сделка с таким внешним идентификатором уже существует")
			}
		}
		st.deals[deal.ID] = cloneDeal(*deal)
		return nil
	})
}

func (r *SettledDealRepository) Update(ctx context.Context, deal *entity.SettledDeal) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.deals[deal.ID]; !ok {
			return apperror.ErrDealNotFound
		}
		st.deals[deal.ID] = cloneDeal(*deal)
		return nil
	})
}

func (r *SettledDealRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SettledDeal, error) {
	var out *entity.SettledDeal
	err := r.store.read(ctx, func(st *state) error {
		d, ok := st.deals[id]
		if !ok {
			return apperror.ErrDealNotFound
		}
		c := cloneDeal(d)
		out = &c
		return nil
	})
	return out, err
}

func (r *SettledDealRepository) FindByNegotiationID(ctx context.Context, negotiationID uuid.UUID) (*entity.SettledDeal, error) {
	var out *entity.SettledDeal
	err := r.store.read(ctx, func(st *state) error {
		for _, d := range st.deals {
			if d.NegotiationID == negotiationID {
				c := cloneDeal(d)
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *SettledDealRepository) FindByPublisherID(ctx context.Context, publisherID uuid.UUID) ([]*entity.SettledDeal, error) {
	var out []*entity.SettledDeal
	err := r.store.read(ctx, func(st *state) error {
		for _, d := range st.deals {
			if d.PublisherID == publisherID {
				c := cloneDeal(d)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(out, func(d *entity.SettledDeal) int64 { return d.CreatedAt.UnixNano() })
	return out, nil
}

type DirectoryRepository struct {
	store *Store
}

var (
	_ repository.SectionRepository = (*DirectoryRepository)(nil)
	_ repository.BuyerRepository   = (*DirectoryRepository)(nil)
)

func (r *DirectoryRepository) MissingIDs(ctx context.Context, publisherID uuid.UUID, ids []int64) ([]int64, error) {
	if r.store.openDirectory {
		if err := ctx.Err(); err != nil {
			return nil, unavailable(err)
		}
		return nil, nil
	}
	var missing []int64
	err := r.store.read(ctx, func(st *state) error {
		owned := st.sections[publisherID]
		for _, id := range ids {
			if _, ok := owned[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil
	})
	return missing, err
}

func (r *DirectoryRepository) FindDSPID(ctx context.Context, buyerID uuid.UUID) (string, error) {
	var dspID string
	err := r.store.read(ctx, func(st *state) error {
		id, ok := st.buyers[buyerID]
		if !ok && r.store.openDirectory {
			id, ok = "dsp-"+buyerID.String()[:8], true
		}
		if !ok {
			return apperror.ErrBuyerNotFound
		}
		dspID = id
		return nil
	})
	return dspID, err
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneMoney(m *valueobject.Money) *valueobject.Money {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func cloneProposal(p entity.Proposal) entity.Proposal {
	p.StartDate = cloneTime(p.StartDate)
	p.EndDate = cloneTime(p.EndDate)
	p.Budget = cloneMoney(p.Budget)
	p.SectionIDs = p.SectionIDs.Clone()
	return p
}

func cloneNegotiation(n entity.Negotiation) entity.Negotiation {
	n.Price = cloneMoney(n.Price)
	n.StartDate = cloneTime(n.StartDate)
	n.EndDate = cloneTime(n.EndDate)
	if n.Terms != nil {
		t := *n.Terms
		n.Terms = &t
	}
	return n
}

func cloneDeal(d entity.SettledDeal) entity.SettledDeal {
	d.StartDate = cloneTime(d.StartDate)
	d.EndDate = cloneTime(d.EndDate)
	d.SectionIDs = d.SectionIDs.Clone()
	return d
}
