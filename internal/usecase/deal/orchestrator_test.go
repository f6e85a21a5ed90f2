package deal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/negotiation"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
	"github.com/ignatzorin/deals-backend/internal/usecase/settlement"
)

type sentEvent struct {
	userID uuid.UUID
	event  string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{userID: userID, event: event})
	return nil
}

func (r *recordingNotifier) count(userID uuid.UUID, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.userID == userID && e.event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	store       *memory.Store
	orch        *deal.Orchestrator
	proposals   *proposal.Lifecycle
	notifier    *recordingNotifier
	publisherID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	proposals := store.Proposals()
	negotiations := store.Negotiations()
	directory := store.Directory()

	negotiationLC := negotiation.NewLifecycle(store, proposals, negotiations)
	proposalLC := proposal.NewLifecycle(store, proposals, directory, negotiationLC)
	settlementLC := settlement.NewLifecycle(proposals, store.Deals(), directory)
	notifier := &recordingNotifier{}

	f := &fixture{
		store:       store,
		orch:        deal.NewOrchestrator(store, negotiations, proposalLC, negotiationLC, settlementLC, notifier),
		proposals:   proposalLC,
		notifier:    notifier,
		publisherID: uuid.New(),
	}
	store.AddSections(f.publisherID, 10, 20, 30)
	return f
}

func (f *fixture) newBuyer() uuid.UUID {
	id := uuid.New()
	f.store.AddBuyer(id, "dsp-"+id.String()[:8])
	return id
}

func (f *fixture) createProposal(t *testing.T) *entity.Proposal {
	t.Helper()
	p, err := f.orch.CreateProposal(context.Background(), f.publisherID, entity.ProposalFields{
		Name:              "Homepage takeover",
		Price:             decimal.RequireFromString("12.50"),
		ImpressionsTarget: 100000,
		AuctionType:       "fixed",
		Terms:             "no alcohol",
		SectionIDs:        []int64{20, 10},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) submit(proposalID, buyerID, actorID uuid.UUID, position string, offer entity.Offer) (*deal.SubmitResult, error) {
	return f.orch.SubmitNegotiation(context.Background(), proposalID, buyerID, negotiation.Submission{
		ActorID:  actorID,
		Position: position,
		Offer:    offer,
	})
}

// acceptBoth проводит переговоры до взаимного принятия и возвращает созданную сделку.
func (f *fixture) acceptBoth(t *testing.T, proposalID, buyerID uuid.UUID) (*entity.Negotiation, *entity.SettledDeal) {
	t.Helper()
	_, err := f.submit(proposalID, buyerID, buyerID, "active", entity.Offer{})
	require.NoError(t, err)
	_, err = f.submit(proposalID, buyerID, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	res, err := f.submit(proposalID, buyerID, buyerID, "accepted", entity.Offer{})
	require.NoError(t, err)
	require.NotNil(t, res.Deal)
	return res.Negotiation, res.Deal
}

// seedAccepted сохраняет взаимно принятые переговоры без сделки.
func (f *fixture) seedAccepted(t *testing.T, p *entity.Proposal, buyerID uuid.UUID) *entity.Negotiation {
	t.Helper()
	n, err := entity.NewNegotiation(p, buyerID, entity.Offer{})
	require.NoError(t, err)
	n.OwnerStatus = valueobject.PartyStatusAccepted
	n.PartnerStatus = valueobject.PartyStatusAccepted
	require.NoError(t, f.store.Negotiations().Create(context.Background(), n))
	return n
}

func (f *fixture) deals(t *testing.T) []*entity.SettledDeal {
	t.Helper()
	deals, err := f.store.Deals().FindByPublisherID(context.Background(), f.publisherID)
	require.NoError(t, err)
	return deals
}

func (f *fixture) negotiation(t *testing.T, id uuid.UUID) *entity.Negotiation {
	t.Helper()
	n, err := f.store.Negotiations().FindByID(context.Background(), id)
	require.NoError(t, err)
	return n
}

func TestSettle_CreatesActiveDealOnceAndReturnsItAgain(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	n := f.seedAccepted(t, p, f.newBuyer())

	first, err := f.orch.Settle(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DealStatusActive, first.Status)
	assert.Equal(t, n.ID, first.NegotiationID)
	assert.Equal(t, settlement.ExternalID(n.ID), first.ExternalID)
	assert.Equal(t, entity.DefaultDealPriority, first.Priority)
	assert.True(t, first.Rate.Equal(p.Price))
	assert.Equal(t, []int64{10, 20}, first.SectionIDs.Int64s())

	second, err := f.orch.Settle(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.deals(t), 1)
}

func TestSettle_ConcurrentCallsProduceOneDeal(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	n := f.seedAccepted(t, p, f.newBuyer())

	const callers = 8
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := f.orch.Settle(context.Background(), n.ID)
			if err == nil {
				ids[i] = d.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, f.deals(t), 1)
}

func TestSettle_RequiresMutualAcceptance(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	res, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)

	_, err = f.orch.Settle(context.Background(), res.Negotiation.ID)
	assert.True(t, apperror.IsConflict(err), "expected conflict, got %v", err)
	assert.Empty(t, f.deals(t))
}

func TestSettle_UnknownNegotiation(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Settle(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestSubmitNegotiation_MutualAcceptanceSettlesImmediately(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	n, d := f.acceptBoth(t, p.ID, buyer)
	assert.True(t, n.IsMutuallyAccepted())
	assert.Equal(t, valueobject.DealStatusActive, d.Status)

	again, err := f.orch.Settle(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, again.ID)
	assert.Len(t, f.deals(t), 1)

	assert.Equal(t, 1, f.notifier.count(f.publisherID, deal.EventDealSettled))
	assert.Equal(t, 1, f.notifier.count(buyer, deal.EventDealSettled))
}

func TestSubmitNegotiation_SettledDealUsesNegotiatedTerms(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	price := decimal.RequireFromString("9.75")
	terms := "weekdays only"
	_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{Price: &price, Terms: &terms})
	require.NoError(t, err)
	_, err = f.submit(p.ID, buyer, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	res, err := f.submit(p.ID, buyer, buyer, "accepted", entity.Offer{})
	require.NoError(t, err)
	require.NotNil(t, res.Deal)

	assert.True(t, res.Deal.Rate.Amount.Equal(price))
	assert.Equal(t, terms, res.Deal.Terms)
	assert.Equal(t, p.Name, res.Deal.Name)
	assert.Equal(t, p.AuctionType, res.Deal.AuctionType)
}

func TestSubmitNegotiation_CounterOfferReopensOtherSide(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	res, err := f.submit(p.ID, buyer, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	assert.Equal(t, valueobject.PartyStatusAccepted, res.Negotiation.OwnerStatus)

	price := decimal.RequireFromString("11")
	res, err = f.submit(p.ID, buyer, buyer, "accepted", entity.Offer{Price: &price})
	require.NoError(t, err)
	assert.Nil(t, res.Deal)
	assert.Equal(t, valueobject.PartyStatusActive, res.Negotiation.OwnerStatus)
	assert.Equal(t, valueobject.PartyStatusAccepted, res.Negotiation.PartnerStatus)
	assert.Equal(t, valueobject.TurnAwaitingPublisher, res.Negotiation.Turn())
	assert.Equal(t, 2, f.notifier.count(f.publisherID, deal.EventNegotiationUpdated))
}

func TestSubmitNegotiation_SenderAlternates(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	res, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Equal(t, valueobject.PartyBuyer, res.Negotiation.Sender)

	res, err = f.submit(p.ID, buyer, f.publisherID, "active", entity.Offer{})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, valueobject.PartyPublisher, res.Negotiation.Sender)

	_, err = f.submit(p.ID, buyer, f.publisherID, "active", entity.Offer{})
	assert.True(t, apperror.IsConflict(err), "expected conflict, got %v", err)

	stored := f.negotiation(t, res.Negotiation.ID)
	assert.Equal(t, valueobject.PartyPublisher, stored.Sender)
	assert.Equal(t, res.Negotiation.Version, stored.Version)
}

func TestSubmitNegotiation_BuyerCannotMoveTwice(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	_, err = f.submit(p.ID, buyer, buyer, "accepted", entity.Offer{})
	assert.True(t, apperror.IsConflict(err))
}

func TestSubmitNegotiation_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	res, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	stale := res.Negotiation.Version - 1

	_, err = f.orch.SubmitNegotiation(context.Background(), p.ID, buyer, negotiation.Submission{
		ActorID:         f.publisherID,
		Position:        "active",
		ExpectedVersion: &stale,
	})
	assert.ErrorIs(t, err, apperror.ErrStaleNegotiation)
}

func TestSubmitNegotiation_ConcurrentMovesOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	res, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	version := res.Negotiation.Version

	const movers = 4
	errs := make([]error, movers)
	var wg sync.WaitGroup
	for i := 0; i < movers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.SubmitNegotiation(context.Background(), p.ID, buyer, negotiation.Submission{
				ActorID:         f.publisherID,
				Position:        "active",
				ExpectedVersion: &version,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.IsConflict(err), "expected conflict, got %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSubmitNegotiation_OpeningRules(t *testing.T) {
	t.Run("publisher cannot open", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProposal(t)
		_, err := f.submit(p.ID, f.newBuyer(), f.publisherID, "active", entity.Offer{})
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("owner cannot negotiate with self", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProposal(t)
		_, err := f.submit(p.ID, f.publisherID, f.publisherID, "active", entity.Offer{})
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("paused proposal", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProposal(t)
		p.Status = valueobject.ProposalStatusPaused
		require.NoError(t, f.store.Proposals().Update(context.Background(), p))

		buyer := f.newBuyer()
		_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("expired proposal", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProposal(t)
		yesterday := time.Now().Add(-24 * time.Hour)
		p.EndDate = &yesterday
		require.NoError(t, f.store.Proposals().Update(context.Background(), p))

		buyer := f.newBuyer()
		_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("opening must be a counter offer", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProposal(t)
		buyer := f.newBuyer()
		_, err := f.submit(p.ID, buyer, buyer, "accepted", entity.Offer{})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("unknown proposal", func(t *testing.T) {
		f := newFixture(t)
		buyer := f.newBuyer()
		_, err := f.submit(uuid.New(), buyer, buyer, "active", entity.Offer{})
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("stranger cannot move", func(t *testing.T) {
		f := newFixture(t)
		p := f.createProposal(t)
		buyer := f.newBuyer()
		_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
		require.NoError(t, err)

		_, err = f.submit(p.ID, buyer, uuid.New(), "active", entity.Offer{})
		assert.True(t, apperror.IsForbidden(err))
	})
}

func TestDeleteProposal_CascadesToOpenNegotiationsOnly(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	b1, b2, b3 := f.newBuyer(), f.newBuyer(), f.newBuyer()

	r1, err := f.submit(p.ID, b1, b1, "active", entity.Offer{})
	require.NoError(t, err)
	_, err = f.submit(p.ID, b2, b2, "active", entity.Offer{})
	require.NoError(t, err)
	r2, err := f.submit(p.ID, b2, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	n3, d3 := f.acceptBoth(t, p.ID, b3)

	res, err := f.orch.DeleteProposal(context.Background(), p.ID, f.publisherID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusDeleted, res.Proposal.Status)
	assert.Len(t, res.Negotiations, 2)

	n1 := f.negotiation(t, r1.Negotiation.ID)
	assert.Equal(t, valueobject.PartyStatusDeleted, n1.OwnerStatus)
	assert.Equal(t, valueobject.PartyStatusActive, n1.PartnerStatus)

	n2 := f.negotiation(t, r2.Negotiation.ID)
	assert.Equal(t, valueobject.PartyStatusDeleted, n2.OwnerStatus)
	assert.Equal(t, valueobject.PartyStatusActive, n2.PartnerStatus)

	settled := f.negotiation(t, n3.ID)
	assert.Equal(t, valueobject.PartyStatusAccepted, settled.OwnerStatus)
	assert.Equal(t, valueobject.PartyStatusAccepted, settled.PartnerStatus)
	assert.Equal(t, n3.Version, settled.Version)

	stored, err := f.store.Deals().FindByID(context.Background(), d3.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DealStatusActive, stored.Status)

	assert.Equal(t, 1, f.notifier.count(b1, deal.EventProposalDeleted))
	assert.Equal(t, 1, f.notifier.count(b2, deal.EventProposalDeleted))
	assert.Equal(t, 0, f.notifier.count(b3, deal.EventProposalDeleted))
}

func TestDeleteProposal_SkipsAlreadyDeletedOwnerSide(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	res, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	_, err = f.orch.WithdrawNegotiation(context.Background(), res.Negotiation.ID, f.publisherID, "deleted")
	require.NoError(t, err)

	deleted, err := f.orch.DeleteProposal(context.Background(), p.ID, f.publisherID)
	require.NoError(t, err)
	assert.Empty(t, deleted.Negotiations)
}

func TestDeleteProposal_ExpiredProposalIsDeleted(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	yesterday := time.Now().Add(-24 * time.Hour)
	p.EndDate = &yesterday
	require.NoError(t, f.store.Proposals().Update(context.Background(), p))

	res, err := f.orch.DeleteProposal(context.Background(), p.ID, f.publisherID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusDeleted, res.Proposal.Status)
}

func TestDeleteProposal_SecondDeleteIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)

	_, err := f.orch.DeleteProposal(context.Background(), p.ID, f.publisherID)
	require.NoError(t, err)

	_, err = f.orch.DeleteProposal(context.Background(), p.ID, f.publisherID)
	assert.True(t, apperror.IsForbidden(err), "expected forbidden, got %v", err)
}

func TestDeleteProposal_OwnershipAndExistence(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)

	_, err := f.orch.DeleteProposal(context.Background(), p.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.orch.DeleteProposal(context.Background(), uuid.New(), f.publisherID)
	assert.True(t, apperror.IsNotFound(err))

	stored, err := f.store.Proposals().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusActive, stored.Status)
}

func TestSubmitNegotiation_AfterProposalDeleted(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()

	_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	_, err = f.orch.DeleteProposal(context.Background(), p.ID, f.publisherID)
	require.NoError(t, err)

	_, err = f.submit(p.ID, buyer, f.publisherID, "accepted", entity.Offer{})
	assert.True(t, apperror.IsForbidden(err))

	other := f.newBuyer()
	_, err = f.submit(p.ID, other, other, "active", entity.Offer{})
	assert.True(t, apperror.IsForbidden(err))
}

func TestUpdateDealStatus(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()
	_, d := f.acceptBoth(t, p.ID, buyer)
	ctx := context.Background()

	paused, err := f.orch.UpdateDealStatus(ctx, d.ID, "paused", f.publisherID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DealStatusPaused, paused.Status)

	same, err := f.orch.UpdateDealStatus(ctx, d.ID, "paused", f.publisherID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DealStatusPaused, same.Status)
	assert.Equal(t, 1, f.notifier.count(f.publisherID, deal.EventDealStatusChanged))

	_, err = f.orch.UpdateDealStatus(ctx, d.ID, "active", buyer)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.orch.UpdateDealStatus(ctx, d.ID, "archived", f.publisherID)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.orch.UpdateDealStatus(ctx, d.ID, "deleted", f.publisherID)
	require.NoError(t, err)
	_, err = f.orch.UpdateDealStatus(ctx, d.ID, "active", f.publisherID)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.orch.UpdateDealStatus(ctx, uuid.New(), "active", f.publisherID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestWithdrawNegotiation_LeavesDealUntouched(t *testing.T) {
	f := newFixture(t)
	p := f.createProposal(t)
	buyer := f.newBuyer()
	n, d := f.acceptBoth(t, p.ID, buyer)

	withdrawn, err := f.orch.WithdrawNegotiation(context.Background(), n.ID, buyer, "archived")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PartyStatusArchived, withdrawn.PartnerStatus)
	assert.Equal(t, valueobject.PartyBuyer, withdrawn.Sender)

	stored, err := f.store.Deals().FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DealStatusActive, stored.Status)
}

func TestOrchestrator_CancelledContextIsStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.CreateProposal(ctx, f.publisherID, entity.ProposalFields{
		Name:        "x",
		Price:       decimal.NewFromInt(1),
		AuctionType: "first",
		SectionIDs:  []int64{10},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsStoreUnavailable(err))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable())
}

func editFields(p *entity.Proposal) entity.ProposalFields {
	return entity.ProposalFields{
		Name:              p.Name,
		Description:       p.Description,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Price:             p.Price.Amount,
		ImpressionsTarget: p.ImpressionsTarget,
		AuctionType:       string(p.AuctionType),
		Terms:             p.Terms,
		SectionIDs:        p.SectionIDs.Int64s(),
	}
}

func TestProposalEdit_DoesNotChangeAcceptedPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProposal(t)
	buyer := f.newBuyer()

	_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	_, err = f.submit(p.ID, buyer, f.publisherID, "active", entity.Offer{})
	require.NoError(t, err)
	res, err := f.submit(p.ID, buyer, buyer, "accepted", entity.Offer{})
	require.NoError(t, err)
	require.Equal(t, valueobject.PartyStatusAccepted, res.Negotiation.PartnerStatus)

	fields := editFields(p)
	fields.Price = decimal.NewFromInt(99)
	_, err = f.proposals.Update(ctx, p.ID, f.publisherID, fields)
	require.NoError(t, err)

	res, err = f.submit(p.ID, buyer, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	require.NotNil(t, res.Deal)
	assert.True(t, res.Deal.Rate.Amount.Equal(decimal.RequireFromString("12.50")),
		"deal must settle at the price the buyer accepted, got %s", res.Deal.Rate.Amount)
}

func TestProposalEdit_WithdrawsAcceptanceOfChangedTerms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProposal(t)
	buyer := f.newBuyer()

	_, err := f.submit(p.ID, buyer, buyer, "active", entity.Offer{})
	require.NoError(t, err)
	res, err := f.submit(p.ID, buyer, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	require.Equal(t, valueobject.PartyStatusAccepted, res.Negotiation.OwnerStatus)
	version := res.Negotiation.Version

	// Переговоры открыты без даты окончания, поэтому она берётся из предложения.
	end := time.Now().Add(30 * 24 * time.Hour)
	fields := editFields(p)
	fields.EndDate = &end
	_, err = f.proposals.Update(ctx, p.ID, f.publisherID, fields)
	require.NoError(t, err)

	n := f.negotiation(t, res.Negotiation.ID)
	assert.Equal(t, valueobject.PartyStatusActive, n.OwnerStatus)
	assert.Equal(t, valueobject.PartyStatusActive, n.PartnerStatus)
	assert.Equal(t, version+1, n.Version)

	res, err = f.submit(p.ID, buyer, buyer, "accepted", entity.Offer{})
	require.NoError(t, err)
	assert.Nil(t, res.Deal, "buyer acceptance alone must not settle after the publisher's terms changed")
	assert.Empty(t, f.deals(t))

	res, err = f.submit(p.ID, buyer, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)
	require.NotNil(t, res.Deal)
	require.NotNil(t, res.Deal.EndDate)
	assert.True(t, res.Deal.EndDate.Equal(end))
}

func TestProposalEdit_LeavesSettledAndUnchangedNegotiations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProposal(t)

	settledNegotiation, d := f.acceptBoth(t, p.ID, f.newBuyer())
	other := f.newBuyer()
	_, err := f.submit(p.ID, other, other, "active", entity.Offer{})
	require.NoError(t, err)
	res, err := f.submit(p.ID, other, f.publisherID, "accepted", entity.Offer{})
	require.NoError(t, err)

	fields := editFields(p)
	fields.Name = "Homepage takeover Q4"
	_, err = f.proposals.Update(ctx, p.ID, f.publisherID, fields)
	require.NoError(t, err)

	assert.Equal(t, valueobject.PartyStatusAccepted, f.negotiation(t, res.Negotiation.ID).OwnerStatus)
	assert.True(t, f.negotiation(t, settledNegotiation.ID).IsMutuallyAccepted())
	deals := f.deals(t)
	require.Len(t, deals, 1)
	assert.Equal(t, d.ID, deals[0].ID)
}
