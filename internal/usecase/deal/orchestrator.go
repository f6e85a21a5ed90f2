// Package deal связывает жизненные циклы предложений, переговоров и сделок
// в операции, доступные API.
package deal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/domain/valueobject"
	"github.com/ignatzorin/deals-backend/internal/logger"
	"github.com/ignatzorin/deals-backend/internal/metrics"
	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
	"github.com/ignatzorin/deals-backend/internal/usecase/negotiation"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
	"github.com/ignatzorin/deals-backend/internal/usecase/settlement"
)

type DeleteProposalResult struct {
	Proposal     *entity.Proposal
	Negotiations []*entity.Negotiation
}

// SubmitResult: итог хода. Deal заполнен, если ход привёл к взаимному принятию.
type SubmitResult struct {
	Negotiation *entity.Negotiation
	Created     bool
	Deal        *entity.SettledDeal
}

type Orchestrator struct {
	tx              repository.Transactor
	negotiationRepo repository.NegotiationRepository
	proposals       *proposal.Lifecycle
	negotiations    *negotiation.Lifecycle
	settlement      *settlement.Lifecycle
	notifier        Notifier
}

func NewOrchestrator(
	tx repository.Transactor,
	negotiationRepo repository.NegotiationRepository,
	proposals *proposal.Lifecycle,
	negotiations *negotiation.Lifecycle,
	settlement *settlement.Lifecycle,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		tx:              tx,
		negotiationRepo: negotiationRepo,
		proposals:       proposals,
		negotiations:    negotiations,
		settlement:      settlement,
		notifier:        notifier,
	}
}

func (o *Orchestrator) CreateProposal(ctx context.Context, ownerID uuid.UUID, fields entity.ProposalFields) (p *entity.Proposal, err error) {
	defer record("create_proposal", time.Now(), &err)

	p, err = o.proposals.Create(ctx, ownerID, fields)
	if err != nil {
		return nil, err
	}
	logInfo(logrus.Fields{"proposal_id": p.ID, "actor_id": ownerID}, "предложение создано")
	return p, nil
}

// DeleteProposal удаляет предложение и закрывает сторону паблишера в открытых переговорах.
// Сделки и переговоры, по которым они созданы, не меняются.
func (o *Orchestrator) DeleteProposal(ctx context.Context, proposalID, actorID uuid.UUID) (res *DeleteProposalResult, err error) {
	defer record("delete_proposal", time.Now(), &err)

	p, changed, err := o.proposals.Delete(ctx, proposalID, actorID)
	if err != nil {
		return nil, err
	}

	metrics.NegotiationsCascaded.Add(float64(len(changed)))
	logInfo(logrus.Fields{
		"proposal_id":  p.ID,
		"actor_id":     actorID,
		"negotiations": len(changed),
	}, "предложение удалено")

	for _, n := range changed {
		o.notify(n.BuyerID, EventProposalDeleted, newNegotiationEvent(n))
	}
	return &DeleteProposalResult{Proposal: p, Negotiations: changed}, nil
}

// SubmitNegotiation открывает переговоры или делает ход. Если после хода обе стороны
// приняли условия, сделка создаётся в той же транзакции.
func (o *Orchestrator) SubmitNegotiation(ctx context.Context, proposalID, buyerID uuid.UUID, sub negotiation.Submission) (res *SubmitResult, err error) {
	defer record("submit_negotiation", time.Now(), &err)
	logger.Log.WithFields(logrus.Fields{
		"proposal_id": proposalID,
		"buyer_id":    buyerID,
		"actor_id":    sub.ActorID,
		"position":    sub.Position,
	}).Debug("deal orchestrator: ход в переговорах")

	res = &SubmitResult{}
	err = o.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, created, err := o.negotiations.CreateOrUpdate(ctx, proposalID, buyerID, sub)
		if err != nil {
			return err
		}
		res.Negotiation, res.Created = n, created

		accepted, err := o.negotiations.CheckMutualAcceptance(ctx, n.ID)
		if err != nil || !accepted {
			return err
		}
		res.Deal, err = o.settlement.Settle(ctx, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	n := res.Negotiation
	logInfo(logrus.Fields{
		"negotiation_id": n.ID,
		"proposal_id":    n.ProposalID,
		"actor_id":       sub.ActorID,
		"sender":         n.Sender,
		"owner_status":   n.OwnerStatus,
		"partner_status": n.PartnerStatus,
	}, "ход в переговорах")

	if party, ok := n.PartyOf(sub.ActorID); ok {
		o.notify(participantID(n, party.Other()), EventNegotiationUpdated, newNegotiationEvent(n))
	}
	if res.Deal != nil {
		o.afterSettled(n, res.Deal)
	}
	return res, nil
}

// Settle создаёт сделку по взаимно принятым переговорам.
// Повторный вызов возвращает уже созданную сделку.
func (o *Orchestrator) Settle(ctx context.Context, negotiationID uuid.UUID) (deal *entity.SettledDeal, err error) {
	defer record("settle", time.Now(), &err)

	var (
		n       *entity.Negotiation
		created bool
	)
	err = o.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := o.negotiationRepo.LockByID(ctx, negotiationID)
		if err != nil {
			return err
		}
		n = locked

		existing, err := o.settlement.FindByNegotiation(ctx, n.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			deal = existing
			return nil
		}

		accepted, err := o.negotiations.CheckMutualAcceptance(ctx, n.ID)
		if err != nil {
			return err
		}
		if !accepted {
			return apperror.New(apperror.ErrCodeConflict, "переговоры не приняты обеими сторонами")
		}
		deal, err = o.settlement.Settle(ctx, n)
		created = err == nil
		return err
	})
	if err != nil {
		// Параллельный вызов успел создать сделку первым.
		if errors.Is(err, apperror.ErrAlreadySettled) {
			existing, findErr := o.settlement.FindByNegotiation(ctx, negotiationID)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if created {
		o.afterSettled(n, deal)
	}
	return deal, nil
}

// UpdateDealStatus меняет статус сделки по явному запросу паблишера.
func (o *Orchestrator) UpdateDealStatus(ctx context.Context, dealID uuid.UUID, status string, actorID uuid.UUID) (d *entity.SettledDeal, err error) {
	defer record("update_deal_status", time.Now(), &err)

	d, changed, err := o.settlement.UpdateStatus(ctx, dealID, status, actorID)
	if err != nil {
		return nil, err
	}
	if changed {
		logInfo(logrus.Fields{"deal_id": d.ID, "actor_id": actorID, "status": d.Status}, "статус сделки изменён")
		o.notify(d.PublisherID, EventDealStatusChanged, newDealEvent(d))
	}
	return d, nil
}

// WithdrawNegotiation архивирует или удаляет переговоры со стороны актора.
func (o *Orchestrator) WithdrawNegotiation(ctx context.Context, negotiationID, actorID uuid.UUID, status string) (n *entity.Negotiation, err error) {
	defer record("withdraw_negotiation", time.Now(), &err)

	n, err = o.negotiations.Withdraw(ctx, negotiationID, actorID, status)
	if err != nil {
		return nil, err
	}
	logInfo(logrus.Fields{
		"negotiation_id": n.ID,
		"actor_id":       actorID,
		"owner_status":   n.OwnerStatus,
		"partner_status": n.PartnerStatus,
	}, "сторона вышла из переговоров")

	if party, ok := n.PartyOf(actorID); ok {
		o.notify(participantID(n, party.Other()), EventNegotiationUpdated, newNegotiationEvent(n))
	}
	return n, nil
}

func (o *Orchestrator) afterSettled(n *entity.Negotiation, d *entity.SettledDeal) {
	metrics.DealsSettled.Inc()
	logInfo(logrus.Fields{
		"deal_id":        d.ID,
		"negotiation_id": n.ID,
		"external_id":    d.ExternalID,
	}, "сделка урегулирована")

	event := newDealEvent(d)
	o.notify(n.PublisherID, EventDealSettled, event)
	o.notify(n.BuyerID, EventDealSettled, event)
}

func (o *Orchestrator) notify(userID uuid.UUID, event string, data any) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
			"error":   err.Error(),
		}).Warn("deal orchestrator: не удалось отправить событие")
	}
}

func participantID(n *entity.Negotiation, party valueobject.Party) uuid.UUID {
	if party == valueobject.PartyPublisher {
		return n.PublisherID
	}
	return n.BuyerID
}

func record(operation string, started time.Time, err *error) {
	code := ""
	if *err != nil {
		code = string(apperror.CodeOf(*err))
	}
	metrics.RecordOperation(operation, started, code)
}

func logInfo(fields logrus.Fields, msg string) {
	logger.Log.WithFields(fields).Info(msg)
}
