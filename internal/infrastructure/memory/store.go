// Package memory реализует хранилище сделок в памяти процесса.
// Используется в development-режиме (STORE_DRIVER=memory) и в тестах.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/deals-backend/internal/domain/entity"
)

type txKey struct{}

type state struct {
	proposals    map[uuid.UUID]entity.Proposal
	negotiations map[uuid.UUID]entity.Negotiation
	deals        map[uuid.UUID]entity.SettledDeal
	sections     map[uuid.UUID]map[int64]struct{}
	buyers       map[uuid.UUID]string
}

func newState() *state {
	return &state{
		proposals:    make(map[uuid.UUID]entity.Proposal),
		negotiations: make(map[uuid.UUID]entity.Negotiation),
		deals:        make(map[uuid.UUID]entity.SettledDeal),
		sections:     make(map[uuid.UUID]map[int64]struct{}),
		buyers:       make(map[uuid.UUID]string),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.proposals {
		out.proposals[k] = cloneProposal(v)
	}
	for k, v := range s.negotiations {
		out.negotiations[k] = cloneNegotiation(v)
	}
	for k, v := range s.deals {
		out.deals[k] = cloneDeal(v)
	}
	for k, v := range s.sections {
		set := make(map[int64]struct{}, len(v))
		for id := range v {
			set[id] = struct{}{}
		}
		out.sections[k] = set
	}
	for k, v := range s.buyers {
		out.buyers[k] = v
	}
	return out
}

// Store: потокобезопасное хранилище. Транзакции сериализуются единым мьютексом
// и применяются целиком: при ошибке fn состояние не меняется.
type Store struct {
	mu            sync.RWMutex
	state         *state
	openDirectory bool
}

type Option func(*Store)

// WithOpenDirectory принимает любые секции и любых покупателей без регистрации.
// Нужен для локального запуска без справочников.
func WithOpenDirectory() Option {
	return func(s *Store) { s.openDirectory = true }
}

func NewStore(opts ...Option) *Store {
	s := &Store{state: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping проверяет доступность хранилища; в памяти оно доступно всегда.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// WithinTx выполняет fn над копией состояния и публикует её при успехе.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	working := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, working)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	s.state = working
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.WithinTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx.Value(txKey{}).(*state))
	})
}

// AddSections регистрирует секции инвентаря паблишера.
func (s *Store) AddSections(publisherID uuid.UUID, ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.state.sections[publisherID]
	if !ok {
		set = make(map[int64]struct{})
		s.state.sections[publisherID] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

// AddBuyer регистрирует покупателя и его DSP.
func (s *Store) AddBuyer(buyerID uuid.UUID, dspID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.buyers[buyerID] = dspID
}

func (s *Store) Proposals() *ProposalRepository {
	return &ProposalRepository{store: s}
}

func (s *Store) Negotiations() *NegotiationRepository {
	return &NegotiationRepository{store: s}
}

func (s *Store) Deals() *SettledDealRepository {
	return &SettledDealRepository{store: s}
}

func (s *Store) Directory() *DirectoryRepository {
	return &DirectoryRepository{store: s}
}

func sortByCreated[T any](items []*T, createdAt func(*T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]) > createdAt(items[j])
	})
}
