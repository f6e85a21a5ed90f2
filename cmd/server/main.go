package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/deals-backend/internal/config"
	"github.com/ignatzorin/deals-backend/internal/db"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	httpRouter "github.com/ignatzorin/deals-backend/internal/http/router"
	"github.com/ignatzorin/deals-backend/internal/infrastructure/authz"
	"github.com/ignatzorin/deals-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/deals-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/deals-backend/internal/interface/http/handler"
	"github.com/ignatzorin/deals-backend/internal/logger"
	"github.com/ignatzorin/deals-backend/internal/service"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/negotiation"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
	"github.com/ignatzorin/deals-backend/internal/usecase/settlement"
	"github.com/ignatzorin/deals-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// stores: реализация хранилища, выбранная STORE_DRIVER.
type stores struct {
	tx           repository.Transactor
	proposals    repository.ProposalRepository
	negotiations repository.NegotiationRepository
	deals        repository.SettledDealRepository
	sections     repository.SectionRepository
	buyers       repository.BuyerRepository
	ping         handler.Pinger
	close        func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Log.WithError(err).Error("main: сервис остановлен с ошибкой")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())
	for _, warning := range cfg.Warnings {
		logger.Log.Warn("config: " + warning)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hub := ws.NewHub()
	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	negotiationLC := negotiation.NewLifecycle(st.tx, st.proposals, st.negotiations)
	proposalLC := proposal.NewLifecycle(st.tx, st.proposals, st.sections, negotiationLC)
	settlementLC := settlement.NewLifecycle(st.proposals, st.deals, st.buyers)
	orchestrator := deal.NewOrchestrator(st.tx, st.negotiations, proposalLC, negotiationLC, settlementLC, hub)
	importer := proposal.NewImporter(orchestrator.CreateProposal)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Proposals:    handler.NewProposalHandler(orchestrator, proposalLC, importer, cfg.MaxImportBytes()),
		Negotiations: handler.NewNegotiationHandler(orchestrator, negotiationLC),
		Deals:        handler.NewDealHandler(orchestrator, settlementLC),
		Health:       handler.NewHealthHandler(st.ping, cfg.RequestTimeout),
		WS:           handler.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
		Tokens:       tokens,
		Authorizer:   authz.NewStoreAuthorizer(st.proposals, st.negotiations, st.deals),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		logger.Log.WithField("port", cfg.HTTPPort).Info("main: http сервер запущен")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		var opts []memory.Option
		if cfg.OpenDirectory {
			opts = append(opts, memory.WithOpenDirectory())
		}
		store := memory.NewStore(opts...)
		logger.Log.Warn("main: используется хранилище в памяти, данные не переживут перезапуск")
		return &stores{
			tx:           store,
			proposals:    store.Proposals(),
			negotiations: store.Negotiations(),
			deals:        store.Deals(),
			sections:     store.Directory(),
			buyers:       store.Directory(),
			ping:         store.Ping,
			close:        func() {},
		}, nil
	}

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, conn, cfg.MigrationsPath); err != nil {
		safeClose(conn)
		return nil, err
	}

	directory := persistence.NewDirectoryAdapter(conn)
	return &stores{
		tx:           persistence.NewTxManager(conn, cfg.RequestTimeout),
		proposals:    persistence.NewProposalRepositoryAdapter(conn),
		negotiations: persistence.NewNegotiationRepositoryAdapter(conn),
		deals:        persistence.NewSettledDealRepositoryAdapter(conn),
		sections:     directory,
		buyers:       directory,
		ping:         conn.PingContext,
		close:        func() { safeClose(conn) },
	}, nil
}

func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия соединения с базой")
	}
}
