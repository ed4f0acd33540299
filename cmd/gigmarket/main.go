package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"gig-market/cmd/gigmarket/config"
	"gig-market/internal/gigmarket"
	"gig-market/internal/gigmarket/catalog"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/data/database"
	"gig-market/internal/gigmarket/data/dbrepository"
	"gig-market/internal/gigmarket/data/memrepository"
	"gig-market/internal/gigmarket/service"
	"gig-market/internal/gigmarket/settlement"
	"gig-market/pkg/jwtfactory"
	"gig-market/pkg/logging"
	"gig-market/pkg/pgxstorage"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pingTimeout = 5 * time.Second

type repository interface {
	service.UserRepository
	service.OrderRepository
	service.WithdrawalRepository
}

type store struct {
	transactionManager service.TransactionManager
	repository         repository
	close              func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewZapLogger(
		logging.ParseLevel(cfg.Log.Level),
		logging.WithEncoding(cfg.Log.Encoding),
		logging.WithService("gigmarket"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	rootCtx, cancelCtx := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelCtx()

	memStore := seededMemRepository(rootCtx, cfg.Seed, logger)
	st, err := newStore(rootCtx, cfg, memStore, logger)
	if err != nil {
		logger.ErrorCtx(rootCtx, "failed to initialize store", zap.Error(err))
		return
	}
	defer st.close()

	var serviceCatalog service.Catalog = memStore
	if cfg.Catalog.ServerAddress != "" {
		serviceCatalog = catalog.New(cfg.Catalog, logger)
	} else {
		logger.InfoCtx(rootCtx, "catalog address not set, using seeded in-memory catalog")
	}

	orders := service.NewOrders(cfg.Orders, st.transactionManager, st.repository, st.repository, serviceCatalog, logger)
	wallet := service.NewWallet(cfg.Wallet, st.transactionManager, st.repository, st.repository, logger)
	scheduler := settlement.New(cfg.Settlement, st.repository, wallet, logger)

	tokenAuth := jwtauth.New(cfg.JWTConfig.Algorithm, []byte(cfg.JWTConfig.Secret), nil)
	if cfg.DB.ConnectionString == "" {
		logSeedTokens(rootCtx, jwtfactory.New(tokenAuth, cfg.JWTConfig.ExpirationTime), cfg.Seed, logger)
	}
	server := gigmarket.New(cfg.Server, tokenAuth, orders, wallet, scheduler, logger)

	if err := run(rootCtx, cfg, server, scheduler, logger); err != nil {
		logger.ErrorCtx(rootCtx, "Server shutdown with error", zap.Error(err))
	} else {
		logger.InfoCtx(rootCtx, "Server shutdown gracefully")
	}
}

func newStore(ctx context.Context, cfg *config.Config, memStore *memrepository.MemRepository, logger *logging.ZapLogger) (*store, error) {
	if cfg.DB.ConnectionString == "" {
		logger.WarnCtx(ctx, "database URI not set, ledger is kept in memory")
		return &store{
			transactionManager: memStore,
			repository:         memStore,
			close:              func() {},
		}, nil
	}

	dbFactory := database.NewPgxDatabaseFactory(cfg.DB)
	storage, err := pgxstorage.New(dbFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to create db storage: %w", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := storage.Ping(pingCtx); err != nil {
		storage.Close()
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}
	return &store{
		transactionManager: pgxstorage.NewTransactionsManager(storage),
		repository:         dbrepository.New(storage, logger),
		close:              storage.Close,
	}, nil
}

func seededMemRepository(ctx context.Context, seed config.Seed, logger *logging.ZapLogger) *memrepository.MemRepository {
	repo := memrepository.New()
	for _, user := range seed.Users {
		userID, err := uuid.Parse(user.ID)
		if err != nil {
			logger.WarnCtx(ctx, "skipping seed user with malformed id", zap.String("id", user.ID))
			continue
		}
		repo.AddUser(data.User{
			ID:            userID,
			Name:          user.Name,
			Role:          data.Role(user.Role),
			WalletBalance: user.WalletBalance,
		})
	}
	for _, listing := range seed.Services {
		repo.AddService(listing)
	}
	return repo
}

// logSeedTokens issues a bearer token for every seeded user so a development
// instance can be called without an external identity provider.
func logSeedTokens(ctx context.Context, factory *jwtfactory.TokenFactory, seed config.Seed, logger *logging.ZapLogger) {
	for _, user := range seed.Users {
		token, err := factory.Generate(user.ID, user.Role)
		if err != nil {
			logger.WarnCtx(ctx, "failed to issue seed user token", zap.String("id", user.ID), zap.Error(err))
			continue
		}
		logger.InfoCtx(ctx, "development token issued",
			zap.String("userID", user.ID),
			zap.String("role", user.Role),
			zap.String("token", token),
		)
	}
}

func run(
	rootCtx context.Context,
	cfg *config.Config,
	server *gigmarket.Server,
	scheduler *settlement.Scheduler,
	logger *logging.ZapLogger,
) error {
	g, ctx := errgroup.WithContext(rootCtx)

	context.AfterFunc(ctx, func() {
		ctx, cancelCtx := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelCtx()

		<-ctx.Done()
		log.Fatal("failed to gracefully shutdown the server")
	})

	g.Go(func() error {
		if err := server.Run(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Run()
		return nil
	})

	g.Go(func() error {
		defer logger.InfoCtx(ctx, "Shutting down server")
		<-ctx.Done()
		scheduler.Stop()
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("goroutine error occurred: %w", err)
	}

	return nil
}
