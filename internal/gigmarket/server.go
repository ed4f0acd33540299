package gigmarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/handlers"
	"gig-market/internal/gigmarket/middleware"
	"gig-market/pkg/logging"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration
}

type OrderService interface {
	handlers.OrderCreationService
	handlers.OrdersGettingService
	handlers.OrderTransitionService
}

type WalletService interface {
	handlers.BalanceGettingService
	handlers.WithdrawRequesterService
	handlers.WithdrawalsGettingService
	handlers.WithdrawalProcessingService
}

type Server struct {
	logger     *logging.ZapLogger
	httpServer *http.Server
	cfg        Config
}

func New(
	cfg Config,
	tokenAuth *jwtauth.JWTAuth,
	orderService OrderService,
	walletService WalletService,
	sweeper handlers.Sweeper,
	logger *logging.ZapLogger,
) *Server {
	srv := &http.Server{
		Addr: cfg.ServerAddress,
		Handler: NewRouter(
			tokenAuth,
			orderService,
			walletService,
			sweeper,
			logger,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: srv,
	}
}

func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server ListenAndServe failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// NewRouter builds the HTTP surface. Every /api route requires a bearer
// token carrying user_id and role claims.
func NewRouter(
	tokenAuth *jwtauth.JWTAuth,
	orderService OrderService,
	walletService WalletService,
	sweeper handlers.Sweeper,
	logger *logging.ZapLogger,
) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		chimiddleware.RequestID,
		middleware.NewLoggerContext(logger).CreateHandler,
		middleware.NewPanicRecover(logger).CreateHandler,
	)

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(router chi.Router) {
		router.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
			middleware.NewActorContext(logger).CreateHandler,
		)

		router.Route("/orders", func(router chi.Router) {
			router.Post("/", handlers.NewOrderCreationHandler(orderService, logger).ServeHTTP)
			router.Get("/", handlers.NewOrdersGettingHandler(orderService, logger).ServeHTTP)
			router.Get("/{id}", handlers.NewOrderGettingHandler(orderService, logger).ServeHTTP)
			router.Post("/{id}/accept", handlers.NewAcceptHandler(orderService, logger).ServeHTTP)
			router.Post("/{id}/submit", handlers.NewSubmitWorkHandler(orderService, logger).ServeHTTP)
			router.Post("/{id}/revision", handlers.NewRevisionRequestHandler(orderService, logger).ServeHTTP)
			router.Post("/{id}/approve", handlers.NewApproveHandler(orderService, logger).ServeHTTP)
			router.Post("/{id}/cancel", handlers.NewOrderCancelHandler(orderService, logger).ServeHTTP)
			router.Post("/{id}/files", handlers.NewFilesUploadHandler(orderService, logger).ServeHTTP)
		})

		router.Get("/wallet", handlers.NewBalanceGettingHandler(walletService, logger).ServeHTTP)

		router.Route("/withdrawals", func(router chi.Router) {
			router.Post("/", handlers.NewWithdrawRequesterHandler(walletService, logger).ServeHTTP)
			router.Get("/", handlers.NewWithdrawalsGettingHandler(walletService, logger).ServeHTTP)
			router.Post("/{id}/cancel", handlers.NewWithdrawalCancelHandler(walletService, logger).ServeHTTP)
		})

		router.Route("/admin/withdrawals", func(router chi.Router) {
			router.Use(middleware.RequireRole(data.AdminRole))
			router.Get("/", handlers.NewAdminWithdrawalsGettingHandler(walletService, logger).ServeHTTP)
			router.Post("/settle", handlers.NewSettlementTriggerHandler(sweeper, logger).ServeHTTP)
			router.Post("/{id}/process", handlers.NewWithdrawalProcessHandler(walletService, logger).ServeHTTP)
		})
	})

	return router
}
