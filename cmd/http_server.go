package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/auth"
	authpostgres "github.com/muzaffarov/bozor-billing/internal/auth/postgres"
	"github.com/muzaffarov/bozor-billing/internal/billable"
	billablepostgres "github.com/muzaffarov/bozor-billing/internal/billable/postgres"
	"github.com/muzaffarov/bozor-billing/internal/core/events"
	"github.com/muzaffarov/bozor-billing/internal/gateway/click"
	clickpostgres "github.com/muzaffarov/bozor-billing/internal/gateway/click/postgres"
	"github.com/muzaffarov/bozor-billing/internal/gateway/payme"
	"github.com/muzaffarov/bozor-billing/internal/ledger"
	ledgerpostgres "github.com/muzaffarov/bozor-billing/internal/ledger/postgres"
	"github.com/muzaffarov/bozor-billing/internal/periods"
	periodspostgres "github.com/muzaffarov/bozor-billing/internal/periods/postgres"
	"github.com/muzaffarov/bozor-billing/internal/reconciliation"
	reconciliationpostgres "github.com/muzaffarov/bozor-billing/internal/reconciliation/postgres"
	"github.com/muzaffarov/bozor-billing/internal/transport"
	"github.com/muzaffarov/bozor-billing/internal/transport/rest"
	"github.com/muzaffarov/bozor-billing/internal/transport/swagger"
	"github.com/muzaffarov/bozor-billing/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server handling gateway webhooks and the operator API`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Config, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Logging.Format == "json" {
		logger.Init("production")
	} else {
		logger.Init("development")
	}
	lg := logger.LoggerWrapper()

	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	baseHandler := transport.NewBaseHandler(lg)
	eventBus := events.NewEventBus(lg)

	ledgerRepo := ledgerpostgres.NewTransactionRepository(gormDB)
	ledgerService := ledger.NewService(ledgerRepo, eventBus, lg)

	billableRepo := billablepostgres.NewBillableRepository(gormDB)
	periodRepo := periodspostgres.NewPeriodRepository(gormDB)
	periodsService := periods.NewService(periodRepo, billableRepo, ledgerRepo, lg)

	// periods consume every paid transaction with a contract reference
	eventBus.Subscribe(events.TransactionPaidEventType, periodsService.HandleTransactionPaid)

	auditLogger := events.NewAuditLogger(lg)
	eventBus.Subscribe(events.TransactionPaidEventType, auditLogger.Handle)
	eventBus.Subscribe(events.TransactionCanceledEventType, auditLogger.Handle)

	resolver := billable.NewResolver(billableRepo, periodsService, lg)

	clickVerifier := click.NewVerifier(config.Click, lg)
	clickRepo := clickpostgres.NewClickRepository(gormDB)
	clickService := click.NewService(clickRepo, ledgerService, resolver, clickVerifier, lg)
	clickHandler := click.NewHandler(baseHandler, clickService, lg)

	paymeService := payme.NewService(ledgerService, resolver, lg)
	paymeHandler := payme.NewHandler(baseHandler, paymeService, config.Payme, lg)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.SessionSecret, config.Security.TokenDuration)
	userRepo := authpostgres.NewUserRepository(gormDB)
	authService := auth.NewService(userRepo, tokenGen, config.Security.BCryptCost, lg)
	authHandler := auth.NewHandler(baseHandler, authService)
	authMiddleware := auth.NewMiddleware(baseHandler, authService)

	periodsHandler := periods.NewHandler(baseHandler, periodsService)

	reconciliationRepo := reconciliationpostgres.NewReconciliationRepository(gormDB)
	reconciliationService := reconciliation.NewService(reconciliationRepo, lg)
	reconciliationHandler := reconciliation.NewHandler(baseHandler, reconciliationService)

	return &Dependencies{
		Config: config,
		DB:     db,
		Router: chi.NewRouter(),
		Logger: lg,
		Handlers: rest.Handlers{
			Auth:           authHandler,
			AuthMiddleware: authMiddleware,
			Click:          clickHandler,
			Payme:          paymeHandler,
			Periods:        periodsHandler,
			Reconciliation: reconciliationHandler,
		},
	}, nil
}

// initDB opens the pgx-backed connection pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
