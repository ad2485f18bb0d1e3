package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"investment-platform/config"
	"investment-platform/internal/accrual"
	"investment-platform/internal/api"
	"investment-platform/internal/auth"
	"investment-platform/internal/cache"
	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/investment"
	"investment-platform/internal/logging"
	"investment-platform/internal/notification"
	"investment-platform/internal/plans"
	"investment-platform/internal/referral"
	"investment-platform/internal/vault"
	"investment-platform/internal/withdrawal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.SetDefault(logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		Component:   "main",
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
	}))
	logger := logging.Default()

	ctx := context.Background()

	// Vault overlays secret material (DB password, JWT secret) onto the
	// config when enabled. Disabled Vault leaves env values untouched.
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal("failed to initialize vault client", "error", err.Error())
	}
	if vaultClient.IsEnabled() {
		if err := vaultClient.ApplyToConfig(ctx, cfg); err != nil {
			logger.Fatal("failed to load secrets from vault", "error", err.Error())
		}
		logger.Info("secrets loaded from vault")
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err.Error())
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("failed to run migrations", "error", err.Error())
	}

	repo := database.NewRepository(db)

	// Redis is optional: a down cache degrades quotes to recompute and
	// batch locking to single-instance mode.
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn("cache unavailable, continuing without redis", "error", err.Error())
			cacheService = nil
		}
	}

	eventBus := events.NewEventBus()

	// Auth
	authService := auth.NewService(repo, auth.Config{
		JWTSecret:           cfg.AuthConfig.JWTSecret,
		AccessTokenDuration: cfg.AuthConfig.AccessTokenDuration,
		MinPasswordLength:   cfg.AuthConfig.MinPasswordLength,
	})
	if err := auth.SeedAdminOperator(ctx, db); err != nil {
		logger.Fatal("failed to seed admin account", "error", err.Error())
	}

	// Domain services
	planCatalog := plans.NewCatalog(repo)
	investmentService := investment.NewService(repo, eventBus)
	referralService := referral.NewService(repo, eventBus, cfg.ReferralConfig)
	withdrawalService := withdrawal.NewService(repo, eventBus, cfg.WithdrawalConfig)

	// Referral points are awarded when an investment activates.
	investmentService.SetReferralHook(func(ctx context.Context, investorID string, amount float64) {
		referralService.QualifyInvestment(ctx, investorID, amount)
	})

	if cacheService != nil {
		withdrawalService.SetQuoteCache(cache.NewEligibilityCache(cacheService))
	}

	// Accrual
	policy, err := accrual.ParsePolicy(cfg.AccrualConfig.PeriodCadence)
	if err != nil {
		logger.Fatal("invalid accrual cadence", "cadence", cfg.AccrualConfig.PeriodCadence, "error", err.Error())
	}
	calculator := accrual.NewCalculator(repo, policy, eventBus)

	var locker accrual.BatchLocker
	if cacheService != nil {
		locker = cacheService
	}
	scheduler := accrual.NewScheduler(calculator, repo, locker, accrual.SchedulerConfig{
		TickInterval: time.Duration(cfg.AccrualConfig.TickInterval) * time.Second,
		RunHourUTC:   cfg.AccrualConfig.RunHourUTC,
		MaxRetries:   cfg.AccrualConfig.MaxRetries,
		RetryDelay:   time.Duration(cfg.AccrualConfig.RetryDelayMs) * time.Millisecond,
		LockTTL:      time.Duration(cfg.AccrualConfig.BatchLockTTL) * time.Second,
	})

	notifyManager := notification.NewManager(cfg.NotificationConfig, logging.Default().WithComponent("notification"))
	scheduler.SetFailureNotifier(notifyManager)

	if cfg.AccrualConfig.Enabled {
		scheduler.Start()
		logger.Info("accrual scheduler started", "cadence", cfg.AccrualConfig.PeriodCadence)
	} else {
		logger.Info("accrual scheduler disabled, batches run on demand only")
	}

	// HTTP server
	server := api.NewServer(
		cfg.ServerConfig,
		repo,
		eventBus,
		api.Services{
			Plans:       planCatalog,
			Investments: investmentService,
			Calculator:  calculator,
			Scheduler:   scheduler,
			Withdrawals: withdrawalService,
			Referrals:   referralService,
			Auth:        authService,
		},
		cacheService,
		vaultClient,
	)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("failed to start web server", "error", err.Error())
		}
	}()

	logger.Info("investment platform started",
		"host", cfg.ServerConfig.Host,
		"port", cfg.ServerConfig.Port,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down web server", "error", err.Error())
	}

	if cacheService != nil {
		if err := cacheService.Close(); err != nil {
			logger.Error("error closing cache", "error", err.Error())
		}
	}

	logger.Info("shutdown complete")
}
