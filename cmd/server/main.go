package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/dispatcher"
	"github.com/Kavesh2000/Onitticketingsystem/internal/application/leave"
	"github.com/Kavesh2000/Onitticketingsystem/internal/application/workflow"
	"github.com/Kavesh2000/Onitticketingsystem/internal/config"
	"github.com/Kavesh2000/Onitticketingsystem/internal/infrastructure/persistence/repository"
	"github.com/Kavesh2000/Onitticketingsystem/internal/infrastructure/persistence/sqlite"
	"github.com/Kavesh2000/Onitticketingsystem/internal/infrastructure/worker"
	httpserver "github.com/Kavesh2000/Onitticketingsystem/internal/interfaces/http"
	"github.com/Kavesh2000/Onitticketingsystem/pkg/database"
	"github.com/Kavesh2000/Onitticketingsystem/pkg/utils"
)

func main() {
	// .env overrides are optional; a missing file is fine
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approval workflow service", zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Report.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create report output directory", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)
	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)
	leaveRepo := repository.NewLeaveRequestRepository(db.DB, logger)
	balanceRepo := repository.NewLeaveBalanceRepository(db.DB, logger)

	eventDispatcher := dispatcher.NewDispatcher(logger)
	defer eventDispatcher.Close()

	engine := workflow.NewEngine(workflowRepo, auditRepo, txManager, logger,
		workflow.WithDispatcher(eventDispatcher))
	if err := engine.RegisterDefinition(leave.Definition()); err != nil {
		logger.Fatal("Failed to register leave workflow definition", zap.Error(err))
	}

	recomputer := leave.NewRecomputer(leaveRepo, balanceRepo, cfg.Leave.DefaultAllotments, logger)
	leaveService := leave.NewService(engine, leaveRepo, balanceRepo, recomputer, txManager, logger)
	leaveService.RegisterEventHandlers(eventDispatcher)
	reporter := leave.NewReportExporter(balanceRepo, logger)

	if cfg.Recompute.Enabled {
		scheduler := worker.NewRecomputeScheduler(recomputer, cfg.Recompute.Schedule, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatal("Failed to start balance recompute scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, engine, leaveService, recomputer, reporter, cfg.Report.OutputDir, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
