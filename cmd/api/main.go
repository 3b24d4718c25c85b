// Command api serves the notification HTTP API and runs the periodic
// reminder sweep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "time/tzdata"

	"task-notify/internal/config"
	"task-notify/internal/handler"
	"task-notify/internal/jobs"
	"task-notify/internal/middleware"
	"task-notify/internal/pkg/i18n"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/worker"
	"task-notify/internal/repository"
	"task-notify/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := i18n.Err(); err != nil {
		return fmt.Errorf("load message catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	jobPool, err := config.NewJobPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect job pool: %w", err)
	}
	defer jobPool.Close()

	if cfg.Database.AutoMigrate {
		applied, err := repository.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrated", zap.Int("applied", applied))
		if err := jobs.Migrate(ctx, jobPool); err != nil {
			return err
		}
	}

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn("redis not configured, using in-process frequency window and live feed fan-out")
	}

	pool, err := worker.New(ctx, "notify", cfg.Worker.PoolSize)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Shutdown(cfg.Server.ShutdownTimeout)

	repos := repository.NewRepositories(db)
	services, err := service.NewServices(repos, redisClient, pool, cfg)
	if err != nil {
		return err
	}

	riverClient, err := jobs.NewClient(jobPool, jobs.Deps{
		Sweeper: services.Reminder,
		Purger:  repos.Notification,
	}, cfg)
	if err != nil {
		return err
	}

	// Open live feed streams end when streamCtx is cancelled.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	handlers := handler.NewHandlers(streamCtx, services)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger("/health", "/metrics"))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	handler.SetupRoutes(app, handlers, cfg.JWT.Secret)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Start must outlive the signal so Stop can drain running jobs.
		if err := riverClient.Start(context.WithoutCancel(gctx)); err != nil {
			return fmt.Errorf("start river: %w", err)
		}
		logger.Info("River client started")
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Warn("river stop", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		cancelStreams()
		return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
