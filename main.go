package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"booth-waitlist/cmd"
	"booth-waitlist/internal/data/repository"
	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/scheduler"
	"booth-waitlist/internal/tasks"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/internal/wire"
	"booth-waitlist/pkg/clock"
	"booth-waitlist/pkg/database"
	"booth-waitlist/pkg/telemetry"
	"booth-waitlist/pkg/utils"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("booth-waitlist", pflag.ExitOnError)
	configPath := flags.String("config", utils.ConfigPathFromEnv(), "path to the env config file")
	flags.String("port", "", "HTTP port, overrides PORT")
	flags.Bool("seed-demo", false, "register a demo booth on start")
	flags.Parse(os.Args[1:])

	config, err := utils.LoadConfig(*configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("store", config.App.StoreBackend),
		zap.String("scheduler", config.Scheduler.Backend),
	)

	shutdownTelemetry := telemetry.Setup(config.Telemetry, logger)

	repos, closeStore, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	c := clock.Real()
	sched, closeScheduler, err := newScheduler(config, c, logger)
	if err != nil {
		logger.Fatal("Failed to create expiry scheduler", zap.Error(err))
	}

	service := usecase.NewService(repos, sched, c, config, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx, service.Waiting.HandleExpiry); err != nil {
		logger.Fatal("Failed to start expiry scheduler", zap.Error(err))
	}

	var reconciler *tasks.Reconciler
	if config.Reconciler.Enabled {
		reconciler, err = tasks.NewReconciler(config.Reconciler.Spec, config.Reconciler.BatchSize, service.Waiting, logger)
		if err != nil {
			logger.Fatal("Failed to create reconciler", zap.Error(err))
		}
		reconciler.Start()
		logger.Info("Reconciler started", zap.String("spec", config.Reconciler.Spec))
	}

	if config.App.SeedDemo {
		if err := seedDemo(ctx, service, logger); err != nil {
			logger.Error("Failed to seed demo booth", zap.Error(err))
		}
	}

	app := wire.Wiring(service, logger)

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port, logger, func(ctx context.Context) {
		if reconciler != nil {
			reconciler.Stop()
		}
		sched.Stop()
		closeScheduler()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
		closeStore()
	})
}

// openStore returns the repositories for the configured backend and a func
// that releases them.
func openStore(config *utils.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	if config.App.StoreBackend == utils.StoreBackendMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryRepository(logger), func() {}, nil
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Database connected successfully")

	if config.Database.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Database migrations applied")
	}

	return repository.NewRepository(db, logger), db.Close, nil
}

func newScheduler(config *utils.Config, c clock.Clock, logger *zap.Logger) (scheduler.Scheduler, func(), error) {
	opts := scheduler.Options{
		Workers:      config.Scheduler.Workers,
		QueueSize:    config.Scheduler.QueueSize,
		MaxAttempts:  config.Scheduler.MaxAttempts,
		RetryBackoff: config.Scheduler.RetryBackoff,
		TaskTimeout:  config.Scheduler.TaskTimeout,
		PollInterval: config.Scheduler.PollInterval,
		BatchSize:    config.Scheduler.BatchSize,
		Key:          config.Scheduler.RedisKey,
	}

	if config.Scheduler.Backend != utils.SchedulerBackendRedis {
		return scheduler.NewLocalScheduler(c, opts, logger), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", config.Redis.Addr, err)
	}
	logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))

	return scheduler.NewRedisScheduler(client, c, opts, logger), func() { client.Close() }, nil
}

const demoAdminCode = "0000"

func seedDemo(ctx context.Context, service *usecase.Service, logger *zap.Logger) error {
	booth, admin, err := service.Admin.RegisterBooth(ctx, &request.RegisterBoothRequest{
		Name:      "Demo booth",
		Location:  "Main hall",
		AdminCode: demoAdminCode,
	})
	if err != nil {
		return err
	}

	logger.Info("Demo booth registered",
		zap.String("booth_id", booth.ID.String()),
		zap.String("admin_id", admin.ID.String()),
		zap.String("admin_code", demoAdminCode),
	)
	return nil
}
