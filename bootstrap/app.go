// Package bootstrap wires the application: configuration, logging, storage,
// the categorization engine, lifecycle services, escalation evaluator and the
// HTTP surface.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"argus/api"
	"argus/classify"
	"argus/config"
	"argus/escalate"
	"argus/notify"
	"argus/service"
	"argus/storage"
	"argus/util/goroutine"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App represents the argus application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Store *storage.SQLite
	Redis *redis.Client

	Engine     *classify.Engine
	Router     *notify.Router
	Dispatcher *notify.Dispatcher
	Lifecycle  *service.LifecycleService
	Ingest     *service.IngestService
	Evaluator  *escalate.Evaluator
	APIServer  *api.API

	shutdownCh chan struct{}
	sweepDone  chan struct{}
}

// NewApp creates the application and initializes all components.
func NewApp(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, sugar, err := InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sugar.Info("argus starting...")

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	store, err := storage.NewSQLite(cfg.Storage.SQLitePath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			sugar.Warnw("Redis unreachable, sweep locking degraded to storage-level checks",
				"addr", cfg.Redis.Addr,
				"error", err)
			redisClient = nil
		}
	}

	engine := classify.NewEngine(rules.CategoryRules, rules.SuppressionRules, sugar)
	router := notify.NewRouter(rules.NotificationRules, sugar)
	sender := notify.NewHTTPSender(notify.SenderConfig{
		SlackWebhookURL: cfg.Notifications.SlackWebhookURL,
		WebhookURL:      cfg.Notifications.WebhookURL,
		WebhookHeaders:  cfg.Notifications.WebhookHeaders,
		SMTPHost:        cfg.Notifications.SMTPHost,
		SMTPPort:        cfg.Notifications.SMTPPort,
		FromAddress:     cfg.Notifications.FromAddress,
		RatePerSecond:   cfg.Notifications.RatePerSecond,
	}, sugar)
	dispatcher := notify.NewDispatcher(router, sender, sugar)

	lifecycle := service.NewLifecycleService(store, dispatcher, sugar)
	ingest := service.NewIngestService(store, engine, lifecycle, dispatcher, sugar)
	evaluator := escalate.NewEvaluator(store, lifecycle, dispatcher, redisClient, rules.EscalationRules, sugar)
	ingest.SetOccurrenceRecorder(evaluator)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	apiServer := api.New(addr, ingest, lifecycle, evaluator, store, sugar)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Sugar:      sugar,
		Store:      store,
		Redis:      redisClient,
		Engine:     engine,
		Router:     router,
		Dispatcher: dispatcher,
		Lifecycle:  lifecycle,
		Ingest:     ingest,
		Evaluator:  evaluator,
		APIServer:  apiServer,
		shutdownCh: make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}, nil
}

// Start launches the periodic sweeps and the API server. Blocks until the
// server stops.
func (a *App) Start() error {
	go a.runSweeps()
	return a.APIServer.Start()
}

// runSweeps drives the periodic escalation and auto-resolve sweeps. The core
// stays caller-driven; this ticker is deployment convenience and is disabled
// by setting the interval to zero.
func (a *App) runSweeps() {
	defer close(a.sweepDone)
	defer goroutine.Recover("escalation-sweep", a.Sugar)

	interval := time.Duration(a.Config.Escalation.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.shutdownCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if _, err := a.Evaluator.CheckForEscalation(ctx); err != nil {
				a.Sugar.Errorw("Escalation sweep failed", "error", err)
			}
			if hours := a.Config.Escalation.AutoResolveHours; hours > 0 {
				if _, err := a.Lifecycle.AutoResolveStale(ctx, hours); err != nil {
					a.Sugar.Errorw("Auto-resolve sweep failed", "error", err)
				}
			}
			cancel()
		}
	}
}

// WaitForShutdown blocks until SIGINT or SIGTERM.
func (a *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
}

// Shutdown stops all components gracefully.
func (a *App) Shutdown() {
	close(a.shutdownCh)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.APIServer.Shutdown(ctx); err != nil {
		a.Sugar.Warnw("API shutdown error", "error", err)
	}

	select {
	case <-a.sweepDone:
	case <-ctx.Done():
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Sugar.Warnw("Redis close error", "error", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Sugar.Warnw("Storage close error", "error", err)
	}

	_ = a.Logger.Sync()
	a.Sugar.Info("argus stopped")
}
