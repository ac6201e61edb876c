package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/okian/hotitems/internal/adapters/cache"
	"github.com/okian/hotitems/internal/adapters/http/api"
	"github.com/okian/hotitems/internal/adapters/http/swagger"
	"github.com/okian/hotitems/internal/adapters/mq/kafka"
	"github.com/okian/hotitems/internal/adapters/mq/queue"
	"github.com/okian/hotitems/internal/adapters/mq/worker"
	"github.com/okian/hotitems/internal/adapters/repository"
	"github.com/okian/hotitems/internal/adapters/scheduler"
	service "github.com/okian/hotitems/internal/app"
	"github.com/okian/hotitems/internal/cdc"
	"github.com/okian/hotitems/internal/config"
	"github.com/okian/hotitems/internal/domain/dedupe"
	"github.com/okian/hotitems/internal/leaderboard"
	"github.com/okian/hotitems/internal/resync"
	"github.com/okian/hotitems/pkg/logger"
	"github.com/okian/hotitems/pkg/metrics"
	"github.com/uptrace/bun"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.StartSystemCollector(ctx)

	a, err := build(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to build application", logger.Error(err))
		os.Exit(1)
	}
	defer a.close()

	if err := a.start(ctx); err != nil {
		log.Error(ctx, "failed to start application", logger.Error(err))
		a.shutdown()
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	a.shutdown()

	log.Info(shutdownCtx, "server stopped")
}

// application holds every long-lived component and the order they stop in.
type application struct {
	cfg     *config.Config
	log     logger.Logger
	db      *bun.DB
	cache   cache.Client
	board   *leaderboard.Cache
	svc     *service.Service
	job     *resync.Job
	sched   scheduler.Runner
	handler http.Handler

	// CDC pipeline, nil unless enabled.
	queue  *queue.InMemoryQueue
	pool   *worker.Pool
	source *kafka.Source
	cdcErr chan error
}

// build wires storage, cache, use cases and adapters from cfg.
func build(ctx context.Context, cfg *config.Config) (*application, error) {
	a := &application{cfg: cfg, log: logger.Get()}

	db, err := repository.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	store := repository.NewBunStore(db, repository.WithTimeout(cfg.StoreTimeout()))
	if err := store.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	switch cfg.CacheBackend {
	case config.CacheMemory:
		a.cache = cache.NewMemoryClient(cache.WithCapacity(cfg.MemoryCacheCapacity))
	default:
		a.cache = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := a.cache.Ping(ctx); err != nil {
			// Reads fall back to the store while redis is unreachable.
			a.log.Warn(ctx, "redis unreachable at startup", logger.String("addr", cfg.RedisAddr), logger.Error(err))
		}
	}
	a.board = leaderboard.New(a.cache, leaderboard.WithTimeout(cfg.CacheTimeout()))

	a.svc = service.New(store, a.board,
		service.WithLikeAttempts(cfg.LikeAttempts),
		service.WithDefaultHotLimit(cfg.DefaultHotLimit),
		service.WithMaxHotLimit(cfg.MaxHotLimit),
	)

	a.job = resync.New(store, a.board, resync.WithTimeout(cfg.ResyncTimeout()))
	switch cfg.ResyncScheduler {
	case config.SchedulerTicker:
		a.sched = scheduler.NewTicker(cfg.ResyncInterval(), a.job)
	default:
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		a.sched = scheduler.NewAsynq(redisOpt, cfg.ResyncInterval(), a.job)
	}

	if cfg.CDCEnabled {
		loc, err := cfg.Location()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("cdc timezone: %w", err)
		}
		applier := cdc.NewApplier(a.board,
			cdc.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.CDCDedupeSize))),
			cdc.WithLocation(loc),
		)
		a.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.CDCQueueSize))
		a.pool = worker.NewPool(cfg.CDCWorkers, a.queue, applier)
		a.source = kafka.NewSource(kafka.NewReader(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroupID), a.queue)
	}

	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(a.svc).Register(mux)
	a.handler = mux
	return a, nil
}

// start launches the background components.
func (a *application) start(ctx context.Context) error {
	if a.pool != nil {
		// Workers outlive the signal so shutdown can drain the queue.
		a.pool.Start(context.WithoutCancel(ctx))
		a.cdcErr = make(chan error, 1)
		go func() {
			a.cdcErr <- a.source.Run(ctx)
		}()
		a.log.Info(ctx, "cdc consumer started",
			logger.String("topic", a.cfg.KafkaTopic),
			logger.String("group", a.cfg.KafkaGroupID))
	}

	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start resync scheduler: %w", err)
	}
	a.log.Info(ctx, "resync scheduled",
		logger.String("scheduler", a.cfg.ResyncScheduler),
		logger.Duration("interval", a.cfg.ResyncInterval()))
	return nil
}

// shutdown stops the scheduler, then the CDC pipeline, draining what is queued.
func (a *application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.sched.Shutdown()

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.log.Warn(ctx, "kafka reader close failed", logger.Error(err))
		}
		if a.cdcErr != nil {
			select {
			case err := <-a.cdcErr:
				if err != nil {
					a.log.Warn(ctx, "cdc consumer stopped with error", logger.Error(err))
				}
			case <-ctx.Done():
			}
		}
	}
	if a.pool != nil {
		if err := a.pool.Shutdown(ctx); err != nil {
			a.log.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
	}
}

// close releases the cache and store connections.
func (a *application) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
