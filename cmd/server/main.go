package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"idproof/internal/audit"
	"idproof/internal/blobstore"
	"idproof/internal/optimizer"
	"idproof/internal/oracle"
	"idproof/internal/platform/config"
	"idproof/internal/platform/httpserver"
	"idproof/internal/platform/logger"
	"idproof/internal/platform/middleware"
	platformredis "idproof/internal/platform/redis"
	"idproof/internal/ratelimit"
	"idproof/internal/verification/handler"
	"idproof/internal/verification/metrics"
	"idproof/internal/verification/service"
	"idproof/internal/verification/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var records store.RecordStore
	if redisClient != nil {
		records = store.NewRedis(redisClient)
		log.Info("using redis record store")
	} else {
		records = store.NewMemory()
		log.Warn("no redis configured, using in-memory record store")
	}

	notifier := blobstore.NewNotifier(cfg.Optimizer.QueueSize, func(evt blobstore.Event) {
		log.Warn("optimizer queue full, dropping event", "key", evt.Key)
	})

	blobs, err := blobstore.NewLocal(cfg.BlobRoot, notifier)
	if err != nil {
		log.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}

	oracleClient, err := oracle.NewHTTPClient(cfg.Oracle)
	if err != nil {
		log.Error("failed to configure similarity oracle", "error", err)
		os.Exit(1)
	}

	var publisher audit.Publisher = audit.Noop{}
	kafka, err := audit.NewKafka(cfg.Audit, log)
	if err != nil {
		log.Error("failed to configure audit publisher", "error", err)
		os.Exit(1)
	}
	if kafka != nil {
		publisher = kafka
		defer kafka.Close()
	}

	m := metrics.New()
	svc := service.New(records, blobs, oracleClient, publisher, log, m, cfg.SimilarityThreshold, cfg.Oracle.Timeout)
	deleter := service.NewDeleter(records, blobs, publisher, log, m)
	h := handler.New(svc, deleter, log)

	limiter := ratelimit.New(
		ratelimit.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.EdgeGateUser != "" {
		r.Use(middleware.EdgeGate(cfg.EdgeGateUser, cfg.EdgeGatePasswordHash, log))
	}

	r.Get("/healthz", healthHandler(records, blobs))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(middleware.RequireAPIKey(cfg.APIKey, log))
		}
		r.Use(limiter.Limit)
		if cfg.JWTSigningKey != "" {
			r.Use(middleware.RequireSession(cfg.JWTSigningKey, log))
		}
		h.Register(r)
	})

	// Optimizer workers consume created-object events until the notifier is
	// closed during shutdown.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	opt := optimizer.New(blobs, records, log, cfg.Optimizer)
	var workers errgroup.Group
	for range cfg.Optimizer.Workers {
		workers.Go(func() error {
			return opt.Run(workerCtx, notifier.Events())
		})
	}

	// Lifecycle sweep stands in for the storage provider's retention rules.
	go runSweeper(workerCtx, blobs, cfg, log)

	srv := httpserver.New(cfg.Addr, r)

	log.Info("starting idproof server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Let in-flight optimizations drain before exiting.
	notifier.Close()
	if err := workers.Wait(); err != nil && err != context.Canceled {
		log.Error("optimizer worker error", "error", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
}

func healthHandler(records store.RecordStore, blobs blobstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := records.Health(ctx); err != nil {
			http.Error(w, "record store unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := blobs.Health(ctx); err != nil {
			http.Error(w, "blob store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func runSweeper(ctx context.Context, blobs *blobstore.Local, cfg config.Config, log *slog.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, blobs, blobstore.ClassOriginal, cfg.OriginalRetention, log)
			sweep(ctx, blobs, blobstore.ClassDerived, cfg.DerivedRetention, log)
		}
	}
}

func sweep(ctx context.Context, blobs *blobstore.Local, class string, retention time.Duration, log *slog.Logger) {
	removed, err := blobs.SweepClass(ctx, class, retention)
	if err != nil {
		log.Error("retention sweep failed", "class", class, "error", err)
		return
	}
	if removed > 0 {
		log.Info("retention sweep reclaimed objects", "class", class, "removed", removed)
	}
}
