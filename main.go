package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihttp "der-explorer/internal/api/http"
	"der-explorer/internal/audit"
	"der-explorer/internal/auth"
	"der-explorer/internal/config"
	"der-explorer/internal/derapi"
	"der-explorer/internal/notify"
	"der-explorer/internal/observability/metrics"
	"der-explorer/internal/polling"
	"der-explorer/internal/store"
	"der-explorer/internal/store/memory"
	"der-explorer/internal/store/postgres"
	redisstore "der-explorer/internal/store/redis"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	entityStore, auditLogger, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("store open error: backend=%s err=%v", cfg.StoreBackend, err)
	}
	defer closeStore()

	client, err := derapi.NewClient(cfg.APIBaseURL, cfg.APIToken,
		derapi.WithRateLimit(cfg.APIRatePerSecond),
		derapi.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		logger.Fatalf("der api client error: %v", err)
	}

	pollOpts := []polling.Option{
		polling.WithGroupedFetcher(polling.KindMeterGroup, client.FetchMeterGroups),
		polling.WithScalarFetcher(polling.KindScenario, client.FetchScenarios),
		polling.WithInterval(cfg.PollInterval),
		polling.WithConcurrency(cfg.PollConcurrency),
		polling.WithLogger(logger),
	}
	if cfg.CompletionWebhookURL != "" {
		notifier := notify.NewWebhookNotifier(cfg.CompletionWebhookURL, cfg.APITimeout)
		pollOpts = append(pollOpts, polling.WithCompletionHook(notify.Hook(notifier, logger)))
	}
	registry, err := polling.New(entityStore, pollOpts...)
	if err != nil {
		logger.Fatalf("polling registry error: %v", err)
	}
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		registry.Start(ctx)
	}()

	mux := http.NewServeMux()
	if err := apihttp.Register(mux, registry, entityStore, auditLogger, logger); err != nil {
		logger.Fatalf("api handler error: %v", err)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), auth.DefaultPolicy(), logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("http listening on %s store=%s poll_interval=%s", cfg.HTTPAddr, cfg.StoreBackend, cfg.PollInterval)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
	<-pollDone
	logger.Printf("shutdown complete")
}

// openStore opens the configured entity store. Audit entries go to Postgres
// when it is the backend and to the service log otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (store.Store, audit.Logger, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return postgres.NewStore(db), audit.NewRepository(db), func() { _ = db.Close() }, nil
	case config.StoreRedis:
		client, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, err
		}
		return redisstore.NewStore(client), audit.NewLogLogger(logger), func() { _ = client.Close() }, nil
	default:
		return memory.NewStore(), audit.NewLogLogger(logger), func() {}, nil
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.Method, resp.status)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
