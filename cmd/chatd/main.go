package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
	"github.com/isolophiliabusiness/Public-Chat/config"
	"github.com/isolophiliabusiness/Public-Chat/metrics"
	"github.com/isolophiliabusiness/Public-Chat/postgres"
	"github.com/isolophiliabusiness/Public-Chat/redis"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("could not load config", "err", err)
		os.Exit(1)
	}

	var slogger *slog.Logger
	if cfg.Server.Dev {
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		slogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	slog.SetDefault(slogger)

	store, err := openStore(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("could not open store", "err", err)
		os.Exit(1)
	}

	var cache publicchat.Cache
	if cfg.Storage.RedisAddr != "" {
		rc, err := redis.Connect(ctx, cfg.Storage.RedisAddr, cfg.Chat.PageSize)
		if err != nil {
			slogger.Error("could not connect to redis", "err", err)
			os.Exit(1)
		}
		slogger.Info("recent-history cache enabled", "addr", cfg.Storage.RedisAddr)
		cache = rc
	}

	hub := publicchat.NewHub(ctx, store, publicchat.Options{
		DefaultRoom:     cfg.Chat.DefaultRoom,
		PageSize:        cfg.Chat.PageSize,
		RateInterval:    time.Duration(cfg.Chat.RateInterval),
		Heartbeat:       time.Duration(cfg.Chat.Heartbeat),
		LivenessTimeout: time.Duration(cfg.Chat.LivenessTimeout),
		MaxFrameBytes:   cfg.Chat.MaxFrameBytes,
		Cache:           cache,
		Metrics:         metrics.New(prometheus.DefaultRegisterer),
		Slogger:         slogger,
	})
	go hub.Start()

	r := mux.NewRouter()
	r.HandleFunc("/ws", hub.HandleSocket(identityFromRequest(), socketError(slogger)))
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		slogger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slogger.Info("shutting down hub")
	hub.Stop()
	slogger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slogger.Error("shutdown error", "err", err)
	}
	slogger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config, slogger *slog.Logger) (publicchat.Store, error) {
	retention := publicchat.RetentionPolicy{
		Ceiling:   cfg.Storage.RetentionCeiling,
		TrimBatch: cfg.Storage.RetentionBatch,
	}
	if cfg.Storage.PostgresDSN == "" {
		slogger.Info("using in-memory message store")
		return publicchat.NewMemStore(retention), nil
	}
	pg, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN, retention)
	if err != nil {
		return nil, err
	}
	if err := pg.CreateSchema(ctx); err != nil {
		return nil, err
	}
	slogger.Info("using postgres message store")
	return pg, nil
}

// identityFromRequest reads the identity from the X-Identity header, falling
// back to the identity query parameter for browser clients.
func identityFromRequest() publicchat.IdentityProvider {
	return publicchat.IdentityFunc(func(_ http.ResponseWriter, r *http.Request) (string, error) {
		if id := r.Header.Get("X-Identity"); id != "" {
			return id, nil
		}
		if id := r.URL.Query().Get("identity"); id != "" {
			return id, nil
		}
		return "", errors.New("identity is required")
	})
}

func socketError(slogger *slog.Logger) publicchat.ErrorHandler {
	return func(w http.ResponseWriter, _ *http.Request, err error) {
		slogger.Warn("socket rejected", "err", err)
		http.Error(w, "could not open socket", http.StatusBadRequest)
	}
}
