package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jobmatch/jobmatch-portal/internal/apiclient"
	"github.com/jobmatch/jobmatch-portal/internal/config"
	"github.com/jobmatch/jobmatch-portal/internal/metrics"
	"github.com/jobmatch/jobmatch-portal/internal/portal"
	"github.com/jobmatch/jobmatch-portal/internal/tokenstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	backend, closer, err := openTokenStore(ctx, cfg)
	if err != nil {
		slog.Error("token store unavailable", "store", cfg.TokenStore, "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	m := metrics.New()
	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout,
		apiclient.WithTransport(m.InstrumentTransport(http.DefaultTransport)))

	registry := portal.NewRegistry(portal.RegistryConfig{
		Backend:                   backend,
		Client:                    client,
		Metrics:                   m,
		IdleTimeout:               cfg.SessionIdleTimeout,
		KeepTokenOnTransientError: cfg.KeepTokenOnNetworkError,
	})
	go registry.Run(ctx)

	srvHandler := portal.NewServer(registry, m, portal.CookieConfig{
		Name:   cfg.SessionCookieName,
		Secure: cfg.CookieSecure,
	}, slog.Default())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srvHandler.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("portal starting", "port", cfg.Port, "env", cfg.Env, "api", cfg.APIBaseURL, "store", cfg.TokenStore)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down portal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	stop()

	slog.Info("portal stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openTokenStore builds the backend named by TOKEN_STORE.
func openTokenStore(ctx context.Context, cfg config.Config) (tokenstore.Backend, io.Closer, error) {
	switch cfg.TokenStore {
	case config.StoreRedis:
		rdb, err := tokenstore.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return tokenstore.NewRedisBackend(rdb, cfg.TokenTTL), rdb, nil

	case config.StoreMySQL, config.StorePostgres:
		dialect := tokenstore.DialectMySQL
		if cfg.TokenStore == config.StorePostgres {
			dialect = tokenstore.DialectPostgres
		}
		db, err := tokenstore.NewDB(dialect, cfg.TokenStoreDSN)
		if err != nil {
			return nil, nil, err
		}
		backend, err := tokenstore.NewSQLBackend(db, dialect, cfg.TokenTTL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := backend.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return backend, db, nil
	}

	return tokenstore.NewMemoryBackend(cfg.TokenTTL), nopCloser{}, nil
}
