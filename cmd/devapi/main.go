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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/jobmatch/jobmatch-portal/internal/config"
	"github.com/jobmatch/jobmatch-portal/internal/crypto"
	"github.com/jobmatch/jobmatch-portal/internal/devapi"
	"github.com/jobmatch/jobmatch-portal/internal/middleware"
)

const seedPassword = "password123"

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

	users := devapi.NewUserRepository()
	jobs := devapi.NewJobRepository()
	auth := devapi.NewAuthService(users, crypto.NewPasswordHasher(crypto.DefaultHashParams()), cfg.JWTSecret, cfg.JWTExpiry)

	if cfg.DevAPISeed {
		if err := auth.Seed(ctx, seedPassword); err != nil {
			slog.Error("seeding accounts failed", "error", err)
			os.Exit(1)
		}
		slog.Warn("seeded demo accounts", "password", seedPassword,
			"emails", []string{"jobseeker@example.com", "recruiter@example.com", "admin@example.com"})
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Mount("/", devapi.Router(ctx, devapi.NewHandler(auth, users, jobs), cfg.JWTSecret))

	srv := &http.Server{
		Addr:              ":" + cfg.DevAPIPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("dev api starting", "port", cfg.DevAPIPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down dev api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("dev api stopped")
}
