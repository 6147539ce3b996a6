package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nean/internal/config"
	"nean/internal/logging"
	"nean/internal/metrics"
	"nean/internal/token"
	tokenrepository "nean/internal/token/repository"
	"nean/internal/user/repository"
	userservice "nean/internal/user/service"
	userhttp "nean/internal/user/transport/http"
	"nean/pkg/db"
	"nean/pkg/jwt"
	"nean/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	users, tokens, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	jwtManager, err := jwt.NewManager(cfg.TokenSecret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	metrics.InitMetrics()

	userService := userservice.NewUserService(users, tokens, jwtManager, cfg.SaltFactor, logger)
	h := userhttp.NewHandler(userService, logger)
	gate := middleware.NewGate(jwtManager, middleware.GateConfig{
		AccessTokenHeader:  cfg.AccessTokenHeader,
		RefreshTokenHeader: cfg.RefreshTokenHeader,
		RefreshRoute:       cfg.RefreshRoute(),
	}, logger)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(cors.Handler(corsOptions(cfg)))
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Mount(cfg.APIBase, h.Routes(gate, loginLimiter, userhttp.Paths{
		Login:   cfg.LoginPath,
		Logout:  cfg.LogoutPath,
		Refresh: cfg.RefreshPath,
		Logger:  cfg.LoggerPath,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if cfg.MetricsEnabled() {
		r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).Handle("/metrics", promhttp.Handler())
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore picks postgres when DATABASE_URL is set and memory otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (userservice.UserRepository, token.RefreshTokenRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
		mem := repository.NewMemoryRepository()
		return mem, mem, func() {}, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(ctx, database.DB); err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	logger.Info("database connected")

	store := repository.NewBreakerRepository(
		repository.NewPostgresUserRepository(database),
		tokenrepository.NewRefreshTokenRepository(database),
		logger,
	)
	return store, store, func() { database.Close() }, nil
}

func corsOptions(cfg *config.Config) cors.Options {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", cfg.AccessTokenHeader, cfg.RefreshTokenHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}
}
