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

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"screens-sales/internal/auth"
	"screens-sales/internal/cms"
	"screens-sales/internal/config"
	"screens-sales/internal/logging"
	"screens-sales/internal/realtime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "screens-sales",
		Short:        "Digital signage content API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the screen feed",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema and exit",
			RunE:  runMigrate,
		},
	)
	return root
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("pg: %w", err)
	}
	defer pool.Close()

	if err := cms.AutoMigrate(cmd.Context(), pool); err != nil {
		return err
	}
	logger.Info("schema up to date")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("pg: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pg ping: %w", err)
	}
	if err := cms.AutoMigrate(ctx, pool); err != nil {
		return err
	}

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	pub, closeRedis, err := eventPublisher(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	srv := cms.NewServer(pool, pub, logger,
		cms.WithFeed(realtime.NewFeed(hub, cfg.CORSAllowedOrigin, logger)),
	)
	authOpts, err := verifierOptions(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	verifier := auth.NewVerifier(authOpts)

	handler := srv.Router(
		auth.Middleware(verifier, srv.Store(), logger),
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		corsMiddleware(cfg.CORSAllowedOrigin),
		rateLimitMiddleware(cfg.RateLimitRPS),
		bodySizeLimitMiddleware(cfg.MaxBodyBytes),
		middleware.Timeout(cfg.RequestTimeout),
	)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("listening", "addr", httpSrv.Addr, "jwks", cfg.Auth.UsesJWKS(), "redis", cfg.RedisURL != "")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// eventPublisher publishes through Redis when configured, so every instance's screens
// see every change. Otherwise events go straight to the local hub.
func eventPublisher(ctx context.Context, cfg config.Config, hub *realtime.Hub, logger *log.Logger) (cms.Publisher, func(), error) {
	if cfg.RedisURL == "" {
		return hub, func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	relay, err := realtime.NewRelay(ctx, rdb, hub, logger)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	go relay.Run(ctx)

	return cms.NewRedisPublisher(rdb, logger), func() { _ = rdb.Close() }, nil
}

// verifierOptions builds the token checks. The JWKS cache refreshes until ctx is done.
func verifierOptions(ctx context.Context, a config.AuthConfig) (auth.Options, error) {
	opts := auth.Options{Secret: a.JWTSecret}
	if a.UsesJWKS() {
		keys, err := auth.NewJWKS(ctx, a.JWKSURL)
		if err != nil {
			return auth.Options{}, err
		}
		opts.Issuer = a.IssuerURL
		opts.Audience = a.Audience
		opts.JWKS = keys
	}
	return opts, nil
}
