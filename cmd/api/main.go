package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/studyai/studyai-go/internal/config"
	"github.com/studyai/studyai-go/internal/crypto"
	"github.com/studyai/studyai-go/internal/handler"
	"github.com/studyai/studyai-go/internal/llm"
	"github.com/studyai/studyai-go/internal/repository"
	"github.com/studyai/studyai-go/internal/service"
	"github.com/studyai/studyai-go/internal/telemetry"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		port    string
	)

	root := &cobra.Command{
		Use:           "studyai",
		Short:         "Study assistant API: accounts, quiz and flashcard generation, chat",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile, port)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a .env file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile, port)
		},
	}
	serveCmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	root.Flags().AddFlagSet(serveCmd.Flags())

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), envFile)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	return root
}

func loadConfig(envFile string) (config.Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("no .env file found, using environment variables", "path", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg)
	return cfg, nil
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("migrations applied", "driver", cfg.DatabaseDriver)
	return nil
}

func serve(ctx context.Context, envFile, port string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    "studyai",
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       !cfg.IsProduction(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("tracing shutdown failed", "error", err)
		}
	}()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var denylist service.TokenDenylist
	if cfg.RedisURL != "" {
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		denylist = repository.NewRedisDenylist(rdb)
		slog.Info("token denylist backed by redis")
	} else {
		denylist = repository.NewMemoryDenylist()
		slog.Info("token denylist held in memory")
	}

	llmClient, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		return err
	}
	defer llmClient.Close()

	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		denylist,
		crypto.NewHasher(crypto.DefaultHashParams()),
		crypto.NewTokenService(cfg.JWTSecret),
		cfg.JWTExpiry,
	)

	router := handler.NewRouter(ctx, handler.RouterDeps{
		Auth:               authService,
		Content:            service.NewContentService(llmClient),
		Chat:               service.NewChatService(llmClient),
		DB:                 db,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRateLimit:      cfg.AuthRateLimit,
		AIRateLimit:        cfg.AIRateLimit,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "model", llmClient.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
