package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-idp-security/internal/config"
	"github.com/go-idp-security/internal/infrastructure/backchannel"
	"github.com/go-idp-security/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-idp-security/internal/infrastructure/jwt"
	"github.com/go-idp-security/internal/infrastructure/redisstore"
	s3infra "github.com/go-idp-security/internal/infrastructure/s3"
	"github.com/go-idp-security/internal/infrastructure/smtp"
	"github.com/go-idp-security/internal/infrastructure/sns"
	transporthttp "github.com/go-idp-security/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if cfg.AppEnv == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}
	if cfg.TOTPPepper == "" {
		slog.Warn("TOTP_PEPPER is empty; email codes are derived from the security stamp alone")
	}

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		fatal("jwt provider", err)
	}

	rdb, err := redisstore.NewClient(ctx, cfg)
	if err != nil {
		fatal("redis", err)
	}
	defer rdb.Close()

	snsClient, err := sns.NewClient(cfg)
	if err != nil {
		fatal("sns client", err)
	}

	deps := &transporthttp.Deps{
		AccountRepo:     dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		SessionRepo:     dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		DeliveryRepo:    dynamo.NewDeliveryRepo(dynamoClient, cfg.DynamoTables.Deliveries),
		ClientRepo:      dynamo.NewClientRepo(dynamoClient, cfg.DynamoTables.Clients),
		StepUpStore:     redisstore.NewStepUpStore(rdb),
		ReportStore:     s3infra.NewStore(s3infra.NewClient(cfg), cfg.ReportBucket),
		LogoutPublisher: sns.NewLogoutPublisher(snsClient, cfg.LogoutTopicARN),
		Notifier:        backchannel.NewNotifier(nil, cfg.BackchannelPath, cfg.BackchannelTimeout),
		Mailer:          smtp.NewMailer(cfg),
		JWTProvider:     jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func fatal(what string, err error) {
	slog.Error("startup failed", "component", what, "err", err)
	os.Exit(1)
}
