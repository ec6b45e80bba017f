// @title                       Stage2 Auth API
// @version                     1.0
// @description                 Credential issuance and session validation service.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/maalej-ala/stage2-auth/docs"
	"github.com/maalej-ala/stage2-auth/internal/api"
	"github.com/maalej-ala/stage2-auth/internal/api/handler"
	"github.com/maalej-ala/stage2-auth/internal/core/password"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
	"github.com/maalej-ala/stage2-auth/internal/core/service"
	"github.com/maalej-ala/stage2-auth/internal/core/token"
	mongodb "github.com/maalej-ala/stage2-auth/internal/infrastructure/db/mongo"
	redisdb "github.com/maalej-ala/stage2-auth/internal/infrastructure/db/redis"
	"github.com/maalej-ala/stage2-auth/internal/infrastructure/mail"
	"github.com/maalej-ala/stage2-auth/internal/infrastructure/queue"
	"github.com/maalej-ala/stage2-auth/internal/pkg/config"
	"github.com/maalej-ala/stage2-auth/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "stage2-auth",
		Env:     cfg.Env,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server terminated")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Account Store ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	accounts := mongodb.NewAccountRepository(db)
	if err := accounts.EnsureIndexes(ctx); err != nil {
		return err
	}

	checks := []handler.DependencyCheck{{Name: "mongodb", Ping: mongodb.Ping(db)}}

	// --- Token codec & password hashing ---
	codec, err := token.NewCodec([]byte(cfg.Token.Secret), cfg.Token.AccessTTL, cfg.Token.RefreshTTL)
	if err != nil {
		return err
	}
	hasher := password.NewHasher(cfg.Token.BcryptCost)

	// --- Notifications ---
	sender := mail.NewSender(mail.Config{
		Host:         cfg.SMTP.Host,
		Port:         cfg.SMTP.Port,
		Username:     cfg.SMTP.Username,
		Password:     cfg.SMTP.Password,
		From:         cfg.SMTP.From,
		LoginURL:     cfg.SMTP.LoginURL,
		SupportEmail: cfg.SMTP.SupportEmail,
	})
	dispatcher := queue.NewDispatcher(sender, queue.Options{
		Workers: cfg.Notify.Workers,
		Buffer:  cfg.Notify.Buffer,
		Timeout: cfg.Notify.Timeout,
	}, logger.Component("notifications"))
	dispatcher.Start(ctx)

	opts := []service.Option{service.WithNotifications(dispatcher)}

	// --- Refresh registry (optional) ---
	if cfg.Redis.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		opts = append(opts, service.WithRefreshRegistry(redisdb.NewRefreshRegistry(rdb)))
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: redisdb.Ping(rdb)})
	} else {
		log.Warn().Msg("redis disabled, refresh tokens are not rotated")
	}

	sessions := service.NewSessionManager(accounts, hasher, codec, logger.Component("sessions"), opts...)

	if cfg.Admin.Enabled() {
		if _, err := sessions.EnsureAdmin(ctx, ports.CreateAccountInput{
			FirstName: cfg.Admin.FirstName,
			LastName:  cfg.Admin.LastName,
			Email:     cfg.Admin.Email,
			Password:  cfg.Admin.Password,
		}); err != nil {
			return err
		}
	}

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Sessions:       sessions,
		Admin:          sessions,
		Authorizer:     service.NewGate(codec),
		Checks:         checks,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Log:            logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	dispatcher.Wait()
	return nil
}
