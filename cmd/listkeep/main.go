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

	"github.com/dukerupert/listkeep/internal/auth"
	"github.com/dukerupert/listkeep/internal/backup"
	"github.com/dukerupert/listkeep/internal/config"
	"github.com/dukerupert/listkeep/internal/database"
	"github.com/dukerupert/listkeep/internal/events"
	"github.com/dukerupert/listkeep/internal/identity"
	"github.com/dukerupert/listkeep/internal/logging"
	"github.com/dukerupert/listkeep/internal/maintenance"
	"github.com/dukerupert/listkeep/internal/server"
	"github.com/dukerupert/listkeep/internal/websocket"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "restore" {
		if err := restore(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "listkeep restore:", err)
			os.Exit(1)
		}
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "listkeep:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.UsesDevSecret() {
		logger.Warn("LISTKEEP_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	keys, err := auth.DeriveKeys(cfg.Secret)
	if err != nil {
		return err
	}

	provider, err := identity.NewProvider(identity.ProviderConfig{
		Name:         cfg.OAuthProvider,
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		AuthURL:      cfg.OAuthAuthURL,
		TokenURL:     cfg.OAuthTokenURL,
		UserInfoURL:  cfg.OAuthUserInfoURL,
		RedirectURL:  cfg.RedirectURL(),
		Scopes:       identity.ScopesFromEnv(cfg.OAuthScopes),
	})
	if err != nil {
		return fmt.Errorf("oauth provider: %w", err)
	}

	hub := websocket.NewHub(logger.With("component", "websocket"))
	opts := server.Options{
		Provider:       provider,
		Keys:           keys,
		SessionTTL:     cfg.SessionTTL,
		Hub:            hub,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
	}

	if cfg.RedisURL != "" {
		relay, err := websocket.NewRedisRelay(ctx, cfg.RedisURL, hub, logger.With("component", "redis"))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", "error", err)
			}
		}()
		opts.Notifier = relay
		logger.Info("relaying change notifications through redis")
	}

	if cfg.RabbitMQURL != "" {
		pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, logger.With("component", "events"))
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer pub.Close()
		opts.Events = pub
	}

	srv := server.New(db, opts, logger)

	jobs := maintenance.New(srv.SessionStore(), srv.RateLimiter(), logger.With("component", "maintenance"))
	if bcfg := backupConfig(cfg); bcfg.Enabled() {
		backups, err := backup.NewManager(bcfg, db, logger.With("component", "backup"))
		if err != nil {
			return err
		}
		jobs.ScheduleBackups(backups, cfg.BackupSchedule)
	}
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}
	defer jobs.Stop()

	// WriteTimeout stays zero: snapshot streams are long-lived.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listkeep running", "addr", httpServer.Addr, "base_url", cfg.BaseURL, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func backupConfig(cfg *config.Config) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.BackupS3Endpoint,
			Bucket:    cfg.BackupS3Bucket,
			Region:    cfg.BackupS3Region,
			AccessKey: cfg.BackupS3AccessKey,
			SecretKey: cfg.BackupS3SecretKey,
		},
		Passphrase: cfg.BackupPassphrase,
		Retention:  cfg.BackupRetention,
	}
}

// restore replaces a database file with a snapshot from the backup bucket.
// Usage: listkeep restore <key> [dest.db]
func restore(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: listkeep restore <key> [dest.db]")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	dst := cfg.DBPath
	if len(args) == 2 {
		dst = args[1]
	}
	bcfg := backupConfig(cfg)
	if !bcfg.Enabled() {
		return errors.New("backups are not configured")
	}
	backups, err := backup.NewManager(bcfg, nil, logger.With("component", "backup"))
	if err != nil {
		return err
	}
	return backups.Restore(context.Background(), args[0], dst)
}
